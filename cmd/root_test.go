package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"analyze", "questions", "consolidate", "secondary", "export", "serve", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "rfp-insight", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestQuestionsCommand_HasSubcommands(t *testing.T) {
	cmds := questionsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"generate", "list", "delete"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestGenerateCommand_Flags(t *testing.T) {
	flag := questionsGenerateCmd.Flags().Lookup("ai-answers")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)

	require.NotNil(t, questionsGenerateCmd.Flags().Lookup("max"))
	require.NotNil(t, questionsGenerateCmd.Flags().Lookup("categories"))
}

func TestReadSource_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfp.txt")
	require.NoError(t, os.WriteFile(path, []byte("build a portal"), 0o644))

	got, err := readSource(path)
	require.NoError(t, err)
	assert.Equal(t, "build a portal", got)
}

func TestReadSource_MissingFile(t *testing.T) {
	_, err := readSource(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
