package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONFencedBlock(t *testing.T) {
	in := "```json\n{\"overview\": \"a portal\"}\n```"
	assert.Equal(t, `{"overview": "a portal"}`, cleanJSON(in))
}

func TestCleanJSONBareFence(t *testing.T) {
	in := "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, cleanJSON(in))
}

func TestCleanJSONSurroundingProse(t *testing.T) {
	in := "Here is the extraction:\n{\"a\": 1}\nLet me know if you need more."
	assert.Equal(t, `{"a": 1}`, cleanJSON(in))
}

func TestFirstJSONObjectBracesInsideStrings(t *testing.T) {
	in := `{"answer": "use {curly} notation and a \" quote"} trailing text`
	got := firstJSONObject(in)
	assert.Equal(t, `{"answer": "use {curly} notation and a \" quote"}`, got)
}

func TestFirstJSONObjectNested(t *testing.T) {
	in := `prefix {"outer": {"inner": [1, 2]}} suffix`
	assert.Equal(t, `{"outer": {"inner": [1, 2]}}`, firstJSONObject(in))
}

func TestFirstJSONObjectUnbalanced(t *testing.T) {
	assert.Empty(t, firstJSONObject(`{"a": 1`))
	assert.Empty(t, firstJSONObject("no json here"))
}

func TestFirstJSONObjectInvalidJSON(t *testing.T) {
	// Balanced braces but not valid JSON.
	assert.Empty(t, firstJSONObject(`{a: 1}`))
}

func TestToStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, toStringSlice([]any{"a", "b", 3, ""}))
	assert.Equal(t, []string{"solo"}, toStringSlice("solo"))
	assert.Nil(t, toStringSlice(nil))
	assert.Nil(t, toStringSlice(42))
}

func TestToFloat64(t *testing.T) {
	v, ok := toFloat64(0.75)
	assert.True(t, ok)
	assert.Equal(t, 0.75, v)

	v, ok = toFloat64(int64(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = toFloat64("0.75")
	assert.False(t, ok)
}
