package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation(CodeProjectRequired, "project required"), http.StatusBadRequest},
		{"auth", Auth("bad token"), http.StatusUnauthorized},
		{"not found", NotFound("no such analysis"), http.StatusNotFound},
		{"conflict", Conflict(CodeQuestionsExist, "questions exist"), http.StatusConflict},
		{"upstream timeout", Upstream(UpstreamTimeout, "engine timeout", nil), http.StatusGatewayTimeout},
		{"upstream quota", Upstream(UpstreamQuota, "rate limited", nil), http.StatusServiceUnavailable},
		{"upstream network", Upstream(UpstreamNetwork, "connection failed", nil), http.StatusBadGateway},
		{"upstream auth", Upstream(UpstreamAuth, "invalid key", nil), http.StatusBadGateway},
		{"upstream malformed", Upstream(UpstreamMalformed, "bad json", nil), http.StatusBadGateway},
		{"persistence", Persistence("write failed", errors.New("disk")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"nil chain code", eris.Wrap(NotFound("gone"), "outer"), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Upstream(UpstreamNetwork, "reset", nil)))
	assert.True(t, IsRetryable(Upstream(UpstreamTimeout, "deadline", nil)))
	assert.True(t, IsRetryable(Upstream(UpstreamQuota, "429", nil)))

	assert.False(t, IsRetryable(Upstream(UpstreamAuth, "401", nil)))
	assert.False(t, IsRetryable(Upstream(UpstreamMalformed, "bad json", nil)))
	assert.False(t, IsRetryable(Validation(CodeProjectRequired, "project required")))
	assert.False(t, IsRetryable(Persistence("write failed", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeQuestionsExist, CodeOf(Conflict(CodeQuestionsExist, "exists")))
	assert.Equal(t, CodeNoAnswersFound, CodeOf(eris.Wrap(Validation(CodeNoAnswersFound, "none"), "consolidate")))
	assert.Equal(t, "", CodeOf(NotFound("gone")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream(UpstreamNetwork, "engine call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "engine call failed")
	assert.Contains(t, err.Error(), "connection reset")

	bare := NotFound("gone")
	assert.Equal(t, "gone", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))
}

func TestAs(t *testing.T) {
	inner := Conflict(CodeAlreadyProcessing, "busy")
	wrapped := eris.Wrap(inner, "extraction")

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindConflict, got.Kind)
	assert.Equal(t, CodeAlreadyProcessing, got.Code)

	assert.Nil(t, As(errors.New("plain")))
	assert.Nil(t, As(nil))
}
