package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// StatusCode extracts the HTTP status code from an SDK API error in err's
// chain. Returns (0, false) for non-HTTP failures such as network errors.
func StatusCode(err error) (int, bool) {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode, true
	}
	return 0, false
}

// IsTimeout reports whether err is a context deadline or cancellation
// produced while waiting on the API.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
