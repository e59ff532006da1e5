package port

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Completer is a chat-completion endpoint: prompt in, raw model output
// out. jsonMode asks the endpoint to constrain output to a JSON object.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, jsonMode bool) (string, error)
}

// APIError is a non-2xx response from a downstream HTTP API. Carrying the
// status code lets callers classify failures structurally instead of
// sniffing message text.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err looks like a rate-limit rejection.
// The structured check on APIError.StatusCode is authoritative; the
// message-substring fallback covers errors wrapped by transports that
// discard the status.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
