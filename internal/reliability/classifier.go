package reliability

import (
	"context"
	"errors"
	"net"

	"github.com/sashabaranov/go-openai"
)

// Completion error classes used as metric labels.
const (
	ClassRateLimited = "rate_limited"
	ClassAuth        = "auth"
	ClassBadRequest  = "bad_request"
	ClassUpstream    = "upstream"
	ClassTimeout     = "timeout"
	ClassCanceled    = "canceled"
	ClassNetwork     = "network"
	ClassUnknown     = "unknown"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ClassifyCompletionError maps a completer failure to a stable label.
// Classification only feeds metrics and logs; nothing is retried.
func ClassifyCompletionError(err error) (class string, retryable bool) {
	if err == nil {
		return "", false
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout, true
	case errors.Is(err, context.Canceled):
		return ClassCanceled, false
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status != 0 {
		return classForStatus(status), IsRetryableHTTPStatus(status)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout, true
		}
		return ClassNetwork, true
	}
	return ClassUnknown, false
}

func classForStatus(code int) string {
	switch {
	case code == 429:
		return ClassRateLimited
	case code == 401 || code == 403:
		return ClassAuth
	case code >= 500:
		return ClassUpstream
	case code >= 400:
		return ClassBadRequest
	default:
		return ClassUnknown
	}
}
