package anthropic

import (
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// FailureKind is a closed classification of completion failures. Callers
// branch on kinds instead of the provider's error hierarchy, so swapping
// providers only touches Classify.
type FailureKind string

const (
	FailureAuth           FailureKind = "auth"
	FailureRateLimit      FailureKind = "rate_limit"
	FailureContextTooLong FailureKind = "context_too_long"
	FailureProvider       FailureKind = "provider"
	FailureGeneric        FailureKind = "generic"
)

// Classify maps an error from CreateMessage to a FailureKind. Detail carries
// the provider's own error body when one is available.
func Classify(err error) (kind FailureKind, detail string) {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return FailureGeneric, err.Error()
	}

	detail = http.StatusText(apierr.StatusCode)
	if apierr.Request != nil && apierr.Response != nil {
		detail = apierr.Error()
	}

	switch apierr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth, detail
	case http.StatusTooManyRequests:
		return FailureRateLimit, detail
	case http.StatusRequestEntityTooLarge:
		return FailureContextTooLong, detail
	}

	// Oversized prompts surface as a 400 invalid_request_error mentioning
	// the context window.
	lower := strings.ToLower(detail)
	if apierr.StatusCode == http.StatusBadRequest &&
		(strings.Contains(lower, "context") || strings.Contains(lower, "too long")) {
		return FailureContextTooLong, detail
	}

	return FailureProvider, detail
}
