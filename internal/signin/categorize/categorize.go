// Package categorize maps raw wallet errors to user-facing application errors.
package categorize

import (
	"errors"
	"strings"

	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/signin/classify"
)

// codeUserRejected is the provider error code for a request the user declined.
const codeUserRejected = 4001

// coder is implemented by provider errors that carry a numeric code.
type coder interface {
	ErrorCode() int
}

var (
	// Code 4001 only counts in its delimited forms; bare digits show up in ports and ids.
	userRejectedIndicators = []string{
		"user rejected", "user denied", "request rejected",
		"code: 4001", "code 4001", "code=4001", `"code":4001`, "(4001)",
	}
	networkIndicators      = []string{"network error", "failed to fetch", "connection refused", "econnreset", "network request failed"}
)

var messages = map[domain.AppErrorType]string{
	domain.AppErrorUserRejected: "Request was rejected in your wallet.",
	domain.AppErrorSession:      "Your wallet session expired. Please reconnect your wallet.",
	domain.AppErrorTimeout:      "The wallet did not respond in time. Please try again.",
	domain.AppErrorConnector:    "Your wallet is not connected. Please connect and try again.",
	domain.AppErrorNetwork:      "Network error. Check your connection and try again.",
	domain.AppErrorUnknown:      "Something went wrong. Please try again.",
}

// Categorizer is the default categorization collaborator. The zero value is ready to use.
type Categorizer struct{}

// New returns a Categorizer.
func New() Categorizer {
	return Categorizer{}
}

// Categorize assigns a type and display message to raw. User rejection wins over
// every other category, then the classifier kinds, then network failures.
func (Categorizer) Categorize(raw any) domain.AppError {
	var appErr domain.AppError
	if errors.As(asError(raw), &appErr) {
		return appErr
	}

	msg := classify.Message(raw)
	typ := typeOf(raw, msg)
	return domain.AppError{
		Type:                typ,
		UserFriendlyMessage: messages[typ],
		OriginalError:       asError(raw),
	}
}

// IsUserInitiated reports whether the error came from the user declining a request.
func (Categorizer) IsUserInitiated(appErr domain.AppError) bool {
	return appErr.Type == domain.AppErrorUserRejected
}

func typeOf(raw any, msg string) domain.AppErrorType {
	var c coder
	if errors.As(asError(raw), &c) && c.ErrorCode() == codeUserRejected {
		return domain.AppErrorUserRejected
	}

	lower := strings.ToLower(msg)
	if containsAny(lower, userRejectedIndicators) {
		return domain.AppErrorUserRejected
	}

	switch classify.KindOf(msg) {
	case domain.ErrorKindSession:
		return domain.AppErrorSession
	case domain.ErrorKindTimeout:
		return domain.AppErrorTimeout
	case domain.ErrorKindConnector:
		return domain.AppErrorConnector
	}

	if containsAny(lower, networkIndicators) {
		return domain.AppErrorNetwork
	}
	return domain.AppErrorUnknown
}

func asError(raw any) error {
	switch v := raw.(type) {
	case nil:
		return nil
	case error:
		return v
	default:
		return errors.New(classify.Message(raw))
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
