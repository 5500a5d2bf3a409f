package domain

import "errors"

// ErrServiceUnavailable is returned or logged when a required collaborator is missing.
var ErrServiceUnavailable = errors.New("required service unavailable")

// ErrorKind is the recovery taxonomy of a raw wallet error.
type ErrorKind string

const (
	ErrorKindSession   ErrorKind = "session"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindConnector ErrorKind = "connector"
	ErrorKindGeneric   ErrorKind = "generic"
)

// ErrorKinds lists every kind in classification precedence order.
var ErrorKinds = []ErrorKind{
	ErrorKindSession,
	ErrorKindTimeout,
	ErrorKindConnector,
	ErrorKindGeneric,
}

// ErrorClassification is produced once per raw error.
type ErrorClassification struct {
	Kind          ErrorKind `json:"kind"`
	RawMessage    string    `json:"raw_message"`
	CorrelationID string    `json:"correlation_id,omitempty"` // empty when absent
}

// RecoveryResult is the outcome of exactly one strategy invocation.
type RecoveryResult struct {
	ShouldDisconnect bool `json:"should_disconnect"`
	ShouldShowError  bool `json:"should_show_error"`
	ErrorDelayMs     int  `json:"error_delay_ms"`
	CleanupPerformed bool `json:"cleanup_performed"`
}

// AppErrorType is the user-facing category assigned by the categorizer.
type AppErrorType string

const (
	AppErrorUserRejected AppErrorType = "user_rejected"
	AppErrorSession      AppErrorType = "session"
	AppErrorTimeout      AppErrorType = "timeout"
	AppErrorConnector    AppErrorType = "connector"
	AppErrorNetwork      AppErrorType = "network"
	AppErrorUnknown      AppErrorType = "unknown"
)

// AppError is a raw error enriched for display.
type AppError struct {
	Type                AppErrorType `json:"type"`
	UserFriendlyMessage string       `json:"user_friendly_message"`
	OriginalError       error        `json:"-"`
}

func (e AppError) Error() string {
	if e.OriginalError != nil {
		return e.OriginalError.Error()
	}
	return e.UserFriendlyMessage
}
