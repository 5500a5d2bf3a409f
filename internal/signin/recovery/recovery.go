// Package recovery dispatches classified wallet errors to a recovery strategy.
package recovery

import (
	"context"
	"time"

	"github.com/vietddude/authguard/internal/core/domain"
)

// Fixed delays. None of them are cancellable or shortened by later events.
const (
	SessionNoticeDelay        = 1500 * time.Millisecond
	TimeoutErrorDelayMs       = 2000
	ConnectorErrorDelayMs     = 1500
	GenericDisconnectDelayMs  = 2000
	GenericUserInitiatedDelay = 1500
	UnavailableErrorDelayMs   = 1500
)

// unavailableResult is returned instead of failing when the disconnect capability is missing.
var unavailableResult = domain.RecoveryResult{
	ShouldDisconnect: false,
	ShouldShowError:  true,
	ErrorDelayMs:     UnavailableErrorDelayMs,
	CleanupPerformed: false,
}

// Disconnector is the wallet connector's disconnect capability.
type Disconnector interface {
	Disconnect(ctx context.Context) error
}

// Categorizer turns raw errors into displayable application errors.
type Categorizer interface {
	Categorize(raw any) domain.AppError
	IsUserInitiated(appErr domain.AppError) bool
}

// Notifier shows user-visible notifications. Calls must not block.
type Notifier interface {
	Show(appErr domain.AppError)
	ShowSessionNotice()
}

// SessionCleaner runs the session cleanup stages, strongest first.
type SessionCleaner interface {
	PurgeCorrelated(ctx context.Context, correlationID string) (int, error)
	PurgeConnection(ctx context.Context) (int, error)
	Preventive(ctx context.Context) (int, error)
}

// StateReader exposes the current connection snapshot.
type StateReader interface {
	Capture() domain.ConnectionSnapshot
}

// Feedback schedules user-visible display of an error after recovery.
type Feedback interface {
	Show(appErr domain.AppError, result domain.RecoveryResult)
}

// Request is the input of one strategy invocation.
type Request struct {
	Classification domain.ErrorClassification
	AppError       domain.AppError
	Connection     domain.ConnectionSnapshot
}

// Strategy handles one error kind. Implementations never fail; every outcome is
// expressed in the returned RecoveryResult.
type Strategy interface {
	Handle(ctx context.Context, req Request) domain.RecoveryResult
}
