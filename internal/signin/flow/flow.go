// Package flow runs the wallet sign-in sequence with drift checks between steps.
//
// The connection is locked once at the start. Every suspend point owned by the
// wallet or the network is followed by a checkpoint comparing a fresh snapshot
// with the locked one. Drift aborts the flow with ErrStateDrift and is never
// retried automatically.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/signin/metrics"
)

// Checkpoint labels. They are only used for logging and metrics.
const (
	CheckpointBeforeSignature = "before-signature"
	CheckpointAfterSignature  = "after-signature"
	CheckpointBeforeLogin     = "before-login"
)

var (
	ErrInvalidInitialState = errors.New("invalid initial wallet state")
	ErrStateDrift          = errors.New("wallet state changed during sign-in")
)

// State is the connection snapshot store.
type State interface {
	Capture() domain.ConnectionSnapshot
	ValidateInitialState(expectedAddress string) error
	ValidateState(locked, current domain.ConnectionSnapshot, checkpoint string) bool
}

// Signer asks the wallet to sign a message.
type Signer interface {
	SignMessage(ctx context.Context, message string) (string, error)
}

// Verifier checks a signature against a challenge.
type Verifier interface {
	Verify(ctx context.Context, challenge Challenge, signature string) error
}

// LoginClient exchanges a verified signature for a session.
type LoginClient interface {
	Login(ctx context.Context, challenge Challenge, signature string) (Session, error)
}

// Recoverer handles wallet errors raised during the flow.
type Recoverer interface {
	Recover(ctx context.Context, raw any) domain.RecoveryResult
}

// Session is an authenticated session.
type Session struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ChainID   int64     `json:"chain_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config holds the challenge fields that do not come from the wallet.
type Config struct {
	Domain    string `yaml:"domain"`
	URI       string `yaml:"uri"`
	Statement string `yaml:"statement"`
}

// Deps are the collaborators of a Flow. Verifier defaults to SignatureVerifier.
type Deps struct {
	State     State
	Signer    Signer
	Verifier  Verifier
	Login     LoginClient
	Recoverer Recoverer
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Flow runs sign-in attempts. It is safe for concurrent use; attempts share no state.
type Flow struct {
	cfg       Config
	state     State
	signer    Signer
	verifier  Verifier
	login     LoginClient
	recoverer Recoverer
	clock     clock.Clock
	log       *slog.Logger
}

// New creates a Flow.
func New(cfg Config, d Deps) *Flow {
	if d.Verifier == nil {
		d.Verifier = SignatureVerifier{}
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Flow{
		cfg:       cfg,
		state:     d.State,
		signer:    d.Signer,
		verifier:  d.Verifier,
		login:     d.Login,
		recoverer: d.Recoverer,
		clock:     d.Clock,
		log:       d.Logger.With("component", "flow"),
	}
}

// SignIn authenticates expectedAddress with the connected wallet.
func (f *Flow) SignIn(ctx context.Context, expectedAddress string) (Session, error) {
	if f.state == nil || f.signer == nil || f.login == nil {
		return Session{}, domain.ErrServiceUnavailable
	}

	if err := f.state.ValidateInitialState(expectedAddress); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidInitialState, err)
	}

	locked := f.state.Capture()
	if !locked.IsConnected || !locked.HasChainID() {
		return Session{}, fmt.Errorf("%w: wallet disconnected after validation", ErrInvalidInitialState)
	}
	challenge := newChallenge(f.cfg, locked.Address, *locked.ChainID, f.clock.Now())
	log := f.log.With("nonce", challenge.Nonce, "sequence", locked.SequenceNumber)
	log.Info("Sign-in started", "address", challenge.Address, "chain_id", challenge.ChainID)

	if err := f.checkpoint(locked, CheckpointBeforeSignature); err != nil {
		return Session{}, err
	}

	signature, err := f.signer.SignMessage(ctx, challenge.Text())
	if err != nil {
		log.Warn("Signature request failed", "error", err)
		if f.recoverer != nil {
			f.recoverer.Recover(ctx, err)
		}
		return Session{}, fmt.Errorf("request signature: %w", err)
	}

	if err := f.checkpoint(locked, CheckpointAfterSignature); err != nil {
		return Session{}, err
	}

	if err := f.verifier.Verify(ctx, challenge, signature); err != nil {
		return Session{}, fmt.Errorf("verify signature: %w", err)
	}

	if err := f.checkpoint(locked, CheckpointBeforeLogin); err != nil {
		return Session{}, err
	}

	session, err := f.login.Login(ctx, challenge, signature)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	log.Info("Sign-in completed")
	return session, nil
}

func (f *Flow) checkpoint(locked domain.ConnectionSnapshot, label string) error {
	if f.state.ValidateState(locked, f.state.Capture(), label) {
		return nil
	}
	metrics.StateDrift.WithLabelValues(label).Inc()
	return fmt.Errorf("%w (checkpoint %s)", ErrStateDrift, label)
}
