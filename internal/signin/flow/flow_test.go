package flow

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/core/snapshot"
)

// =============================================================================
// Mocks
// =============================================================================

type keySigner struct {
	key    *ecdsa.PrivateKey
	err    error
	during func()

	mu       sync.Mutex
	messages []string
}

func (s *keySigner) SignMessage(ctx context.Context, message string) (string, error) {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()

	if s.during != nil {
		s.during()
	}
	if s.err != nil {
		return "", s.err
	}
	return sign(s.key, message), nil
}

type mockLogin struct {
	during func()
	calls  int
	err    error
}

func (m *mockLogin) Login(ctx context.Context, challenge Challenge, signature string) (Session, error) {
	m.calls++
	if m.during != nil {
		m.during()
	}
	if m.err != nil {
		return Session{}, m.err
	}
	return Session{Token: "tok-" + challenge.Nonce, Address: challenge.Address, ChainID: challenge.ChainID}, nil
}

type mockRecoverer struct {
	raws []any
}

func (m *mockRecoverer) Recover(ctx context.Context, raw any) domain.RecoveryResult {
	m.raws = append(m.raws, raw)
	return domain.RecoveryResult{ShouldShowError: true}
}

func sign(key *ecdsa.PrivateKey, message string) string {
	sig, err := crypto.Sign(TextHash(message), key)
	if err != nil {
		panic(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

type fixture struct {
	store     *snapshot.Store
	signer    *keySigner
	login     *mockLogin
	recoverer *mockRecoverer
	address   string
	flow      *Flow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	fx := &fixture{
		store:     snapshot.NewStore(clock.NewFake(), nil),
		signer:    &keySigner{key: key},
		login:     &mockLogin{},
		recoverer: &mockRecoverer{},
		address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
	fx.store.Connect(fx.address, 1)
	fx.flow = New(Config{Domain: "app.example.org", URI: "https://app.example.org", Statement: "Sign in"}, Deps{
		State:     fx.store,
		Signer:    fx.signer,
		Login:     fx.login,
		Recoverer: fx.recoverer,
		Clock:     clock.NewFake(),
	})
	return fx
}

// =============================================================================
// Tests
// =============================================================================

func TestSignIn_Success(t *testing.T) {
	fx := newFixture(t)

	session, err := fx.flow.SignIn(context.Background(), fx.address)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Address != fx.address || session.ChainID != 1 {
		t.Errorf("unexpected session: %+v", session)
	}
	if fx.login.calls != 1 {
		t.Errorf("expected 1 login call, got %d", fx.login.calls)
	}

	msg := fx.signer.messages[0]
	if !strings.HasPrefix(msg, "app.example.org wants you to sign in with your Ethereum account:\n"+fx.address) {
		t.Errorf("unexpected challenge text:\n%s", msg)
	}
	if !strings.Contains(msg, "Chain ID: 1\n") {
		t.Errorf("challenge text missing chain id:\n%s", msg)
	}
}

func TestSignIn_InvalidInitialState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fx *fixture)
		want  error
	}{
		{"disconnected", func(fx *fixture) { fx.store.Disconnect() }, snapshot.ErrConnectionInvalid},
		{"address mismatch", func(fx *fixture) { fx.store.Connect(strings.ToLower(fx.address), 1) }, snapshot.ErrAddressMismatch},
		{"missing chain", func(fx *fixture) { fx.store.UpdateConnectionState(true, fx.address, nil) }, snapshot.ErrChainIDNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			tt.setup(fx)

			_, err := fx.flow.SignIn(context.Background(), fx.address)
			if !errors.Is(err, ErrInvalidInitialState) || !errors.Is(err, tt.want) {
				t.Errorf("expected %v wrapped in ErrInvalidInitialState, got %v", tt.want, err)
			}
			if len(fx.signer.messages) != 0 {
				t.Error("signature must not be requested")
			}
		})
	}
}

func TestSignIn_DriftDuringSignature(t *testing.T) {
	fx := newFixture(t)
	fx.signer.during = func() {
		chain := int64(137)
		fx.store.UpdateConnectionState(true, fx.address, &chain)
	}

	_, err := fx.flow.SignIn(context.Background(), fx.address)
	if !errors.Is(err, ErrStateDrift) {
		t.Fatalf("expected ErrStateDrift, got %v", err)
	}
	if !strings.Contains(err.Error(), CheckpointAfterSignature) {
		t.Errorf("expected checkpoint in error, got %v", err)
	}
	if fx.login.calls != 0 {
		t.Error("login must not run after drift")
	}
}

func TestSignIn_DisconnectDuringLoginIsNotChecked(t *testing.T) {
	fx := newFixture(t)
	fx.login.during = func() { fx.store.Disconnect() }

	if _, err := fx.flow.SignIn(context.Background(), fx.address); err != nil {
		t.Errorf("drift after the last checkpoint should not fail the flow, got %v", err)
	}
}

func TestSignIn_SequenceOnlyChangeIsNotDrift(t *testing.T) {
	fx := newFixture(t)
	fx.signer.during = func() { fx.store.Connect(fx.address, 1) }

	if _, err := fx.flow.SignIn(context.Background(), fx.address); err != nil {
		t.Errorf("unchanged identity should pass, got %v", err)
	}
}

func TestSignIn_SignerErrorIsRecovered(t *testing.T) {
	fx := newFixture(t)
	signErr := errors.New("WalletConnect: No matching key")
	fx.signer.err = signErr

	_, err := fx.flow.SignIn(context.Background(), fx.address)
	if !errors.Is(err, signErr) {
		t.Fatalf("expected signer error, got %v", err)
	}
	if len(fx.recoverer.raws) != 1 || fx.recoverer.raws[0] != signErr {
		t.Errorf("expected signer error routed to recovery, got %v", fx.recoverer.raws)
	}
}

func TestSignIn_LoginError(t *testing.T) {
	fx := newFixture(t)
	fx.login.err = errors.New("backend down")

	if _, err := fx.flow.SignIn(context.Background(), fx.address); err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Errorf("expected login error, got %v", err)
	}
}

func TestSignIn_MissingCollaborators(t *testing.T) {
	f := New(Config{}, Deps{})
	if _, err := f.SignIn(context.Background(), "0x0"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestSignatureVerifier(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	ch := newChallenge(Config{Domain: "d", URI: "u"}, crypto.PubkeyToAddress(key.PublicKey).Hex(), 1, time.Unix(0, 0))

	v := SignatureVerifier{}
	if err := v.Verify(context.Background(), ch, sign(key, ch.Text())); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
	if err := v.Verify(context.Background(), ch, sign(other, ch.Text())); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("expected ErrSignatureMismatch, got %v", err)
	}
	if err := v.Verify(context.Background(), ch, "0x1234"); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("expected ErrMalformedSignature, got %v", err)
	}
	if err := v.Verify(context.Background(), ch, "not hex"); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("expected ErrMalformedSignature, got %v", err)
	}
}

func TestChallenge_Text(t *testing.T) {
	ch := Challenge{
		Domain:   "app.example.org",
		Address:  "0x52908400098527886E0F7030069857D2E4169EE7",
		URI:      "https://app.example.org",
		Version:  "1",
		ChainID:  10,
		Nonce:    "abc12345",
		IssuedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	want := "app.example.org wants you to sign in with your Ethereum account:\n" +
		"0x52908400098527886E0F7030069857D2E4169EE7\n\n" +
		"URI: https://app.example.org\n" +
		"Version: 1\n" +
		"Chain ID: 10\n" +
		"Nonce: abc12345\n" +
		"Issued At: 2024-01-02T03:04:05Z"
	if got := ch.Text(); got != want {
		t.Errorf("unexpected text:\n%s\nwant:\n%s", got, want)
	}
}

func TestNewChallenge_ChecksumsAddress(t *testing.T) {
	ch := newChallenge(Config{}, "0x52908400098527886e0f7030069857d2e4169ee7", 1, time.Now())
	if ch.Address != "0x52908400098527886E0F7030069857D2E4169EE7" {
		t.Errorf("expected checksummed address, got %s", ch.Address)
	}
	if len(ch.Nonce) != 32 || strings.Contains(ch.Nonce, "-") {
		t.Errorf("unexpected nonce %q", ch.Nonce)
	}
}
