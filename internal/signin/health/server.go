// Package health serves the HTTP surface: health, metrics and the wallet/error
// event endpoints that drive the engine.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/infra/wallet"
	"github.com/vietddude/authguard/internal/signin/classify"
	"github.com/vietddude/authguard/internal/signin/notify"
)

const (
	StatusHealthy  = "healthy"
	StatusCritical = "critical"
)

// healthCheckTimeout bounds a single component check.
const healthCheckTimeout = 2 * time.Second

// StateReader exposes the current connection snapshot.
type StateReader interface {
	Capture() domain.ConnectionSnapshot
}

// WalletEvents accepts external wallet events.
type WalletEvents interface {
	Connect(address string, chainID int64) error
	SwitchChain(chainID int64) error
	Disconnect(ctx context.Context) error
}

// Reporter is the raw error-reporting channel.
type Reporter interface {
	Report(args ...any)
}

// HealthChecker reports whether a backing component is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NotificationLister returns recently shown notifications.
type NotificationLister interface {
	Recent() []notify.Notification
}

// Deps are the collaborators behind the endpoints. Endpoints whose
// collaborator is nil answer 503.
type Deps struct {
	State         StateReader
	Wallet        WalletEvents
	Reporter      Reporter
	Notifications NotificationLister
	// Checker is the persisted store check. Nil means nothing to check.
	Checker HealthChecker
	Logger  *slog.Logger
}

// Server provides the HTTP endpoints.
type Server struct {
	deps   Deps
	log    *slog.Logger
	router chi.Router
	server *http.Server
}

// NewServer creates a server listening on port.
func NewServer(d Deps, port int) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		deps:   d,
		log:    log.With("component", "http"),
		router: r,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/state", s.handleState)
	r.Get("/notifications", s.handleNotifications)
	r.Route("/wallet", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Post("/chain", s.handleChain)
		r.Post("/disconnect", s.handleDisconnect)
	})
	r.Post("/report", s.handleReport)
	r.Post("/classify", s.handleClassify)

	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type connectRequest struct {
	Address string `json:"address"`
	ChainID int64  `json:"chain_id"`
}

type chainRequest struct {
	ChainID int64 `json:"chain_id"`
}

type reportRequest struct {
	Args []any `json:"args"`
}

type classifyRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.deps.Checker.Health(ctx); err != nil {
			s.log.Warn("Storage health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": StatusCritical,
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": StatusHealthy})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.deps.State == nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.State.Capture())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notifications == nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Notifications.Recent())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Wallet == nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.deps.Wallet.Connect(req.Address, req.ChainID); err != nil {
		writeError(w, walletStatus(err), err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	if s.deps.Wallet == nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	var req chainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.deps.Wallet.SwitchChain(req.ChainID); err != nil {
		writeError(w, walletStatus(err), err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Wallet == nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	if err := s.deps.Wallet.Disconnect(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.handleState(w, r)
}

// handleReport feeds the raw error channel. Recovery runs asynchronously, so
// the response only acknowledges delivery.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reporter == nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Args) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("args must not be empty"))
		return
	}

	s.deps.Reporter.Report(req.Args...)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, classify.Analyze(req.Message))
}

func walletStatus(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInvalidAddress), errors.Is(err, wallet.ErrInvalidChainID):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrNotConnected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
