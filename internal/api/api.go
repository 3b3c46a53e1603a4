package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/clivihealth/careflow/internal/messaging"
	"github.com/clivihealth/careflow/internal/store"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

// Opts holds server configuration.
type Opts struct {
	Addr   string
	Store  store.Store
	Twilio *messaging.TwilioService
}

// Option configures the server via functional options.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStore sets the backing store for inspection endpoints.
func WithStore(st store.Store) Option {
	return func(o *Opts) { o.Store = st }
}

// WithTwilioService enables the Twilio inbound webhook endpoint.
func WithTwilioService(svc *messaging.TwilioService) Option {
	return func(o *Opts) { o.Twilio = svc }
}

// Server serves the operational HTTP API.
type Server struct {
	addr   string
	store  store.Store
	twilio *messaging.TwilioService
	http   *http.Server
}

// NewServer builds the server and its route table.
func NewServer(opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{addr: cfg.Addr, store: cfg.Store, twilio: cfg.Twilio}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/patients", s.patientsHandler)
	if s.twilio != nil {
		mux.HandleFunc("/webhooks/twilio", s.twilioWebhookHandler)
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}
