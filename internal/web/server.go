// Package web serves the chat front-end over HTTP: a static page, a JSON
// command endpoint, a WebSocket chat, and the Google OAuth routes.
package web

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/drivewhizz/internal/command"
	"github.com/tonimelisma/drivewhizz/internal/config"
	"github.com/tonimelisma/drivewhizz/internal/drive"
	"github.com/tonimelisma/drivewhizz/internal/history"
	"github.com/tonimelisma/drivewhizz/internal/session"
	"github.com/tonimelisma/drivewhizz/internal/summarize"
)

//go:embed static/index.html
var staticFS embed.FS

const (
	stateCookie        = "oauth_state"
	conversationCookie = "dw_conversation"
	stateMaxAge        = 10 * time.Minute
	maxBodyBytes       = 64 << 10
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// Options wires a Server. Only Config is required.
type Options struct {
	Config *config.Holder

	// History records every exchange when non-nil.
	History *history.Store

	// Summarizer backs SUMMARY; nil disables it.
	Summarizer summarize.Summarizer

	// Gateway builds the Drive gateway for a session. Defaults to the
	// Google Drive API.
	Gateway command.GatewayFunc

	// Endpoint overrides Google's OAuth endpoint.
	Endpoint *oauth2.Endpoint

	Logger *slog.Logger
}

// Server is the HTTP front-end. Each request gets its own session store,
// session manager and interpreter; only the config holder and the history
// store are shared.
type Server struct {
	cfg        *config.Holder
	key        *session.CookieKey
	history    *history.Store
	summarizer summarize.Summarizer
	gateway    command.GatewayFunc
	endpoint   *oauth2.Endpoint
	logger     *slog.Logger
}

// New validates the server settings and returns a Server. The cookie key is
// derived once; changing cookie_secret needs a restart.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config.Config()
	if err := cfg.RequireServer(); err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	key, err := session.DeriveCookieKey(cfg.Server.CookieSecret)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	gateway := opts.Gateway
	if gateway == nil {
		gateway = func(ctx context.Context, s *session.Session) (drive.Gateway, error) {
			return drive.NewGoogleGatewayForToken(ctx, s.Token(), logger)
		}
	}

	return &Server{
		cfg:        opts.Config,
		key:        key,
		history:    opts.History,
		summarizer: opts.Summarizer,
		gateway:    gateway,
		endpoint:   opts.Endpoint,
		logger:     logger,
	}, nil
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/callback/google", s.handleCallback)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is canceled, then drains.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("web: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", slog.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutting down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: serving: %w", err)
	}

	s.logger.Info("http server stopped")

	return nil
}

// manager builds the per-request session manager.
func (s *Server) manager(w http.ResponseWriter, r *http.Request) *session.Manager {
	cfg := s.cfg.Config()

	oc := session.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	if s.endpoint != nil {
		oc.Endpoint = *s.endpoint
	}

	store := session.NewCookieStore(w, r, s.key, cfg.Server.SecureCookies)

	return session.NewManager(store, oc, s.logger, session.WithTTL(cfg.SessionTTLDuration()))
}

// interpreter builds the per-request interpreter around mgr.
func (s *Server) interpreter(mgr *session.Manager, authURL command.AuthURLFunc) *command.Interpreter {
	return command.New(command.Config{
		Sessions:    mgr,
		Gateway:     s.gateway,
		Summarizer:  s.summarizer,
		AuthURL:     authURL,
		CallTimeout: s.cfg.Config().CallTimeoutDuration(),
		Logger:      s.logger,
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the WebSocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols

	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
