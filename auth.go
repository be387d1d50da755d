package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/drivewhizz/internal/config"
	"github.com/tonimelisma/drivewhizz/internal/session"
)

const (
	callbackPath            = "/callback"
	callbackShutdownTimeout = 5 * time.Second
)

func newLoginCmd() *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google Drive",
		Long: "Sign in to Google Drive. By default a one-shot callback server on 127.0.0.1\n" +
			"receives the authorization code; --manual prints the consent URL for the\n" +
			"configured redirect and asks for the code instead.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, manual)
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "paste the authorization code instead of running a callback server")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session",
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, manual bool) error {
	logger := buildLogger()

	if err := resolvedCfg.RequireGoogle(); err != nil {
		return err
	}

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	store := session.NewFileStore(config.DefaultTokenPath())
	oc := session.OAuthConfig(resolvedCfg.Google.ClientID, resolvedCfg.Google.ClientSecret, resolvedCfg.Google.RedirectURL)

	logger.Info("login started", slog.String("path", store.Path()), slog.Bool("manual", manual))

	if manual {
		mgr := session.NewManager(store, oc, logger, session.WithTTL(resolvedCfg.SessionTTLDuration()))
		if err := manualLogin(ctx, mgr, promptCode, logger); err != nil {
			return err
		}
	} else {
		flow := newLoginFlow(oc, store, resolvedCfg.SessionTTLDuration(), logger)
		defer flow.Close()

		authURL, err := flow.Start(ctx)
		if err != nil {
			return err
		}

		// The consent URL must be visible even with --quiet.
		fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in your browser to sign in:\n%s\n", authURL)

		if _, err := flow.Wait(ctx); err != nil {
			return err
		}
	}

	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	store := session.NewFileStore(config.DefaultTokenPath())

	logger.Info("logout started", slog.String("path", store.Path()))

	if err := store.Delete(context.Background()); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// manualLogin prints the consent URL for the configured redirect and
// exchanges whatever the user pastes back: the bare code or the full
// redirected URL.
func manualLogin(ctx context.Context, mgr *session.Manager, prompt func() (string, error), logger *slog.Logger) error {
	state := uuid.NewString()

	statusf("Open this URL in your browser, approve access, then paste the code or the address you were sent to:\n")
	fmt.Println(mgr.AuthorizationURL(state))

	input, err := prompt()
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}

	code, err := parsePastedCode(input, state)
	if err != nil {
		return err
	}

	logger.Info("received authorization code, exchanging for token")

	if _, err := mgr.Exchange(ctx, code); err != nil {
		return err
	}

	return nil
}

func promptCode() (string, error) {
	p := promptui.Prompt{
		Label: "Authorization code",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("code is required")
			}

			return nil
		},
	}

	return p.Run()
}

// parsePastedCode accepts a bare authorization code or the redirected URL
// carrying it. A URL must carry the expected state.
func parsePastedCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("no authorization code given")
	}

	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parsing redirected URL: %w", err)
	}

	q := u.Query()

	if errParam := q.Get("error"); errParam != "" {
		return "", fmt.Errorf("authorization failed: %s", errParam)
	}

	if q.Get("state") != state {
		return "", errors.New("OAuth state mismatch in pasted URL")
	}

	code := q.Get("code")
	if code == "" {
		return "", errors.New("pasted URL carries no authorization code")
	}

	return code, nil
}

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// loginFlow runs at most one browser login at a time through a callback
// server on 127.0.0.1. The chat and exec AUTH commands and `login` use it.
type loginFlow struct {
	oauth  *oauth2.Config
	store  session.Store
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending *loopback
}

// loopback is one pending login.
type loopback struct {
	srv      *http.Server
	authURL  string
	verifier string
	mgr      *session.Manager
	resultCh chan callbackResult
}

func newLoginFlow(oc *oauth2.Config, store session.Store, ttl time.Duration, logger *slog.Logger) *loginFlow {
	return &loginFlow{oauth: oc, store: store, ttl: ttl, logger: logger}
}

// Start binds the callback server and returns the consent URL. A login that
// is already pending returns its URL again.
func (f *loginFlow) Start(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending != nil {
		return f.pending.authURL, nil
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return "", errors.New("listener address is not TCP")
	}

	oc := *f.oauth
	oc.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d%s", tcpAddr.Port, callbackPath)

	state := uuid.NewString()
	lb := &loopback{
		verifier: oauth2.GenerateVerifier(),
		mgr:      session.NewManager(f.store, &oc, f.logger, session.WithTTL(f.ttl)),
		resultCh: make(chan callbackResult, 1),
	}
	lb.authURL = lb.mgr.AuthorizationURL(state, oauth2.S256ChallengeOption(lb.verifier))

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, lb.resultCh)
	})

	lb.srv = &http.Server{Handler: mux, ReadHeaderTimeout: callbackShutdownTimeout}

	go func() {
		if serveErr := lb.srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			deliver(lb.resultCh, callbackResult{err: fmt.Errorf("callback server error: %w", serveErr)})
		}
	}()

	f.logger.Info("callback server listening", slog.Int("port", tcpAddr.Port))
	f.pending = lb

	return lb.authURL, nil
}

// Pending reports whether a login is waiting for its callback.
func (f *loginFlow) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pending != nil
}

// Wait blocks until the pending login's callback arrives, exchanges the code
// and persists the session. The callback server is shut down either way.
func (f *loginFlow) Wait(ctx context.Context) (*session.Session, error) {
	f.mu.Lock()
	lb := f.pending
	f.mu.Unlock()

	if lb == nil {
		return nil, errors.New("no login in progress")
	}

	defer f.finish(lb)

	var res callbackResult

	select {
	case res = <-lb.resultCh:
	case <-ctx.Done():
		return nil, fmt.Errorf("browser login canceled: %w", ctx.Err())
	}

	if res.err != nil {
		return nil, res.err
	}

	f.logger.Info("received authorization code, exchanging for token")

	return lb.mgr.Exchange(ctx, res.code, oauth2.VerifierOption(lb.verifier))
}

// Close abandons a pending login.
func (f *loginFlow) Close() {
	f.mu.Lock()
	lb := f.pending
	f.mu.Unlock()

	if lb != nil {
		f.finish(lb)
	}
}

func (f *loginFlow) finish(lb *loopback) {
	f.mu.Lock()
	if f.pending == lb {
		f.pending = nil
	}
	f.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
	defer cancel()

	if err := lb.srv.Shutdown(shutdownCtx); err != nil {
		f.logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// handleOAuthCallback validates the state, extracts the code, and sends the result.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	q := r.URL.Query()

	// Validate state to prevent CSRF.
	if q.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: errors.New("OAuth state mismatch (possible CSRF)")})

		return
	}

	if errParam := q.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: fmt.Errorf("authorization failed: %s", errParam)})

		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: errors.New("callback missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	deliver(resultCh, callbackResult{code: code})
}

// deliver hands over the first result; later callbacks are dropped.
func deliver(ch chan<- callbackResult, res callbackResult) {
	select {
	case ch <- res:
	default:
	}
}
