package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tonimelisma/drivewhizz/internal/command"
	"github.com/tonimelisma/drivewhizz/internal/history"
	"github.com/tonimelisma/drivewhizz/internal/session"
)

type commandRequest struct {
	Input string `json:"input"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Welcome       string `json:"welcome"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.conversation(w, r)
	http.ServeFileFS(w, r, staticFS, "static/index.html")
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager(w, r).Active(r.Context())
	if err != nil {
		s.logger.Error("reading session", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: sess != nil,
		Welcome:       command.Welcome(sess != nil),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, command.Response{Message: "Error: invalid request body.", Kind: command.KindError})
		return
	}

	mgr := s.manager(w, r)

	// AUTH over HTTP can set the state cookie on this response directly.
	authURL := func(context.Context) (string, error) {
		state := uuid.NewString()
		setStateCookie(w, state, s.cfg.Config().Server.SecureCookies)

		return mgr.AuthorizationURL(state), nil
	}

	cmd := command.Parse(req.Input)
	resp := s.interpreter(mgr, authURL).Run(r.Context(), cmd)

	s.record(r.Context(), s.conversation(w, r), req.Input, cmd, resp)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.history.Conversation(r.Context(), s.conversation(w, r), limit)
	if err != nil {
		s.logger.Error("reading history", slog.String("error", err.Error()))
		http.Error(w, "could not read history", http.StatusInternalServerError)

		return
	}

	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	setStateCookie(w, state, s.cfg.Config().Server.SecureCookies)

	http.Redirect(w, r, s.manager(w, r).AuthorizationURL(state), http.StatusFound)
}

// handleCallback completes the OAuth flow and always redirects back to the
// chat page, with ?error= on failure.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	secure := s.cfg.Config().Server.SecureCookies

	expected, cookieErr := r.Cookie(stateCookie)
	clearStateCookie(w, secure)

	if errParam := q.Get("error"); errParam != "" {
		s.logger.Warn("authorization denied",
			slog.String("error", errParam),
			slog.String("description", q.Get("error_description")),
		)
		http.Redirect(w, r, "/?error=auth_failed", http.StatusFound)

		return
	}

	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, "/?error=no_code", http.StatusFound)
		return
	}

	if cookieErr != nil || expected.Value == "" || expected.Value != q.Get("state") {
		s.logger.Warn("oauth state mismatch")
		http.Redirect(w, r, "/?error=state", http.StatusFound)

		return
	}

	if _, err := s.manager(w, r).Exchange(r.Context(), code); err != nil {
		s.logger.Error("exchanging authorization code", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?error=auth_failed", http.StatusFound)

		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.manager(w, r).Clear(r.Context()); err != nil {
		s.logger.Error("clearing session", slog.String("error", err.Error()))
		http.Error(w, "could not log out", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// conversation returns the caller's conversation id, issuing one if needed.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(conversationCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := history.NewConversationID()

	http.SetCookie(w, &http.Cookie{
		Name:     conversationCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.Config().SessionTTLDuration().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Config().Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	// Later calls in this request see the new id.
	r.AddCookie(&http.Cookie{Name: conversationCookie, Value: id})

	return id
}

// record appends one exchange to the transcript. Failures are logged only.
func (s *Server) record(ctx context.Context, conversation, input string, cmd command.Command, resp command.Response) {
	if s.history == nil {
		return
	}

	_, err := s.history.Append(ctx, history.Entry{
		Conversation: conversation,
		Input:        input,
		Command:      cmd.Keyword(),
		Message:      resp.Text(),
		Kind:         string(resp.Kind),
	})
	if err != nil {
		s.logger.Warn("recording history", slog.String("error", err.Error()))
	}
}

func setStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encoding response", slog.String("error", err.Error()))
	}
}

var _ command.Sessions = (*session.Manager)(nil)
