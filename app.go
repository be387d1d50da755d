package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/drivewhizz/internal/command"
	"github.com/tonimelisma/drivewhizz/internal/config"
	"github.com/tonimelisma/drivewhizz/internal/drive"
	"github.com/tonimelisma/drivewhizz/internal/history"
	"github.com/tonimelisma/drivewhizz/internal/session"
	"github.com/tonimelisma/drivewhizz/internal/summarize"
)

// demoSummary stands in for Gemini output in demo mode.
const demoSummary = "Demo summary: this file would be summarized by Gemini."

// terminal bundles what the chat and exec commands share: an interpreter,
// the pending browser login (if any) and the transcript store.
type terminal struct {
	interp  *command.Interpreter
	login   *loginFlow
	history *history.Store
	conv    string
	logger  *slog.Logger
}

// newTerminal wires an interpreter for the terminal front-ends. In demo mode
// everything runs in memory against the sample tree with a signed-in session.
func newTerminal(ctx context.Context, cfg *config.Config, demo bool, logger *slog.Logger) (*terminal, error) {
	t := &terminal{conv: history.NewConversationID(), logger: logger}

	if demo {
		store := session.NewMemoryStore()
		if err := store.Put(ctx, &session.Session{AccessToken: "demo"}, 0); err != nil {
			return nil, err
		}

		gw := drive.NewDemoGateway()

		t.interp = command.New(command.Config{
			Sessions:    session.NewManager(store, session.OAuthConfig("", "", ""), logger),
			Gateway:     func(context.Context, *session.Session) (drive.Gateway, error) { return gw, nil },
			Summarizer:  summarize.Static{Text: demoSummary},
			CallTimeout: cfg.CallTimeoutDuration(),
			Logger:      logger,
		})

		return t, nil
	}

	if err := cfg.RequireGoogle(); err != nil {
		return nil, err
	}

	store := session.NewFileStore(config.DefaultTokenPath())
	oc := session.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	mgr := session.NewManager(store, oc, logger, session.WithTTL(cfg.SessionTTLDuration()))

	sum, err := newSummarizer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	t.login = newLoginFlow(oc, store, cfg.SessionTTLDuration(), logger)

	t.interp = command.New(command.Config{
		Sessions: mgr,
		Gateway: func(ctx context.Context, s *session.Session) (drive.Gateway, error) {
			return drive.NewGoogleGatewayForToken(ctx, s.Token(), logger)
		},
		Summarizer:  sum,
		AuthURL:     t.login.Start,
		CallTimeout: cfg.CallTimeoutDuration(),
		Logger:      logger,
	})

	if cfg.History.Enabled {
		h, err := history.Open(ctx, cfg.HistoryDBPath(), logger)
		if err != nil {
			// The transcript is optional; chatting still works without it.
			logger.Warn("history disabled", slog.String("error", err.Error()))
		} else {
			t.history = h
		}
	}

	return t, nil
}

// run executes one line and records it.
func (t *terminal) run(ctx context.Context, line string) command.Response {
	cmd := command.Parse(line)
	resp := t.interp.Run(ctx, cmd)

	if t.history != nil {
		_, err := t.history.Append(ctx, history.Entry{
			Conversation: t.conv,
			Input:        line,
			Command:      cmd.Keyword(),
			Message:      resp.Text(),
			Kind:         string(resp.Kind),
		})
		if err != nil {
			t.logger.Warn("recording history", slog.String("error", err.Error()))
		}
	}

	return resp
}

func (t *terminal) close() {
	if t.login != nil {
		t.login.Close()
	}

	if t.history != nil {
		if err := t.history.Close(); err != nil {
			t.logger.Warn("closing history", slog.String("error", err.Error()))
		}
	}
}

// newSummarizer returns the Gemini summarizer, or nil when no API key is
// configured.
func newSummarizer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (summarize.Summarizer, error) {
	if cfg.Summarizer.APIKey == "" {
		logger.Info("no Gemini API key configured, SUMMARY is disabled")
		return nil, nil //nolint:nilnil // summarization disabled
	}

	g, err := summarize.NewGemini(ctx, cfg.Summarizer.APIKey, cfg.Summarizer.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}

	return g, nil
}
