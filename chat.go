package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivewhizz/internal/command"
)

const chatPrompt = "> "

func newChatCmd() *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with your Drive",
		Long: "Start an interactive chat. Type HELP for the commands, EXIT or Ctrl-D to leave.\n" +
			"The session is kept in the token file, so later chats stay signed in.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, demo)
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "use the in-memory sample drive")

	return cmd
}

func runChat(cmd *cobra.Command, demo bool) error {
	logger := buildLogger()

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	term, err := newTerminal(ctx, resolvedCfg, demo, logger)
	if err != nil {
		return err
	}
	defer term.close()

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	return chatLoop(ctx, term, cmd.InOrStdin(), cmd.OutOrStdout(), interactive, demo)
}

// chatLoop reads one command per line until EOF, EXIT or cancellation. The
// prompt is only shown on a terminal so piped transcripts stay clean.
func chatLoop(ctx context.Context, term *terminal, in io.Reader, out io.Writer, interactive, demo bool) error {
	w := &lockedWriter{w: out}

	// Background login waiters stop with the loop.
	loginCtx, stopLogins := context.WithCancel(ctx)

	var (
		logins  sync.WaitGroup
		waiting atomic.Bool
	)

	defer func() {
		stopLogins()
		logins.Wait()
	}()

	authed, err := term.interp.Authenticated(ctx)
	if err != nil {
		term.logger.Warn("reading session", slog.String("error", err.Error()))
	}

	welcome := command.Welcome(authed)
	if demo {
		welcome += "\n(demo mode: changes live in memory only)"
	}

	w.Println(welcome)

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})

	defer close(done)

	go func() {
		defer close(lines)

		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}

		readErr <- sc.Err()
	}()

	for {
		if interactive {
			w.Print(chatPrompt)
		}

		var (
			line string
			ok   bool
		)

		select {
		case line, ok = <-lines:
		case <-ctx.Done():
			w.Println("")
			return nil
		}

		if !ok {
			if interactive {
				w.Println("")
			}

			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
			default:
			}

			return nil
		}

		line = strings.TrimSpace(line)

		switch strings.ToUpper(line) {
		case "":
			continue
		case "EXIT", "QUIT":
			return nil
		}

		resp := term.run(ctx, line)
		w.Println(resp.Text())

		if resp.Kind == command.KindAuth && term.login != nil && waiting.CompareAndSwap(false, true) {
			logins.Add(1)

			go func() {
				defer logins.Done()
				defer waiting.Store(false)

				waitForLogin(loginCtx, term, w)
			}()
		}
	}
}

// waitForLogin finishes a browser login started by AUTH in the background.
func waitForLogin(ctx context.Context, term *terminal, w *lockedWriter) {
	if _, err := term.login.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			w.Println("Error: Authentication failed. Type AUTH to try again.")
			term.logger.Warn("browser login failed", slog.String("error", err.Error()))
		}

		return
	}

	w.Println("\nAuthentication successful. You can now use LIST, DELETE, MOVE and SUMMARY.")
}

// lockedWriter serializes chat output between the loop and login waiters.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Print(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.w, s)
}

func (l *lockedWriter) Println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.w, s)
}
