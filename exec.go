package main

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivewhizz/internal/command"
)

func newExecCmd() *cobra.Command {
	var (
		asJSON bool
		demo   bool
	)

	cmd := &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run one chat command and print the reply",
		Example: "  drivewhizz exec LIST /ProjectX\n" +
			"  drivewhizz exec --json SUMMARY /notes.txt\n" +
			"  drivewhizz exec --demo DELETE /notes.txt confirm",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, strings.Join(args, " "), asJSON, demo)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply as JSON")
	cmd.Flags().BoolVar(&demo, "demo", false, "use the in-memory sample drive")

	return cmd
}

func runExec(cmd *cobra.Command, line string, asJSON, demo bool) error {
	logger := buildLogger()

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	term, err := newTerminal(ctx, resolvedCfg, demo, logger)
	if err != nil {
		return err
	}
	defer term.close()

	resp := term.run(ctx, line)

	if err := writeReply(cmd.OutOrStdout(), resp, asJSON); err != nil {
		return err
	}

	// AUTH started a browser login; finish it before exiting.
	if term.login != nil && term.login.Pending() {
		if _, err := term.login.Wait(ctx); err != nil {
			return err
		}

		statusf("Login successful.\n")
	}

	return replyError(resp)
}

func writeReply(w io.Writer, resp command.Response, asJSON bool) error {
	if asJSON {
		return printJSON(w, resp)
	}

	printResponse(w, resp)

	return nil
}

// errCommandFailed makes exec exit 1 after an error reply was printed, so
// scripts can test the exit status. main prints nothing more for it.
var errCommandFailed = errors.New("command failed")

func replyError(resp command.Response) error {
	if resp.Kind == command.KindError {
		return errCommandFailed
	}

	return nil
}
