package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivewhizz/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		asJSON bool
		limit  int
		forget string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent chat transcript entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, asJSON, limit, forget)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "maximum number of entries")
	cmd.Flags().StringVar(&forget, "forget", "", "delete one conversation by id")

	return cmd
}

func runHistory(cmd *cobra.Command, asJSON bool, limit int, forget string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := history.Open(ctx, resolvedCfg.HistoryDBPath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if forget != "" {
		n, err := store.Forget(ctx, forget)
		if err != nil {
			return err
		}

		statusf("Deleted %d entries.\n", n)

		return nil
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if asJSON {
		if entries == nil {
			entries = []history.Entry{}
		}

		return printJSON(out, entries)
	}

	if len(entries) == 0 {
		statusf("No history yet.\n")
		return nil
	}

	printTable(out, []string{"TIME", "CONVERSATION", "INPUT", "REPLY"}, historyRows(entries, time.Now()))

	return nil
}
