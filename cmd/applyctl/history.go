package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jobapply-backend/internal/history"
	"jobapply-backend/internal/shared/config"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analyses and emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := config.Load()
			return printHistory(ctx, cmd, history.NewFileRepo(cfg.HistoryFile), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.Limit, "Number of entries to show")
	return cmd
}

func printHistory(ctx context.Context, cmd *cobra.Command, repo history.Repo, limit int) error {
	entries, err := repo.Recent(ctx, "", limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tACTION\tRECIPIENT\tSUBJECT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Action, dash(e.Recipient), dash(e.Subject))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
