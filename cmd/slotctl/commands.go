package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stevemurr/slotdb/docdb"
)

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the collection's sub-tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), a.db.Load(cmd.Context()))
		},
	}
}

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert [json]...",
		Short: "Insert one record per JSON object argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make([]map[string]any, 0, len(args))
			for _, arg := range args {
				m, err := parseObject(arg)
				if err != nil {
					return err
				}
				items = append(items, m)
			}
			recs, err := a.db.InsertMany(cmd.Context(), items)
			if err != nil {
				return err
			}
			if len(recs) == 1 {
				return printJSON(cmd.OutOrStdout(), recs[0])
			}
			return printJSON(cmd.OutOrStdout(), recs)
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find [id]",
		Short: "Print a record by identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := a.db.Find(cmd.Context(), args[0])
			if rec == nil {
				return fmt.Errorf("%w: %q", docdb.ErrNotFound, args[0])
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update [id] [json]",
		Short: "Merge a JSON object into a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseObject(args[1])
			if err != nil {
				return err
			}
			rec, err := a.db.Update(cmd.Context(), args[0], updates)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]...",
		Short: "Remove records by identifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.db.RemoveMany(cmd.Context(), args)
			if err != nil {
				return err
			}
			for i, id := range args {
				status := "removed"
				if !results[i] {
					status = "not found"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, status)
			}
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the sub-tree every time it changes",
		Long: `watch polls the collection and prints its sub-tree whenever the serialized
content differs from the previous poll. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			stopPoll, err := a.db.OnLive(ctx, func(sub map[string]any) {
				if err := printJSON(out, sub); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error encoding JSON: %v\n", err)
				}
			}, interval)
			if err != nil {
				return err
			}
			defer stopPoll()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", docdb.DefaultPollInterval, "Poll interval")
	return cmd
}
