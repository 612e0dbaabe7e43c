package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAuditCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded resolution failures",
	}

	open := func(cmd *cobra.Command) (*app, error) {
		if opts.auditDB == "" {
			return nil, errors.New("no audit database configured; use --audit-db")
		}
		return opts.open(cmd.Context(), false)
	}

	recent := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck

			records, err := a.store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
	recent.Flags().Int("limit", 50, "Maximum number of records")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print record counts by element, outcome and error kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck

			counts, err := a.store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), counts)
		},
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete records older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck

			n, err := a.store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d records\n", n)
			return err
		},
	}
	prune.Flags().Duration("older-than", 30*24*time.Hour, "Age beyond which records are deleted")

	cmd.AddCommand(recent, summary, prune)
	return cmd
}
