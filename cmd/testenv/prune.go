package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/workload"
)

func newPruneCmd(o *rootOptions) *cobra.Command {
	var (
		session string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove containers left behind by earlier runs",
		Long: `prune force-removes every container labelled managed-by=scim-testenv,
or only those of one session with --session. Use it after a test binary was
killed before its teardown ran.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			log := o.logger(cfg)
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()

			m, err := o.openRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()

			return prune(ctx, cmd.OutOrStdout(), m, session, dryRun, log)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only containers of this session")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be removed")
	return cmd
}

func prune(ctx context.Context, w io.Writer, m workload.Manager, session string, dryRun bool, log *logger.Logger) error {
	items, err := m.List(ctx, workload.ListFilter{Labels: container.SessionSelector(session)})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to prune")
		return err
	}

	var errs []error
	removed := 0
	for _, it := range items {
		if dryRun {
			fmt.Fprintf(w, "would remove %s (%s)\n", shortID(it.ID), it.Image)
			continue
		}
		if err := m.Remove(ctx, it.ID); err != nil {
			log.Warn("failed to remove container", logger.Fields(
				logger.FieldContainerID, shortID(it.ID),
				logger.FieldError, err.Error(),
			))
			errs = append(errs, fmt.Errorf("remove %s: %w", shortID(it.ID), err))
			continue
		}
		removed++
		fmt.Fprintf(w, "removed %s (%s)\n", shortID(it.ID), it.Image)
	}
	if !dryRun {
		fmt.Fprintf(w, "\nRemoved %d of %d containers\n", removed, len(items))
	}
	return errors.Join(errs...)
}
