package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/workload"
)

func newPsCmd(o *rootOptions) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers started by testenv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()

			m, err := o.openRuntime(ctx, cfg, o.logger(cfg))
			if err != nil {
				return err
			}
			defer m.Close()

			items, err := m.List(ctx, workload.ListFilter{Labels: container.SessionSelector(session)})
			if err != nil {
				return err
			}
			return renderWorkloads(cmd.OutOrStdout(), items, o.json())
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only containers of this session")
	return cmd
}
