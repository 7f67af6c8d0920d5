package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/testenv"
)

func newUpCmd(o *rootOptions) *cobra.Command {
	var envFormat bool
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the containers and block until interrupted",
		Long: `up starts PostgreSQL and the observability stack, prints the connection
properties and waits for SIGINT or SIGTERM before removing the containers.

Use --env to print KEY=value lines that can be sourced by a shell:

  testenv up --env > .env.local`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			log := o.logger(cfg)

			env, err := testenv.New(cfg, testenv.WithLogger(log))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := env.Start(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if envFormat {
				err = renderEnviron(out, env.Environ())
			} else {
				err = renderUp(out, env, o.json())
			}
			if err != nil {
				return stopAfter(env, err)
			}

			log.Info("environment up, press Ctrl+C to tear down", logger.Fields(logger.FieldSession, env.Session()))
			<-ctx.Done()
			log.Info("shutting down")
			return env.Stop(context.Background())
		},
	}
	cmd.Flags().BoolVar(&envFormat, "env", false, "print KEY=value lines instead of a table")
	return cmd
}

func renderUp(w io.Writer, env *testenv.Environment, asJSON bool) error {
	if asJSON {
		return writeJSON(w, map[string]any{
			"session":    env.Session(),
			"properties": env.Properties(),
		})
	}
	if err := renderDescriptions(w, env.Describe()); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := renderProperties(w, env.Properties(), false); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nSession: %s\n", env.Session())
	return err
}

func stopAfter(env *testenv.Environment, err error) error {
	if stopErr := env.Stop(context.Background()); stopErr != nil {
		return fmt.Errorf("%w (teardown: %v)", err, stopErr)
	}
	return err
}
