package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/samzhu/scim/config"
	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/testenv"
	"github.com/samzhu/scim/workload"
)

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
	output     string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "testenv",
		Short: "Ephemeral PostgreSQL and OTLP containers for local runs",
		Long: `testenv starts the same PostgreSQL and grafana/otel-lgtm containers the
integration tests use and prints their connection properties.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "config file (default: cmd/testenv/config.yml, testenv.yml or config.yml)")
	flags.StringVar(&o.envFile, "env-file", "", ".env file to load before reading the environment")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&o.output, "output", "table", "output format: table or json")
	flags.DurationVar(&o.timeout, "timeout", 30*time.Second, "timeout for runtime queries")

	cmd.AddCommand(
		newUpCmd(o),
		newPsCmd(o),
		newPruneCmd(o),
		newVersionCmd(o),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (testenv.Config, error) {
	var opts []config.LoaderOption
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		opts = append(opts, config.WithEnvFile(o.envFile))
	}
	if o.logLevel != "" {
		opts = append(opts, config.WithOverrides(map[string]string{"logging.level": o.logLevel}))
	}
	return testenv.LoadConfig(opts...)
}

func (o *rootOptions) logger(cfg testenv.Config) *logger.Logger {
	logger.Init(&cfg.Logging)
	return logger.GetGlobalLogger()
}

// openRuntime connects to the container engine named by cfg.
func (o *rootOptions) openRuntime(ctx context.Context, cfg testenv.Config, log *logger.Logger) (workload.Manager, error) {
	m, err := workload.New(workload.Config{Provider: workload.ProviderDocker}, &cfg.Docker, log)
	if err != nil {
		return nil, err
	}
	if err := m.HealthCheck(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

func (o *rootOptions) json() bool { return o.output == "json" }
