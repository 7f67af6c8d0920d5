package observability

import (
	"context"
	"errors"

	"github.com/samzhu/scim/logger"
)

// ShutdownFunc flushes and stops every provider Setup installed.
type ShutdownFunc func(ctx context.Context) error

// Setup validates cfg and installs the trace, metric and log providers it
// enables. When logs are enabled the global logger also forwards its lines
// to the collector. On error, providers created so far are shut down.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (ShutdownFunc, error) {
		return nil, errors.Join(err, shutdown(ctx))
	}

	if !cfg.DisableTraces {
		tp, err := InitTracer(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		shutdowns = append(shutdowns, tp.Shutdown)
	}
	if !cfg.DisableMetrics {
		mp, err := InitMeter(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		shutdowns = append(shutdowns, mp.Shutdown)
	}
	if !cfg.DisableLogs {
		lp, err := InitLogger(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		shutdowns = append(shutdowns, lp.Shutdown)

		previous := logger.GetGlobalLogger()
		logger.SetGlobalLogger(previous.WithHook(NewLogHook(cfg.ServiceName)))
		shutdowns = append(shutdowns, func(context.Context) error {
			logger.SetGlobalLogger(previous)
			return nil
		})
	}

	logger.Info("telemetry exporting", logger.Fields(
		logger.FieldEndpoint, cfg.Endpoint,
		"traces", !cfg.DisableTraces,
		"metrics", !cfg.DisableMetrics,
		"logs", !cfg.DisableLogs,
	))
	return shutdown, nil
}
