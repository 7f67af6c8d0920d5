package testenv

import (
	"github.com/samzhu/scim/config"
	"github.com/samzhu/scim/logger"
)

type options struct {
	session    string
	log        *logger.Logger
	cfg        *Config
	loaderOpts []config.LoaderOption
}

// Option configures an Environment.
type Option func(*options)

// WithSession fixes the session id instead of generating one.
func WithSession(id string) Option {
	return func(o *options) { o.session = id }
}

// WithLogger replaces the logger built from the logging config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithConfig makes Main use cfg instead of loading the configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// WithLoaderOptions passes options to LoadConfig when Main loads the
// configuration.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, opts...) }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
