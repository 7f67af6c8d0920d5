package container

import "github.com/samzhu/scim/logger"

type options struct {
	session string
	log     *logger.Logger
}

// Option configures a Fixture.
type Option func(*options)

// WithSession tags the container with a test-context session id.
func WithSession(id string) Option {
	return func(o *options) { o.session = id }
}

// WithLogger sets the fixture logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	return o
}
