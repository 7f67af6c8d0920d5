// Package validation validates configuration structs with struct tags.
//
// Field names in error messages follow the `mapstructure` tag, so a failure
// reads the same way as the key in config.yml:
//
//	type Config struct {
//	    Image string `mapstructure:"image" validate:"required,image"`
//	}
//	err := validation.Validate(cfg) // "image: must be a valid image reference"
//
// The custom `image` tag accepts any reference the container engine would
// accept, for example "postgres:latest" or "grafana/otel-lgtm:0.11.1".
package validation
