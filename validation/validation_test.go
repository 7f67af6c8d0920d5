package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/samzhu/scim/errors"
)

type imageConfig struct {
	Image          string        `mapstructure:"image" validate:"required,image"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout" validate:"gt=0"`
}

type nestedConfig struct {
	Postgres imageConfig `mapstructure:"postgres"`
	Mode     string      `mapstructure:"mode" validate:"omitempty,oneof=shared per-test"`
}

func TestValidateImageReferences(t *testing.T) {
	tests := []struct {
		image   string
		wantErr bool
	}{
		{"postgres:latest", false},
		{"grafana/otel-lgtm:latest", false},
		{"docker.io/library/postgres:17-alpine", false},
		{"registry.example.com:5000/team/pg@sha256:" + strings.Repeat("a", 64), false},
		{"", true},
		{"Postgres:latest", true},
		{"postgres::latest", true},
	}
	for _, tc := range tests {
		t.Run(tc.image, func(t *testing.T) {
			err := Validate(imageConfig{Image: tc.image, StartupTimeout: time.Minute})
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tc.image, err, tc.wantErr)
			}
		})
	}
}

func TestValidateUsesMapstructurePaths(t *testing.T) {
	err := Validate(nestedConfig{Postgres: imageConfig{Image: "postgres:latest"}, Mode: "sometimes"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "postgres.startup_timeout: must be greater than 0") {
		t.Errorf("expected nested startup_timeout message, got %q", msg)
	}
	if !strings.Contains(msg, "mode: must be one of: shared per-test") {
		t.Errorf("expected mode message, got %q", msg)
	}

	appErr, _ := errors.As(err)
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("expected 2 field errors in details, got %v", appErr.Details["fields"])
	}
}

func TestValidateOK(t *testing.T) {
	cfg := nestedConfig{Postgres: imageConfig{Image: "postgres:latest", StartupTimeout: time.Minute}}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("StartupTimeout"); got != "startup_timeout" {
		t.Errorf("toSnakeCase = %q", got)
	}
}
