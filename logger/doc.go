// Package logger provides structured logging for the test environment
// using zerolog.
//
// Loggers are scoped per component so container lifecycle events can be
// filtered by fixture:
//
//	log := logger.WithComponent("postgres")
//	log.Info("container started", logger.Fields("container_id", id))
//
// Test runs default to console output on stderr so log lines interleave
// cleanly with `go test -v` output.
package logger
