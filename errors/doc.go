// Package errors provides the unified error type used across the test
// environment. Every failure surfaced to a test harness is an *AppError with
// a machine-readable code, retryable flag and structured details, so callers
// can tell infrastructure failures (container engine, image pull, readiness)
// apart from configuration mistakes.
package errors
