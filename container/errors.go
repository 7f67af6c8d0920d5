package container

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"github.com/samzhu/scim/errors"
)

// Failure reasons attached to PROVISIONING_FAILED errors.
const (
	ReasonRuntimeUnavailable = "runtime_unavailable"
	ReasonImageUnavailable   = "image_unavailable"
	ReasonNotReady           = "not_ready"
	ReasonUnknown            = "unknown"
)

var runtimePatterns = []string{
	"cannot connect to the docker daemon",
	"is the docker daemon running",
	"failed to create docker provider",
	"docker not found",
	"rootless docker not found",
	"connection refused",
	"no such file or directory",
}

var imagePatterns = []string{
	"pull access denied",
	"manifest unknown",
	"no such image",
	"failed to pull",
	"invalid reference format",
	"repository does not exist",
	"toomanyrequests",
}

var readinessPatterns = []string{
	"wait until ready",
	"container exited",
	"container is not running",
	"deadline exceeded",
	"timeout",
}

// ClassifyFailure maps a launch error to a failure reason.
func ClassifyFailure(err error) string {
	if err == nil {
		return ""
	}
	if client.IsErrConnectionFailed(err) {
		return ReasonRuntimeUnavailable
	}
	if errdefs.IsNotFound(err) || errdefs.IsUnauthorized(err) {
		return ReasonImageUnavailable
	}

	msg := strings.ToLower(err.Error())
	// Image errors first: pull failures often mention the daemon too.
	for _, p := range imagePatterns {
		if strings.Contains(msg, p) {
			return ReasonImageUnavailable
		}
	}
	for _, p := range runtimePatterns {
		if strings.Contains(msg, p) {
			return ReasonRuntimeUnavailable
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ReasonNotReady
	}
	for _, p := range readinessPatterns {
		if strings.Contains(msg, p) {
			return ReasonNotReady
		}
	}
	return ReasonUnknown
}

// ProvisioningError wraps a launch failure of the named fixture.
func ProvisioningError(fixture, image string, err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.ErrCodeProvisioningFailed {
		return appErr
	}
	return errors.ProvisioningFailed(fixture, image, ClassifyFailure(err)).WithCause(err)
}
