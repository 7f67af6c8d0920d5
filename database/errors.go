package database

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/samzhu/scim/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection closed",
	"driver: bad connection",
	"the database system is starting up",
	"the database system is shutting down",
}

var transientPatterns = []string{
	"deadlock",
	"lock timeout",
	"too many connections",
	"too many clients",
}

func containsAny(err error, patterns []string) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err means the server could not be reached.
func IsConnectionError(err error) bool {
	return err != nil && containsAny(err, connectionPatterns)
}

// IsRetryableError reports whether retrying the operation may succeed.
func IsRetryableError(err error) bool {
	return err != nil && (IsConnectionError(err) || containsAny(err, transientPatterns))
}

// FromDatabase converts a database error to an AppError.
func FromDatabase(err error, resource string) *errors.AppError {
	if err == nil {
		return nil
	}
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound(resource, "").WithCause(err)
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.AlreadyExists(resource).WithCause(err)
	case IsConnectionError(err):
		return errors.ConnectionFailed("database").WithCause(err)
	case IsRetryableError(err):
		e := errors.DatabaseError(err)
		e.Message = "Database operation failed. Please try again."
		return e
	default:
		return errors.DatabaseError(err)
	}
}
