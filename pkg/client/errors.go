package client

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// TaskError is a failure reported by the controller, either by an async
// task ending in error or by a non-2xx response.
type TaskError struct {
	Code    string
	Message string
	// Status is the HTTP status when the error came from a response, 0 for
	// failed async tasks.
	Status int
}

func (e *TaskError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValueError reports invalid task input
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string {
	return e.Message
}

// ResourceNotFound reports a name or URI the controller does not know
type ResourceNotFound struct {
	Message string
}

func (e *ResourceNotFound) Error() string {
	return e.Message
}

// NewTaskError returns a TaskError carrying a stack trace
func NewTaskError(code, message string) error {
	return errors.WithStack(&TaskError{Code: code, Message: message})
}

// NewValueError returns a ValueError carrying a stack trace
func NewValueError(format string, args ...interface{}) error {
	return errors.WithStack(&ValueError{Message: fmt.Sprintf(format, args...)})
}

// NewResourceNotFound returns a ResourceNotFound carrying a stack trace
func NewResourceNotFound(format string, args ...interface{}) error {
	return errors.WithStack(&ResourceNotFound{Message: fmt.Sprintf(format, args...)})
}

// AsTaskError unwraps err to a TaskError
func AsTaskError(err error) (*TaskError, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsTaskError reports whether err is a TaskError with the given code. An
// empty code matches any TaskError.
func IsTaskError(err error, code string) bool {
	te, ok := AsTaskError(err)
	return ok && (code == "" || te.Code == code)
}

// IsValueError reports whether err is a ValueError
func IsValueError(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}

// IsResourceNotFound reports whether err is a ResourceNotFound
func IsResourceNotFound(err error) bool {
	var rnf *ResourceNotFound
	return errors.As(err, &rnf)
}

// IsNotFound reports whether the controller answered 404
func IsNotFound(err error) bool {
	te, ok := AsTaskError(err)
	return ok && te.Status == http.StatusNotFound
}
