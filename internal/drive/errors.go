package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for gateway failure classification.
// Use errors.Is(err, drive.ErrNotFound) to check.
var (
	ErrNotFound     = errors.New("drive: not found")
	ErrForbidden    = errors.New("drive: forbidden")
	ErrUnauthorized = errors.New("drive: unauthorized")
	ErrTimeout      = errors.New("drive: timed out")
	ErrGateway      = errors.New("drive: request failed")
)

// GatewayError wraps a sentinel with the failing operation and a message fit
// to show the user.
type GatewayError struct {
	Op      string
	Message string
	Err     error // sentinel, for errors.Is()
	Cause   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("drive: %s: %s", e.Op, e.Message)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *GatewayError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}

	return []error{e.Err, e.Cause}
}

func newError(op string, sentinel error, msg string) *GatewayError {
	return &GatewayError{Op: op, Message: msg, Err: sentinel}
}

// classify turns any error from the Drive client into a *GatewayError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Op: op, Message: "the request timed out", Err: ErrTimeout, Cause: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}

		return &GatewayError{Op: op, Message: msg, Err: classifyStatus(apiErr.Code), Cause: err}
	}

	return &GatewayError{Op: op, Message: err.Error(), Err: ErrGateway, Cause: err}
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return ErrGateway
	}
}
