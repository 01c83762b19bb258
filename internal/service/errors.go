package service

import (
	"errors"
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
)

// ErrNotConnected matches every NotConnectedError.
var ErrNotConnected = errors.New("integration not connected")

// NotConnectedError is returned when a user has no usable credentials for a
// platform.
type NotConnectedError struct {
	Platform string
	Reason   string
}

func (e NotConnectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s integration not connected", e.Platform)
	}
	return fmt.Sprintf("%s integration not connected: %s", e.Platform, e.Reason)
}

func (e NotConnectedError) Is(target error) bool {
	return target == ErrNotConnected
}

// ValidationError rejects malformed content before any network activity.
type ValidationError struct {
	Platform string
	Reason   string
}

func (e ValidationError) Error() string {
	if e.Platform == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Platform, e.Reason)
}

// PlatformError is a classified failure of an outbound platform call.
type PlatformError struct {
	Platform   string
	Kind       models.ErrorKind
	StatusCode int
	Message    string
	Details    any
}

func (e *PlatformError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Platform, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

// kindOf classifies any error returned inside an adapter.
func kindOf(err error) models.ErrorKind {
	var pe *PlatformError
	var ve ValidationError
	switch {
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, ErrNotConnected):
		return models.ErrorKindNotConnected
	case errors.As(err, &ve):
		return models.ErrorKindValidation
	default:
		return models.ErrorKindTransient
	}
}

// failure converts err into a failed PostResponse. summary, when set,
// replaces the platform message for errors that carry none.
func failure(err error, summary string) models.PostResponse {
	var pe *PlatformError
	if errors.As(err, &pe) {
		message := pe.Message
		if message == "" {
			message = summary
		}
		return models.Failed(pe.Kind, message, pe.Details)
	}

	message := err.Error()
	if kindOf(err) == models.ErrorKindTransient && summary != "" {
		message = fmt.Sprintf("%s: %s", summary, err.Error())
	}
	return models.Failed(kindOf(err), message, nil)
}
