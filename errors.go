package sidecarssr

import (
	"errors"
	"fmt"

	"github.com/theory-cloud/sidecarssr/pkg/function"
)

// ConfigError is a setup bug: the configured handler does not name a valid
// deployable function. It is returned regardless of debug mode.
type ConfigError struct {
	Code    string
	Handler string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: the configured SSR handler %q is not a deployable function: %v", e.Code, e.Handler, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(handler string, err error) *ConfigError {
	code := errorCodeHandlerInvalid
	if errors.Is(err, function.ErrUnknownFunction) {
		code = errorCodeHandlerUnknown
	}
	return &ConfigError{Code: code, Handler: handler, Err: err}
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// MalformedResponseError is returned when the function answered but the body
// is not {"head": [...], "body": "..."}.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", errorCodeMalformedPayload, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", errorCodeMalformedPayload, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
