package docint

import (
	"errors"
	"fmt"
	"strings"
)

// Application error codes.
const (
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"

	// ENOEXTRACTOR is returned when no extractor is registered for a MIME type.
	ENOEXTRACTOR = "no_extractor"

	// EEXTRACTION is returned when the selected extractor fails. It is fatal.
	EEXTRACTION = "extraction"

	// EPROCESSOR marks a post-processor failure. The pipeline records it and
	// carries the previous result forward.
	EPROCESSOR = "processor"

	// EVALIDATION is returned when a validator rejects a result. It is fatal.
	EVALIDATION = "validation"

	// ECHUNKING is returned when the chunker fails.
	ECHUNKING = "chunking"
)

// Error represents an application-specific error.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string

	// Plugin is the name of the plugin that produced the error, if any.
	Plugin string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface. The plugin name, message and
// cause are joined with ": ", skipping empty parts.
func (e *Error) Error() string {
	var parts []string
	if e.Plugin != "" {
		parts = append(parts, e.Plugin)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if e.Message == "" && e.Err == nil {
		parts = append(parts, fmt.Sprintf("docint error: code=%s", e.Code))
	} else if e.Message == "" && e.Plugin == "" {
		return fmt.Sprintf("docint error: code=%s err=%v", e.Code, e.Err)
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// PluginError wraps err as an Error with the given code, attributed to plugin.
// If err already carries the same code it is returned unchanged.
func PluginError(code, plugin string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Code == code && e.Plugin == plugin {
		return err
	}
	return &Error{Code: code, Plugin: plugin, Err: err}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		if e.Message == "" && e.Err != nil {
			return e.Err.Error()
		}
		return e.Message
	}
	return "Internal error."
}

// ErrorPlugin returns the name of the plugin an application error is attributed to.
func ErrorPlugin(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Plugin
	}
	return ""
}
