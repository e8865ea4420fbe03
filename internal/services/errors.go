package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// ErrorKind names the marker category carried by a wrapped service error.
type ErrorKind string

const (
	KindExternalTool  ErrorKind = "external_tool"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
	KindUnknown       ErrorKind = "unknown"
)

// ServiceError carries stage context alongside a marker used for classification.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *ServiceError) Unwrap() []error {
	errs := []error{e.Marker}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above or a package-level sentinel such as
// pipeline.ErrStageMismatch.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithHint attaches an operator-facing next step to a wrapped error.
func WithHint(err error, hint string) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		svcErr.Hint = strings.TrimSpace(hint)
	}
	return err
}

// ErrorDetails is the flattened view of a wrapped error used by log lines.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts structured context from err. Plain errors yield a details
// record with KindUnknown and the error text as message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return ErrorDetails{Kind: KindUnknown, Message: strings.TrimSpace(err.Error())}
	}
	return ErrorDetails{
		Kind:      kindOf(svcErr.Marker),
		Stage:     svcErr.Stage,
		Operation: svcErr.Operation,
		Message:   svcErr.Message,
		Hint:      svcErr.Hint,
		Cause:     svcErr.Cause,
	}
}

func kindOf(marker error) ErrorKind {
	switch {
	case errors.Is(marker, ErrExternalTool):
		return KindExternalTool
	case errors.Is(marker, ErrValidation):
		return KindValidation
	case errors.Is(marker, ErrConfiguration):
		return KindConfiguration
	case errors.Is(marker, ErrNotFound):
		return KindNotFound
	case errors.Is(marker, ErrTimeout):
		return KindTimeout
	case errors.Is(marker, ErrTransient):
		return KindTransient
	default:
		return ErrorKind(strings.ReplaceAll(strings.ToLower(marker.Error()), " ", "_"))
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
