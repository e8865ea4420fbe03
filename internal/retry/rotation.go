package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shortforge/internal/logging"
	"shortforge/internal/metrics"
)

// CredentialFailure records why one credential in a rotation failed.
type CredentialFailure struct {
	Index int
	Total int
	Err   error
}

// RotationError is returned when every credential was tried or a terminal
// failure stopped the rotation. Its message lists each credential's failure.
type RotationError struct {
	Provider  string
	Failures  []CredentialFailure
	Exhausted bool
}

func (e *RotationError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	total := 0
	if len(e.Failures) > 0 {
		total = e.Failures[0].Total
	}
	if e.Exhausted {
		fmt.Fprintf(&b, "all %d credentials failed", total)
	} else {
		b.WriteString("credential rotation stopped on terminal failure")
	}
	for idx, failure := range e.Failures {
		if idx == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "credential %s: %v", CredentialLabel(failure.Index, failure.Total), failure.Err)
	}
	return b.String()
}

// Unwrap exposes every per-credential failure to errors.Is and errors.As.
func (e *RotationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		errs = append(errs, failure.Err)
	}
	return errs
}

// Retryable reports whether the rotation ended by exhaustion of retryable failures.
func (e *RotationError) Retryable() bool {
	return e.Exhausted
}

type rotationOptions struct {
	provider string
	logger   *slog.Logger
}

// Option customizes WithRotation.
type Option func(*rotationOptions)

// WithProvider names the provider in log lines, metrics, and errors.
func WithProvider(name string) Option {
	return func(o *rotationOptions) { o.provider = strings.TrimSpace(name) }
}

// WithLogger sets the logger used for rotation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *rotationOptions) { o.logger = logger }
}

// WithRotation calls op with each credential parsed from field, in order,
// until one succeeds. With a single credential op runs exactly once and its
// error is returned as-is. Retryable failures on a non-last credential advance
// to the next one; a terminal failure or exhaustion returns a *RotationError.
func WithRotation[T any](ctx context.Context, field string, op func(ctx context.Context, credential string) (T, error), opts ...Option) (T, error) {
	var zero T
	options := rotationOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(options.logger, "retry"))
	if options.provider != "" {
		logger = logger.With(logging.String("provider", options.provider))
	}

	creds, err := ParseCredentials(field)
	if err != nil {
		if options.provider != "" {
			return zero, fmt.Errorf("%s: %w", options.provider, err)
		}
		return zero, err
	}
	if len(creds) == 1 {
		return op(ctx, creds[0])
	}

	total := len(creds)
	rotErr := &RotationError{Provider: options.provider}
	for idx, cred := range creds {
		value, err := op(ctx, cred)
		if err == nil {
			if idx > 0 {
				logger.Info("provider call succeeded after rotation",
					logging.String(logging.FieldCredential, CredentialLabel(idx, total)))
			}
			return value, nil
		}
		rotErr.Failures = append(rotErr.Failures, CredentialFailure{Index: idx, Total: total, Err: err})

		if ctx.Err() != nil || !IsRetryable(err) {
			metrics.RotationFailed(options.provider, "terminal")
			logging.WarnWithContext(logger, "provider call failed with terminal error", "credential_terminal_failure",
				logging.String(logging.FieldCredential, CredentialLabel(idx, total)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining credentials were not tried"),
				logging.String(logging.FieldErrorHint, "check the request or provider account"),
			)
			return zero, rotErr
		}
		if idx < total-1 {
			metrics.CredentialRotated(options.provider)
			logging.WarnWithContext(logger, "credential failed; rotating to next", "credential_rotated",
				logging.String(logging.FieldCredential, CredentialLabel(idx, total)),
				logging.String("next_credential", CredentialLabel(idx+1, total)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "request retried with another credential"),
				logging.String(logging.FieldErrorHint, "check quota or rate limits for this key"),
			)
		}
	}

	rotErr.Exhausted = true
	metrics.RotationFailed(options.provider, "exhausted")
	logging.WarnWithContext(logger, "all credentials failed", "credential_rotation_exhausted",
		logging.Int("credential_count", total),
		logging.String(logging.FieldImpact, "provider call failed"),
		logging.String(logging.FieldErrorHint, "add credentials or wait for quota to reset"),
	)
	return zero, rotErr
}
