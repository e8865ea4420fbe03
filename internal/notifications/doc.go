// Package notifications delivers job and batch events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured. Each
// event family can be switched off in the [notifications] config section;
// suppressed events return nil without any network traffic.
package notifications
