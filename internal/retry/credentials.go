package retry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCredentials is returned when a credential field holds no usable keys.
var ErrNoCredentials = errors.New("no credentials configured")

// ParseCredentials splits a credential field on commas, semicolons, and
// newlines. Blank entries are dropped; order is preserved.
func ParseCredentials(field string) ([]string, error) {
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
	creds := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			creds = append(creds, trimmed)
		}
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	return creds, nil
}

// CredentialLabel renders the log-safe reference for credential idx (zero based).
func CredentialLabel(idx, total int) string {
	return fmt.Sprintf("%d/%d", idx+1, total)
}
