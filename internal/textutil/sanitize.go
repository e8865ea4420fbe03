package textutil

import "strings"

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe as a single path segment. Slashes,
// backslashes, colons, and asterisks become dashes; other unsafe characters
// are dropped. Empty input yields "untitled".
func SanitizeFileName(name string) string {
	out := strings.TrimSpace(fileNameReplacer.Replace(strings.TrimSpace(name)))
	out = strings.Trim(out, ".")
	if out == "" {
		return "untitled"
	}
	return out
}
