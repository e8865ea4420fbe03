package jobs

import (
	"strings"

	"shortforge/internal/textutil"
)

// SplitScript partitions script into exactly n ordered segments of whole
// sentences, ceil(sentences/n) per segment. Trailing segments may be short or
// empty.
func SplitScript(script string, n int) []string {
	if n <= 0 {
		return nil
	}
	groups := textutil.Distribute(textutil.SplitSentences(script), n)
	segments := make([]string, len(groups))
	for i, group := range groups {
		segments[i] = strings.Join(group, " ")
	}
	return segments
}
