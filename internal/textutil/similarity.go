package textutil

import (
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokens lowercases text and splits it into alphanumeric tokens of at least
// three characters.
func Tokens(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) >= 3 {
			out = append(out, token)
		}
	}
	return out
}

// Overlap returns the share of candidate's distinct tokens that also appear in
// reference, in [0, 1]. It is 0 when candidate has no tokens.
func Overlap(candidate, reference string) float64 {
	cand := tokenSet(candidate)
	if len(cand) == 0 {
		return 0
	}
	ref := tokenSet(reference)
	shared := 0
	for token := range cand {
		if _, ok := ref[token]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(cand))
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, token := range Tokens(text) {
		set[token] = struct{}{}
	}
	return set
}
