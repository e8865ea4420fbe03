package textutil

import (
	"strings"
	"unicode"
)

// wordsPerSecond is the narration pace used for duration estimates (150 wpm).
const wordsPerSecond = 2.5

// SplitSentences breaks text at terminal punctuation (. ! ?), keeping the
// punctuation and any closing quotes with the sentence. Text without terminal
// punctuation is returned as one sentence.
func SplitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		for i+1 < len(runes) && strings.ContainsRune(".!?\"')”’", runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Distribute groups items into exactly n ordered buckets of ceil(len/n)
// consecutive items each. The final buckets may be short or empty.
func Distribute(items []string, n int) [][]string {
	if n <= 0 {
		return nil
	}
	buckets := make([][]string, n)
	size := (len(items) + n - 1) / n
	for i := range buckets {
		lo := min(i*size, len(items))
		hi := min(lo+size, len(items))
		if hi > lo {
			buckets[i] = append([]string(nil), items[lo:hi]...)
		}
	}
	return buckets
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimateSpeechSeconds estimates narration length for text.
func EstimateSpeechSeconds(text string) float64 {
	return float64(WordCount(text)) / wordsPerSecond
}
