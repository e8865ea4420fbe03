// Package textutil provides the text handling shared by script generation and
// the job engine: sentence splitting, even distribution of sentences across
// segments, narration length estimates, token overlap between a script and its
// reference, and filename sanitization.
package textutil
