// Package language normalizes the language settings of channel profiles and
// transcript retrieval, and names languages in generation prompts.
package language
