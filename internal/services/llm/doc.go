// Package llm provides an OpenRouter chat client used as the text generation
// provider when [text] provider = "openrouter".
//
// # Entry Points
//
// NewClient: construct client from Config (ConfigFromText maps the config section).
// Client.Generate: send system/user prompts, receive the model's text.
// Client.CompleteJSON: JSON-only variant used for structured metadata.
// Client.HealthCheck: verify a key and model are usable (doctor command).
// DecodeLLMJSON: tolerant JSON decoding for fenced or chatty model output.
//
// # Retry Behaviour
//
// Each call rotates through the configured credential set. Against a single
// key the client retries HTTP 408/429/5xx, timeouts, and empty completions
// with exponential backoff, honouring Retry-After when present. Context
// cancellation aborts retries immediately.
package llm
