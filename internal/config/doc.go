// Package config loads, normalizes, and validates shortforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEYS and OPENROUTER_API_KEY. The Config type centralizes every
// knob the CLI and daemon need, including provider credential sets, render
// settings, and channel profiles.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
