// Package api defines wire-format types and converters for the daemon HTTP API
// and the CLI's JSON output. It translates pipeline projects and engine jobs
// into transport-friendly DTOs so consumers never couple to internal types.
//
// # Key Types
//
// Project: pipeline position, effective status (ready/waiting derived), and a
// one-line summary of the current stage payload.
//
// Job: status, step, progress, storyboard, metadata, and the append-only log.
//
// DaemonStatus: lock and database paths, queue length, job counts, and
// external binary availability.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums are exposed as lowercase strings and
// timestamps use RFC3339 with milliseconds in UTC.
package api
