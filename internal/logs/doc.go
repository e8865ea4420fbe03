// Package logs reads the daemon log file for `shortforge logs`.
//
// Tail returns the last N lines or everything after a byte offset, optionally
// waiting for new output; Follow keeps polling until the context ends. A
// Filter narrows lines to one project, job, minimum level, or search term and
// understands both the console and JSON log formats.
package logs
