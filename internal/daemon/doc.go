// Package daemon coordinates the long-running shortforge process.
//
// It wires configuration, the SQLite store, and the single-worker job engine
// into one lifecycle with flock-based locking to prevent multiple instances.
// On start it restores persisted jobs (requeueing interrupted ones) and serves
// the HTTP API: project and job listings, job submission, background renders,
// daemon status, and Prometheus metrics.
//
// Projects are read from the store on every request because the CLI advances
// them directly against the same database.
package daemon
