// Command shortforge is the operator CLI for the short-form video pipeline.
//
// Project and batch commands work directly against the SQLite store, so they
// run with or without the daemon. Job submission and rendering go through the
// daemon's HTTP API because only the daemon runs the job engine; `shortforge
// serve` starts it in the foreground.
package main
