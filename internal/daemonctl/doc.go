// Package daemonctl is the CLI's client for the daemon HTTP API.
package daemonctl
