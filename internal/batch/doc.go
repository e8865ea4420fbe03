// Package batch advances groups of projects that share a pipeline stage.
//
// Projects are handled one at a time. A failure marks that project's error
// flag and the batch moves on, so a Report always covers every requested
// project. The selection is cleared when an operation finishes, whatever the
// individual outcomes.
package batch
