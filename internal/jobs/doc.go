// Package jobs runs single-shot generation jobs: a theme becomes a script, a
// storyboard of illustrated segments, narration, and publishing metadata, then
// waits for a human to trigger the render.
//
// The Engine owns one worker goroutine. Jobs are processed strictly one at a
// time in FIFO order; a second Enqueue while a job runs only appends. Every
// mutation is persisted through Repository and pushed to registered Observers
// as a full snapshot.
package jobs
