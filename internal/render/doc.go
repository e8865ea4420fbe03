// Package render assembles finished videos from still images, narration, and
// optional subtitles using ffmpeg. Filter graphs are built with ffmpeg-go and
// executed under the caller's context.
package render
