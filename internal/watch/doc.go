// Package watch re-runs a callback when a single file changes.
//
// The watcher observes the file's parent directory rather than the file
// itself, so editors that save through a temporary file and rename still
// trigger a change. Bursts of events are coalesced by a debounce window.
package watch
