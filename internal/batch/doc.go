// Package batch analyzes several repositories concurrently.
//
// Each repository gets its own session, so the one-request-at-a-time rule
// of a session still holds while the batch as a whole runs up to the
// configured number of analyses in parallel. Concurrency is bounded with
// errgroup.
package batch
