// Package database provides SQLite-based storage for analysis history.
//
// HistoryDB keeps one row per completed analysis with its headline numbers
// (score, tier, finding counts) in columns and the full result as JSON, so
// listings never decode results while re-rendering and comparison can.
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver; the
// database is a single file under the XDG data directory.
package database
