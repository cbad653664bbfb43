// Package database provides the SQLite run log for pestadvisor.
//
// The run log keeps metadata about each submission: run ID, timestamps,
// final state, per-stage timings, error text and the image digest. Stage
// outputs and the report text are never stored; a report only reaches disk
// when the user exports it.
//
// SQLite is accessed through modernc.org/sqlite, which needs no cgo.
package database
