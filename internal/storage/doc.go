// Package storage persists the poll loop's notification state between restarts.
//
// One record per chat key holds the last status message and its status key,
// the last diagnostic that was delivered and the poll window lower bound.
// Nothing else is kept.
//
// Drivers are "file" (JSON snapshot), "sqlite" and "mongodb".
// With driver "none" Open returns a nil Store and the loop keeps its state in memory only.
package storage
