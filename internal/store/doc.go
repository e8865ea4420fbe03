// Package store persists projects and jobs in SQLite.
//
// The database lives at config.DatabasePath and is opened in WAL mode with a
// busy timeout; writes retry briefly on SQLITE_BUSY. Stage data and job bodies
// are stored as JSON columns, with the fields that are filtered on (stage,
// status, channel) duplicated into indexed columns.
//
// Schema changes bump schemaVersion; an existing database with a different
// version is rejected rather than migrated.
package store
