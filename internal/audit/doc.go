// Package audit records reservation lifecycle events and admin actions in the
// audit_logs table and serves them back for review.
//
// Writes go through a Recorder, which queues entries and writes them from a
// single goroutine so that request handlers never wait on the audit table.
package audit
