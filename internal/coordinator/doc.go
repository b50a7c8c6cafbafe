// Package coordinator guards reconciliation passes with a single-flight lock
// and a durable run status record.
//
// The lock is a non-blocking flock: of any concurrent acquirers, exactly one
// wins, and the OS releases it automatically if the owning process dies. The
// status record is a small JSON file replaced atomically so readers never see
// a partial write. Because a dead process drops its flock but leaves the
// status file claiming a run is active, ReadStatus probes the lock and
// repairs that stale state itself.
package coordinator
