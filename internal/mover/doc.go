// Package mover issues placement changes against the external system and
// verifies they completed.
//
// The external system can lag behind its own move operations, fail
// transiently, or disagree with the filesystem, so a move is not trusted
// until it converges: the orchestrator re-checks on a linear backoff
// schedule, optionally re-issuing the move, and when retries are exhausted
// it can issue a corrective record-only call returning the item to its old
// location so the system's record matches the files that never moved.
package mover
