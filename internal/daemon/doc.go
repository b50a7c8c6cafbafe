// Package daemon hosts the long-running process: it enforces single-instance
// operation, schedules reconciliation passes, and exposes run control to the
// IPC layer.
package daemon
