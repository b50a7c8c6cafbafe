// Package logging builds the slog loggers used across the daemon and CLI.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log shipping. Attribute helpers keep field names consistent
// so reconciliation decisions can be grepped by item, run, and location.
package logging
