// Package ipc exposes daemon control over a Unix domain socket using
// JSON-RPC, and provides the matching client used by the CLI.
package ipc
