// Package reconciler runs a full reconciliation pass: it preflights the
// configured libraries, evaluates every governed item, and drives the moves
// and monitoring updates needed to bring placement in line with
// classification state.
package reconciler
