// Package media defines the shared model for tracked library items.
//
// Items are a tagged variant over the two managed kinds (series and movie).
// The evaluator and resolver decide desired placement per kind; the mover is
// kind-agnostic and operates only on the identity and location pair carried
// by a MoveRequest.
package media
