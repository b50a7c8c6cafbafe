// Package resolver decides placement for singular items by mapping their
// classification to an expected root location.
package resolver

import (
	"completearr/internal/media"
)

// State is the resolution outcome for a singular item.
type State string

const (
	// StateUnmapped means the item's classification has no configured
	// location; the item is skipped, non-fatally.
	StateUnmapped State = "unmapped"
	// StateCorrection means the item lives outside its expected root.
	StateCorrection State = "correction"
	StateNoChange   State = "no-change"
)

// Resolution reports where a singular item should live.
type Resolution struct {
	State        State
	ExpectedRoot string
}

// Resolve looks up the expected root for the item's classification and
// reports whether a correction is needed.
func Resolve(item media.Item, placements map[int64]string) Resolution {
	root, ok := placements[item.ProfileID]
	if !ok {
		return Resolution{State: StateUnmapped}
	}
	if media.PathWithin(item.Path, root) {
		return Resolution{State: StateNoChange, ExpectedRoot: root}
	}
	return Resolution{State: StateCorrection, ExpectedRoot: root}
}
