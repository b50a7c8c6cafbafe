package media

import (
	"path/filepath"
	"time"
)

// Kind distinguishes the two managed item variants.
type Kind string

const (
	KindSeries Kind = "series"
	KindMovie  Kind = "movie"
)

// Item is a tracked library entity in either managed library.
type Item struct {
	ID        int64
	Kind      Kind
	Title     string
	Path      string
	ProfileID int64
}

// Episode is one entry of a series. Specials (season zero) are bonus
// episodes and excluded from completeness by default.
type Episode struct {
	ID           int64
	SeriesID     int64
	SeasonNumber int
	Number       int
	Title        string
	AirDateUTC   *time.Time
	// HasAired is authoritative when the external system reports it;
	// otherwise airing is derived from AirDateUTC.
	HasAired  *bool
	HasFile   bool
	Monitored bool
}

// IsBonus reports whether the episode sits outside the regular sequence.
func (e Episode) IsBonus() bool {
	return e.SeasonNumber == 0
}

// ResolvedSet is a placement set with profile names resolved to IDs.
type ResolvedSet struct {
	Name                string
	IncompleteProfileID int64
	IncompleteRoot      string
	CompleteProfileID   int64
	CompleteRoot        string
}

// Governs reports whether the item belongs to this set: either its profile
// matches one of the set's profiles or its path lives under one of the roots.
func (s ResolvedSet) Governs(item Item) bool {
	if item.ProfileID == s.IncompleteProfileID || item.ProfileID == s.CompleteProfileID {
		return true
	}
	return PathWithin(item.Path, s.IncompleteRoot) || PathWithin(item.Path, s.CompleteRoot)
}

// MoveRequest carries everything the mover needs for one placement change.
type MoveRequest struct {
	ItemID  int64
	Kind    Kind
	Title   string
	OldPath string
	NewPath string
	// ProfileID is the classification to apply with the move; zero leaves it
	// unchanged. OldProfileID is restored if the move has to be reverted.
	ProfileID    int64
	OldProfileID int64
}

// TargetPath places the item's directory under a new root, keeping its
// directory name: /library/old/ItemA moved to /library/4K yields
// /library/4K/ItemA.
func TargetPath(currentPath, newRoot string) string {
	return filepath.Join(newRoot, filepath.Base(currentPath))
}

// PathWithin reports whether path sits at or under root. Comparison is by
// path component, not raw string prefix, so /library/tv2 is not within
// /library/tv.
func PathWithin(path, root string) bool {
	if path == "" || root == "" {
		return false
	}
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !isOutside(rel)
}

func isOutside(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
