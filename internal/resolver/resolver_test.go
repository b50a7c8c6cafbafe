package resolver_test

import (
	"testing"

	"completearr/internal/media"
	"completearr/internal/resolver"
)

func TestResolveUnmappedClassification(t *testing.T) {
	item := media.Item{ID: 1, Kind: media.KindMovie, Path: "/movies/hd/Example (2020)", ProfileID: 9}
	placements := map[int64]string{5: "/movies/hd"}

	res := resolver.Resolve(item, placements)
	if res.State != resolver.StateUnmapped {
		t.Fatalf("state = %s, want %s", res.State, resolver.StateUnmapped)
	}
}

func TestResolveNoChangeWhenInsideRoot(t *testing.T) {
	item := media.Item{ID: 1, Kind: media.KindMovie, Path: "/movies/hd/Example (2020)", ProfileID: 5}
	placements := map[int64]string{5: "/movies/hd"}

	res := resolver.Resolve(item, placements)
	if res.State != resolver.StateNoChange {
		t.Fatalf("state = %s, want %s", res.State, resolver.StateNoChange)
	}
	if res.ExpectedRoot != "/movies/hd" {
		t.Fatalf("expected root = %q", res.ExpectedRoot)
	}
}

func TestResolveCorrectionWhenOutsideRoot(t *testing.T) {
	item := media.Item{ID: 1, Kind: media.KindMovie, Path: "/movies/sd/Example (2020)", ProfileID: 5}
	placements := map[int64]string{5: "/movies/hd"}

	res := resolver.Resolve(item, placements)
	if res.State != resolver.StateCorrection {
		t.Fatalf("state = %s, want %s", res.State, resolver.StateCorrection)
	}
	if res.ExpectedRoot != "/movies/hd" {
		t.Fatalf("expected root = %q", res.ExpectedRoot)
	}
}

func TestResolvePrefixIsComponentWise(t *testing.T) {
	// "/movies/hd2" must not count as inside "/movies/hd".
	item := media.Item{ID: 1, Kind: media.KindMovie, Path: "/movies/hd2/Example (2020)", ProfileID: 5}
	placements := map[int64]string{5: "/movies/hd"}

	res := resolver.Resolve(item, placements)
	if res.State != resolver.StateCorrection {
		t.Fatalf("state = %s, want correction for sibling directory", res.State)
	}
}
