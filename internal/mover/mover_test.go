package mover_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"completearr/internal/media"
	"completearr/internal/mover"
)

func basePolicy() mover.VerifyPolicy {
	return mover.VerifyPolicy{
		Enabled:          true,
		Mode:             mover.VerifyRemote,
		Retries:          3,
		InitialDelay:     5 * time.Second,
		BackoffIncrement: 5 * time.Second,
		RevertOnFailure:  true,
	}
}

func baseRequest() media.MoveRequest {
	return media.MoveRequest{
		ItemID:       7,
		Kind:         media.KindSeries,
		Title:        "Example",
		OldPath:      "/tv/incomplete/Example",
		NewPath:      "/tv/complete/Example",
		ProfileID:    2,
		OldProfileID: 1,
	}
}

func newOrchestrator(t *testing.T, policy mover.VerifyPolicy, dryRun bool, sleeps *[]time.Duration) *mover.Orchestrator {
	t.Helper()
	return mover.New(nil, policy, dryRun,
		mover.WithSleepFunc(func(_ context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		}),
		mover.WithPathProbe(func(string) bool { return false }),
	)
}

func TestRequestMoveDryRunIssuesNothing(t *testing.T) {
	endpoint := &stubEndpoint{}
	o := newOrchestrator(t, basePolicy(), true, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeSucceeded {
		t.Fatalf("outcome = %s, want succeeded", result.Outcome)
	}
	if len(endpoint.setCalls) != 0 {
		t.Fatalf("set calls = %d, want 0 in dry run", len(endpoint.setCalls))
	}
}

func TestRequestMoveVerificationDisabled(t *testing.T) {
	policy := basePolicy()
	policy.Enabled = false
	endpoint := &stubEndpoint{}
	o := newOrchestrator(t, policy, false, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeSucceeded || result.Issued != 1 {
		t.Fatalf("result = %+v, want succeeded with one issuance", result)
	}
	if len(endpoint.setCalls) != 1 || !endpoint.setCalls[0].moveFiles {
		t.Fatalf("set calls = %+v, want one with moveFiles", endpoint.setCalls)
	}
}

func TestRequestMoveConvergesOnFirstCheck(t *testing.T) {
	endpoint := &stubEndpoint{location: "/tv/complete/Example"}
	var sleeps []time.Duration
	o := newOrchestrator(t, basePolicy(), false, &sleeps)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeSucceeded || result.Issued != 1 {
		t.Fatalf("result = %+v, want succeeded with one issuance", result)
	}
	if len(sleeps) != 1 || sleeps[0] != 5*time.Second {
		t.Fatalf("sleeps = %v, want single initial delay", sleeps)
	}
}

func TestRequestMoveDelaysIncreaseLinearly(t *testing.T) {
	endpoint := &stubEndpoint{location: "/tv/incomplete/Example"}
	var sleeps []time.Duration
	o := newOrchestrator(t, basePolicy(), false, &sleeps)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeReverted {
		t.Fatalf("outcome = %s, want reverted", result.Outcome)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second, 20 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleep %d = %s, want %s", i, sleeps[i], want[i])
		}
	}
}

func TestRequestMoveReattemptIssuesRetriesPlusOne(t *testing.T) {
	policy := basePolicy()
	policy.ReattemptOnFailure = true
	endpoint := &stubEndpoint{location: "/tv/incomplete/Example"}
	o := newOrchestrator(t, policy, false, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeReverted {
		t.Fatalf("outcome = %s, want reverted", result.Outcome)
	}
	if result.Issued != policy.Retries+1 {
		t.Fatalf("issued = %d, want %d", result.Issued, policy.Retries+1)
	}
}

func TestRequestMoveRevertUsesOldPlacement(t *testing.T) {
	endpoint := &stubEndpoint{location: "/tv/incomplete/Example"}
	o := newOrchestrator(t, basePolicy(), false, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeReverted {
		t.Fatalf("outcome = %s, want reverted", result.Outcome)
	}
	if result.Err == nil {
		t.Fatal("reverted result must carry an error")
	}

	last := endpoint.setCalls[len(endpoint.setCalls)-1]
	if last.path != "/tv/incomplete/Example" || last.profileID != 1 || last.moveFiles {
		t.Fatalf("revert call = %+v, want old path, old profile, moveFiles=false", last)
	}
}

func TestRequestMoveFailsWhenRevertDisabled(t *testing.T) {
	policy := basePolicy()
	policy.RevertOnFailure = false
	endpoint := &stubEndpoint{location: "/tv/incomplete/Example"}
	o := newOrchestrator(t, policy, false, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome)
	}
	// Only the initial issuance, no revert call.
	if len(endpoint.setCalls) != 1 {
		t.Fatalf("set calls = %d, want 1", len(endpoint.setCalls))
	}
}

func TestRequestMoveFailsWhenRevertFails(t *testing.T) {
	endpoint := &stubEndpoint{
		location: "/tv/incomplete/Example",
		setErrs:  map[int]error{1: errors.New("unavailable")},
	}
	o := newOrchestrator(t, basePolicy(), false, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed when revert fails", result.Outcome)
	}
}

func TestRequestMoveIssueFailure(t *testing.T) {
	endpoint := &stubEndpoint{setErrs: map[int]error{0: errors.New("boom")}}
	o := newOrchestrator(t, basePolicy(), false, nil)

	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeFailed || result.Issued != 0 {
		t.Fatalf("result = %+v, want failed with zero issuances", result)
	}
}

func TestRequestMoveVerifyBothRequiresFilesystem(t *testing.T) {
	policy := basePolicy()
	policy.Mode = mover.VerifyBoth
	policy.Retries = 0
	policy.RevertOnFailure = false
	endpoint := &stubEndpoint{location: "/tv/complete/Example"}

	// Remote agrees but the filesystem probe says the path never appeared.
	o := mover.New(nil, policy, false,
		mover.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
		mover.WithPathProbe(func(string) bool { return false }),
	)
	result := o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed when filesystem disagrees", result.Outcome)
	}

	o = mover.New(nil, policy, false,
		mover.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
		mover.WithPathProbe(func(string) bool { return true }),
	)
	result = o.RequestMove(context.Background(), endpoint, baseRequest())
	if result.Outcome != mover.OutcomeSucceeded {
		t.Fatalf("outcome = %s, want succeeded when both agree", result.Outcome)
	}
}

func TestRequestMoveCancelDoesNotInterruptSequence(t *testing.T) {
	endpoint := &stubEndpoint{location: "/tv/incomplete/Example"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sleeps []time.Duration
	o := mover.New(nil, basePolicy(), false,
		mover.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
			// Cancel fires during a verification wait. The sequence must
			// still run to a terminal outcome, not bail mid-verification.
			cancel()
			sleeps = append(sleeps, d)
			return ctx.Err()
		}),
		mover.WithPathProbe(func(string) bool { return false }),
	)

	result := o.RequestMove(ctx, endpoint, baseRequest())
	if result.Outcome != mover.OutcomeReverted {
		t.Fatalf("outcome = %s, want reverted after cancel during verification", result.Outcome)
	}
	if len(sleeps) != 4 {
		t.Fatalf("sleeps = %d, want the full verification schedule", len(sleeps))
	}
	last := endpoint.setCalls[len(endpoint.setCalls)-1]
	if last.moveFiles || last.path != "/tv/incomplete/Example" {
		t.Fatalf("revert call = %+v, want record-only revert to the old path", last)
	}
}

type setCall struct {
	path      string
	profileID int64
	moveFiles bool
}

type stubEndpoint struct {
	mu       sync.Mutex
	location string
	setCalls []setCall
	setErrs  map[int]error
}

func (s *stubEndpoint) SetLocation(_ context.Context, _ int64, path string, profileID int64, moveFiles bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := len(s.setCalls)
	if err, ok := s.setErrs[call]; ok {
		return err
	}
	s.setCalls = append(s.setCalls, setCall{path: path, profileID: profileID, moveFiles: moveFiles})
	return nil
}

func (s *stubEndpoint) CurrentLocation(context.Context, int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, nil
}
