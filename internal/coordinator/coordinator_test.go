package coordinator_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"completearr/internal/coordinator"
)

func newCoordinator(t *testing.T) (*coordinator.Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	coord := coordinator.New(
		filepath.Join(dir, "run.lock"),
		filepath.Join(dir, "run_status.json"),
		nil,
	)
	return coord, dir
}

func TestTryAcquireIsExclusive(t *testing.T) {
	coord, _ := newCoordinator(t)

	ok, err := coord.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Fatal("first acquire should succeed")
	}

	ok, err = coord.TryAcquire()
	if err != nil {
		t.Fatalf("second TryAcquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire must fail while held")
	}

	if err := coord.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = coord.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("acquire after release = (%v, %v), want success", ok, err)
	}
}

func TestConcurrentAcquireAdmitsExactlyOne(t *testing.T) {
	coord, _ := newCoordinator(t)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := coord.TryAcquire()
			if err != nil {
				t.Errorf("TryAcquire: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	coord, _ := newCoordinator(t)

	started := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	want := coordinator.RunStatus{
		State:     coordinator.StateRunning,
		RunID:     "abc-123",
		StartedAt: started,
		NextRun:   started.Add(6 * time.Hour),
	}
	if err := coord.WriteStatus(want); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	// Hold the lock so the record is not repaired as stale.
	if ok, err := coord.TryAcquire(); err != nil || !ok {
		t.Fatalf("TryAcquire = (%v, %v)", ok, err)
	}
	got, err := coord.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if got.State != want.State || got.RunID != want.RunID || !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReadStatusMissingFileIsIdle(t *testing.T) {
	coord, _ := newCoordinator(t)

	status, err := coord.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if status.State != coordinator.StateIdle {
		t.Fatalf("state = %s, want idle", status.State)
	}
}

func TestReadStatusRepairsStaleRunningRecord(t *testing.T) {
	coord, _ := newCoordinator(t)

	started := time.Date(2026, time.February, 20, 3, 0, 0, 0, time.UTC)
	stale := coordinator.RunStatus{
		State:     coordinator.StateRunning,
		RunID:     "dead-run",
		StartedAt: started,
	}
	if err := coord.WriteStatus(stale); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	// Nothing holds the lock, so the running record must be repaired.
	status, err := coord.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if status.State != coordinator.StateIdle {
		t.Fatalf("state = %s, want idle after repair", status.State)
	}
	if !status.StartedAt.Equal(started) {
		t.Fatalf("started = %s, want original %s preserved", status.StartedAt, started)
	}
	if status.FinishedAt.IsZero() {
		t.Fatal("repair must stamp a finish time")
	}
}

func TestReadStatusDoesNotReleaseActiveRunLock(t *testing.T) {
	coord, dir := newCoordinator(t)
	lockPath := filepath.Join(dir, "run.lock")

	for i := 0; i < 50; i++ {
		running := coordinator.RunStatus{
			State:     coordinator.StateRunning,
			RunID:     "live",
			StartedAt: time.Now().UTC(),
		}
		if err := coord.WriteStatus(running); err != nil {
			t.Fatalf("WriteStatus: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		var acquired bool
		go func() {
			defer wg.Done()
			ok, err := coord.TryAcquire()
			if err != nil {
				t.Errorf("TryAcquire: %v", err)
				return
			}
			acquired = ok
		}()
		go func() {
			defer wg.Done()
			if _, err := coord.ReadStatus(); err != nil {
				t.Errorf("ReadStatus: %v", err)
			}
		}()
		wg.Wait()

		if !acquired {
			t.Fatalf("iteration %d: acquire failed", i)
		}
		// A concurrent status read must never drop the run's lock.
		outsider := flock.New(lockPath)
		ok, err := outsider.TryLock()
		if err != nil {
			t.Fatalf("outside lock attempt: %v", err)
		}
		if ok {
			t.Fatalf("iteration %d: run lock was released while the run was active", i)
		}
		if err := coord.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
}

func TestWriteStatusIsAtomicallyReplaced(t *testing.T) {
	coord, dir := newCoordinator(t)

	if err := coord.WriteStatus(coordinator.RunStatus{State: coordinator.StateIdle}); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if err := coord.WriteStatus(coordinator.RunStatus{State: coordinator.StateRunning, RunID: "x"}); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run_status.json"))
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	var status coordinator.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("status file is not valid JSON: %v", err)
	}
	if status.RunID != "x" {
		t.Fatalf("run id = %q, want latest write", status.RunID)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "run_status.json" && entry.Name() != "run.lock" {
			t.Fatalf("leftover temp file %q", entry.Name())
		}
	}
}

func TestForceResetClearsState(t *testing.T) {
	coord, dir := newCoordinator(t)

	if ok, err := coord.TryAcquire(); err != nil || !ok {
		t.Fatalf("TryAcquire = (%v, %v)", ok, err)
	}
	if err := coord.WriteStatus(coordinator.RunStatus{State: coordinator.StateRunning, RunID: "stuck"}); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	if err := coord.ForceReset(); err != nil {
		t.Fatalf("ForceReset: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "run.lock")); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed, stat err = %v", err)
	}
	status, err := coord.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if status.State != coordinator.StateIdle {
		t.Fatalf("state = %s, want idle", status.State)
	}

	if ok, err := coord.TryAcquire(); err != nil || !ok {
		t.Fatalf("acquire after reset = (%v, %v), want success", ok, err)
	}
}
