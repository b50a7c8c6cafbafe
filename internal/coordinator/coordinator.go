package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"completearr/internal/logging"
)

// ErrRunActive signals that another reconciliation pass holds the lock.
var ErrRunActive = errors.New("a reconciliation run is already active")

// State describes whether a pass is in flight.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// RunStatus is the persisted run record. A single instance exists
// process-wide, owned exclusively by the Coordinator.
type RunStatus struct {
	State      State     `json:"status"`
	RunID      string    `json:"run_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	NextRun    time.Time `json:"next_run"`
}

// Coordinator owns the run lock and status record.
type Coordinator struct {
	lockPath   string
	statusPath string
	lock       *flock.Flock
	logger     *slog.Logger

	mu   sync.Mutex
	held bool
}

// New constructs a coordinator for the given lock and status paths.
func New(lockPath, statusPath string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		lockPath:   lockPath,
		statusPath: statusPath,
		lock:       flock.New(lockPath),
		logger:     logging.NewComponentLogger(logger, "coordinator"),
	}
}

// TryAcquire attempts to take the run lock without blocking. Exactly one of
// any set of concurrent callers succeeds.
func (c *Coordinator) TryAcquire() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held {
		return false, nil
	}
	ok, err := c.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	c.held = ok
	return ok, nil
}

// Release drops the run lock if this coordinator holds it.
func (c *Coordinator) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.held {
		return nil
	}
	c.held = false
	if err := c.lock.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// Held reports whether this coordinator currently owns the run lock.
func (c *Coordinator) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// WriteStatus persists the run status atomically (temp write + rename) so a
// reader never observes a partial record.
func (c *Coordinator) WriteStatus(status RunStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run status: %w", err)
	}

	dir := filepath.Dir(c.statusPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure status directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".run_status-*")
	if err != nil {
		return fmt.Errorf("create temp status file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp status file: %w", err)
	}
	if err := os.Rename(tmpPath, c.statusPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}

// ReadStatus returns the persisted run status, repairing stale state first:
// if the record claims a run is active but the lock can be taken, no live
// process owns that run (an unclean exit left the record behind), so the
// record is rewritten to idle with the original start time preserved.
func (c *Coordinator) ReadStatus() (RunStatus, error) {
	status, err := c.readStatusFile()
	if err != nil {
		return RunStatus{}, err
	}

	if status.State != StateRunning {
		return status, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held {
		return status, nil
	}

	// Probe with a fresh handle. The run path's flock instance reports
	// TryLock success reentrantly when it already holds the lock, so probing
	// through it could release a lock a live run still owns.
	probe := flock.New(c.lockPath)
	ok, lockErr := probe.TryLock()
	if lockErr != nil || !ok {
		// Another process owns the run; the record is accurate.
		return status, nil
	}
	_ = probe.Unlock()

	c.logger.Warn("stale running status detected, repairing",
		logging.String(logging.FieldRunID, status.RunID),
		logging.Time("started_at", status.StartedAt))

	repaired := status
	repaired.State = StateIdle
	repaired.FinishedAt = time.Now().UTC()
	if err := c.WriteStatus(repaired); err != nil {
		return status, fmt.Errorf("repair stale status: %w", err)
	}
	return repaired, nil
}

func (c *Coordinator) readStatusFile() (RunStatus, error) {
	data, err := os.ReadFile(c.statusPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RunStatus{State: StateIdle}, nil
		}
		return RunStatus{}, fmt.Errorf("read run status: %w", err)
	}
	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return RunStatus{}, fmt.Errorf("decode run status: %w", err)
	}
	if status.State == "" {
		status.State = StateIdle
	}
	return status, nil
}

// ForceReset is the operator hammer: drop any lock this process holds,
// remove the lock file, and rewrite the status record to idle.
func (c *Coordinator) ForceReset() error {
	c.mu.Lock()
	if c.held {
		c.held = false
		_ = c.lock.Unlock()
	}
	c.mu.Unlock()

	if err := os.Remove(c.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}

	status, err := c.readStatusFile()
	if err != nil {
		status = RunStatus{}
	}
	status.State = StateIdle
	status.FinishedAt = time.Now().UTC()
	if err := c.WriteStatus(status); err != nil {
		return err
	}
	c.logger.Warn("run state force-reset")
	return nil
}
