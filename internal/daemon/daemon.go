package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"completearr/internal/arr"
	"completearr/internal/config"
	"completearr/internal/coordinator"
	"completearr/internal/history"
	"completearr/internal/logging"
	"completearr/internal/mover"
	"completearr/internal/reconciler"
)

// ErrAlreadyRunning signals that another daemon owns the instance lock.
var ErrAlreadyRunning = errors.New("daemon already running")

// TriggerSchedule and TriggerManual name the two ways a pass starts.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Status is a point-in-time snapshot of the daemon for operators.
type Status struct {
	Running      bool
	RunActive    bool
	CurrentRunID string
	StartedAt    time.Time
	NextRun      time.Time
	LastSummary  *reconciler.Summary
}

// Daemon owns the scheduler, the run coordinator, and the history store.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	rec   *reconciler.Reconciler
	coord *coordinator.Coordinator
	store *history.Store

	instanceLock *flock.Flock

	mu          sync.Mutex
	started     bool
	currentRun  string
	runCancel   context.CancelFunc
	nextRun     time.Time
	lastSummary *reconciler.Summary

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New wires the full reconciliation stack from config. The returned daemon is
// idle until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	pacer := arr.NewPacer(cfg.CallSpacing())
	var sonarr reconciler.SeriesClient
	if cfg.Sonarr.Enabled {
		sonarr = arr.NewSonarr(arr.NewClient(cfg.Sonarr.URL, cfg.Sonarr.APIKey, cfg.RequestTimeoutDuration(), pacer))
	}
	var radarr reconciler.MovieClient
	if cfg.Radarr.Enabled {
		radarr = arr.NewRadarr(arr.NewClient(cfg.Radarr.URL, cfg.Radarr.APIKey, cfg.RequestTimeoutDuration(), pacer))
	}

	verify := cfg.Behavior.MoveVerification
	moves := mover.New(logger, mover.VerifyPolicy{
		Enabled:            verify.Enabled,
		Mode:               mover.VerifyMode(verify.Mode),
		Retries:            verify.Retries,
		InitialDelay:       time.Duration(verify.InitialDelay) * time.Second,
		BackoffIncrement:   time.Duration(verify.BackoffIncrement) * time.Second,
		ReattemptOnFailure: verify.ReattemptOnFailure,
		RevertOnFailure:    verify.RevertOnFailure,
	}, cfg.Behavior.DryRun)

	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		coord:        coordinator.New(cfg.LockPath(), cfg.StatusPath(), logger),
		store:        store,
		instanceLock: flock.New(cfg.DaemonLockPath()),
		stopCh:       make(chan struct{}),
	}
	d.rec = reconciler.New(cfg, logger, sonarr, radarr, moves, store)
	return d, nil
}

// Start acquires the instance lock, repairs any stale run state left by an
// unclean exit, and launches the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}

	ok, err := d.instanceLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if _, err := d.coord.ReadStatus(); err != nil {
		d.logger.Warn("run status unreadable at startup", logging.Error(err))
	}

	d.started = true
	d.stopCh = make(chan struct{})
	d.wg.Add(1)
	go d.schedulerLoop(d.stopCh)

	d.logger.Info("daemon started",
		logging.Duration("interval", d.cfg.Interval()),
		logging.Bool("run_on_start", d.cfg.Schedule.RunOnStart),
		logging.Bool("dry_run", d.cfg.Behavior.DryRun))
	return nil
}

// Stop cancels any active run, halts the scheduler, and waits for the
// in-flight pass to unwind within the context deadline.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	close(d.stopCh)
	if d.runCancel != nil {
		d.runCancel()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := d.instanceLock.Unlock(); err != nil {
		d.logger.Warn("release instance lock failed", logging.Error(err))
	}
	d.logger.Info("daemon stopped")
	return nil
}

// Close releases remaining resources. Call after Stop.
func (d *Daemon) Close() error {
	return d.store.Close()
}

// Status snapshots the daemon for the IPC status call.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.started,
		RunActive:    d.currentRun != "",
		CurrentRunID: d.currentRun,
		NextRun:      d.nextRun,
		LastSummary:  d.lastSummary,
	}
	if d.currentRun != "" {
		if rs, err := d.coord.ReadStatus(); err == nil {
			status.StartedAt = rs.StartedAt
		}
	}
	return status
}

// RunNow triggers an immediate pass. Returns ErrRunActive when a pass is
// already in flight anywhere on the host.
func (d *Daemon) RunNow() (string, error) {
	return d.launchRun(TriggerManual)
}

// CancelRun requests cancellation of the active pass. The pass stops at the
// next item boundary.
func (d *Daemon) CancelRun() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentRun == "" {
		return errors.New("no run active")
	}
	d.runCancel()
	d.logger.Info("run cancellation requested",
		logging.String(logging.FieldRunID, d.currentRun))
	return nil
}

// ForceReset clears the run lock and status unconditionally. Operator
// override for when automatic stale detection is not enough.
func (d *Daemon) ForceReset() error {
	d.mu.Lock()
	active := d.currentRun != ""
	d.mu.Unlock()
	if active {
		return errors.New("refusing force-reset while this daemon has a run active; cancel it first")
	}
	return d.coord.ForceReset()
}

// RunHistory lists recent passes from the history store.
func (d *Daemon) RunHistory(ctx context.Context, limit int) ([]history.Run, error) {
	return d.store.ListRuns(ctx, limit)
}

// MovesForRun lists moves recorded for one pass.
func (d *Daemon) MovesForRun(ctx context.Context, runID string) ([]history.Move, error) {
	return d.store.MovesForRun(ctx, runID)
}

func (d *Daemon) schedulerLoop(stopCh <-chan struct{}) {
	defer d.wg.Done()

	interval := d.cfg.Interval()
	d.mu.Lock()
	d.nextRun = time.Now().Add(interval)
	d.mu.Unlock()

	if d.cfg.Schedule.RunOnStart {
		if _, err := d.launchRun(TriggerSchedule); err != nil && !errors.Is(err, coordinator.ErrRunActive) {
			d.logger.Error("startup run failed to launch", logging.Error(err))
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			d.mu.Lock()
			d.nextRun = time.Now().Add(interval)
			d.mu.Unlock()
			if _, err := d.launchRun(TriggerSchedule); err != nil {
				if errors.Is(err, coordinator.ErrRunActive) {
					d.logger.Info("scheduled run skipped, another run is active")
				} else {
					d.logger.Error("scheduled run failed to launch", logging.Error(err))
				}
			}
		}
	}
}

func (d *Daemon) launchRun(trigger string) (string, error) {
	ok, err := d.coord.TryAcquire()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", coordinator.ErrRunActive
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		_ = d.coord.Release()
		return "", errors.New("daemon is stopping")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	d.currentRun = runID
	d.runCancel = cancel
	nextRun := d.nextRun
	d.mu.Unlock()

	if err := d.coord.WriteStatus(coordinator.RunStatus{
		State:     coordinator.StateRunning,
		RunID:     runID,
		StartedAt: startedAt,
		NextRun:   nextRun,
	}); err != nil {
		d.logger.Error("write run status failed", logging.Error(err))
	}

	d.wg.Add(1)
	go d.executeRun(runCtx, cancel, runID, trigger, startedAt)
	return runID, nil
}

func (d *Daemon) executeRun(ctx context.Context, cancel context.CancelFunc, runID, trigger string, startedAt time.Time) {
	defer d.wg.Done()
	defer cancel()

	log := d.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldTrigger, trigger))
	log.Info("run started")

	summary, runErr := d.rec.Run(ctx, runID)
	finishedAt := time.Now().UTC()

	run := history.Run{
		RunID:          runID,
		Trigger:        trigger,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		ItemsChecked:   summary.ItemsChecked,
		Promotions:     summary.Promotions,
		Demotions:      summary.Demotions,
		Corrections:    summary.Corrections,
		AlreadyCorrect: summary.AlreadyCorrect,
		Skipped:        summary.Skipped,
		Errors:         summary.Errors,
		MonitorChanges: summary.MonitorChanges,
	}
	if runErr != nil {
		run.Aborted = true
		run.AbortReason = runErr.Error()
	}
	if _, err := d.store.RecordRun(context.Background(), run); err != nil {
		log.Warn("record run failed", logging.Error(err))
	}

	d.mu.Lock()
	d.currentRun = ""
	d.runCancel = nil
	d.lastSummary = &summary
	nextRun := d.nextRun
	d.mu.Unlock()

	if err := d.coord.WriteStatus(coordinator.RunStatus{
		State:      coordinator.StateIdle,
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		NextRun:    nextRun,
	}); err != nil {
		log.Error("write run status failed", logging.Error(err))
	}
	if err := d.coord.Release(); err != nil {
		log.Error("release run lock failed", logging.Error(err))
	}

	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		log.Info("run cancelled", logging.Int("items_checked", summary.ItemsChecked))
	case runErr != nil:
		log.Error("run aborted", logging.Error(runErr))
	default:
		log.Info("run finished",
			logging.Int("items_checked", summary.ItemsChecked),
			logging.Int("promotions", summary.Promotions),
			logging.Int("demotions", summary.Demotions),
			logging.Int("corrections", summary.Corrections),
			logging.Int("errors", summary.Errors))
	}
}
