package mover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"completearr/internal/logging"
	"completearr/internal/media"
)

// Outcome is the terminal state of one move operation.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeReverted  Outcome = "reverted"
	OutcomeFailed    Outcome = "failed"
)

// VerifyMode selects which sources must agree before a move counts as done.
type VerifyMode string

const (
	VerifyRemote     VerifyMode = "remote"
	VerifyFilesystem VerifyMode = "filesystem"
	VerifyBoth       VerifyMode = "both"
)

// VerifyPolicy controls the verification loop.
type VerifyPolicy struct {
	Enabled            bool
	Mode               VerifyMode
	Retries            int
	InitialDelay       time.Duration
	BackoffIncrement   time.Duration
	ReattemptOnFailure bool
	RevertOnFailure    bool
}

// Endpoint abstracts the external system for one item kind. The orchestrator
// is kind-agnostic; series and movie adapters satisfy this.
type Endpoint interface {
	// SetLocation updates the item's recorded location (and classification
	// when profileID is positive). moveFiles instructs the external system
	// to relocate the underlying files.
	SetLocation(ctx context.Context, itemID int64, path string, profileID int64, moveFiles bool) error
	// CurrentLocation re-fetches the item's location as the external system
	// reports it now.
	CurrentLocation(ctx context.Context, itemID int64) (string, error)
}

// Result records how a move operation ended.
type Result struct {
	Outcome Outcome
	// Issued counts move issuances, excluding any corrective revert call.
	Issued int
	Err    error
}

// Orchestrator performs verified placement changes.
type Orchestrator struct {
	logger *slog.Logger
	policy VerifyPolicy
	dryRun bool

	sleep      func(ctx context.Context, d time.Duration) error
	pathExists func(path string) bool
}

// Option adjusts orchestrator internals, primarily for tests.
type Option func(*Orchestrator)

// WithSleepFunc replaces the verification wait.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithPathProbe replaces the filesystem existence check.
func WithPathProbe(fn func(path string) bool) Option {
	return func(o *Orchestrator) { o.pathExists = fn }
}

// New constructs an orchestrator. A nil logger is replaced with a no-op.
func New(logger *slog.Logger, policy VerifyPolicy, dryRun bool, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		logger:     logging.NewComponentLogger(logger, "mover"),
		policy:     policy,
		dryRun:     dryRun,
		sleep:      sleepCtx,
		pathExists: defaultPathExists,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RequestMove issues the placement change and runs the verification
// protocol. All terminal outcomes other than Succeeded mean the caller must
// not apply any state change that assumes the new placement.
func (o *Orchestrator) RequestMove(ctx context.Context, endpoint Endpoint, req media.MoveRequest) Result {
	log := o.logger.With(
		logging.Int64(logging.FieldItemID, req.ItemID),
		logging.String(logging.FieldItemTitle, req.Title),
		logging.String(logging.FieldItemKind, string(req.Kind)),
		logging.String(logging.FieldOldLocation, req.OldPath),
		logging.String(logging.FieldNewLocation, req.NewPath),
	)

	if o.dryRun {
		log.Info("dry run: would move item")
		return Result{Outcome: OutcomeSucceeded}
	}

	// A stop request must not interrupt an in-flight move sequence. Once the
	// first issuance goes out, the item runs to a terminal outcome (verified,
	// reverted, or exhausted); the pass stops at the next item boundary.
	ctx = context.WithoutCancel(ctx)

	if err := endpoint.SetLocation(ctx, req.ItemID, req.NewPath, req.ProfileID, true); err != nil {
		log.Error("move issuance failed", logging.Error(err))
		return Result{Outcome: OutcomeFailed, Issued: 0, Err: fmt.Errorf("issue move: %w", err)}
	}
	issued := 1

	if !o.policy.Enabled {
		log.Info("move issued, verification disabled")
		return Result{Outcome: OutcomeSucceeded, Issued: issued}
	}

	delay := o.policy.InitialDelay
	for attempt := 0; attempt <= o.policy.Retries; attempt++ {
		if attempt > 0 && o.policy.ReattemptOnFailure {
			if err := endpoint.SetLocation(ctx, req.ItemID, req.NewPath, req.ProfileID, true); err != nil {
				log.Warn("move reissue failed",
					logging.Int(logging.FieldAttempt, attempt+1),
					logging.Error(err))
			} else {
				issued++
			}
		}

		log.Debug("waiting before verification",
			logging.Int(logging.FieldAttempt, attempt+1),
			logging.Duration(logging.FieldDelay, delay))
		if err := o.sleep(ctx, delay); err != nil {
			return Result{Outcome: OutcomeFailed, Issued: issued, Err: err}
		}
		delay += o.policy.BackoffIncrement

		converged, err := o.converged(ctx, endpoint, req)
		if err != nil {
			log.Warn("verification check failed",
				logging.Int(logging.FieldAttempt, attempt+1),
				logging.Error(err))
		}
		if converged {
			log.Info("move verified",
				logging.Int(logging.FieldAttempt, attempt+1),
				logging.String(logging.FieldOutcome, string(OutcomeSucceeded)))
			return Result{Outcome: OutcomeSucceeded, Issued: issued}
		}
	}

	return o.exhausted(ctx, endpoint, req, issued, log)
}

// exhausted handles the terminal path after all verification attempts
// failed: revert the external record when configured, otherwise report
// failure.
func (o *Orchestrator) exhausted(ctx context.Context, endpoint Endpoint, req media.MoveRequest, issued int, log *slog.Logger) Result {
	if !o.policy.RevertOnFailure || req.OldPath == "" {
		log.Error("move verification exhausted",
			logging.Int("issued", issued),
			logging.String(logging.FieldOutcome, string(OutcomeFailed)))
		return Result{
			Outcome: OutcomeFailed,
			Issued:  issued,
			Err:     fmt.Errorf("move of %q did not converge after %d issuances", req.Title, issued),
		}
	}

	// Record-only corrective call: the files never arrived, so point the
	// external system back at where they still are.
	if err := endpoint.SetLocation(ctx, req.ItemID, req.OldPath, req.OldProfileID, false); err != nil {
		log.Error("revert failed",
			logging.Error(err),
			logging.String(logging.FieldOutcome, string(OutcomeFailed)))
		return Result{
			Outcome: OutcomeFailed,
			Issued:  issued,
			Err:     fmt.Errorf("revert to %q: %w", req.OldPath, err),
		}
	}

	log.Warn("move reverted after verification exhausted",
		logging.Int("issued", issued),
		logging.String(logging.FieldOutcome, string(OutcomeReverted)))
	return Result{
		Outcome: OutcomeReverted,
		Issued:  issued,
		Err:     fmt.Errorf("move of %q did not converge, reverted to %q", req.Title, req.OldPath),
	}
}

// converged checks the configured sources for agreement on the new location.
func (o *Orchestrator) converged(ctx context.Context, endpoint Endpoint, req media.MoveRequest) (bool, error) {
	var remoteOK, fsOK bool

	if o.policy.Mode == VerifyRemote || o.policy.Mode == VerifyBoth {
		location, err := endpoint.CurrentLocation(ctx, req.ItemID)
		if err != nil {
			return false, err
		}
		remoteOK = filepath.Clean(location) == filepath.Clean(req.NewPath)
	}
	if o.policy.Mode == VerifyFilesystem || o.policy.Mode == VerifyBoth {
		fsOK = o.pathExists(req.NewPath)
	}

	switch o.policy.Mode {
	case VerifyRemote:
		return remoteOK, nil
	case VerifyFilesystem:
		return fsOK, nil
	case VerifyBoth:
		return remoteOK && fsOK, nil
	default:
		return false, fmt.Errorf("unknown verification mode %q", o.policy.Mode)
	}
}

func defaultPathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
