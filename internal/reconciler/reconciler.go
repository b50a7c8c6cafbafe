package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"completearr/internal/arr"
	"completearr/internal/config"
	"completearr/internal/evaluator"
	"completearr/internal/history"
	"completearr/internal/logging"
	"completearr/internal/media"
	"completearr/internal/mover"
	"completearr/internal/resolver"
)

// Summary holds the pass-scoped counters reported when a run finishes.
type Summary struct {
	ItemsChecked   int `json:"items_checked"`
	Promotions     int `json:"promotions"`
	Demotions      int `json:"demotions"`
	Corrections    int `json:"corrections"`
	AlreadyCorrect int `json:"already_correct"`
	Skipped        int `json:"skipped"`
	Errors         int `json:"errors"`
	MonitorChanges int `json:"monitor_changes"`
}

// SeriesClient is the episodic library surface the reconciler needs.
type SeriesClient interface {
	Status(ctx context.Context) (arr.SystemStatus, error)
	QualityProfiles(ctx context.Context) ([]arr.QualityProfile, error)
	ListSeries(ctx context.Context) ([]media.Item, error)
	SeriesPath(ctx context.Context, id int64) (string, error)
	EpisodesForSeries(ctx context.Context, seriesID int64) ([]media.Episode, error)
	SetSeriesLocation(ctx context.Context, id int64, path string, profileID int64, moveFiles bool) error
	SetEpisodesMonitored(ctx context.Context, ids []int64, monitored bool) error
}

// MovieClient is the singular library surface the reconciler needs.
type MovieClient interface {
	Status(ctx context.Context) (arr.SystemStatus, error)
	QualityProfiles(ctx context.Context) ([]arr.QualityProfile, error)
	ListMovies(ctx context.Context) ([]media.Item, error)
	MoviePath(ctx context.Context, id int64) (string, error)
	SetMovieLocation(ctx context.Context, id int64, path string, profileID int64, moveFiles bool) error
}

// MoveRecorder persists individual move attempts. Nil disables recording.
type MoveRecorder interface {
	RecordMove(ctx context.Context, move history.Move) (int64, error)
}

// Reconciler executes reconciliation passes against the configured libraries.
type Reconciler struct {
	cfg      *config.Config
	logger   *slog.Logger
	sonarr   SeriesClient
	radarr   MovieClient
	moves    *mover.Orchestrator
	recorder MoveRecorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option adjusts reconciler internals, primarily for tests.
type Option func(*Reconciler)

// WithClock replaces the time source.
func WithClock(fn func() time.Time) Option {
	return func(r *Reconciler) { r.now = fn }
}

// WithSleepFunc replaces the settle waits.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Reconciler) { r.sleep = fn }
}

// New constructs a reconciler. sonarr or radarr may be nil when the
// corresponding library is disabled.
func New(cfg *config.Config, logger *slog.Logger, sonarr SeriesClient, radarr MovieClient, moves *mover.Orchestrator, recorder MoveRecorder, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Reconciler{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "reconciler"),
		sonarr:   sonarr,
		radarr:   radarr,
		moves:    moves,
		recorder: recorder,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) policy() evaluator.Policy {
	return evaluator.Policy{
		GraceDays:                r.cfg.Behavior.GraceDays,
		TreatUnknownAirDateAsOld: r.cfg.Behavior.TreatUnknownAirDateAsOld,
		MonitorBonusWhenComplete: r.cfg.Behavior.MonitorBonusWhenComplete,
		ForceMonitorRegular:      r.cfg.Behavior.ForceMonitorRegular,
	}
}

// Run executes one complete pass. A non-nil error means the pass aborted
// before or during processing; the returned summary covers whatever work
// completed.
func (r *Reconciler) Run(ctx context.Context, runID string) (Summary, error) {
	summary := Summary{}
	log := r.logger.With(logging.String(logging.FieldRunID, runID))

	if err := r.preflight(ctx, log); err != nil {
		return summary, err
	}

	seriesSets, moviePlacements, err := r.resolvePlacements(ctx)
	if err != nil {
		return summary, err
	}

	if delay := r.cfg.PreflightDelay(); delay > 0 {
		log.Debug("preflight settle", logging.Duration(logging.FieldDelay, delay))
		if err := r.sleep(ctx, delay); err != nil {
			return summary, err
		}
	}

	if r.sonarr != nil && r.cfg.Sonarr.Enabled {
		if err := r.runSeriesPass(ctx, log, runID, seriesSets, &summary); err != nil {
			return summary, err
		}
	}
	if r.radarr != nil && r.cfg.Radarr.Enabled {
		if err := r.runMoviePass(ctx, log, runID, moviePlacements, &summary); err != nil {
			return summary, err
		}
	}

	log.Info("pass complete",
		logging.Int("items_checked", summary.ItemsChecked),
		logging.Int("promotions", summary.Promotions),
		logging.Int("demotions", summary.Demotions),
		logging.Int("corrections", summary.Corrections),
		logging.Int("already_correct", summary.AlreadyCorrect),
		logging.Int("skipped", summary.Skipped),
		logging.Int("errors", summary.Errors),
		logging.Int("monitor_changes", summary.MonitorChanges))
	return summary, nil
}

// preflight verifies every enabled library answers before any item is
// touched. A dead service aborts the pass rather than producing a storm of
// per-item failures.
func (r *Reconciler) preflight(ctx context.Context, log *slog.Logger) error {
	if r.sonarr != nil && r.cfg.Sonarr.Enabled {
		status, err := r.sonarr.Status(ctx)
		if err != nil {
			return fmt.Errorf("series service unreachable: %w", err)
		}
		log.Debug("series service reachable",
			logging.String("app", status.AppName),
			logging.String("version", status.Version))
	}
	if r.radarr != nil && r.cfg.Radarr.Enabled {
		status, err := r.radarr.Status(ctx)
		if err != nil {
			return fmt.Errorf("movie service unreachable: %w", err)
		}
		log.Debug("movie service reachable",
			logging.String("app", status.AppName),
			logging.String("version", status.Version))
	}
	return nil
}

// resolvePlacements turns configured profile names into IDs. An unresolvable
// name is a configuration error and aborts the whole pass.
func (r *Reconciler) resolvePlacements(ctx context.Context) ([]media.ResolvedSet, map[int64]string, error) {
	var sets []media.ResolvedSet
	if r.sonarr != nil && r.cfg.Sonarr.Enabled {
		profiles, err := r.sonarr.QualityProfiles(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch series quality profiles: %w", err)
		}
		for _, ps := range r.cfg.Sonarr.PlacementSets {
			incompleteID, ok := arr.ResolveProfile(profiles, ps.IncompleteProfile)
			if !ok {
				return nil, nil, fmt.Errorf("placement set %q: profile %q not found in series service", ps.Name, ps.IncompleteProfile)
			}
			completeID, ok := arr.ResolveProfile(profiles, ps.CompleteProfile)
			if !ok {
				return nil, nil, fmt.Errorf("placement set %q: profile %q not found in series service", ps.Name, ps.CompleteProfile)
			}
			sets = append(sets, media.ResolvedSet{
				Name:                ps.Name,
				IncompleteProfileID: incompleteID,
				IncompleteRoot:      ps.IncompleteRoot,
				CompleteProfileID:   completeID,
				CompleteRoot:        ps.CompleteRoot,
			})
		}
	}

	var placements map[int64]string
	if r.radarr != nil && r.cfg.Radarr.Enabled {
		profiles, err := r.radarr.QualityProfiles(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch movie quality profiles: %w", err)
		}
		placements = make(map[int64]string, len(r.cfg.Radarr.Placements))
		for name, root := range r.cfg.Radarr.Placements {
			id, ok := arr.ResolveProfile(profiles, name)
			if !ok {
				return nil, nil, fmt.Errorf("placement map: profile %q not found in movie service", name)
			}
			placements[id] = root
		}
	}
	return sets, placements, nil
}

func (r *Reconciler) runSeriesPass(ctx context.Context, log *slog.Logger, runID string, sets []media.ResolvedSet, summary *Summary) error {
	items, err := r.sonarr.ListSeries(ctx)
	if err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	policy := r.policy()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		set, governed := governingSet(sets, item)
		if !governed {
			summary.Skipped++
			continue
		}
		summary.ItemsChecked++
		r.reconcileSeries(ctx, log, runID, item, set, policy, summary)
	}
	return nil
}

func (r *Reconciler) reconcileSeries(ctx context.Context, log *slog.Logger, runID string, item media.Item, set media.ResolvedSet, policy evaluator.Policy, summary *Summary) {
	itemLog := log.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldItemTitle, item.Title),
		logging.String(logging.FieldItemKind, string(item.Kind)))

	episodes, err := r.sonarr.EpisodesForSeries(ctx, item.ID)
	if err != nil {
		itemLog.Error("fetch episodes failed", logging.Error(err))
		summary.Errors++
		return
	}

	eval := evaluator.Evaluate(episodes, r.now(), policy)
	itemLog.Debug("evaluated",
		logging.String(logging.FieldDecision, string(eval.Decision)),
		logging.Int("regular", eval.Regular),
		logging.Int("bonus", eval.Bonus),
		logging.Int("missing", eval.Missing),
		logging.Int("missing_past_grace", eval.MissingPastGrace))

	targetRoot, targetProfile := set.IncompleteRoot, set.IncompleteProfileID
	switch eval.Decision {
	case evaluator.DecisionPromote:
		targetRoot, targetProfile = set.CompleteRoot, set.CompleteProfileID
	case evaluator.DecisionDemote:
	case evaluator.DecisionNoChange:
		// Within grace: leave placement alone, still reconcile monitoring.
		summary.AlreadyCorrect++
		r.applyMonitoring(ctx, itemLog, episodes, eval.ProspectiveComplete, policy, summary)
		return
	}

	if media.PathWithin(item.Path, targetRoot) && item.ProfileID == targetProfile {
		summary.AlreadyCorrect++
		r.applyMonitoring(ctx, itemLog, episodes, eval.ProspectiveComplete, policy, summary)
		return
	}

	req := media.MoveRequest{
		ItemID:       item.ID,
		Kind:         item.Kind,
		Title:        item.Title,
		OldPath:      item.Path,
		NewPath:      media.TargetPath(item.Path, targetRoot),
		ProfileID:    targetProfile,
		OldProfileID: item.ProfileID,
	}
	result := r.moves.RequestMove(ctx, seriesEndpoint{client: r.sonarr}, req)
	r.recordMove(ctx, itemLog, runID, req, string(eval.Decision), result)

	if result.Outcome != mover.OutcomeSucceeded {
		summary.Errors++
		itemLog.Warn("move did not complete, monitoring left untouched",
			logging.String(logging.FieldOutcome, string(result.Outcome)))
		return
	}

	switch eval.Decision {
	case evaluator.DecisionPromote:
		summary.Promotions++
	case evaluator.DecisionDemote:
		summary.Demotions++
	}

	if !r.cfg.Behavior.DryRun {
		if wait := r.cfg.PostMoveWait(); wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				return
			}
		}
		// Re-fetch after the move so monitoring decisions use the state the
		// external system holds now, not the pre-move snapshot.
		episodes, err = r.sonarr.EpisodesForSeries(ctx, item.ID)
		if err != nil {
			itemLog.Error("post-move episode refresh failed", logging.Error(err))
			summary.Errors++
			return
		}
	}
	r.applyMonitoring(ctx, itemLog, episodes, eval.ProspectiveComplete, policy, summary)
}

func (r *Reconciler) applyMonitoring(ctx context.Context, log *slog.Logger, episodes []media.Episode, prospectiveComplete bool, policy evaluator.Policy, summary *Summary) {
	plan := evaluator.MonitorPlan(episodes, prospectiveComplete, policy)
	if len(plan) == 0 {
		return
	}
	if r.cfg.Behavior.DryRun {
		log.Info("dry run: would update episode monitoring", logging.Int("episodes", len(plan)))
		summary.MonitorChanges += len(plan)
		return
	}

	var toMonitor, toUnmonitor []int64
	for _, change := range plan {
		if change.Monitored {
			toMonitor = append(toMonitor, change.EpisodeID)
		} else {
			toUnmonitor = append(toUnmonitor, change.EpisodeID)
		}
	}
	if len(toMonitor) > 0 {
		if err := r.sonarr.SetEpisodesMonitored(ctx, toMonitor, true); err != nil {
			log.Error("enable episode monitoring failed", logging.Error(err))
			summary.Errors++
		} else {
			summary.MonitorChanges += len(toMonitor)
		}
	}
	if len(toUnmonitor) > 0 {
		if err := r.sonarr.SetEpisodesMonitored(ctx, toUnmonitor, false); err != nil {
			log.Error("disable episode monitoring failed", logging.Error(err))
			summary.Errors++
		} else {
			summary.MonitorChanges += len(toUnmonitor)
		}
	}
}

func (r *Reconciler) runMoviePass(ctx context.Context, log *slog.Logger, runID string, placements map[int64]string, summary *Summary) error {
	items, err := r.radarr.ListMovies(ctx)
	if err != nil {
		return fmt.Errorf("list movies: %w", err)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.ItemsChecked++
		r.reconcileMovie(ctx, log, runID, item, placements, summary)
	}
	return nil
}

func (r *Reconciler) reconcileMovie(ctx context.Context, log *slog.Logger, runID string, item media.Item, placements map[int64]string, summary *Summary) {
	itemLog := log.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldItemTitle, item.Title),
		logging.String(logging.FieldItemKind, string(item.Kind)))

	res := resolver.Resolve(item, placements)
	switch res.State {
	case resolver.StateUnmapped:
		itemLog.Debug("classification has no configured location, skipping")
		summary.Skipped++
		return
	case resolver.StateNoChange:
		summary.AlreadyCorrect++
		return
	}

	req := media.MoveRequest{
		ItemID:       item.ID,
		Kind:         item.Kind,
		Title:        item.Title,
		OldPath:      item.Path,
		NewPath:      media.TargetPath(item.Path, res.ExpectedRoot),
		ProfileID:    item.ProfileID,
		OldProfileID: item.ProfileID,
	}
	result := r.moves.RequestMove(ctx, movieEndpoint{client: r.radarr}, req)
	r.recordMove(ctx, itemLog, runID, req, "correction", result)

	if result.Outcome != mover.OutcomeSucceeded {
		summary.Errors++
		return
	}
	summary.Corrections++
}

func (r *Reconciler) recordMove(ctx context.Context, log *slog.Logger, runID string, req media.MoveRequest, decision string, result mover.Result) {
	if r.recorder == nil {
		return
	}
	move := history.Move{
		RunID:     runID,
		ItemID:    req.ItemID,
		ItemKind:  string(req.Kind),
		ItemTitle: req.Title,
		OldPath:   req.OldPath,
		NewPath:   req.NewPath,
		Decision:  decision,
		Outcome:   string(result.Outcome),
		Issued:    result.Issued,
		CreatedAt: r.now().UTC(),
	}
	if result.Err != nil {
		move.Error = result.Err.Error()
	}
	if _, err := r.recorder.RecordMove(ctx, move); err != nil {
		log.Warn("record move failed", logging.Error(err))
	}
}

func governingSet(sets []media.ResolvedSet, item media.Item) (media.ResolvedSet, bool) {
	for _, set := range sets {
		if set.Governs(item) {
			return set, true
		}
	}
	return media.ResolvedSet{}, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
