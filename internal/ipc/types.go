package ipc

import (
	"time"

	"completearr/internal/reconciler"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the daemon snapshot returned to the CLI.
type StatusResponse struct {
	Running      bool                `json:"running"`
	RunActive    bool                `json:"run_active"`
	CurrentRunID string              `json:"current_run_id"`
	StartedAt    time.Time           `json:"started_at"`
	NextRun      time.Time           `json:"next_run"`
	LastSummary  *reconciler.Summary `json:"last_summary,omitempty"`
	PID          int                 `json:"pid"`
}

// RunNowRequest triggers an immediate reconciliation pass.
type RunNowRequest struct{}

// RunNowResponse reports whether the pass started.
type RunNowResponse struct {
	Started bool   `json:"started"`
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// CancelRequest asks the daemon to cancel the active pass.
type CancelRequest struct{}

// CancelResponse reports whether cancellation was requested.
type CancelResponse struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}

// ResetRequest clears the run lock and status unconditionally.
type ResetRequest struct{}

// ResetResponse reports the force-reset result.
type ResetResponse struct {
	Reset   bool   `json:"reset"`
	Message string `json:"message"`
}

// HistoryRequest lists recent passes.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// RunRecord is one past pass as reported to the CLI.
type RunRecord struct {
	RunID          string    `json:"run_id"`
	Trigger        string    `json:"trigger"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ItemsChecked   int       `json:"items_checked"`
	Promotions     int       `json:"promotions"`
	Demotions      int       `json:"demotions"`
	Corrections    int       `json:"corrections"`
	AlreadyCorrect int       `json:"already_correct"`
	Skipped        int       `json:"skipped"`
	Errors         int       `json:"errors"`
	MonitorChanges int       `json:"monitor_changes"`
	Aborted        bool      `json:"aborted"`
	AbortReason    string    `json:"abort_reason,omitempty"`
}

// HistoryResponse contains recent pass records, newest first.
type HistoryResponse struct {
	Runs []RunRecord `json:"runs"`
}

// MovesRequest lists moves recorded for one pass.
type MovesRequest struct {
	RunID string `json:"run_id"`
}

// MoveRecord is one recorded placement change.
type MoveRecord struct {
	ItemID    int64     `json:"item_id"`
	ItemKind  string    `json:"item_kind"`
	ItemTitle string    `json:"item_title"`
	OldPath   string    `json:"old_path"`
	NewPath   string    `json:"new_path"`
	Decision  string    `json:"decision"`
	Outcome   string    `json:"outcome"`
	Issued    int       `json:"issued"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MovesResponse contains the moves of one pass, oldest first.
type MovesResponse struct {
	Moves []MoveRecord `json:"moves"`
}

// StopRequest shuts the daemon down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
