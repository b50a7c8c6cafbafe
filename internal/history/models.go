package history

import "time"

// Run is one completed reconciliation pass.
type Run struct {
	ID             int64
	RunID          string
	Trigger        string
	StartedAt      time.Time
	FinishedAt     time.Time
	ItemsChecked   int
	Promotions     int
	Demotions      int
	Corrections    int
	AlreadyCorrect int
	Skipped        int
	Errors         int
	MonitorChanges int
	Aborted        bool
	AbortReason    string
}

// Move is one placement change attempted during a pass.
type Move struct {
	ID        int64
	RunID     string
	ItemID    int64
	ItemKind  string
	ItemTitle string
	OldPath   string
	NewPath   string
	Decision  string
	Outcome   string
	Issued    int
	Error     string
	CreatedAt time.Time
}
