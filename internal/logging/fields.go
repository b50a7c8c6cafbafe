package logging

// Standardized attribute keys. Reconciliation decisions always carry the item
// identity and both locations so a single grep reconstructs what happened to
// an item across a run.
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldTrigger     = "trigger"
	FieldItemID      = "item_id"
	FieldItemTitle   = "item"
	FieldItemKind    = "kind"
	FieldOldLocation = "old_location"
	FieldNewLocation = "new_location"
	FieldDecision    = "decision"
	FieldReason      = "reason"
	FieldOutcome     = "outcome"
	FieldAttempt     = "attempt"
	FieldDelay       = "delay"
	FieldEventType   = "event_type"
	FieldErrorHint   = "error_hint"
)
