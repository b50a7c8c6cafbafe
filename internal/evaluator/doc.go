// Package evaluator decides placement for episodic items.
//
// A series is complete when no aired regular episode is missing its file.
// Bonus episodes (season zero) never count against completeness. The grace
// window delays demotion: a missing episode only pushes a series back to the
// incomplete placement once its air date is at least the configured number
// of days in the past.
package evaluator
