package evaluator

import (
	"time"

	"completearr/internal/media"
)

// Policy carries the completeness and monitoring knobs for one pass.
type Policy struct {
	GraceDays                int
	TreatUnknownAirDateAsOld bool
	MonitorBonusWhenComplete bool
	ForceMonitorRegular      bool
}

// GraceWindow returns the grace period as a duration.
func (p Policy) GraceWindow() time.Duration {
	return time.Duration(p.GraceDays) * 24 * time.Hour
}

// Decision is the placement outcome for an episodic item.
type Decision string

const (
	DecisionPromote  Decision = "promote"
	DecisionDemote   Decision = "demote"
	DecisionNoChange Decision = "no-change"
)

// Evaluation is the result of judging one series against the policy.
type Evaluation struct {
	Decision         Decision
	Regular          int
	Bonus            int
	Missing          int
	MissingPastGrace int
	// ProspectiveComplete is the completeness state the item is headed for;
	// it drives monitoring reconciliation independent of whether a placement
	// change is needed.
	ProspectiveComplete bool
}

// Evaluate partitions episodes, counts missing aired regulars, and returns
// the placement decision. Promote wins when nothing is missing; Demote wins
// when any missing episode aired at least the grace window ago, even if other
// gaps are more recent. An item with no regular episodes is vacuously
// complete.
func Evaluate(episodes []media.Episode, now time.Time, policy Policy) Evaluation {
	eval := Evaluation{}
	grace := policy.GraceWindow()

	for _, ep := range episodes {
		if ep.IsBonus() {
			eval.Bonus++
			continue
		}

		aired, pastGrace, known := airedState(ep, now, grace, policy)
		if !known {
			continue
		}
		eval.Regular++
		if !aired || ep.HasFile {
			continue
		}
		eval.Missing++
		if pastGrace {
			eval.MissingPastGrace++
		}
	}

	switch {
	case eval.Missing == 0:
		eval.Decision = DecisionPromote
		eval.ProspectiveComplete = true
	case eval.MissingPastGrace > 0:
		eval.Decision = DecisionDemote
	default:
		eval.Decision = DecisionNoChange
	}
	return eval
}

// airedState resolves whether an episode has aired and whether its absence is
// past the grace window. The explicit has-aired flag is authoritative when
// present; otherwise the air timestamp decides; otherwise the
// unknown-air-date policy applies. known=false means the episode is excluded
// from completeness entirely.
func airedState(ep media.Episode, now time.Time, grace time.Duration, policy Policy) (aired, pastGrace, known bool) {
	if ep.HasAired != nil {
		if !*ep.HasAired {
			return false, false, true
		}
		if ep.AirDateUTC == nil {
			// Aired with no timestamp: the elapsed time is unknowable, so
			// the grace window is treated as already expired.
			return true, true, true
		}
		return true, now.Sub(*ep.AirDateUTC) >= grace, true
	}

	if ep.AirDateUTC != nil {
		if ep.AirDateUTC.After(now) {
			return false, false, true
		}
		return true, now.Sub(*ep.AirDateUTC) >= grace, true
	}

	if policy.TreatUnknownAirDateAsOld {
		return true, true, true
	}
	return false, false, false
}

// MonitorChange is one episode whose monitoring flag must be rewritten.
type MonitorChange struct {
	EpisodeID int64
	Monitored bool
}

// MonitorPlan computes the monitoring writes required by policy. Bonus
// episodes follow the item's prospective completeness state; regular episodes
// are forced on when the policy demands it. The plan is computed regardless
// of the placement decision.
func MonitorPlan(episodes []media.Episode, prospectiveComplete bool, policy Policy) []MonitorChange {
	var changes []MonitorChange
	for _, ep := range episodes {
		if ep.IsBonus() {
			if !policy.MonitorBonusWhenComplete {
				continue
			}
			if ep.Monitored != prospectiveComplete {
				changes = append(changes, MonitorChange{EpisodeID: ep.ID, Monitored: prospectiveComplete})
			}
			continue
		}
		if policy.ForceMonitorRegular && !ep.Monitored {
			changes = append(changes, MonitorChange{EpisodeID: ep.ID, Monitored: true})
		}
	}
	return changes
}
