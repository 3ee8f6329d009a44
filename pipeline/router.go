// ABOUTME: Pure routing from a stage's result to the next stage or a terminal marker.
// ABOUTME: Encodes the generate/check/fix cycle and the fail-open/fail-closed split.

package pipeline

// Router picks the next stage from the record after a stage completes. It
// is a pure function of (record, stage, guard); all retry budget policy
// lives in the guard.
type Router struct {
	guard *Guard
}

// NewRouter creates a router over a retry guard.
func NewRouter(guard *Guard) *Router {
	return &Router{guard: guard}
}

// Next returns the name of the stage to run after current, or StageDone /
// StageBlocked.
func (rt *Router) Next(rec *RunRecord, current string) string {
	switch current {
	case StageClarify:
		if rec.Blocked {
			return StageBlocked
		}
		return StagePlan

	case StagePlan:
		return StageGenerate

	case StageGenerate:
		return StageCheckSyntax

	case StageCheckSyntax:
		if rec.SyntaxOK {
			return StageCheckComplete
		}
		return rt.retryOr(rec, current, StageCheckComplete)

	case StageCheckComplete:
		if rec.Complete {
			return StageCheckDeepPlan
		}
		return rt.retryOr(rec, current, StageCheckDeepPlan)

	case StageCheckDeepPlan:
		if rec.DeepPlanOK {
			return StageScanPolicy
		}
		return rt.retryOr(rec, current, StageScanPolicy)

	case StageScanPolicy:
		if rec.Clean {
			return StageVisualize
		}
		return rt.retryOr(rec, current, StageVisualize)

	case StageVisualize:
		return StageEstimateCost

	case StageEstimateCost:
		return StageGenConfig

	case StageGenConfig:
		return StageDone
	}
	return StageBlocked
}

// retryOr routes a failed check: back to generate while budget remains,
// then either onward (fail-open) or BLOCKED (fail-closed).
func (rt *Router) retryOr(rec *RunRecord, check, onward string) string {
	if !rt.guard.Exhausted(rec) {
		return StageGenerate
	}
	if rt.guard.FailOpen(check) {
		return onward
	}
	return StageBlocked
}
