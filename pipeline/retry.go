// ABOUTME: Retry guard governing the shared fix budget across all checks.
// ABOUTME: Hard checks block the run at exhaustion; soft checks let it pass degraded.

package pipeline

// DefaultMaxRetries is the shared generation budget. Every pass through the
// generate stage consumes one unit regardless of which check sent the run
// back.
const DefaultMaxRetries = 5

// Guard decides whether a failed check may route back to generate, and what
// happens when the budget runs out. Soft checks fail open: at exhaustion the
// run continues past them with the failure recorded. Hard checks fail
// closed: exhaustion blocks the run.
type Guard struct {
	MaxRetries int
	Soft       map[string]bool
}

// NewGuard returns a guard with the default budget and classification:
// deep plan and policy scanning are soft, syntax and completeness are hard.
func NewGuard() *Guard {
	return &Guard{
		MaxRetries: DefaultMaxRetries,
		Soft: map[string]bool{
			StageCheckDeepPlan: true,
			StageScanPolicy:    true,
		},
	}
}

// Exhausted reports whether the record has used its full budget.
func (g *Guard) Exhausted(rec *RunRecord) bool {
	return rec.RetryCount >= g.MaxRetries
}

// FailOpen reports whether the named check passes the run through at
// exhaustion instead of blocking it.
func (g *Guard) FailOpen(stage string) bool {
	return g.Soft[stage]
}

// SetSoft overrides the classification of one check. Used by config to
// re-tune which checks block at exhaustion.
func (g *Guard) SetSoft(stage string, soft bool) {
	if g.Soft == nil {
		g.Soft = make(map[string]bool)
	}
	g.Soft[stage] = soft
}
