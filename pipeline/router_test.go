// ABOUTME: Unit tests for routing decisions and the retry guard classification.

package pipeline

import "testing"

func TestRouterTransitions(t *testing.T) {
	guard := NewGuard()
	rt := NewRouter(guard)

	tests := []struct {
		name    string
		current string
		rec     *RunRecord
		want    string
	}{
		{"clarify proceeds", StageClarify, &RunRecord{}, StagePlan},
		{"clarify blocked", StageClarify, &RunRecord{Blocked: true}, StageBlocked},
		{"plan to generate", StagePlan, &RunRecord{}, StageGenerate},
		{"generate to syntax", StageGenerate, &RunRecord{}, StageCheckSyntax},
		{"syntax pass", StageCheckSyntax, &RunRecord{SyntaxOK: true}, StageCheckComplete},
		{"syntax fail with budget", StageCheckSyntax, &RunRecord{RetryCount: 1}, StageGenerate},
		{"syntax fail exhausted", StageCheckSyntax, &RunRecord{RetryCount: 5}, StageBlocked},
		{"completeness pass", StageCheckComplete, &RunRecord{Complete: true}, StageCheckDeepPlan},
		{"completeness fail with budget", StageCheckComplete, &RunRecord{RetryCount: 2}, StageGenerate},
		{"completeness fail exhausted", StageCheckComplete, &RunRecord{RetryCount: 5}, StageBlocked},
		{"deep plan pass", StageCheckDeepPlan, &RunRecord{DeepPlanOK: true}, StageScanPolicy},
		{"deep plan fail with budget", StageCheckDeepPlan, &RunRecord{RetryCount: 3}, StageGenerate},
		{"deep plan fail exhausted is open", StageCheckDeepPlan, &RunRecord{RetryCount: 5}, StageScanPolicy},
		{"policy clean", StageScanPolicy, &RunRecord{Clean: true}, StageVisualize},
		{"policy dirty with budget", StageScanPolicy, &RunRecord{RetryCount: 4}, StageGenerate},
		{"policy dirty exhausted is open", StageScanPolicy, &RunRecord{RetryCount: 5}, StageVisualize},
		{"visualize onward", StageVisualize, &RunRecord{}, StageEstimateCost},
		{"cost onward", StageEstimateCost, &RunRecord{}, StageGenConfig},
		{"config finishes", StageGenConfig, &RunRecord{}, StageDone},
		{"unknown stage blocks", "mystery", &RunRecord{}, StageBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rt.Next(tt.rec, tt.current)
			if got != tt.want {
				t.Errorf("Next(%s) = %q, want %q", tt.current, got, tt.want)
			}
		})
	}
}

func TestGuardClassification(t *testing.T) {
	g := NewGuard()

	if g.FailOpen(StageCheckSyntax) {
		t.Error("syntax must default fail-closed")
	}
	if g.FailOpen(StageCheckComplete) {
		t.Error("completeness must default fail-closed")
	}
	if !g.FailOpen(StageCheckDeepPlan) {
		t.Error("deep plan must default fail-open")
	}
	if !g.FailOpen(StageScanPolicy) {
		t.Error("policy scan must default fail-open")
	}

	g.SetSoft(StageCheckSyntax, true)
	if !g.FailOpen(StageCheckSyntax) {
		t.Error("SetSoft override did not take")
	}
}

func TestGuardExhaustion(t *testing.T) {
	g := NewGuard()
	rec := &RunRecord{}

	for i := 0; i < g.MaxRetries; i++ {
		if g.Exhausted(rec) {
			t.Fatalf("exhausted at %d before budget %d", rec.RetryCount, g.MaxRetries)
		}
		rec.RetryCount++
	}
	if !g.Exhausted(rec) {
		t.Errorf("not exhausted at %d", rec.RetryCount)
	}
}
