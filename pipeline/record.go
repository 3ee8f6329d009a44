// ABOUTME: RunRecord is the single state entity threaded through every pipeline stage.
// ABOUTME: Stages never mutate it directly; they return sparse Updates the engine applies.

package pipeline

import (
	"time"

	"github.com/infragenie/infragenie/hclgraph"
)

// PlanningContext holds what the clarifier and planner learned about the
// request before any code is generated. Components and ExecutionOrder come
// from the planner; ComplexityClass is set by the planner and re-estimated
// by the completeness analysis when the planner left it empty.
type PlanningContext struct {
	Provider        string   `json:"provider"`
	Region          string   `json:"region"`
	Environment     string   `json:"environment"`
	Assumptions     []string `json:"assumptions,omitempty"`
	Plan            string   `json:"plan,omitempty"`
	Components      []string `json:"components,omitempty"`
	ExecutionOrder  []string `json:"execution_order,omitempty"`
	ComplexityClass string   `json:"complexity_class,omitempty"`
	Clarified       bool     `json:"clarified"`
	Proceed         bool     `json:"proceed"`
	Question        string   `json:"question,omitempty"`
}

// PolicyViolation is a single failed policy check from the scanner.
type PolicyViolation struct {
	RuleID      string `json:"rule_id"`
	Severity    string `json:"severity,omitempty"`
	Resource    string `json:"resource,omitempty"`
	Guideline   string `json:"guideline,omitempty"`
	Description string `json:"description,omitempty"`
}

// RunRecord is the full state of one generation run. It accumulates results
// across the generate/check/fix cycle and is the value the entry point
// returns whether the run finished or blocked.
type RunRecord struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`

	Planning *PlanningContext `json:"planning,omitempty"`

	Artifact string `json:"artifact"`

	SyntaxOK    bool   `json:"syntax_ok"`
	SyntaxError string `json:"syntax_error,omitempty"`

	Complete           bool   `json:"complete"`
	CompletenessReport string `json:"completeness_report,omitempty"`

	DeepPlanOK     bool   `json:"deep_plan_ok"`
	DeepPlanReport string `json:"deep_plan_report,omitempty"`

	Violations []PolicyViolation `json:"violations,omitempty"`
	Clean      bool              `json:"clean"`

	Visualization  *hclgraph.Graph `json:"visualization,omitempty"`
	CostEstimate   string          `json:"cost_estimate,omitempty"`
	ConfigArtifact string          `json:"config_artifact,omitempty"`

	RetryCount  int    `json:"retry_count"`
	Stage       string `json:"stage"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`

	EventLog []Event `json:"event_log"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRunRecord creates a fresh record for a prompt. The ID is assigned by
// the entry point, not here, so tests can construct records freely.
func NewRunRecord(prompt string) *RunRecord {
	now := time.Now().UTC()
	return &RunRecord{
		Prompt:    prompt,
		EventLog:  []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Update is a sparse change set produced by a stage. Nil pointer fields are
// untouched on merge. RetryDelta is additive so the retry count can only
// move forward.
type Update struct {
	Planning *PlanningContext

	Artifact *string

	SyntaxOK    *bool
	SyntaxError *string

	Complete           *bool
	CompletenessReport *string

	DeepPlanOK     *bool
	DeepPlanReport *string

	Violations *[]PolicyViolation
	Clean      *bool

	Visualization  *hclgraph.Graph
	CostEstimate   *string
	ConfigArtifact *string

	RetryDelta int

	Blocked     *bool
	BlockReason *string

	Events []Event
}

// Apply merges an update into the record. The event log only ever grows and
// the retry count never decreases; everything else is last-writer-wins on
// the fields the update actually sets.
func (r *RunRecord) Apply(u *Update) {
	if u == nil {
		return
	}
	if u.Planning != nil {
		r.Planning = u.Planning
	}
	if u.Artifact != nil {
		r.Artifact = *u.Artifact
	}
	if u.SyntaxOK != nil {
		r.SyntaxOK = *u.SyntaxOK
	}
	if u.SyntaxError != nil {
		r.SyntaxError = *u.SyntaxError
	}
	if u.Complete != nil {
		r.Complete = *u.Complete
	}
	if u.CompletenessReport != nil {
		r.CompletenessReport = *u.CompletenessReport
	}
	if u.DeepPlanOK != nil {
		r.DeepPlanOK = *u.DeepPlanOK
	}
	if u.DeepPlanReport != nil {
		r.DeepPlanReport = *u.DeepPlanReport
	}
	if u.Violations != nil {
		r.Violations = *u.Violations
	}
	if u.Clean != nil {
		r.Clean = *u.Clean
	}
	if u.Visualization != nil {
		r.Visualization = u.Visualization
	}
	if u.CostEstimate != nil {
		r.CostEstimate = *u.CostEstimate
	}
	if u.ConfigArtifact != nil {
		r.ConfigArtifact = *u.ConfigArtifact
	}
	if u.RetryDelta > 0 {
		r.RetryCount += u.RetryDelta
	}
	if u.Blocked != nil {
		r.Blocked = *u.Blocked
	}
	if u.BlockReason != nil {
		r.BlockReason = *u.BlockReason
	}
	for _, ev := range u.Events {
		r.appendEvent(ev)
	}
	r.UpdatedAt = time.Now().UTC()
}

// appendEvent keeps event timestamps non-decreasing even when callers hand
// us an unstamped event.
func (r *RunRecord) appendEvent(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if n := len(r.EventLog); n > 0 && ev.Timestamp.Before(r.EventLog[n-1].Timestamp) {
		ev.Timestamp = r.EventLog[n-1].Timestamp
	}
	r.EventLog = append(r.EventLog, ev)
}

// Helper constructors for Update fields. They keep stage code readable
// without a pile of local temp variables.

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func violPtr(v []PolicyViolation) *[]PolicyViolation { return &v }
