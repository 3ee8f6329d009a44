// ABOUTME: Stage interface and registry for the generation pipeline.
// ABOUTME: Stages read the record and return sparse Updates; the engine owns mutation.

package pipeline

import (
	"context"
	"fmt"
	"sort"
)

// Stage names, in their natural order through the pipeline.
const (
	StageClarify       = "clarify"
	StagePlan          = "plan"
	StageGenerate      = "generate"
	StageCheckSyntax   = "checkSyntax"
	StageCheckComplete = "checkCompleteness"
	StageCheckDeepPlan = "checkDeepPlan"
	StageScanPolicy    = "scanPolicy"
	StageVisualize     = "extractVisualization"
	StageEstimateCost  = "estimateCost"
	StageGenConfig     = "generateConfig"

	// Terminal markers. The router returns these; they are never executed.
	StageDone    = "DONE"
	StageBlocked = "BLOCKED"
)

// Stage is a single step of the pipeline. Execute must not mutate the
// record; it returns an Update for the engine to apply. Returning an error
// hands control to the engine's catch site.
type Stage interface {
	Name() string
	Execute(ctx context.Context, rec *RunRecord) (*Update, error)
}

// Degrader lets a stage define the degraded update the engine applies when
// the stage fails. Stages without it get the generic degradation.
type Degrader interface {
	Degrade(err error) *Update
}

// Registry maps stage names to implementations.
type Registry struct {
	stages map[string]Stage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage, replacing any existing stage of the same name.
func (r *Registry) Register(s Stage) {
	r.stages[s.Name()] = s
}

// Get returns a stage by name.
func (r *Registry) Get(name string) (Stage, error) {
	s, ok := r.stages[name]
	if !ok {
		return nil, fmt.Errorf("no stage registered for %q", name)
	}
	return s, nil
}

// Names returns registered stage names, sorted for stable output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StageFunc adapts a plain function into a Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, rec *RunRecord) (*Update, error)
	DegradeFn func(err error) *Update
}

func (s *StageFunc) Name() string { return s.StageName }

func (s *StageFunc) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	return s.Fn(ctx, rec)
}

// Degrade implements Degrader when a DegradeFn is set.
func (s *StageFunc) Degrade(err error) *Update {
	if s.DegradeFn == nil {
		return nil
	}
	return s.DegradeFn(err)
}
