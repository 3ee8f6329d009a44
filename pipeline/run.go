// ABOUTME: Run entry point: builds the stage registry, drives the engine, never panics outward.
// ABOUTME: Every failure path returns a blocked record rather than an error.

package pipeline

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Collaborators bundles the external workers the stages wrap. All fields
// are required; New panics on nil entries because that is a wiring bug,
// not a runtime condition.
type Collaborators struct {
	Clarifier    Clarifier
	Planner      Planner
	Generator    Generator
	Syntax       SyntaxChecker
	Completeness CompletenessChecker
	DeepPlan     DeepChecker
	Policy       PolicyScanner
	Visualizer   Visualizer
	Cost         CostEstimator
	Config       ConfigGenerator
}

func (c Collaborators) validate() error {
	missing := ""
	switch {
	case c.Clarifier == nil:
		missing = "Clarifier"
	case c.Planner == nil:
		missing = "Planner"
	case c.Generator == nil:
		missing = "Generator"
	case c.Syntax == nil:
		missing = "Syntax"
	case c.Completeness == nil:
		missing = "Completeness"
	case c.DeepPlan == nil:
		missing = "DeepPlan"
	case c.Policy == nil:
		missing = "Policy"
	case c.Visualizer == nil:
		missing = "Visualizer"
	case c.Cost == nil:
		missing = "Cost"
	case c.Config == nil:
		missing = "Config"
	}
	if missing != "" {
		return fmt.Errorf("collaborator %s is nil", missing)
	}
	return nil
}

// BuildRegistry wires the ten stages over a collaborator set.
func BuildRegistry(c Collaborators) *Registry {
	reg := NewRegistry()
	reg.Register(&clarifyStage{clarifier: c.Clarifier})
	reg.Register(&planStage{planner: c.Planner})
	reg.Register(&generateStage{generator: c.Generator})
	reg.Register(&syntaxStage{checker: c.Syntax})
	reg.Register(&completenessStage{checker: c.Completeness})
	reg.Register(&deepPlanStage{checker: c.DeepPlan})
	reg.Register(&policyStage{scanner: c.Policy})
	reg.Register(&visualizeStage{visualizer: c.Visualizer})
	reg.Register(&costStage{estimator: c.Cost})
	reg.Register(&configStage{generator: c.Config})
	return reg
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithMaxRetries overrides the shared retry budget.
func WithMaxRetries(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.guard.MaxRetries = n
		}
	}
}

// WithMaxSteps overrides the engine's step ceiling.
func WithMaxSteps(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxSteps = n
		}
	}
}

// WithSoftCheck reclassifies one check as fail-open or fail-closed.
func WithSoftCheck(stage string, soft bool) Option {
	return func(p *Pipeline) { p.guard.SetSoft(stage, soft) }
}

// WithEventHandler mirrors engine events to a callback as they happen.
func WithEventHandler(h EventHandler) Option {
	return func(p *Pipeline) { p.handler = h }
}

// Pipeline is a ready-to-run generation pipeline.
type Pipeline struct {
	registry *Registry
	guard    *Guard
	maxSteps int
	handler  EventHandler
}

// New builds a pipeline over a collaborator set. Panics on nil
// collaborators; everything after construction is panic-free.
func New(c Collaborators, opts ...Option) *Pipeline {
	if err := c.validate(); err != nil {
		panic(err)
	}
	p := &Pipeline{
		registry: BuildRegistry(c),
		guard:    NewGuard(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline for a prompt and returns the final record. It
// never returns an error and never panics: internal failures surface as a
// blocked record.
func (p *Pipeline) Run(ctx context.Context, prompt string) (rec *RunRecord) {
	rec = NewRunRecord(prompt)
	rec.ID = ulid.Make().String()

	defer func() {
		if r := recover(); r != nil {
			rec.Stage = StageBlocked
			rec.Blocked = true
			if rec.BlockReason == "" {
				rec.BlockReason = fmt.Sprintf("internal failure: %v", r)
			}
		}
	}()

	engine := NewEngine(EngineConfig{
		Registry: p.registry,
		Guard:    p.guard,
		MaxSteps: p.maxSteps,
		Handler:  p.handler,
	})
	engine.Execute(ctx, rec)
	return rec
}
