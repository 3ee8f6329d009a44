// ABOUTME: Execution engine driving the record through stages until a terminal marker.
// ABOUTME: Single catch site: stage errors and panics become degraded updates, never escapes.

package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
)

// DefaultMaxSteps caps total stage executions per run. The router cannot
// loop forever on a well-formed graph, but the ceiling holds even if a
// stage or router is miswired.
const DefaultMaxSteps = 100

// Engine runs the pipeline loop. Construct with NewEngine.
type Engine struct {
	registry *Registry
	router   *Router
	guard    *Guard
	maxSteps int
	handler  EventHandler
}

// EngineConfig configures an Engine. Zero values get defaults.
type EngineConfig struct {
	Registry *Registry
	Guard    *Guard
	MaxSteps int
	Handler  EventHandler
}

// NewEngine builds an engine. A nil guard gets the default classification
// and budget.
func NewEngine(cfg EngineConfig) *Engine {
	guard := cfg.Guard
	if guard == nil {
		guard = NewGuard()
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Engine{
		registry: cfg.Registry,
		router:   NewRouter(guard),
		guard:    guard,
		maxSteps: maxSteps,
		handler:  cfg.Handler,
	}
}

// Execute drives the record from the first stage to DONE or BLOCKED. It
// mutates the record in place and never returns an error: every failure
// path ends in a blocked record.
func (e *Engine) Execute(ctx context.Context, rec *RunRecord) {
	e.emit(rec, newEvent(EventRunStarted, "", "run started"))

	current := StageClarify
	steps := 0

	for {
		select {
		case <-ctx.Done():
			e.block(rec, current, "run cancelled")
			return
		default:
		}

		if steps >= e.maxSteps {
			e.block(rec, current, fmt.Sprintf("step limit reached (%d)", e.maxSteps))
			return
		}
		steps++

		stage, err := e.registry.Get(current)
		if err != nil {
			e.block(rec, current, err.Error())
			return
		}

		rec.Stage = current
		e.emit(rec, newEvent(EventStageStarted, current, ""))

		update, execErr := e.safeExecute(ctx, stage, rec)
		if execErr != nil {
			update = e.degrade(stage, execErr)
			e.emit(rec, newEvent(EventStageDegraded, current, execErr.Error()))
		}
		rec.Apply(update)

		if execErr == nil {
			e.emit(rec, newEvent(EventStageCompleted, current, ""))
		}

		next := e.router.Next(rec, current)
		switch next {
		case StageDone:
			rec.Stage = StageDone
			e.emit(rec, newEvent(EventRunCompleted, current, "run completed"))
			return
		case StageBlocked:
			reason := rec.BlockReason
			if reason == "" {
				reason = fmt.Sprintf("retry budget exhausted at %s", current)
			}
			e.block(rec, current, reason)
			return
		case StageGenerate:
			if current != StagePlan {
				e.emit(rec, newEvent(EventStageRetrying, current,
					fmt.Sprintf("routing back to generate (retry %d of %d)", rec.RetryCount, e.guard.MaxRetries)))
			}
		}
		current = next
	}
}

// safeExecute runs a stage with panic recovery. A panic is reported as an
// error so it flows through the same degradation path as a returned error.
func (e *Engine) safeExecute(ctx context.Context, stage Stage, rec *RunRecord) (update *Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = fmt.Errorf("stage %s panicked: %v\nstack:\n%s", stage.Name(), r, debug.Stack())
		}
	}()
	return stage.Execute(ctx, rec)
}

// degrade builds the update applied when a stage fails. Stages that
// implement Degrader choose their own degraded shape; everything else gets
// a no-op update so the router decides from the record as it stands.
func (e *Engine) degrade(stage Stage, err error) *Update {
	if d, ok := stage.(Degrader); ok {
		if u := d.Degrade(err); u != nil {
			return u
		}
	}
	return &Update{}
}

func (e *Engine) block(rec *RunRecord, stage, reason string) {
	rec.Stage = StageBlocked
	rec.Blocked = true
	if rec.BlockReason == "" {
		rec.BlockReason = reason
	}
	e.emit(rec, newEvent(EventRunBlocked, stage, rec.BlockReason))
}

func (e *Engine) emit(rec *RunRecord, ev Event) {
	rec.appendEvent(ev)
	if e.handler != nil {
		e.handler(ev)
	}
}
