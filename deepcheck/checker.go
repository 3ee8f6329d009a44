// ABOUTME: Deep validation: simulate a terraform plan and sanity-check the resource count.
// ABOUTME: A plan that creates suspiciously few resources for the intent fails the check.

package deepcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/infragenie/infragenie/completeness"
	"github.com/infragenie/infragenie/pipeline"
	"github.com/infragenie/infragenie/sandbox"
)

// minPlannedResources is the lowest believable resource count per intent.
// Below it, the plan technically applies but almost certainly does not do
// what was asked.
var minPlannedResources = map[string]int{
	"kubernetes":    8,
	"database":      3,
	"load_balancer": 4,
}

// genericMinResources applies when no intent matched.
const genericMinResources = 2

// Checker implements the pipeline's DeepChecker using the terraform CLI.
type Checker struct {
	runner  sandbox.ToolRunner
	timeout time.Duration
}

// NewChecker creates a deep checker over a tool runner.
func NewChecker(runner sandbox.ToolRunner, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * sandbox.DefaultToolTimeout
	}
	return &Checker{runner: runner, timeout: timeout}
}

// planOutput mirrors terraform show -json of a saved plan.
type planOutput struct {
	ResourceChanges []struct {
		Address string `json:"address"`
		Change  struct {
			Actions []string `json:"actions"`
		} `json:"change"`
	} `json:"resource_changes"`
}

// CheckPlan runs init, plan, and show in a throwaway workspace, then
// compares the number of planned creations against the intent's minimum.
// Tool errors propagate; the caller treats this check as advisory.
func (c *Checker) CheckPlan(ctx context.Context, artifact, prompt string) (pipeline.DeepResult, error) {
	dir, cleanup, err := sandbox.WriteWorkspace(artifact)
	if err != nil {
		return pipeline.DeepResult{}, err
	}
	defer cleanup()

	steps := [][]string{
		{"init", "-backend=false", "-input=false", "-no-color"},
		{"plan", "-out=plan.bin", "-input=false", "-refresh=false", "-no-color"},
	}
	for _, args := range steps {
		res, rerr := c.runner.Run(ctx, dir, c.timeout, "terraform", args...)
		if rerr != nil {
			return pipeline.DeepResult{}, rerr
		}
		if !res.Success() {
			return pipeline.DeepResult{
				Pass:   false,
				Report: fmt.Sprintf("terraform %s failed: %s", args[0], firstLine(res.Stderr, res.Stdout)),
			}, nil
		}
	}

	showRes, err := c.runner.Run(ctx, dir, c.timeout, "terraform", "show", "-json", "plan.bin")
	if err != nil {
		return pipeline.DeepResult{}, err
	}

	var plan planOutput
	if jerr := json.Unmarshal([]byte(showRes.Stdout), &plan); jerr != nil {
		return pipeline.DeepResult{}, fmt.Errorf("parse plan: %w", jerr)
	}

	created := 0
	for _, rc := range plan.ResourceChanges {
		for _, action := range rc.Change.Actions {
			if action == "create" {
				created++
				break
			}
		}
	}

	minimum := genericMinResources
	worst := ""
	for _, intent := range completeness.Intents(prompt) {
		if m, ok := minPlannedResources[intent]; ok && m > minimum {
			minimum = m
			worst = intent
		}
	}

	if created < minimum {
		label := "request"
		if worst != "" {
			label = worst + " deployment"
		}
		return pipeline.DeepResult{
			Pass:   false,
			Report: fmt.Sprintf("plan creates %d resources, suspiciously few for a %s (expected at least %d)", created, label, minimum),
		}, nil
	}
	return pipeline.DeepResult{
		Pass:   true,
		Report: fmt.Sprintf("plan creates %d resources", created),
	}, nil
}

func firstLine(values ...string) string {
	for _, v := range values {
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line
			}
		}
	}
	return "no output"
}

var _ pipeline.DeepChecker = (*Checker)(nil)
