// ABOUTME: Tests for plan simulation verdicts over a scripted tool runner.

package deepcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/infragenie/infragenie/sandbox"
)

type fakeRunner struct {
	results map[string]sandbox.ToolResult
	errs    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (sandbox.ToolResult, error) {
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}
	if err, ok := f.errs[key]; ok {
		return sandbox.ToolResult{}, err
	}
	return f.results[key], nil
}

func planJSON(creates int) string {
	var changes []string
	for i := 0; i < creates; i++ {
		changes = append(changes, fmt.Sprintf(
			`{"address": "aws_thing.r%d", "change": {"actions": ["create"]}}`, i))
	}
	return fmt.Sprintf(`{"resource_changes": [%s]}`, strings.Join(changes, ","))
}

func runnerWithPlan(creates int) *fakeRunner {
	return &fakeRunner{results: map[string]sandbox.ToolResult{
		"terraform init": {ExitCode: 0},
		"terraform plan": {ExitCode: 0},
		"terraform show": {ExitCode: 0, Stdout: planJSON(creates)},
	}}
}

func TestCheckPlanPasses(t *testing.T) {
	c := NewChecker(runnerWithPlan(10), 0)

	res, err := c.CheckPlan(context.Background(), "code", "deploy a kubernetes cluster")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Pass {
		t.Errorf("expected pass, report: %s", res.Report)
	}
	if !strings.Contains(res.Report, "10 resources") {
		t.Errorf("report: %s", res.Report)
	}
}

func TestCheckPlanSuspiciouslyThinForIntent(t *testing.T) {
	c := NewChecker(runnerWithPlan(3), 0)

	res, err := c.CheckPlan(context.Background(), "code", "deploy a kubernetes cluster")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pass {
		t.Fatal("three resources cannot be a kubernetes deployment")
	}
	if !strings.Contains(res.Report, "kubernetes") || !strings.Contains(res.Report, "at least 8") {
		t.Errorf("report: %s", res.Report)
	}
}

func TestCheckPlanGenericThreshold(t *testing.T) {
	c := NewChecker(runnerWithPlan(1), 0)

	res, _ := c.CheckPlan(context.Background(), "code", "provision something unusual")
	if res.Pass {
		t.Error("one resource is below the generic threshold")
	}

	c = NewChecker(runnerWithPlan(2), 0)
	res, _ = c.CheckPlan(context.Background(), "code", "provision something unusual")
	if !res.Pass {
		t.Errorf("two resources should pass the generic threshold, report: %s", res.Report)
	}
}

func TestCheckPlanFailedPlanStep(t *testing.T) {
	f := &fakeRunner{results: map[string]sandbox.ToolResult{
		"terraform init": {ExitCode: 0},
		"terraform plan": {ExitCode: 1, Stderr: "Error: Reference to undeclared resource"},
	}}
	c := NewChecker(f, 0)

	res, err := c.CheckPlan(context.Background(), "code", "deploy a database")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pass {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Report, "undeclared resource") {
		t.Errorf("report: %s", res.Report)
	}
}

func TestCheckPlanToolMissingPropagates(t *testing.T) {
	f := &fakeRunner{errs: map[string]error{
		"terraform init": sandbox.ErrToolNotFound,
	}}
	c := NewChecker(f, 0)

	if _, err := c.CheckPlan(context.Background(), "code", "deploy a database"); !errors.Is(err, sandbox.ErrToolNotFound) {
		t.Errorf("got %v, want ErrToolNotFound", err)
	}
}
