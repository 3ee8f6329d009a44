// ABOUTME: Tests for cost estimation sentinels and breakdown parsing.

package finops

import (
	"context"
	"testing"
	"time"

	"github.com/infragenie/infragenie/sandbox"
)

type fakeRunner struct {
	result sandbox.ToolResult
	err    error
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (sandbox.ToolResult, error) {
	f.calls++
	return f.result, f.err
}

func withKey(e *Estimator) *Estimator {
	e.lookupEnv = func(string) (string, bool) { return "ico-test", true }
	return e
}

func TestEstimateFormatsTotal(t *testing.T) {
	runner := &fakeRunner{result: sandbox.ToolResult{
		Stdout: `{"totalMonthlyCost": "42.5", "currency": "USD"}`,
	}}
	e := withKey(NewEstimator(runner, 0))

	got, err := e.Estimate(context.Background(), `resource "aws_instance" "web" {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "$42.50/mo" {
		t.Errorf("estimate = %q, want $42.50/mo", got)
	}
}

func TestEstimateMissingAPIKey(t *testing.T) {
	runner := &fakeRunner{}
	e := NewEstimator(runner, 0)
	e.lookupEnv = func(string) (string, bool) { return "", false }

	got, err := e.Estimate(context.Background(), "code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != EstimateNoAPIKey {
		t.Errorf("estimate = %q, want the missing-key sentinel", got)
	}
	if runner.calls != 0 {
		t.Error("infracost ran without a key")
	}
}

func TestEstimateTimeout(t *testing.T) {
	runner := &fakeRunner{result: sandbox.ToolResult{TimedOut: true, ExitCode: -1}}
	e := withKey(NewEstimator(runner, 0))

	got, err := e.Estimate(context.Background(), "code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != EstimateTimeout {
		t.Errorf("estimate = %q, want the timeout sentinel", got)
	}
}

func TestEstimateBadOutputIsError(t *testing.T) {
	runner := &fakeRunner{result: sandbox.ToolResult{Stdout: "not json"}}
	e := withKey(NewEstimator(runner, 0))

	if _, err := e.Estimate(context.Background(), "code"); err == nil {
		t.Fatal("expected error for unparseable output")
	}
}

func TestEstimateNonZeroExitIsError(t *testing.T) {
	runner := &fakeRunner{result: sandbox.ToolResult{ExitCode: 1, Stderr: "pricing API unreachable"}}
	e := withKey(NewEstimator(runner, 0))

	if _, err := e.Estimate(context.Background(), "code"); err == nil {
		t.Fatal("expected error for failed breakdown")
	}
}
