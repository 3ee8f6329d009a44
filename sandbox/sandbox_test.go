// ABOUTME: Tests for the terraform and checkov checkers over a scripted tool runner.

package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRunner replays canned results keyed by tool name and subcommand.
type fakeRunner struct {
	results map[string]ToolResult
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (ToolResult, error) {
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return ToolResult{}, err
	}
	return f.results[key], nil
}

func TestCheckSyntaxValid(t *testing.T) {
	runner := &fakeRunner{results: map[string]ToolResult{
		"terraform init":     {ExitCode: 0},
		"terraform validate": {ExitCode: 0, Stdout: `{"valid": true, "diagnostics": []}`},
	}}
	v := NewTerraformValidator(runner, 0)

	res, err := v.CheckSyntax(context.Background(), `resource "aws_instance" "web" {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Errorf("expected valid, got diagnostics %q", res.Diagnostics)
	}
	if len(runner.calls) != 2 {
		t.Errorf("calls = %v, want init then validate", runner.calls)
	}
}

func TestCheckSyntaxDiagnostics(t *testing.T) {
	runner := &fakeRunner{results: map[string]ToolResult{
		"terraform init": {ExitCode: 0},
		"terraform validate": {ExitCode: 1, Stdout: `{"valid": false, "diagnostics": [
			{"severity": "error", "summary": "Unclosed configuration block",
			 "detail": "no closing brace", "range": {"start": {"line": 3}}},
			{"severity": "warning", "summary": "deprecated attribute"}
		]}`},
	}}
	v := NewTerraformValidator(runner, 0)

	res, err := v.CheckSyntax(context.Background(), "resource {")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK {
		t.Fatal("expected invalid")
	}
	if !strings.Contains(res.Diagnostics, "line 3: Unclosed configuration block") {
		t.Errorf("diagnostics = %q", res.Diagnostics)
	}
	if strings.Contains(res.Diagnostics, "deprecated") {
		t.Error("warnings must not appear in the error report")
	}
}

func TestCheckSyntaxInitFailure(t *testing.T) {
	runner := &fakeRunner{results: map[string]ToolResult{
		"terraform init": {ExitCode: 1, Stderr: "Unsupported block type"},
	}}
	v := NewTerraformValidator(runner, 0)

	res, err := v.CheckSyntax(context.Background(), "nonsense {")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK {
		t.Fatal("expected invalid after init failure")
	}
	if !strings.Contains(res.Diagnostics, "Unsupported block type") {
		t.Errorf("diagnostics = %q", res.Diagnostics)
	}
}

func TestCheckSyntaxToolMissing(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"terraform init": ErrToolNotFound,
	}}
	v := NewTerraformValidator(runner, 0)

	if _, err := v.CheckSyntax(context.Background(), "resource {}"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("got %v, want ErrToolNotFound", err)
	}
}

func TestScanParsesFailedChecks(t *testing.T) {
	runner := &fakeRunner{results: map[string]ToolResult{
		"checkov -f": {ExitCode: 1, Stdout: `{"results": {"failed_checks": [
			{"check_id": "CKV_AWS_24", "check_name": "Ensure no SSH from 0.0.0.0/0",
			 "resource": "aws_security_group.web", "severity": "HIGH",
			 "guideline": "https://docs.example/ckv-aws-24"}
		]}}`},
	}}
	s := NewCheckovScanner(runner, 0)

	violations, err := s.Scan(context.Background(), `resource "aws_security_group" "web" {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}
	v := violations[0]
	if v.RuleID != "CKV_AWS_24" || v.Resource != "aws_security_group.web" || v.Severity != "HIGH" {
		t.Errorf("violation = %+v", v)
	}
}

func TestScanMultiFrameworkReport(t *testing.T) {
	runner := &fakeRunner{results: map[string]ToolResult{
		"checkov -f": {Stdout: `[
			{"results": {"failed_checks": [{"check_id": "CKV_AWS_1"}]}},
			{"results": {"failed_checks": [{"check_id": "CKV_AWS_2"}]}}
		]`},
	}}
	s := NewCheckovScanner(runner, 0)

	violations, err := s.Scan(context.Background(), `resource "aws_s3_bucket" "b" {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 2 {
		t.Errorf("violations = %d, want 2", len(violations))
	}
}

func TestScanEmptyArtifactIsClean(t *testing.T) {
	runner := &fakeRunner{}
	s := NewCheckovScanner(runner, 0)

	violations, err := s.Scan(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violations != nil {
		t.Errorf("violations = %+v, want none", violations)
	}
	if len(runner.calls) != 0 {
		t.Error("scanner ran a tool for an empty artifact")
	}
}

func TestScanUnparseableReportIsClean(t *testing.T) {
	runner := &fakeRunner{results: map[string]ToolResult{
		"checkov -f": {Stdout: "checkov crashed mid-report"},
	}}
	s := NewCheckovScanner(runner, 0)

	violations, err := s.Scan(context.Background(), `resource "aws_s3_bucket" "b" {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violations != nil {
		t.Errorf("violations = %+v, want none", violations)
	}
}

func TestRunnerRealProcess(t *testing.T) {
	// /bin/sh exists everywhere the suite runs; exercise the real runner
	// without terraform installed.
	r := NewRunner()

	res, err := r.Run(context.Background(), t.TempDir(), 5*time.Second, "sh", "-c", "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit = %d, want 3", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestRunnerTimeoutKillsGroup(t *testing.T) {
	r := NewRunner()

	start := time.Now()
	res, err := r.Run(context.Background(), t.TempDir(), 200*time.Millisecond, "sh", "-c", "sleep 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected timeout")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("kill took %v", elapsed)
	}
}

func TestRunnerToolNotFound(t *testing.T) {
	r := NewRunner()
	if _, err := r.Run(context.Background(), t.TempDir(), time.Second, "definitely-not-a-real-tool-xyz"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("got %v, want ErrToolNotFound", err)
	}
}
