// ABOUTME: Terraform syntax validation in a throwaway workspace.
// ABOUTME: Parses terraform validate -json diagnostics into a readable report.

package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/infragenie/infragenie/pipeline"
)

// DefaultToolTimeout bounds each tool invocation.
const DefaultToolTimeout = 60 * time.Second

// TerraformValidator implements the pipeline's SyntaxChecker using the
// terraform CLI.
type TerraformValidator struct {
	runner  ToolRunner
	timeout time.Duration
}

// NewTerraformValidator creates a validator over a tool runner.
func NewTerraformValidator(runner ToolRunner, timeout time.Duration) *TerraformValidator {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &TerraformValidator{runner: runner, timeout: timeout}
}

// validateOutput mirrors terraform validate -json.
type validateOutput struct {
	Valid       bool `json:"valid"`
	Diagnostics []struct {
		Severity string `json:"severity"`
		Summary  string `json:"summary"`
		Detail   string `json:"detail"`
		Range    *struct {
			Start struct {
				Line int `json:"line"`
			} `json:"start"`
		} `json:"range"`
	} `json:"diagnostics"`
}

// CheckSyntax writes the artifact to a temp workspace and runs init plus
// validate. A failed validate is a result; only an unrunnable tool is an
// error.
func (v *TerraformValidator) CheckSyntax(ctx context.Context, artifact string) (pipeline.SyntaxResult, error) {
	dir, cleanup, err := WriteWorkspace(artifact)
	if err != nil {
		return pipeline.SyntaxResult{}, err
	}
	defer cleanup()

	initRes, err := v.runner.Run(ctx, dir, v.timeout, "terraform", "init", "-backend=false", "-input=false", "-no-color")
	if err != nil {
		return pipeline.SyntaxResult{}, err
	}
	if !initRes.Success() {
		// Init failures are syntax-level problems in practice: bad provider
		// blocks, malformed HCL the parser rejects before validate runs.
		return pipeline.SyntaxResult{OK: false, Diagnostics: firstNonEmpty(initRes.Stderr, initRes.Stdout, "terraform init failed")}, nil
	}

	valRes, err := v.runner.Run(ctx, dir, v.timeout, "terraform", "validate", "-json", "-no-color")
	if err != nil {
		return pipeline.SyntaxResult{}, err
	}

	var out validateOutput
	if jerr := json.Unmarshal([]byte(valRes.Stdout), &out); jerr != nil {
		if valRes.Success() {
			return pipeline.SyntaxResult{OK: true}, nil
		}
		return pipeline.SyntaxResult{OK: false, Diagnostics: firstNonEmpty(valRes.Stderr, valRes.Stdout, "terraform validate failed")}, nil
	}

	if out.Valid {
		return pipeline.SyntaxResult{OK: true}, nil
	}

	var b strings.Builder
	for _, d := range out.Diagnostics {
		if d.Severity != "error" {
			continue
		}
		if d.Range != nil {
			fmt.Fprintf(&b, "line %d: ", d.Range.Start.Line)
		}
		b.WriteString(d.Summary)
		if d.Detail != "" {
			fmt.Fprintf(&b, " (%s)", d.Detail)
		}
		b.WriteString("\n")
	}
	diag := strings.TrimSpace(b.String())
	if diag == "" {
		diag = "terraform validate reported invalid configuration"
	}
	return pipeline.SyntaxResult{OK: false, Diagnostics: diag}, nil
}

// WriteWorkspace creates a temp directory holding the artifact as main.tf.
// The cleanup func removes the whole directory.
func WriteWorkspace(artifact string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "infragenie-*")
	if err != nil {
		return "", nil, fmt.Errorf("create workspace: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	if err := os.WriteFile(filepath.Join(dir, "main.tf"), []byte(artifact), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write main.tf: %w", err)
	}
	return dir, cleanup, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var _ pipeline.SyntaxChecker = (*TerraformValidator)(nil)
