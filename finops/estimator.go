// ABOUTME: Monthly cost estimation via infracost breakdown.
// ABOUTME: Missing API key and timeouts surface as sentinel strings, never as run failures.

package finops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/infragenie/infragenie/pipeline"
	"github.com/infragenie/infragenie/sandbox"
)

// Sentinel estimates for the degraded paths. The pipeline records these as
// the cost estimate instead of blocking the run.
const (
	EstimateNoAPIKey = "Cost estimation unavailable (API key missing)"
	EstimateTimeout  = "Unable to estimate cost (timeout)"
)

// APIKeyEnv is where infracost expects its credentials.
const APIKeyEnv = "INFRACOST_API_KEY"

// Estimator implements the pipeline's CostEstimator using the infracost
// CLI.
type Estimator struct {
	runner  sandbox.ToolRunner
	timeout time.Duration
	// lookupEnv is swappable for tests.
	lookupEnv func(string) (string, bool)
}

// NewEstimator creates an estimator over a tool runner.
func NewEstimator(runner sandbox.ToolRunner, timeout time.Duration) *Estimator {
	if timeout <= 0 {
		timeout = sandbox.DefaultToolTimeout
	}
	return &Estimator{runner: runner, timeout: timeout, lookupEnv: os.LookupEnv}
}

// breakdownOutput mirrors infracost breakdown --format json.
type breakdownOutput struct {
	TotalMonthlyCost string `json:"totalMonthlyCost"`
	Currency         string `json:"currency"`
}

// Estimate runs infracost and formats the monthly total. Environmental
// problems (no key, timeout) return sentinels; only workspace failures are
// errors.
func (e *Estimator) Estimate(ctx context.Context, artifact string) (string, error) {
	if _, ok := e.lookupEnv(APIKeyEnv); !ok {
		return EstimateNoAPIKey, nil
	}

	dir, cleanup, err := sandbox.WriteWorkspace(artifact)
	if err != nil {
		return "", err
	}
	defer cleanup()

	res, err := e.runner.Run(ctx, dir, e.timeout, "infracost", "breakdown", "--path", ".", "--format", "json")
	if err != nil {
		return "", err
	}
	if res.TimedOut {
		return EstimateTimeout, nil
	}
	if !res.Success() {
		return "", fmt.Errorf("infracost exited %d: %s", res.ExitCode, res.Stderr)
	}

	var out breakdownOutput
	if jerr := json.Unmarshal([]byte(res.Stdout), &out); jerr != nil {
		return "", fmt.Errorf("parse infracost output: %w", jerr)
	}
	total, perr := strconv.ParseFloat(out.TotalMonthlyCost, 64)
	if perr != nil {
		return "", fmt.Errorf("parse total monthly cost %q: %w", out.TotalMonthlyCost, perr)
	}
	return fmt.Sprintf("$%.2f/mo", total), nil
}

var _ pipeline.CostEstimator = (*Estimator)(nil)
