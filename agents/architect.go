// ABOUTME: Architect agent: generates Terraform from the plan, or remediates a failed attempt.
// ABOUTME: Remediation input carries only the error sections that are actually set.

package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/infragenie/infragenie/llm"
	"github.com/infragenie/infragenie/pipeline"
)

const architectSystem = `You are an expert Terraform engineer. Generate complete,
deployable Terraform (HCL) for the requested infrastructure. Include the
provider block and every resource the request needs. Output only HCL, no
explanation.`

// Architect implements the pipeline's Generator collaborator.
type Architect struct {
	client llm.Client
}

// NewArchitect creates an architect over a chat client.
func NewArchitect(client llm.Client) *Architect {
	return &Architect{client: client}
}

// Generate produces the Terraform artifact. For remediation attempts the
// input embeds the previous failure so the model fixes rather than
// regenerates from scratch.
func (a *Architect) Generate(ctx context.Context, in pipeline.GenerateInput) (string, error) {
	resp, err := a.client.Complete(ctx, llm.Request{
		System: architectSystem,
		User:   buildArchitectInput(in),
	})
	if err != nil {
		return "", fmt.Errorf("architect: %w", err)
	}
	return stripFences(resp.Text), nil
}

// buildArchitectInput assembles the generation prompt. Section order is
// stable so retries produce comparable prompts.
func buildArchitectInput(in pipeline.GenerateInput) string {
	var b strings.Builder

	if in.Attempt > 0 {
		fmt.Fprintf(&b, "This is fix attempt %d. The previous code failed checks. Fix the issues below without discarding working resources.\n\n", in.Attempt)
	}

	fmt.Fprintf(&b, "REQUEST:\n%s\n", in.Prompt)
	if pc := in.Planning; pc != nil {
		fmt.Fprintf(&b, "\nTARGET: provider=%s region=%s environment=%s\n", pc.Provider, pc.Region, pc.Environment)
		if pc.Plan != "" {
			fmt.Fprintf(&b, "\nARCHITECTURE PLAN:\n%s\n", pc.Plan)
		}
		if len(pc.Components) > 0 {
			fmt.Fprintf(&b, "\nPLANNED COMPONENTS: %s\n", strings.Join(pc.Components, ", "))
		}
		if len(pc.ExecutionOrder) > 0 {
			fmt.Fprintf(&b, "\nPROVISIONING ORDER: %s\n", strings.Join(pc.ExecutionOrder, " -> "))
		}
	}

	if in.SyntaxError != "" {
		fmt.Fprintf(&b, "\nVALIDATION ERROR TO FIX:\n%s\n", in.SyntaxError)
	}
	if in.DeepPlanReport != "" {
		fmt.Fprintf(&b, "\nPLAN SIMULATION FAILURE TO FIX:\n%s\n", in.DeepPlanReport)
	}
	if len(in.Violations) > 0 {
		b.WriteString("\nSECURITY VIOLATIONS TO FIX:\n")
		for _, v := range in.Violations {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", v.RuleID, v.Resource, v.Description)
		}
	}
	if in.CompletenessAdvice != "" {
		fmt.Fprintf(&b, "\nCOMPLETENESS ADVICE:\n%s\n", in.CompletenessAdvice)
	}
	if in.Attempt > 0 && in.PreviousArtifact != "" {
		fmt.Fprintf(&b, "\nPREVIOUS CODE:\n%s\n", in.PreviousArtifact)
	}

	return b.String()
}

var _ pipeline.Generator = (*Architect)(nil)
