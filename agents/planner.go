// ABOUTME: Planner agent: turns the clarified request into an architecture plan.
// ABOUTME: Parses the model's structured reply; free text degrades to a bare summary.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/infragenie/infragenie/llm"
	"github.com/infragenie/infragenie/pipeline"
)

const plannerSystem = `You are a cloud solutions architect. Produce an
architecture plan for the requested infrastructure. Respond with JSON only:
{"summary": "<concise plan: resources, connections, sizing>",
 "components": ["<terraform resource type>", ...],
 "execution_order": ["<resource type in provisioning order>", ...],
 "complexity_class": "<one of: kubernetes, database, load_balancer, container, web_server, generic>"}`

// Planner implements the pipeline's Planner collaborator.
type Planner struct {
	client llm.Client
}

// NewPlanner creates a planner over a chat client.
func NewPlanner(client llm.Client) *Planner {
	return &Planner{client: client}
}

type plannerReply struct {
	Summary         string   `json:"summary"`
	Components      []string `json:"components"`
	ExecutionOrder  []string `json:"execution_order"`
	ComplexityClass string   `json:"complexity_class"`
}

// Plan asks the model for an architecture plan grounded in the clarified
// context. A reply that is not valid JSON is kept as the plan summary with
// no component breakdown; the completeness analysis classifies the run
// instead.
func (p *Planner) Plan(ctx context.Context, prompt string, pc *pipeline.PlanningContext) (pipeline.PlanResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", prompt)
	if pc != nil {
		fmt.Fprintf(&b, "Provider: %s\nRegion: %s\nEnvironment: %s\n", pc.Provider, pc.Region, pc.Environment)
		for _, a := range pc.Assumptions {
			fmt.Fprintf(&b, "Assumption: %s\n", a)
		}
	}

	resp, err := p.client.Complete(ctx, llm.Request{
		System: plannerSystem,
		User:   b.String(),
	})
	if err != nil {
		return pipeline.PlanResult{}, fmt.Errorf("planner: %w", err)
	}

	text := strings.TrimSpace(stripFences(resp.Text))
	if text == "" {
		return pipeline.PlanResult{}, fmt.Errorf("planner: empty plan")
	}

	var reply plannerReply
	if jerr := json.Unmarshal([]byte(text), &reply); jerr != nil || strings.TrimSpace(reply.Summary) == "" {
		return pipeline.PlanResult{Summary: text}, nil
	}
	return pipeline.PlanResult{
		Summary:         strings.TrimSpace(reply.Summary),
		Components:      reply.Components,
		ExecutionOrder:  reply.ExecutionOrder,
		ComplexityClass: strings.TrimSpace(reply.ComplexityClass),
	}, nil
}

var _ pipeline.Planner = (*Planner)(nil)
