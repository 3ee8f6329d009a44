// ABOUTME: Clarifier agent: extracts provider, region, environment, and a proceed decision.
// ABOUTME: Falls back to a keyword heuristic when the model returns unparseable output.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/infragenie/infragenie/llm"
	"github.com/infragenie/infragenie/pipeline"
)

const clarifierSystem = `You are an infrastructure requirements analyst. Given a deployment
request, extract the target cloud provider, region, and environment, list any
assumptions you had to make, and decide whether the request is concrete
enough to proceed. Respond with a single JSON object:
{"provider": "...", "region": "...", "environment": "...",
 "assumptions": ["..."], "proceed": true, "question": ""}
If the request is too vague to act on, set proceed to false and put one
clarifying question in "question". Respond with JSON only.`

// Default assumptions used when the model reply cannot be parsed.
const (
	defaultProvider    = "aws"
	defaultRegion      = "us-east-1"
	defaultEnvironment = "development"
)

// infraKeywords decide, without a model, whether a prompt names anything
// deployable at all.
var infraKeywords = []string{
	"server", "database", "db", "postgres", "mysql", "redis", "cache",
	"kubernetes", "k8s", "cluster", "container", "docker",
	"vpc", "subnet", "network", "load balancer", "lb",
	"bucket", "storage", "s3", "volume",
	"instance", "vm", "ec2", "lambda", "function",
	"queue", "topic", "website", "web", "app", "api", "service",
}

// Clarifier implements the pipeline's Clarifier collaborator.
type Clarifier struct {
	client llm.Client
}

// NewClarifier creates a clarifier over a chat client.
func NewClarifier(client llm.Client) *Clarifier {
	return &Clarifier{client: client}
}

type clarifierReply struct {
	Provider    string   `json:"provider"`
	Region      string   `json:"region"`
	Environment string   `json:"environment"`
	Assumptions []string `json:"assumptions"`
	Proceed     bool     `json:"proceed"`
	Question    string   `json:"question"`
}

// Clarify asks the model for deployment intent. Model transport errors
// propagate; garbled replies fall back to the keyword heuristic so a flaky
// model cannot produce a nonsense planning context.
func (c *Clarifier) Clarify(ctx context.Context, prompt string) (*pipeline.PlanningContext, error) {
	resp, err := c.client.Complete(ctx, llm.Request{
		System: clarifierSystem,
		User:   prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("clarifier: %w", err)
	}

	var reply clarifierReply
	if jerr := json.Unmarshal([]byte(stripFences(resp.Text)), &reply); jerr != nil {
		return c.heuristic(prompt), nil
	}

	pc := &pipeline.PlanningContext{
		Provider:    strings.ToLower(strings.TrimSpace(reply.Provider)),
		Region:      strings.TrimSpace(reply.Region),
		Environment: strings.TrimSpace(reply.Environment),
		Assumptions: reply.Assumptions,
		Clarified:   true,
		Proceed:     reply.Proceed,
		Question:    reply.Question,
	}
	if pc.Provider == "" {
		pc.Provider = defaultProvider
		pc.Assumptions = append(pc.Assumptions, "assumed provider "+defaultProvider)
	}
	if pc.Region == "" {
		pc.Region = defaultRegion
		pc.Assumptions = append(pc.Assumptions, "assumed region "+defaultRegion)
	}
	if pc.Environment == "" {
		pc.Environment = defaultEnvironment
	}
	return pc, nil
}

// heuristic builds a planning context without the model: proceed when the
// prompt names something deployable, block otherwise.
func (c *Clarifier) heuristic(prompt string) *pipeline.PlanningContext {
	lower := strings.ToLower(prompt)
	for _, kw := range infraKeywords {
		if strings.Contains(lower, kw) {
			return &pipeline.PlanningContext{
				Provider:    defaultProvider,
				Region:      defaultRegion,
				Environment: defaultEnvironment,
				Assumptions: []string{"clarifier reply unparseable, assumed AWS defaults"},
				Proceed:     true,
			}
		}
	}
	return &pipeline.PlanningContext{
		Proceed:  false,
		Question: "What should be deployed, and on which cloud provider?",
	}
}

var _ pipeline.Clarifier = (*Clarifier)(nil)
