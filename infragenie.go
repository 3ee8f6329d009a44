// ABOUTME: Top-level wiring: builds a runnable pipeline from configuration.
// ABOUTME: The server and CLI both assemble their pipelines here.

package infragenie

import (
	"github.com/infragenie/infragenie/agents"
	"github.com/infragenie/infragenie/completeness"
	"github.com/infragenie/infragenie/config"
	"github.com/infragenie/infragenie/deepcheck"
	"github.com/infragenie/infragenie/finops"
	"github.com/infragenie/infragenie/hclgraph"
	"github.com/infragenie/infragenie/llm"
	"github.com/infragenie/infragenie/pipeline"
	"github.com/infragenie/infragenie/sandbox"
)

// NewClient builds the chat client the agents share.
func NewClient(cfg *config.Config) llm.Client {
	return llm.NewOpenAIClient(cfg.APIKey(), cfg.LLM.Model, cfg.LLM.BaseURL)
}

// Collaborators assembles the full collaborator set: model-backed agents
// plus the local tool checkers.
func Collaborators(cfg *config.Config, client llm.Client) (pipeline.Collaborators, error) {
	timeout, err := cfg.ToolTimeout()
	if err != nil {
		return pipeline.Collaborators{}, err
	}
	runner := sandbox.NewRunner()

	return pipeline.Collaborators{
		Clarifier:    agents.NewClarifier(client),
		Planner:      agents.NewPlanner(client),
		Generator:    agents.NewArchitect(client),
		Syntax:       sandbox.NewTerraformValidator(runner, timeout),
		Completeness: completeness.NewAnalyzer(),
		DeepPlan:     deepcheck.NewChecker(runner, 2*timeout),
		Policy:       sandbox.NewCheckovScanner(runner, timeout),
		Visualizer:   hclgraph.NewParser(),
		Cost:         finops.NewEstimator(runner, timeout),
		Config:       agents.NewConfigGen(client),
	}, nil
}

// NewPipeline builds the pipeline with the configured tuning applied.
func NewPipeline(cfg *config.Config, client llm.Client, extra ...pipeline.Option) (*pipeline.Pipeline, error) {
	collab, err := Collaborators(cfg, client)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{}
	if cfg.Pipeline.MaxRetries > 0 {
		opts = append(opts, pipeline.WithMaxRetries(cfg.Pipeline.MaxRetries))
	}
	if cfg.Pipeline.MaxSteps > 0 {
		opts = append(opts, pipeline.WithMaxSteps(cfg.Pipeline.MaxSteps))
	}
	for _, name := range cfg.Pipeline.SoftChecks {
		opts = append(opts, pipeline.WithSoftCheck(name, true))
	}
	opts = append(opts, extra...)

	return pipeline.New(collab, opts...), nil
}
