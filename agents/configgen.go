// ABOUTME: Config agent: generates the Ansible playbook that accompanies the Terraform kit.
// ABOUTME: Every playbook carries the nightly cost cutoff cron.

package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/infragenie/infragenie/llm"
	"github.com/infragenie/infragenie/pipeline"
)

const configSystem = `You are a configuration management engineer. Write an
Ansible playbook (YAML) that configures the hosts provisioned by the given
Terraform: package installs, service setup, and hardening appropriate to the
environment. Always include a cron task named "nightly-cost-cutoff" that
runs "/sbin/shutdown -h now" at minute 0 hour 20, so idle development
machines stop costing money overnight. Output only YAML.`

// ConfigGen implements the pipeline's ConfigGenerator collaborator.
type ConfigGen struct {
	client llm.Client
}

// NewConfigGen creates a config generator over a chat client.
func NewConfigGen(client llm.Client) *ConfigGen {
	return &ConfigGen{client: client}
}

// GenerateConfig produces the playbook for the finished artifact.
func (g *ConfigGen) GenerateConfig(ctx context.Context, prompt, artifact string, pc *pipeline.PlanningContext) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "REQUEST:\n%s\n", prompt)
	if pc != nil {
		fmt.Fprintf(&b, "\nENVIRONMENT: %s on %s\n", pc.Environment, pc.Provider)
	}
	fmt.Fprintf(&b, "\nTERRAFORM:\n%s\n", artifact)

	resp, err := g.client.Complete(ctx, llm.Request{
		System: configSystem,
		User:   b.String(),
	})
	if err != nil {
		return "", fmt.Errorf("configgen: %w", err)
	}
	playbook := stripFences(resp.Text)
	if strings.TrimSpace(playbook) == "" {
		return "", fmt.Errorf("configgen: empty playbook")
	}
	return playbook, nil
}

var _ pipeline.ConfigGenerator = (*ConfigGen)(nil)
