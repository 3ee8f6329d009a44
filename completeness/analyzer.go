// ABOUTME: Completeness analysis: does the artifact contain what the request implies?
// ABOUTME: Matches intents from the prompt, then checks required resource types and counts.

package completeness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/infragenie/infragenie/pipeline"
)

var resourceBlockRe = regexp.MustCompile(`(?m)^\s*resource\s+"([\w-]+)"\s+"[\w-]+"`)

// Analyzer implements the pipeline's CompletenessChecker. It is pure text
// analysis and never fails; the error return exists for the interface.
type Analyzer struct{}

// NewAnalyzer creates an analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// CheckCompleteness compares the artifact against every intent the prompt
// matches. A prompt matching no intent is held only to "at least one
// resource".
func (a *Analyzer) CheckCompleteness(ctx context.Context, artifact, prompt string, pc *pipeline.PlanningContext) (pipeline.CompletenessResult, error) {
	provider := detectProvider(pc, artifact)
	types := resourceTypes(artifact)
	total := countResources(artifact)

	var problems []string

	matched := false
	class := ""
	for _, p := range patterns {
		if !matchesIntent(prompt, p) {
			continue
		}
		matched = true
		// Patterns are ordered most demanding first, so the first match is
		// the classification.
		if class == "" {
			class = p.Intent
		}
		req, ok := p.Providers[provider]
		if !ok {
			continue
		}
		var missing []string
		for _, required := range req.Required {
			if !types[required] {
				missing = append(missing, required)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf(
				"%s deployment is missing required resources: %s", p.Intent, strings.Join(missing, ", ")))
		}
		if total < req.MinTotal {
			problems = append(problems, fmt.Sprintf(
				"%s deployment looks thin: %d resources, expected at least %d", p.Intent, total, req.MinTotal))
		}
	}

	if !matched {
		class = "generic"
		if total == 0 {
			problems = append(problems, "no resources defined")
		}
	}

	if len(problems) == 0 {
		return pipeline.CompletenessResult{
			Complete:        true,
			Report:          fmt.Sprintf("complete: %d resources for %s", total, provider),
			ComplexityClass: class,
		}, nil
	}
	return pipeline.CompletenessResult{
		Complete:        false,
		Report:          strings.Join(problems, "\n"),
		ComplexityClass: class,
	}, nil
}

// matchesIntent reports whether the prompt names this pattern.
func matchesIntent(prompt string, p pattern) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range p.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// detectProvider prefers the clarified provider, then sniffs the artifact's
// resource prefixes, then assumes aws.
func detectProvider(pc *pipeline.PlanningContext, artifact string) string {
	if pc != nil && pc.Provider != "" {
		return normalizeProvider(pc.Provider)
	}
	switch {
	case strings.Contains(artifact, "google_"):
		return "gcp"
	case strings.Contains(artifact, "azurerm_"):
		return "azure"
	default:
		return "aws"
	}
}

func normalizeProvider(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "gcp", "google", "google cloud":
		return "gcp"
	case "azure", "azurerm", "microsoft azure":
		return "azure"
	default:
		return "aws"
	}
}

// resourceTypes returns the set of resource types declared in the artifact.
func resourceTypes(artifact string) map[string]bool {
	types := make(map[string]bool)
	for _, m := range resourceBlockRe.FindAllStringSubmatch(artifact, -1) {
		types[m[1]] = true
	}
	return types
}

// countResources counts resource blocks, not distinct types.
func countResources(artifact string) int {
	return len(resourceBlockRe.FindAllString(artifact, -1))
}

// Intents returns the intents a prompt matches, for callers that want the
// classification without the full analysis.
func Intents(prompt string) []string {
	var out []string
	for _, p := range patterns {
		if matchesIntent(prompt, p) {
			out = append(out, p.Intent)
		}
	}
	sort.Strings(out)
	return out
}

var _ pipeline.CompletenessChecker = (*Analyzer)(nil)
