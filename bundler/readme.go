// ABOUTME: README generation for the deployment kit, plus HTML rendering for the API preview.

package bundler

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"

	"github.com/infragenie/infragenie/pipeline"
)

var readmeTmpl = template.Must(template.New("readme").Parse(`# Deployment Kit

Generated for run {{.ID}}.

## Request

{{.Prompt}}
{{if .Plan}}
## Architecture

{{.Plan}}
{{end}}{{if .Cost}}
## Estimated cost

{{.Cost}}
{{end}}{{if .Violations}}
## Outstanding policy violations

| Rule | Resource | Description |
|------|----------|-------------|
{{range .Violations}}| {{.RuleID}} | {{.Resource}} | {{.Description}} |
{{end}}
Review these before deploying to production.
{{end}}
## Usage

` + "```" + `sh
./deploy.sh   # provision and configure
./destroy.sh  # tear everything down
` + "```" + `

The playbook schedules a nightly shutdown at 20:00 to cap idle costs.
`))

type readmeData struct {
	ID         string
	Prompt     string
	Plan       string
	Cost       string
	Violations []pipeline.PolicyViolation
}

// Readme renders the kit's README markdown from a run record.
func Readme(rec *pipeline.RunRecord) (string, error) {
	data := readmeData{
		ID:         rec.ID,
		Prompt:     strings.TrimSpace(rec.Prompt),
		Cost:       rec.CostEstimate,
		Violations: rec.Violations,
	}
	if rec.Planning != nil {
		data.Plan = rec.Planning.Plan
	}

	var buf bytes.Buffer
	if err := readmeTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render readme: %w", err)
	}
	return buf.String(), nil
}

// ReadmeHTML renders the README through goldmark for the API's preview
// endpoint.
func ReadmeHTML(rec *pipeline.RunRecord) (string, error) {
	md, err := Readme(rec)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render readme html: %w", err)
	}
	return buf.String(), nil
}
