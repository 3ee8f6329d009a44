// ABOUTME: Deployment kit assembly: zips the artifact, playbook, scripts, and README.
// ABOUTME: The kit is everything an operator needs to apply and later tear down the run.

package bundler

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/infragenie/infragenie/pipeline"
)

const deployScript = `#!/usr/bin/env bash
set -euo pipefail

terraform init -input=false
terraform apply -auto-approve

if command -v ansible-playbook >/dev/null 2>&1 && [ -f playbook.yml ]; then
  ansible-playbook playbook.yml
fi
`

const destroyScript = `#!/usr/bin/env bash
set -euo pipefail

terraform destroy -auto-approve
`

// Kit builds the deployment ZIP for a finished run. Blocked runs have no
// kit; callers should check the record first.
func Kit(rec *pipeline.RunRecord) ([]byte, error) {
	if rec.Artifact == "" {
		return nil, fmt.Errorf("run %s has no artifact", rec.ID)
	}

	readme, err := Readme(rec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	files := []struct {
		name string
		body string
	}{
		{"main.tf", rec.Artifact},
		{"playbook.yml", rec.ConfigArtifact},
		{"deploy.sh", deployScript},
		{"destroy.sh", destroyScript},
		{"README.md", readme},
	}
	for _, f := range files {
		if f.body == "" {
			continue
		}
		fw, werr := w.Create(f.name)
		if werr != nil {
			return nil, fmt.Errorf("add %s: %w", f.name, werr)
		}
		if _, werr := fw.Write([]byte(f.body)); werr != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, werr)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close kit: %w", err)
	}
	return buf.Bytes(), nil
}
