// ABOUTME: Tests for intent matching, provider detection, and completeness verdicts.

package completeness

import (
	"context"
	"strings"
	"testing"

	"github.com/infragenie/infragenie/pipeline"
)

const completeDatabaseHCL = `
resource "aws_db_instance" "main" {}
resource "aws_db_subnet_group" "main" {}
resource "aws_security_group" "db" {}
`

func TestDatabaseComplete(t *testing.T) {
	a := NewAnalyzer()
	res, err := a.CheckCompleteness(context.Background(), completeDatabaseHCL,
		"deploy a postgres database", &pipeline.PlanningContext{Provider: "aws"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Complete {
		t.Errorf("expected complete, report: %s", res.Report)
	}
}

func TestDatabaseMissingResources(t *testing.T) {
	a := NewAnalyzer()
	res, err := a.CheckCompleteness(context.Background(),
		`resource "aws_db_instance" "main" {}`,
		"deploy a postgres database", &pipeline.PlanningContext{Provider: "aws"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Complete {
		t.Fatal("expected incomplete")
	}
	for _, want := range []string{"aws_db_subnet_group", "aws_security_group", "expected at least 3"} {
		if !strings.Contains(res.Report, want) {
			t.Errorf("report missing %q: %s", want, res.Report)
		}
	}
}

func TestKubernetesThinDeployment(t *testing.T) {
	a := NewAnalyzer()
	res, _ := a.CheckCompleteness(context.Background(), `
resource "aws_eks_cluster" "main" {}
resource "aws_eks_node_group" "main" {}
resource "aws_vpc" "main" {}
resource "aws_subnet" "a" {}
resource "aws_iam_role" "cluster" {}
`, "deploy a kubernetes cluster", &pipeline.PlanningContext{Provider: "aws"})

	if res.Complete {
		t.Fatal("five resources cannot satisfy the kubernetes minimum of eight")
	}
	if !strings.Contains(res.Report, "expected at least 8") {
		t.Errorf("report: %s", res.Report)
	}
}

func TestMultipleIntentsBothChecked(t *testing.T) {
	a := NewAnalyzer()
	res, _ := a.CheckCompleteness(context.Background(), completeDatabaseHCL,
		"a kubernetes cluster with a postgres database", &pipeline.PlanningContext{Provider: "aws"})

	if res.Complete {
		t.Fatal("kubernetes requirements unmet")
	}
	if !strings.Contains(res.Report, "kubernetes") {
		t.Errorf("report does not mention the kubernetes gap: %s", res.Report)
	}
}

func TestProviderDetection(t *testing.T) {
	tests := []struct {
		name     string
		pc       *pipeline.PlanningContext
		artifact string
		want     string
	}{
		{"clarified gcp", &pipeline.PlanningContext{Provider: "Google Cloud"}, "", "gcp"},
		{"clarified azure", &pipeline.PlanningContext{Provider: "azure"}, "", "azure"},
		{"sniffed gcp", nil, `resource "google_compute_instance" "vm" {}`, "gcp"},
		{"sniffed azure", nil, `resource "azurerm_linux_virtual_machine" "vm" {}`, "azure"},
		{"default aws", nil, `resource "aws_instance" "vm" {}`, "aws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectProvider(tt.pc, tt.artifact); got != tt.want {
				t.Errorf("detectProvider = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnrecognizedIntentNeedsAnyResource(t *testing.T) {
	a := NewAnalyzer()

	res, _ := a.CheckCompleteness(context.Background(), "", "provision the usual", nil)
	if res.Complete {
		t.Error("empty artifact must be incomplete")
	}

	res, _ = a.CheckCompleteness(context.Background(),
		`resource "aws_sqs_queue" "q" {}`, "provision the usual", nil)
	if !res.Complete {
		t.Errorf("one resource satisfies an unrecognized intent, report: %s", res.Report)
	}
}

func TestComplexityClassification(t *testing.T) {
	a := NewAnalyzer()
	tests := []struct {
		prompt string
		want   string
	}{
		{"deploy a kubernetes cluster", "kubernetes"},
		{"deploy a postgres database", "database"},
		{"a kubernetes cluster with a postgres database", "kubernetes"},
		{"provision the usual", "generic"},
	}
	for _, tt := range tests {
		res, err := a.CheckCompleteness(context.Background(),
			`resource "aws_instance" "x" {}`, tt.prompt, nil)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.prompt, err)
		}
		if res.ComplexityClass != tt.want {
			t.Errorf("%q: class = %q, want %q", tt.prompt, res.ComplexityClass, tt.want)
		}
	}
}

func TestIntents(t *testing.T) {
	got := Intents("a kubernetes cluster behind a load balancer")
	want := []string{"kubernetes", "load_balancer"}
	if len(got) != len(want) {
		t.Fatalf("intents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("intents = %v, want %v", got, want)
		}
	}
}
