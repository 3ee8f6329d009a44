// ABOUTME: Resource graph model extracted from Terraform source for visualization.
// ABOUTME: Nodes are resource or module blocks; edges come from explicit and implicit references.

package hclgraph

// Node is one resource or module block.
type Node struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Edge is a dependency from Source to Target, by node ID.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// Graph is the full visualization payload.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Edge kinds.
const (
	EdgeExplicit = "explicit"
	EdgeImplicit = "implicit"
)

// categories maps resource type fragments to rendering groups. First match
// wins; unmatched types fall through to "other".
var categories = []struct {
	fragment string
	category string
}{
	{"db", "database"},
	{"rds", "database"},
	{"sql", "database"},
	{"dynamodb", "database"},
	{"redis", "database"},
	{"elasticache", "database"},
	{"instance", "compute"},
	{"lambda", "compute"},
	{"ecs", "compute"},
	{"eks", "compute"},
	{"kubernetes", "compute"},
	{"container", "compute"},
	{"vpc", "network"},
	{"subnet", "network"},
	{"security_group", "network"},
	{"lb", "network"},
	{"gateway", "network"},
	{"route", "network"},
	{"firewall", "network"},
	{"s3", "storage"},
	{"bucket", "storage"},
	{"disk", "storage"},
	{"volume", "storage"},
	{"ebs", "storage"},
	{"iam", "identity"},
	{"role", "identity"},
	{"policy", "identity"},
}

func categorize(resourceType string) string {
	for _, c := range categories {
		if containsFold(resourceType, c.fragment) {
			return c.category
		}
	}
	return "other"
}
