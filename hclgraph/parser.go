// ABOUTME: Regex-based extraction of resource and module blocks from Terraform source.
// ABOUTME: Finds explicit depends_on edges and implicit interpolation references.

package hclgraph

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	resourceRe  = regexp.MustCompile(`(?m)^\s*resource\s+"([\w-]+)"\s+"([\w-]+)"\s*\{`)
	moduleRe    = regexp.MustCompile(`(?m)^\s*module\s+"([\w-]+)"\s*\{`)
	dependsRe   = regexp.MustCompile(`depends_on\s*=\s*\[([^\]]*)\]`)
	referenceRe = regexp.MustCompile(`\b([\w-]+)\.([\w-]+)\.[\w-]+`)
)

// Parser extracts a Graph from Terraform source text.
type Parser struct{}

// NewParser creates a parser. It holds no state; the type exists so the
// pipeline's Visualizer collaborator has a concrete home.
func NewParser() *Parser {
	return &Parser{}
}

// Extract builds the resource graph. Empty source yields an empty graph,
// not an error; malformed source yields whatever blocks the patterns find.
func (p *Parser) Extract(source string) (*Graph, error) {
	g := &Graph{}
	if strings.TrimSpace(source) == "" {
		return g, nil
	}

	known := make(map[string]bool)

	for _, m := range resourceRe.FindAllStringSubmatch(source, -1) {
		rtype, name := m[1], m[2]
		id := rtype + "." + name
		if known[id] {
			continue
		}
		known[id] = true
		g.Nodes = append(g.Nodes, Node{
			ID:       id,
			Type:     rtype,
			Name:     name,
			Category: categorize(rtype),
		})
	}

	for _, m := range moduleRe.FindAllStringSubmatch(source, -1) {
		id := "module." + m[1]
		if known[id] {
			continue
		}
		known[id] = true
		g.Nodes = append(g.Nodes, Node{
			ID:       id,
			Type:     "module",
			Name:     m[1],
			Category: "module",
		})
	}

	p.extractEdges(source, known, g)
	return g, nil
}

// extractEdges walks each block body looking for depends_on lists and
// interpolation references to other known nodes.
func (p *Parser) extractEdges(source string, known map[string]bool, g *Graph) {
	seen := make(map[string]bool)
	addEdge := func(src, dst, kind string) {
		if src == dst || !known[src] || !known[dst] {
			return
		}
		key := fmt.Sprintf("%s->%s", src, dst)
		if seen[key] {
			return
		}
		seen[key] = true
		g.Edges = append(g.Edges, Edge{Source: src, Target: dst, Kind: kind})
	}

	locs := resourceRe.FindAllStringSubmatchIndex(source, -1)
	for i, loc := range locs {
		rtype := source[loc[2]:loc[3]]
		name := source[loc[4]:loc[5]]
		src := rtype + "." + name

		// Block body runs from this header to the next header or EOF. Good
		// enough for generated code, which does not nest resource blocks.
		end := len(source)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := source[loc[1]:end]

		for _, dm := range dependsRe.FindAllStringSubmatch(body, -1) {
			for _, entry := range strings.Split(dm[1], ",") {
				target := strings.Trim(strings.TrimSpace(entry), `"`)
				addEdge(src, target, EdgeExplicit)
			}
		}

		for _, rm := range referenceRe.FindAllStringSubmatch(body, -1) {
			target := rm[1] + "." + rm[2]
			addEdge(src, target, EdgeImplicit)
		}
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
