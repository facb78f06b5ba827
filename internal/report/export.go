package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tfdigest/tfdigest/internal/plan"
	"github.com/tfdigest/tfdigest/pkg/models"
)

// ExportDOT returns the digest as a Graphviz DOT graph: one node per
// classified resource colored by action, one node per touched module,
// and containment edges from module to resource.
func ExportDOT(d *models.Digest) string {
	resources, modules := graphNodes(d)

	var b strings.Builder
	b.WriteString("digraph tfdigest {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled];\n\n")

	for _, m := range modules {
		b.WriteString(fmt.Sprintf("  %q [fillcolor=%q];\n", m, moduleFill))
	}
	for _, n := range resources {
		label := fmt.Sprintf("\"%s\\n(%s)\"", dotEscape(n.addr), n.action)
		b.WriteString(fmt.Sprintf("  %q [label=%s, fillcolor=%q];\n", n.addr, label, actionFill(n.action)))
	}

	b.WriteString("\n")

	for _, n := range resources {
		if mod, ok := plan.ModuleOf(n.addr); ok {
			b.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", mod, n.addr, "contains"))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid returns the digest as a Mermaid graph with the same
// shape as the DOT export.
func ExportMermaid(d *models.Digest) string {
	resources, modules := graphNodes(d)

	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, m := range modules {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", mermaidSafeID(m), m))
	}
	for _, n := range resources {
		id := mermaidSafeID(n.addr)
		b.WriteString(fmt.Sprintf("  %s[\"%s (%s)\"]\n", id, n.addr, n.action))
		b.WriteString(fmt.Sprintf("  style %s fill:%s\n", id, actionFill(n.action)))
	}

	for _, n := range resources {
		if mod, ok := plan.ModuleOf(n.addr); ok {
			b.WriteString(fmt.Sprintf("  %s --> %s\n", mermaidSafeID(mod), mermaidSafeID(n.addr)))
		}
	}

	return b.String()
}

type graphNode struct {
	addr   string
	action models.Action
}

// graphNodes returns every classified address with its primary action,
// sorted, plus the sorted set of touched modules.
func graphNodes(d *models.Digest) ([]graphNode, []string) {
	primary := primaryActions(d.Changes)

	var resources []graphNode
	moduleSet := make(map[string]bool)
	for _, addr := range d.Changes.All() {
		resources = append(resources, graphNode{addr: addr, action: primary[addr]})
		if mod, ok := plan.ModuleOf(addr); ok {
			moduleSet[mod] = true
		}
	}

	modules := make([]string, 0, len(moduleSet))
	for m := range moduleSet {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	return resources, modules
}

// dotEscape escapes backslashes and quotes for a DOT quoted string. The
// label text itself may carry \n breaks, so it cannot go through %q.
func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

const moduleFill = "#D5D8DC"

func actionFill(a models.Action) string {
	switch a {
	case models.ActionCreated:
		return "#82E0AA"
	case models.ActionChanged:
		return "#F9E79F"
	case models.ActionReplaced:
		return "#D7BDE2"
	case models.ActionDestroyed:
		return "#F1948A"
	case models.ActionMoved:
		return "#85C1E9"
	}
	return moduleFill
}

func mermaidSafeID(id string) string {
	r := strings.NewReplacer(
		".", "_", "-", "_", "/", "_", ":", "_",
		"[", "_", "]", "_", `"`, "", " ", "_",
	)
	return r.Replace(id)
}
