package report

import (
	"strings"
	"testing"

	"github.com/tfdigest/tfdigest/pkg/models"
)

func TestExportDOT(t *testing.T) {
	out := ExportDOT(groupedDigest())

	for _, want := range []string{
		"digraph tfdigest {",
		"rankdir=LR;",
		`"module.app[0]" [fillcolor="#D5D8DC"];`,
		`"module.app[0].aws_instance.web" [label="module.app[0].aws_instance.web\n(created)", fillcolor="#82E0AA"];`,
		`"module.app[0]" -> "module.app[0].aws_instance.web" [label="contains"];`,
		`"module.db" -> "module.db.aws_db_instance.main" [label="contains"];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("DOT output should close the graph")
	}
}

func TestExportDOT_NoModules(t *testing.T) {
	d := &models.Digest{
		Changes: models.Classification{Destroyed: []string{"aws_instance.solo"}},
	}
	out := ExportDOT(d)

	if strings.Contains(out, "->") {
		t.Errorf("expected no containment edges\n%s", out)
	}
	if !strings.Contains(out, `"aws_instance.solo"`) {
		t.Errorf("missing resource node\n%s", out)
	}
	if !strings.Contains(out, `fillcolor="#F1948A"`) {
		t.Errorf("missing destroy color\n%s", out)
	}
}

func TestExportMermaid(t *testing.T) {
	out := ExportMermaid(groupedDigest())

	for _, want := range []string{
		"graph LR\n",
		`module_app_0_["module.app[0]"]`,
		`module_app_0__aws_instance_web["module.app[0].aws_instance.web (created)"]`,
		"style module_app_0__aws_instance_web fill:#82E0AA",
		"module_app_0_ --> module_app_0__aws_instance_web",
		"module_db --> module_db_aws_db_instance_main",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid output missing %q\n%s", want, out)
		}
	}
}

func TestMermaidSafeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"module.app[0].aws_instance.web", "module_app_0__aws_instance_web"},
		{`module.net["blue"]`, "module_net_blue_"},
		{"aws-thing/sub:part", "aws_thing_sub_part"},
	}
	for _, tt := range tests {
		if got := mermaidSafeID(tt.in); got != tt.want {
			t.Errorf("mermaidSafeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
