package loggroup

import (
	"reflect"
	"testing"
)

func TestUnitOf(t *testing.T) {
	tests := []struct {
		name string
		line string
		unit string
		ok   bool
	}{
		{"leading tag", "[vpc] Initializing the backend...", "vpc", true},
		{"leading tag with path", "[modules/db] Plan: 1 to add", "modules/db", true},
		{"prefix attribute", `time=10:00 level=info prefix=[stage/app] msg="Running terraform"`, "stage/app", true},
		{"timestamped leading tag", "2024-01-01T00:00:00Z [vpc] locked state", "vpc", true},
		{"ansi wrapped tag", "\x1b[1m[vpc]\x1b[0m apply", "vpc", true},
		{"untagged", "Initializing modules...", "", false},
		{"mid-line bracket only", "resource aws_instance.web[0] created", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, ok := UnitOf(tt.line)
			if ok != tt.ok || unit != tt.unit {
				t.Errorf("UnitOf(%q) = %q, %v, want %q, %v", tt.line, unit, ok, tt.unit, tt.ok)
			}
		})
	}
}

func TestFold_Transitions(t *testing.T) {
	in := []string{
		"Initializing modules...",
		"[vpc] Initializing the backend...",
		"[vpc] Plan: 1 to add, 0 to change, 0 to destroy.",
		"[app] Initializing the backend...",
		"untagged continuation line",
		"[app] Apply complete!",
		"[vpc] Releasing state lock.",
	}
	want := []string{
		"Initializing modules...",
		"::group::vpc",
		"[vpc] Initializing the backend...",
		"[vpc] Plan: 1 to add, 0 to change, 0 to destroy.",
		"::endgroup::",
		"::group::app",
		"[app] Initializing the backend...",
		"untagged continuation line",
		"[app] Apply complete!",
		"::endgroup::",
		"::group::vpc",
		"[vpc] Releasing state lock.",
		"::endgroup::",
	}

	got := Fold(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fold() =\n%v\nwant\n%v", got, want)
	}
}

func TestFold_PrefixAttribute(t *testing.T) {
	in := []string{
		`level=info prefix=[stage/db] msg="Initializing"`,
		`level=info prefix=[stage/db] msg="Plan complete"`,
		`level=info prefix=[stage/web] msg="Initializing"`,
	}

	got := Fold(in)
	if got[0] != "::group::stage/db" {
		t.Errorf("first line = %q, want ::group::stage/db", got[0])
	}
	if got[3] != "::endgroup::" || got[4] != "::group::stage/web" {
		t.Errorf("transition lines = %q, %q", got[3], got[4])
	}
}

func TestFold_EmitsRawLines(t *testing.T) {
	raw := "2024-01-01T00:00:00Z \x1b[32m[vpc] created\x1b[0m"
	got := Fold([]string{raw})

	want := []string{"::group::vpc", raw, "::endgroup::"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fold() = %v, want %v", got, want)
	}
}

func TestFold_NoUnits(t *testing.T) {
	in := []string{"plain line", "another plain line"}
	got := Fold(in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("Fold() = %v, want input unchanged", got)
	}
}

func TestFold_Empty(t *testing.T) {
	if got := Fold(nil); len(got) != 0 {
		t.Errorf("Fold(nil) = %v, want empty", got)
	}
}

func TestFold_Balanced(t *testing.T) {
	in := []string{
		"[a] one",
		"[b] two",
		"plain",
		"[a] back",
		"[a] still",
	}
	opens, closes := 0, 0
	for _, line := range Fold(in) {
		switch {
		case len(line) > 9 && line[:9] == "::group::":
			opens++
		case line == "::endgroup::":
			closes++
		}
	}
	if opens != closes {
		t.Errorf("unbalanced groups: %d opens, %d closes", opens, closes)
	}
	if opens != 3 {
		t.Errorf("opens = %d, want 3", opens)
	}
}
