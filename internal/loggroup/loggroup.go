// Package loggroup re-sections Terragrunt run-all output into collapsible
// CI log groups keyed by unit.
package loggroup

import (
	"regexp"

	"github.com/tfdigest/tfdigest/internal/plan"
)

var (
	leadingUnitRE = regexp.MustCompile(`^\[([^\[\]]+)\]`)
	prefixAttrRE  = regexp.MustCompile(`prefix=\[([^\[\]]+)\]`)
)

// UnitOf reports which unit a log line belongs to. Detection runs on the
// normalized line: a leading [unit] tag, or a prefix=[unit] attribute
// anywhere in the line.
func UnitOf(line string) (string, bool) {
	clean := plan.Normalize(line)
	if m := leadingUnitRE.FindStringSubmatch(clean); m != nil {
		return m[1], true
	}
	if m := prefixAttrRE.FindStringSubmatch(clean); m != nil {
		return m[1], true
	}
	return "", false
}

// folder holds the fold state: the unit of the currently open group and
// the rewritten output so far.
type folder struct {
	current string
	open    bool
	out     []string
}

func (f *folder) emit(line string) {
	f.out = append(f.out, line)
}

func (f *folder) openGroup(unit string) {
	f.out = append(f.out, "::group::"+unit)
	f.current = unit
	f.open = true
}

func (f *folder) closeGroup() {
	if f.open {
		f.out = append(f.out, "::endgroup::")
		f.open = false
	}
}

// Fold rewrites raw log lines into grouped output. A unit transition
// closes the open group and opens a new one named after the unit;
// untagged lines stay in whatever group is open; the final group is
// closed at end of input. Lines pass through verbatim, only the
// ::group::/::endgroup:: markers are added.
func Fold(lines []string) []string {
	f := &folder{out: make([]string, 0, len(lines))}
	for _, line := range lines {
		if unit, ok := UnitOf(line); ok && (!f.open || unit != f.current) {
			f.closeGroup()
			f.openGroup(unit)
		}
		f.emit(line)
	}
	f.closeGroup()
	return f.out
}
