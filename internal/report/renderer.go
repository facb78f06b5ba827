// Package report renders a plan digest for humans and machines: a styled
// text report, JSON and YAML encodings, and DOT/Mermaid graph exports.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tfdigest/tfdigest/internal/plan"
	"github.com/tfdigest/tfdigest/pkg/models"
)

// Options control which sections the text report carries.
type Options struct {
	// Limit bounds the categorized address lists: negative hides the
	// lists, zero shows everything, N shows the first N entries plus a
	// "... and K more" line.
	Limit int
	// GroupModules adds the module group section.
	GroupModules bool
	// Detail adds per-resource change blocks extracted from the plan text.
	Detail bool
	// Alphabetical adds a merged ascending listing of every address.
	Alphabetical bool
	// Color enables terminal styling; disabled output is plain bytes.
	Color bool
}

// Renderer writes the human-readable digest report.
type Renderer struct {
	opts Options
}

// New creates a Renderer with the given options.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Render returns the text report for a digest. The raw plan lines are
// consulted only when Detail is set; passing nil renders addresses
// without change blocks.
func (r *Renderer) Render(d *models.Digest, lines []string) string {
	var b strings.Builder

	r.writeHeader(&b, d)
	r.writeCounts(&b, d)
	if r.opts.Limit >= 0 {
		r.writeCategorized(&b, d, lines)
	}
	if r.opts.Alphabetical {
		r.writeAlphabetical(&b, d)
	}
	if r.opts.GroupModules {
		r.writeGroups(&b, d, lines)
	}

	return b.String()
}

func (r *Renderer) writeHeader(b *strings.Builder, d *models.Digest) {
	title := "Plan digest"
	if d.Source != "" {
		title += ": " + d.Source
	}
	fmt.Fprintln(b, r.paint(styleHeading, title))
}

func (r *Renderer) writeCounts(b *strings.Builder, d *models.Digest) {
	fmt.Fprintf(b, "%d to add, %d to change, %d to destroy\n\n",
		d.Summary.Add, d.Summary.Change, d.Summary.Destroy)
	for _, a := range models.Actions() {
		label := fmt.Sprintf("%-10s", string(a))
		fmt.Fprintf(b, "  %s %d\n", r.paint(actionStyle(a), label), d.Changes.Count(a))
	}
	b.WriteString("\n")
}

func (r *Renderer) writeCategorized(b *strings.Builder, d *models.Digest, lines []string) {
	for _, a := range models.Actions() {
		addrs := d.Changes.ForAction(a)
		if len(addrs) == 0 {
			continue
		}
		heading := fmt.Sprintf("%s (%d):", titleFor(a), len(addrs))
		fmt.Fprintln(b, r.paint(styleHeading, heading))

		shown, hidden := truncate(addrs, r.opts.Limit)
		for _, addr := range shown {
			r.writeAddr(b, a, addr)
			if r.opts.Detail {
				r.writeDetail(b, lines, addr, "")
			}
		}
		if hidden > 0 {
			fmt.Fprintf(b, "  %s\n", r.paint(styleDim, fmt.Sprintf("... and %d more", hidden)))
		}
		b.WriteString("\n")
	}
}

func (r *Renderer) writeAlphabetical(b *strings.Builder, d *models.Digest) {
	all := d.Changes.All()
	if len(all) == 0 {
		return
	}
	heading := fmt.Sprintf("All resources (%d):", len(all))
	fmt.Fprintln(b, r.paint(styleHeading, heading))

	primary := primaryActions(d.Changes)
	shown, hidden := truncate(all, r.opts.Limit)
	for _, addr := range shown {
		r.writeAddr(b, primary[addr], addr)
	}
	if hidden > 0 {
		fmt.Fprintf(b, "  %s\n", r.paint(styleDim, fmt.Sprintf("... and %d more", hidden)))
	}
	b.WriteString("\n")
}

func (r *Renderer) writeGroups(b *strings.Builder, d *models.Digest, lines []string) {
	if len(d.Groups) == 0 {
		return
	}
	fmt.Fprintln(b, r.paint(styleHeading, "Module groups:"))

	num := 0
	for _, g := range d.Groups {
		if len(g.Modules) > 1 {
			num++
			fmt.Fprintf(b, "  %s %d modules, %s\n",
				r.paint(styleHeading, fmt.Sprintf("Group %d:", num)),
				len(g.Modules), signatureText(g.Signature))
			fmt.Fprintf(b, "    %s\n", strings.Join(g.Modules, ", "))
		} else {
			fmt.Fprintf(b, "  %s %s\n",
				r.paint(styleHeading, g.Representative+":"), signatureText(g.Signature))
		}
		r.writeGroupResources(b, d, g, lines)
	}
	b.WriteString("\n")
}

// writeGroupResources lists the representative's resources with the
// module prefix replaced by the placeholder, so one breakdown stands in
// for every member of the group.
func (r *Renderer) writeGroupResources(b *strings.Builder, d *models.Digest, g models.ModuleGroup, lines []string) {
	prefix := g.Representative + "."
	for _, a := range models.Actions() {
		for _, addr := range d.Changes.ForAction(a) {
			if !strings.HasPrefix(addr, prefix) {
				continue
			}
			display := plan.ModulePlaceholder + strings.TrimPrefix(addr, g.Representative)
			entry := fmt.Sprintf("%3s %s", actionMarker(a), display)
			fmt.Fprintf(b, "    %s\n", r.paint(actionStyle(a), entry))
			if r.opts.Detail {
				r.writeDetail(b, lines, addr, g.Representative)
			}
		}
	}
}

func (r *Renderer) writeAddr(b *strings.Builder, a models.Action, addr string) {
	entry := fmt.Sprintf("%3s %s", actionMarker(a), addr)
	fmt.Fprintf(b, "  %s\n", r.paint(actionStyle(a), entry))
}

func (r *Renderer) writeDetail(b *strings.Builder, lines []string, addr, placeholder string) {
	for _, cl := range plan.ExtractChanges(lines, addr, placeholder) {
		fmt.Fprintf(b, "    %s\n", cl)
	}
}

func (r *Renderer) paint(st lipgloss.Style, s string) string {
	if !r.opts.Color {
		return s
	}
	return st.Render(s)
}

// truncate applies the display limit: a positive limit returns the first
// limit items and how many were hidden.
func truncate(items []string, limit int) ([]string, int) {
	if limit <= 0 || len(items) <= limit {
		return items, 0
	}
	return items[:limit], len(items) - limit
}

// primaryActions maps each address to its action, preferring the
// exclusive buckets over Moved when a resource carries both.
func primaryActions(c models.Classification) map[string]models.Action {
	m := make(map[string]models.Action)
	for _, a := range models.Actions() {
		for _, addr := range c.ForAction(a) {
			if _, ok := m[addr]; !ok {
				m[addr] = a
			}
		}
	}
	return m
}

func titleFor(a models.Action) string {
	s := string(a)
	return strings.ToUpper(s[:1]) + s[1:]
}

// signatureText renders the non-zero counts of a module signature,
// e.g. "2 created, 1 destroyed".
func signatureText(s models.ModuleSignature) string {
	counts := []struct {
		n int
		a models.Action
	}{
		{s.Created, models.ActionCreated},
		{s.Changed, models.ActionChanged},
		{s.Replaced, models.ActionReplaced},
		{s.Destroyed, models.ActionDestroyed},
		{s.Moved, models.ActionMoved},
	}

	var parts []string
	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.a))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}
