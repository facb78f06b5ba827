package plan

import (
	"regexp"
	"strings"
)

// ModulePlaceholder replaces a module address inside extracted change
// lines, so identical per-module diffs render as one template.
const ModulePlaceholder = "{module}"

// deepIndentRE matches runs of six or more leading whitespace characters;
// they collapse to one fixed depth so deeply nested attributes stay
// readable in narrow output.
var deepIndentRE = regexp.MustCompile(`^[ \t]{6,}`)

// ExtractChanges returns the cleaned change lines of the diff block for
// the given resource address, or nothing when the address has no block in
// the text. The block is bounded heuristically: scanning stops at the next
// resource header or when brace counting walks past the block's own
// closing brace. Counting braces is deliberate; this never parses HCL.
//
// When placeholderModule is non-empty, every literal occurrence of it in a
// kept line is replaced with "{module}".
func ExtractChanges(lines []string, address, placeholderModule string) []string {
	start := -1
	for i, raw := range lines {
		if isHeaderFor(Normalize(raw), address) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	// A reason annotation directly under the header is not diff content.
	if start < len(lines) {
		t := strings.TrimSpace(Normalize(lines[start]))
		if strings.HasPrefix(t, "# (because") || strings.HasPrefix(t, "# (moved from") {
			start++
		}
	}

	var changes []string
	depth := 0
	for _, raw := range lines[start:] {
		line := Normalize(raw)
		if isHeader(line) && !strings.Contains(line, address) {
			break
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			break
		}
		if !isChangeLine(line) {
			continue
		}
		if placeholderModule != "" {
			line = strings.ReplaceAll(line, placeholderModule, ModulePlaceholder)
		}
		changes = append(changes, deepIndentRE.ReplaceAllString(line, "      "))
	}
	return changes
}

// isHeaderFor reports whether the normalized line is the diff header for
// exactly the given address: "# <address> will be ..." or "must be ...",
// with nothing but a space (or an annotation) between address and phrase.
func isHeaderFor(line, address string) bool {
	body, ok := headerBody(line)
	if !ok || !strings.HasPrefix(body, address) {
		return false
	}
	tail := body[len(address):]
	if tail != "" && !strings.HasPrefix(tail, " ") {
		return false
	}
	return hasActionPhrase(tail)
}

// isHeader reports whether the line has the header shape for any address.
func isHeader(line string) bool {
	body, ok := headerBody(line)
	return ok && hasActionPhrase(body)
}

// headerBody returns the trimmed text after the "#" marker of a comment
// line.
func headerBody(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(t, "#")), true
}

func hasActionPhrase(s string) bool {
	return strings.Contains(s, "will be") || strings.Contains(s, "must be")
}

// isChangeLine keeps diff content: +/-/~ prefixed lines, value
// transitions ("old -> new"), and bare attribute assignments (HCL always
// pads the equals sign). Blank and comment-only lines are dropped.
func isChangeLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" || strings.HasPrefix(t, "#") {
		return false
	}
	switch t[0] {
	case '+', '-', '~':
		return true
	}
	return strings.Contains(line, "->") || strings.Contains(line, " = ")
}
