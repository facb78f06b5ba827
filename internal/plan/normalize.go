// Package plan turns raw Terraform plan output, possibly decorated by CI
// log collectors, into classified resource changes. All functions here are
// pure text transforms; no HCL or JSON plan parsing is involved.
package plan

import (
	"regexp"
	"strings"
)

var (
	// timestampRE matches the ISO-8601 prefix CI collectors stamp on
	// every captured line, e.g. "2024-01-01T00:00:00.123456Z ".
	timestampRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z `)

	// ansiRE matches ANSI color sequences. The ESC byte may have been
	// lost in transport, leaving only the bracketed code ("[31m"); the
	// degraded form requires at least one digit to avoid eating plain
	// bracketed text.
	ansiRE = regexp.MustCompile(`(?:\x1b\[[0-9;]*|\[[0-9;]+)m`)
)

// Normalize strips CI decoration from a single plan line: a leading
// ISO-8601 timestamp and any ANSI color codes, wherever they appear.
// Stripping repeats until the line is stable, so a timestamp revealed by
// removing a color code is caught too and Normalize is idempotent.
func Normalize(line string) string {
	for {
		next := timestampRE.ReplaceAllString(line, "")
		next = ansiRE.ReplaceAllString(next, "")
		if next == line {
			return line
		}
		line = next
	}
}

// Lines splits plan text into lines, dropping trailing carriage returns
// so CRLF logs behave like LF ones.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
