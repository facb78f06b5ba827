package plan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tfdigest/tfdigest/pkg/models"
)

// summaryRE matches the plan summary line. Newer Terraform may prepend an
// import count ("Plan: 1 to import, 3 to add, ..."); the lazy prefix skips
// it.
var summaryRE = regexp.MustCompile(`Plan:.*?(\d+) to add, (\d+) to change, (\d+) to destroy`)

// ParseSummary finds the plan summary line among the given lines and
// parses its counts. A "No changes." line counts as an all-zero summary.
// When several summary lines appear (concatenated CI logs) the last one
// wins. The second return is false when no summary line was found; counts
// then stay zero, which is not an error.
//
// The summary line carries no replace or move counts; callers fill those
// from the classification.
func ParseSummary(lines []string) (models.Summary, bool) {
	var sum models.Summary
	found := false
	for _, raw := range lines {
		line := Normalize(raw)
		if m := summaryRE.FindStringSubmatch(line); m != nil {
			sum = models.Summary{
				Add:     atoi(m[1]),
				Change:  atoi(m[2]),
				Destroy: atoi(m[3]),
			}
			found = true
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "No changes.") {
			sum = models.Summary{}
			found = true
		}
	}
	return sum, found
}

// atoi converts regex-captured digits; the pattern guarantees a valid int.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
