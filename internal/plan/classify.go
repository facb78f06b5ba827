package plan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tfdigest/tfdigest/pkg/models"
)

// headerMatch is the result of testing a line against the resource header
// patterns: the action the plan announces and the address it names.
type headerMatch struct {
	Action  models.Action
	Address string
}

// headerMatchers are tested in order and the first hit wins. Replaced
// comes before Changed so replacement wording never lands in the update
// bucket; the two rest on disjoint literals ("will be updated" vs
// "replaced"). Moved is not in this table: a moved resource may also
// carry one of these actions, so it is matched independently.
var headerMatchers = []struct {
	action models.Action
	re     *regexp.Regexp
}{
	{models.ActionReplaced, regexp.MustCompile(`(?:must be|will be) .*replaced`)},
	{models.ActionCreated, regexp.MustCompile(`will be created`)},
	{models.ActionChanged, regexp.MustCompile(`will be updated`)},
	{models.ActionDestroyed, regexp.MustCompile(`will be .*destroyed`)},
}

var movedRE = regexp.MustCompile(`has moved to`)

// becauseRE matches a destroy reason trailing the address, e.g.
// "(because aws_instance.a is not in configuration)".
var becauseRE = regexp.MustCompile(`\s*\(because .*\)$`)

// Classify buckets every resource header found in the plan lines. Lines
// are normalized first, so raw CI logs can be fed directly. Buckets come
// back deduplicated and sorted ascending; input line order never affects
// the result.
func Classify(lines []string) models.Classification {
	buckets := make(map[models.Action]map[string]bool)
	for _, raw := range lines {
		line := Normalize(raw)
		if m, ok := matchHeader(line); ok {
			addTo(buckets, m.Action, m.Address)
		}
		if addr, ok := matchMoved(line); ok {
			addTo(buckets, models.ActionMoved, addr)
		}
	}
	return models.Classification{
		Created:   sortedKeys(buckets[models.ActionCreated]),
		Changed:   sortedKeys(buckets[models.ActionChanged]),
		Replaced:  sortedKeys(buckets[models.ActionReplaced]),
		Destroyed: sortedKeys(buckets[models.ActionDestroyed]),
		Moved:     sortedKeys(buckets[models.ActionMoved]),
	}
}

// matchHeader tests a normalized line against the exclusive header
// patterns. The address is the text before the matched phrase; lines
// whose address comes out empty are discarded.
func matchHeader(line string) (headerMatch, bool) {
	for _, m := range headerMatchers {
		loc := m.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if addr := cleanAddress(line[:loc[0]], m.action); addr != "" {
			return headerMatch{Action: m.action, Address: addr}, true
		}
		return headerMatch{}, false
	}
	return headerMatch{}, false
}

// matchMoved extracts the old address from a "has moved to" line.
func matchMoved(line string) (string, bool) {
	loc := movedRE.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	addr := cleanAddress(line[:loc[0]], models.ActionMoved)
	return addr, addr != ""
}

// cleanAddress strips the "#" marker and surrounding whitespace from the
// text preceding an action phrase. Destroy headers may carry a reason
// annotation between address and phrase; it is stripped too.
func cleanAddress(prefix string, action models.Action) string {
	addr := strings.TrimSpace(prefix)
	addr = strings.TrimSpace(strings.TrimPrefix(addr, "#"))
	if action == models.ActionDestroyed {
		addr = strings.TrimSpace(becauseRE.ReplaceAllString(addr, ""))
	}
	return addr
}

func addTo(buckets map[models.Action]map[string]bool, a models.Action, addr string) {
	if buckets[a] == nil {
		buckets[a] = make(map[string]bool)
	}
	buckets[a][addr] = true
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
