package plan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tfdigest/tfdigest/pkg/models"
)

// moduleRE captures the top-level module prefix of a resource address,
// index included: module.net, module.net[0], module.net["blue"].
var moduleRE = regexp.MustCompile(`^module\.[A-Za-z0-9_]+(?:\[[^\]]+\])?`)

// ModuleOf returns the top-level module address of a resource address.
// Root-module resources (no module. prefix) report false.
func ModuleOf(address string) (string, bool) {
	m := moduleRE.FindString(address)
	return m, m != ""
}

// GroupModules partitions the touched top-level modules by change
// signature: modules whose per-bucket counts are equal form one group, and
// the lexicographically first member represents it. Groups come back in
// order of first appearance when modules are walked in sorted address
// order, so output is deterministic. A group of size 1 is valid.
func GroupModules(c models.Classification) []models.ModuleGroup {
	touched := make(map[string]bool)
	for _, a := range models.Actions() {
		for _, addr := range c.ForAction(a) {
			if m, ok := ModuleOf(addr); ok {
				touched[m] = true
			}
		}
	}
	if len(touched) == 0 {
		return nil
	}

	modules := make([]string, 0, len(touched))
	for m := range touched {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	var groups []models.ModuleGroup
	index := make(map[models.ModuleSignature]int)
	for _, m := range modules {
		sig := signatureOf(c, m)
		i, ok := index[sig]
		if !ok {
			i = len(groups)
			index[sig] = i
			groups = append(groups, models.ModuleGroup{Signature: sig, Representative: m})
		}
		groups[i].Modules = append(groups[i].Modules, m)
	}
	return groups
}

// signatureOf counts the classified addresses nested under the module,
// directly or transitively.
func signatureOf(c models.Classification, module string) models.ModuleSignature {
	prefix := module + "."
	count := func(bucket []string) int {
		n := 0
		for _, addr := range bucket {
			if strings.HasPrefix(addr, prefix) {
				n++
			}
		}
		return n
	}
	return models.ModuleSignature{
		Created:   count(c.Created),
		Changed:   count(c.Changed),
		Replaced:  count(c.Replaced),
		Destroyed: count(c.Destroyed),
		Moved:     count(c.Moved),
	}
}
