package models

import (
	"sort"
	"time"
)

// Action represents the kind of change a plan announces for a resource.
type Action string

// Action constants for plan resource headers.
const (
	ActionCreated   Action = "created"
	ActionChanged   Action = "changed"
	ActionReplaced  Action = "replaced"
	ActionDestroyed Action = "destroyed"
	ActionMoved     Action = "moved"
)

// Actions returns all actions in canonical order.
func Actions() []Action {
	return []Action{ActionCreated, ActionChanged, ActionReplaced, ActionDestroyed, ActionMoved}
}

// Classification holds resource addresses bucketed by action. Each bucket
// is deduplicated and sorted ascending. A moved resource may also appear
// in one of the other buckets; the other four are mutually exclusive.
type Classification struct {
	Created   []string `json:"created" yaml:"created"`
	Changed   []string `json:"changed" yaml:"changed"`
	Replaced  []string `json:"replaced" yaml:"replaced"`
	Destroyed []string `json:"destroyed" yaml:"destroyed"`
	Moved     []string `json:"moved" yaml:"moved"`
}

// ForAction returns the bucket for the given action.
func (c *Classification) ForAction(a Action) []string {
	switch a {
	case ActionCreated:
		return c.Created
	case ActionChanged:
		return c.Changed
	case ActionReplaced:
		return c.Replaced
	case ActionDestroyed:
		return c.Destroyed
	case ActionMoved:
		return c.Moved
	}
	return nil
}

// Count returns the size of the bucket for the given action.
func (c *Classification) Count(a Action) int {
	return len(c.ForAction(a))
}

// All returns every classified address, deduplicated and sorted ascending.
func (c *Classification) All() []string {
	seen := make(map[string]bool)
	var all []string
	for _, a := range Actions() {
		for _, addr := range c.ForAction(a) {
			if !seen[addr] {
				seen[addr] = true
				all = append(all, addr)
			}
		}
	}
	sort.Strings(all)
	return all
}

// Summary holds the counts from the plan summary line. Add, Change and
// Destroy come from the line itself; Replace and Move are filled from the
// classification since the summary line does not carry them.
type Summary struct {
	Add     int `json:"add" yaml:"add"`
	Change  int `json:"change" yaml:"change"`
	Destroy int `json:"destroy" yaml:"destroy"`
	Replace int `json:"replace" yaml:"replace"`
	Move    int `json:"move" yaml:"move"`
}

// ModuleSignature is the per-module count of addresses in each action
// bucket. Modules with equal signatures are grouped together; the counts
// alone are the grouping key.
type ModuleSignature struct {
	Created   int `json:"created" yaml:"created"`
	Changed   int `json:"changed" yaml:"changed"`
	Replaced  int `json:"replaced" yaml:"replaced"`
	Destroyed int `json:"destroyed" yaml:"destroyed"`
	Moved     int `json:"moved" yaml:"moved"`
}

// Total returns the number of classified addresses under the module.
func (s ModuleSignature) Total() int {
	return s.Created + s.Changed + s.Replaced + s.Destroyed + s.Moved
}

// ModuleGroup is a set of top-level modules sharing one change signature.
type ModuleGroup struct {
	Signature      ModuleSignature `json:"signature" yaml:"signature"`
	Modules        []string        `json:"modules" yaml:"modules"`
	Representative string          `json:"representative" yaml:"representative"`
}

// Digest is the full analysis of one plan log.
type Digest struct {
	Source     string         `json:"source" yaml:"source"`
	AnalyzedAt time.Time      `json:"analyzed_at" yaml:"analyzed_at"`
	Summary    Summary        `json:"summary" yaml:"summary"`
	Changes    Classification `json:"changes" yaml:"changes"`
	Groups     []ModuleGroup  `json:"module_groups,omitempty" yaml:"module_groups,omitempty"`
}
