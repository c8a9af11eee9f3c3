// Package catalog holds the immutable rule registry of the word game: every
// rule the moderator can enforce, its difficulty weight, its check capability,
// and the symmetric conflict relation between rules. The catalog is built once
// at startup and is read-only for the process lifetime.
package catalog

import (
	"context"
	"fmt"
	"sort"
)

type errorString string

func (e errorString) Error() string { return string(e) }

// ErrNotFound is returned when a rule id is not in the catalog.
var ErrNotFound = errorString("catalog: rule not found")

// ConfigError reports a catalog definition the engine cannot run with. It is
// fatal at startup and never recoverable at runtime.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "catalog: " + e.Reason }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Definition describes one rule before the catalog is built.
type Definition struct {
	ID          string
	Name        string
	Description string
	Weight      int
	Check       Checker
}

// Rule is a built catalog entry. Conflicts holds the ids this rule may never
// be simultaneously active with; the relation is symmetric after build.
type Rule struct {
	ID          string
	Name        string
	Description string
	Weight      int
	Conflicts   map[string]struct{}

	check Checker
}

// Check invokes the rule's capability against a message.
func (r *Rule) Check(ctx context.Context, msg Message) (bool, error) {
	return r.check.Check(ctx, msg)
}

// Catalog is the immutable registry of rules and conflicts.
type Catalog struct {
	rules map[string]*Rule
	ids   []string
}

// New builds a catalog from rule definitions and unordered conflict pairs.
// Conflict pairs are expanded symmetrically; a pair naming an id absent from
// the definitions is a ConfigError, never silently ignored.
func New(defs []Definition, pairs [][2]string) (*Catalog, error) {
	rules := make(map[string]*Rule, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return nil, configErrorf("rule with empty id")
		}
		if _, dup := rules[d.ID]; dup {
			return nil, configErrorf("duplicate rule id %q", d.ID)
		}
		if d.Weight < 1 {
			return nil, configErrorf("rule %q: weight %d, want >= 1", d.ID, d.Weight)
		}
		if d.Check == nil {
			return nil, configErrorf("rule %q: no check capability", d.ID)
		}
		rules[d.ID] = &Rule{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Weight:      d.Weight,
			Conflicts:   make(map[string]struct{}),
			check:       d.Check,
		}
	}

	for _, p := range pairs {
		a, ok := rules[p[0]]
		if !ok {
			return nil, configErrorf("conflict pair names unknown rule %q", p[0])
		}
		b, ok := rules[p[1]]
		if !ok {
			return nil, configErrorf("conflict pair names unknown rule %q", p[1])
		}
		if p[0] == p[1] {
			return nil, configErrorf("rule %q conflicts with itself", p[0])
		}
		a.Conflicts[b.ID] = struct{}{}
		b.Conflicts[a.ID] = struct{}{}
	}

	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Catalog{rules: rules, ids: ids}, nil
}

// Rule returns the rule for id, or ErrNotFound.
func (c *Catalog) Rule(id string) (*Rule, error) {
	r, ok := c.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return r, nil
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.rules[id]
	return ok
}

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// IDs returns all rule ids in sorted order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Rules returns all rules in id order.
func (c *Catalog) Rules() []*Rule {
	out := make([]*Rule, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.rules[id])
	}
	return out
}
