// Package ruleset defines the rule subsets the moderator enforces and the
// pure functions over them: conflict validity, additive difficulty, and a
// canonical fingerprint. Sets are values; nothing here mutates shared state.
package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
)

// Set is an unordered collection of rule ids.
type Set map[string]struct{}

// From builds a Set from ids.
func From(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the member count.
func (s Set) Len() int { return len(s) }

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// With returns a copy with id added.
func (s Set) With(id string) Set {
	out := s.Clone()
	out[id] = struct{}{}
	return out
}

// Without returns a copy with id removed.
func (s Set) Without(id string) Set {
	out := s.Clone()
	delete(out, id)
	return out
}

// IDs returns the members in sorted order.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// String renders the set for logs and announcements.
func (s Set) String() string {
	return "{" + strings.Join(s.IDs(), ", ") + "}"
}

// Validator decides whether a set is conflict-free against a catalog.
type Validator struct {
	cat *catalog.Catalog
}

// NewValidator binds a validator to cat.
func NewValidator(cat *catalog.Catalog) *Validator {
	return &Validator{cat: cat}
}

// IsValid reports whether no two members of s appear in each other's conflict
// sets. Ids absent from the catalog make the set invalid: they cannot be
// proven conflict-free. Pure and deterministic.
func (v *Validator) IsValid(s Set) bool {
	for id := range s {
		r, err := v.cat.Rule(id)
		if err != nil {
			return false
		}
		for conflict := range r.Conflicts {
			if s.Has(conflict) {
				return false
			}
		}
	}
	return true
}

// Scorer computes the additive difficulty of a set.
type Scorer struct {
	cat *catalog.Catalog
}

// NewScorer binds a scorer to cat.
func NewScorer(cat *catalog.Catalog) *Scorer {
	return &Scorer{cat: cat}
}

// Difficulty sums member weights; 0 for the empty set. Monotonic in set
// inclusion since catalog weights are always >= 1. Ids absent from the
// catalog contribute nothing.
func (sc *Scorer) Difficulty(s Set) int {
	total := 0
	for id := range s {
		if r, err := sc.cat.Rule(id); err == nil {
			total += r.Weight
		}
	}
	return total
}

// Fingerprint returns a canonical content address for a set:
// SHA-256 over the RFC 8785 form of the sorted id list, as "sha256:<hex>".
// Announcements and archives identify rulesets by fingerprint without
// shipping the members. A sorted string list always canonicalizes, so the
// encoding errors are unreachable.
func Fingerprint(s Set) string {
	data, _ := json.Marshal(s.IDs())
	canonical, err := jcs.Transform(data)
	if err != nil {
		canonical = data
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:])
}
