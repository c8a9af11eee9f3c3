// Package search generates and perturbs valid rulesets: random construction
// toward a target difficulty, memoryless toggle mutation, and local search
// for a strictly easier or harder neighbor. All randomness comes from the
// injected source, so seeded runs replay identically.
package search

import (
	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/random"
	"github.com/Mindburn-Labs/gauntlet/pkg/ruleset"
)

type errorString string

func (e errorString) Error() string { return string(e) }

// ErrSearchExhausted means bounded retries of RandomValid all produced an
// empty set: no nonempty valid ruleset is reachable, which indicates a
// misconfigured catalog (or a nonpositive target).
var ErrSearchExhausted = errorString("search: no nonempty valid ruleset reachable")

// ErrMutationStuck means a toggle could not be accepted within the attempt
// bound; the catalog is too tightly constrained around the current set.
var ErrMutationStuck = errorString("search: toggle acceptance exhausted")

const (
	// randomValidAttempts bounds full-construction retries.
	randomValidAttempts = 10
	// toggleAttempts bounds re-picks for a single accepted toggle.
	toggleAttempts = 64
	// neighborCandidates is how many mutants NearestEasier/Harder consider.
	neighborCandidates = 15
	// neighborToggles is the mutation distance of each candidate.
	neighborToggles = 3
)

// Search runs ruleset construction and mutation over one catalog.
type Search struct {
	cat    *catalog.Catalog
	val    *ruleset.Validator
	scorer *ruleset.Scorer
	rng    random.Source
}

// New builds a Search. The random source is the only state; everything else
// is read-only.
func New(cat *catalog.Catalog, val *ruleset.Validator, scorer *ruleset.Scorer, rng random.Source) *Search {
	return &Search{cat: cat, val: val, scorer: scorer, rng: rng}
}

// AdmissibleAdditions returns, in sorted id order, the rules not in set whose
// addition keeps the set valid. This is the legal-move generator for
// construction.
func (s *Search) AdmissibleAdditions(set ruleset.Set) []string {
	var out []string
	for _, id := range s.cat.IDs() {
		if set.Has(id) {
			continue
		}
		if s.val.IsValid(set.With(id)) {
			out = append(out, id)
		}
	}
	return out
}

// RandomValid builds a fresh valid ruleset with difficulty at least target,
// stopping early when no admissible addition remains. Empty results are
// retried up to the attempt bound, then surfaced as ErrSearchExhausted.
func (s *Search) RandomValid(target int) (ruleset.Set, error) {
	for attempt := 0; attempt < randomValidAttempts; attempt++ {
		set := s.buildRandom(target)
		if set.Len() > 0 {
			return set, nil
		}
	}
	return nil, ErrSearchExhausted
}

func (s *Search) buildRandom(target int) ruleset.Set {
	set := ruleset.Set{}
	for s.scorer.Difficulty(set) < target {
		adds := s.AdmissibleAdditions(set)
		if len(adds) == 0 {
			break
		}
		id := adds[s.rng.Intn(len(adds))]
		set[id] = struct{}{}
	}
	return set
}

// Mutate applies k accepted toggles to a copy of set. Each toggle picks a
// uniformly random catalog rule and flips its membership; the flip is kept
// only if the result is valid, otherwise the attempt is discarded and
// re-picked from the pre-toggle set. Re-picks are bounded; exhausting them
// returns ErrMutationStuck.
func (s *Search) Mutate(set ruleset.Set, k int) (ruleset.Set, error) {
	ids := s.cat.IDs()
	if len(ids) == 0 {
		return nil, ErrMutationStuck
	}

	work := set.Clone()
	for toggle := 0; toggle < k; toggle++ {
		accepted := false
		for attempt := 0; attempt < toggleAttempts; attempt++ {
			id := ids[s.rng.Intn(len(ids))]
			var candidate ruleset.Set
			if work.Has(id) {
				candidate = work.Without(id)
			} else {
				candidate = work.With(id)
			}
			if s.val.IsValid(candidate) {
				work = candidate
				accepted = true
				break
			}
		}
		if !accepted {
			return nil, ErrMutationStuck
		}
	}
	return work, nil
}

// Result is the outcome of a neighbor search. Success false means no
// qualifying neighbor was found and Set is the unchanged input; callers
// treat that as a normal miss, not an error.
type Result struct {
	Success bool
	Set     ruleset.Set
}

// NearestEasier looks for a nearby valid ruleset with strictly lower
// difficulty, preferring the candidate closest to the current difficulty.
func (s *Search) NearestEasier(current ruleset.Set) Result {
	return s.nearest(current, true)
}

// NearestHarder is the strictly-higher counterpart of NearestEasier.
func (s *Search) NearestHarder(current ruleset.Set) Result {
	return s.nearest(current, false)
}

func (s *Search) nearest(current ruleset.Set, wantLower bool) Result {
	curDiff := s.scorer.Difficulty(current)
	best := Result{Success: false, Set: current}
	bestDist := 0

	for i := 0; i < neighborCandidates; i++ {
		cand, err := s.Mutate(current, neighborToggles)
		if err != nil {
			// A stuck candidate is a miss for this slot, not a failure of
			// the whole neighbor search.
			continue
		}
		d := s.scorer.Difficulty(cand)
		if wantLower && d >= curDiff {
			continue
		}
		if !wantLower && d <= curDiff {
			continue
		}
		dist := curDiff - d
		if dist < 0 {
			dist = -dist
		}
		if !best.Success || dist < bestDist {
			best = Result{Success: true, Set: cand}
			bestDist = dist
		}
	}
	return best
}
