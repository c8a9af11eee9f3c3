//go:build property
// +build property

// Package search_test contains property-based tests for ruleset search determinism and validity.
package search_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/random"
	"github.com/Mindburn-Labs/gauntlet/pkg/ruleset"
	"github.com/Mindburn-Labs/gauntlet/pkg/search"
)

func propCatalog() *catalog.Catalog {
	pass := catalog.CheckFunc(func(context.Context, catalog.Message) (bool, error) { return true, nil })
	cat, err := catalog.New([]catalog.Definition{
		{ID: "a", Name: "A", Weight: 1, Check: pass},
		{ID: "b", Name: "B", Weight: 1, Check: pass},
		{ID: "c", Name: "C", Weight: 2, Check: pass},
		{ID: "d", Name: "D", Weight: 3, Check: pass},
		{ID: "e", Name: "E", Weight: 4, Check: pass},
		{ID: "f", Name: "F", Weight: 2, Check: pass},
	}, [][2]string{{"a", "b"}, {"c", "f"}, {"d", "e"}})
	if err != nil {
		panic(err)
	}
	return cat
}

func searchFromSeed(cat *catalog.Catalog, seed int64) *search.Search {
	raw := make([]byte, random.SeedSize)
	binary.BigEndian.PutUint64(raw, uint64(seed))
	src, err := random.NewDeterministic(raw)
	if err != nil {
		panic(err)
	}
	return search.New(cat, ruleset.NewValidator(cat), ruleset.NewScorer(cat), src)
}

// TestRandomValidAlwaysValid verifies constructed rulesets never carry conflicts.
// Property: IsValid(RandomValid(target)) for any seed and target
func TestRandomValidAlwaysValid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cat := propCatalog()
	val := ruleset.NewValidator(cat)

	properties.Property("Random construction always yields a valid ruleset", prop.ForAll(
		func(seed int64, target int) bool {
			s := searchFromSeed(cat, seed)
			set, err := s.RandomValid(target)
			if err != nil {
				// Exhaustion is a legal outcome; an invalid success is not.
				return true
			}
			return val.IsValid(set)
		},
		gen.Int64(),
		gen.IntRange(1, 13),
	))

	properties.TestingRun(t)
}

// TestMutateAlwaysValid verifies mutation preserves validity.
// Property: IsValid(Mutate(set, k)) whenever Mutate succeeds
func TestMutateAlwaysValid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cat := propCatalog()
	val := ruleset.NewValidator(cat)

	properties.Property("Mutation always yields a valid ruleset", prop.ForAll(
		func(seed int64, target, toggles int) bool {
			s := searchFromSeed(cat, seed)
			set, err := s.RandomValid(target)
			if err != nil {
				return true
			}
			next, err := s.Mutate(set, toggles)
			if err != nil {
				return true
			}
			return val.IsValid(next)
		},
		gen.Int64(),
		gen.IntRange(1, 8),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// TestSearchDeterminism verifies identical seeds replay identical searches.
// Property: RandomValid with seed s == RandomValid with seed s
func TestSearchDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cat := propCatalog()

	properties.Property("Search replays byte for byte from the seed", prop.ForAll(
		func(seed int64, target int) bool {
			s1 := searchFromSeed(cat, seed)
			s2 := searchFromSeed(cat, seed)

			set1, err1 := s1.RandomValid(target)
			set2, err2 := s2.RandomValid(target)
			if (err1 == nil) != (err2 == nil) {
				return false
			}
			if err1 != nil {
				return true
			}
			return set1.Equal(set2)
		},
		gen.Int64(),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

// TestNeighborDirection verifies directed neighbor search moves difficulty the right way.
// Property: success of NearestEasier implies strictly lower difficulty, and
// success of NearestHarder implies strictly higher difficulty
func TestNeighborDirection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cat := propCatalog()
	val := ruleset.NewValidator(cat)
	scorer := ruleset.NewScorer(cat)

	properties.Property("Neighbor search respects its direction", prop.ForAll(
		func(seed int64, target int) bool {
			s := searchFromSeed(cat, seed)
			set, err := s.RandomValid(target)
			if err != nil {
				return true
			}
			base := scorer.Difficulty(set)

			easier := s.NearestEasier(set)
			if easier.Success {
				if !val.IsValid(easier.Set) || scorer.Difficulty(easier.Set) >= base {
					return false
				}
			} else if !easier.Set.Equal(set) {
				return false
			}

			harder := s.NearestHarder(set)
			if harder.Success {
				if !val.IsValid(harder.Set) || scorer.Difficulty(harder.Set) <= base {
					return false
				}
			} else if !harder.Set.Equal(set) {
				return false
			}

			return true
		},
		gen.Int64(),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

// TestDifficultyAdditivity verifies difficulty is the sum of member weights.
// Property: Difficulty(set) == sum(weight(id) for id in set)
func TestDifficultyAdditivity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cat := propCatalog()
	scorer := ruleset.NewScorer(cat)

	properties.Property("Difficulty sums member weights", prop.ForAll(
		func(seed int64, target int) bool {
			s := searchFromSeed(cat, seed)
			set, err := s.RandomValid(target)
			if err != nil {
				return true
			}

			total := 0
			for _, id := range set.IDs() {
				rule, err := cat.Rule(id)
				if err != nil {
					return false
				}
				total += rule.Weight
			}
			return scorer.Difficulty(set) == total
		},
		gen.Int64(),
		gen.IntRange(1, 13),
	))

	properties.TestingRun(t)
}
