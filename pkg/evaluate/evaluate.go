// Package evaluate runs a message against every rule of a ruleset snapshot in
// parallel, isolating individual check failures from the rest of the batch.
package evaluate

import (
	"context"
	"fmt"
	"sync"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/ruleset"
)

// DefaultMaxParallel bounds concurrent rule checks per evaluation.
const DefaultMaxParallel = 16

// CheckFailure records one rule whose check capability failed (as opposed to
// returning a verdict). The rule is treated as unknown for the message, never
// as violated.
type CheckFailure struct {
	RuleID string
	Err    error
}

func (f CheckFailure) Error() string {
	return fmt.Sprintf("rule %s: check failed: %v", f.RuleID, f.Err)
}

func (f CheckFailure) Unwrap() error { return f.Err }

// Outcome is the verdict for one message against one ruleset snapshot.
type Outcome struct {
	// Violated holds the ids of rules the message broke, in check-completion
	// order.
	Violated []string

	// Failures holds the rules whose checks errored. They are excluded from
	// Violated and reported so callers can log them.
	Failures []CheckFailure
}

// Clean reports whether the message violated no rule.
func (o Outcome) Clean() bool { return len(o.Violated) == 0 }

// Evaluator fans a message out to the checks of a ruleset snapshot.
type Evaluator struct {
	cat         *catalog.Catalog
	maxParallel int
}

// New builds an evaluator over the given catalog. maxParallel bounds the
// number of checks in flight at once; values < 1 fall back to
// DefaultMaxParallel.
func New(cat *catalog.Catalog, maxParallel int) *Evaluator {
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	return &Evaluator{cat: cat, maxParallel: maxParallel}
}

// Evaluate checks msg against every rule in snapshot and returns the outcome.
// The snapshot is captured by the caller and never re-read here, so a ruleset
// change elsewhere cannot alter an evaluation already in flight.
//
// Each rule's check runs in its own goroutine so a slow or remote capability
// cannot delay the others. The call returns only once every check has
// completed. A check returning an error is isolated to its rule: it lands in
// Outcome.Failures and the remaining checks proceed. No timeout is imposed
// here; timeout policy belongs to the capability itself.
func (e *Evaluator) Evaluate(ctx context.Context, msg catalog.Message, snapshot ruleset.Set) (Outcome, error) {
	ids := snapshot.IDs()
	if len(ids) == 0 {
		return Outcome{}, ctx.Err()
	}

	type checkResult struct {
		id       string
		violated bool
		err      error
	}

	results := make(chan checkResult, len(ids))
	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup

	for _, id := range ids {
		rule, err := e.cat.Rule(id)
		if err != nil {
			// A snapshot id missing from the catalog cannot be checked.
			// Record it as a failure rather than guessing a verdict.
			results <- checkResult{id: id, err: err}
			continue
		}

		wg.Add(1)
		go func(id string, r *catalog.Rule) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ok, err := r.Check(ctx, msg)
			results <- checkResult{id: id, violated: !ok, err: err}
		}(id, rule)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var out Outcome
	for r := range results {
		if r.err != nil {
			out.Failures = append(out.Failures, CheckFailure{RuleID: r.id, Err: r.err})
			continue
		}
		if r.violated {
			out.Violated = append(out.Violated, r.id)
		}
	}

	return out, ctx.Err()
}
