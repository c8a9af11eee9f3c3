// Package controller owns the engine state of the game: the active ruleset,
// the violation history accumulated since the last change, and the change
// clock. Every mutation runs under one mutex, so concurrent message arrivals
// can never interleave two decision procedures over the same prior ruleset.
package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/random"
	"github.com/Mindburn-Labs/gauntlet/pkg/ruleset"
	"github.com/Mindburn-Labs/gauntlet/pkg/search"
)

type errorString string

func (e errorString) Error() string { return string(e) }

// ErrNotInitialized is returned by operations that need an active ruleset
// before Initialize has installed one.
var ErrNotInitialized = errorString("controller: not initialized")

// ErrAlreadyInitialized is returned by a second Initialize call.
var ErrAlreadyInitialized = errorString("controller: already initialized")

// Change reasons, carried verbatim into announcements.
const (
	ReasonTooLongSinceChange = "stale: too long since last change"
	ReasonTooManyMessages    = "stale: too many messages since last change"
	ReasonPlayersStruggling  = "players struggling: easing the rules"
	ReasonPlayersCruising    = "players cruising: raising the bar"
	ReasonRandomReset        = "random reset"
	ReasonOperator           = "operator rotation"
)

// Change describes one ruleset replacement. Prior* fields capture the episode
// that just closed, for archiving.
type Change struct {
	Reason      string
	At          time.Time
	Set         ruleset.Set
	Difficulty  int
	Fingerprint string

	PriorSet         ruleset.Set
	PriorFingerprint string
	PriorRecords     []Record
}

// Controller holds the engine state and applies the adaptive decision
// procedure. Construct with New, install the first ruleset with Initialize.
type Controller struct {
	cat    *catalog.Catalog
	val    *ruleset.Validator
	scorer *ruleset.Scorer
	search *search.Search
	clock  Clock
	rng    random.Source
	cfg    Config

	mu          sync.Mutex
	initialized bool
	active      ruleset.Set
	window      window
	lastChange  time.Time
}

// New builds a controller over cat with the given tunables. A nil clock
// falls back to the wall clock; a nil rng falls back to a system-seeded
// deterministic source.
func New(cat *catalog.Catalog, cfg Config, clock Clock, rng random.Source) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("controller config: %w", err)
	}
	if clock == nil {
		clock = wallClock{}
	}
	if rng == nil {
		rng = random.NewSystem()
	}

	val := ruleset.NewValidator(cat)
	scorer := ruleset.NewScorer(cat)
	return &Controller{
		cat:    cat,
		val:    val,
		scorer: scorer,
		search: search.New(cat, val, scorer, rng),
		clock:  clock,
		rng:    rng,
		cfg:    cfg,
	}, nil
}

// Initialize produces and installs the first active ruleset. target <= 0
// falls back to the configured initial difficulty. A catalog from which no
// nonempty valid ruleset is reachable surfaces search.ErrSearchExhausted;
// that is a fatal misconfiguration for callers.
func (c *Controller) Initialize(target int) (ruleset.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil, ErrAlreadyInitialized
	}
	if target <= 0 {
		target = c.cfg.InitialDifficulty
	}

	set, err := c.search.RandomValid(target)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	c.active = set
	c.window.clear()
	c.lastChange = c.clock.Now()
	c.initialized = true
	return set.Clone(), nil
}

// Snapshot returns a copy of the active ruleset for an evaluation to run
// against. In-flight evaluations keep their snapshot even if the active
// ruleset changes before they complete.
func (c *Controller) Snapshot() (ruleset.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}
	return c.active.Clone(), nil
}

// RecordAndMaybeChange appends one message outcome to the history window and
// then runs the decision procedure. Recording alone never replaces the
// ruleset. A nil Change means no decision.
func (c *Controller) RecordAndMaybeChange(violated []string, now time.Time) (*Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}

	rec := Record{At: now}
	if len(violated) > 0 {
		rec.Violated = append([]string(nil), violated...)
	}
	c.window.append(rec)

	return c.decide(now)
}

// Tick runs the decision procedure without recording anything, for periodic
// invocation while the channel is quiet.
func (c *Controller) Tick(now time.Time) (*Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}
	return c.decide(now)
}

// Rotate forces a full regeneration regardless of intervals and history, for
// operator use. An empty reason falls back to ReasonOperator.
func (c *Controller) Rotate(reason string, now time.Time) (*Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if reason == "" {
		reason = ReasonOperator
	}
	return c.regenerate(reason, now)
}

// decide applies the decision procedure. Callers hold c.mu.
//
// The order is fixed: interval gates first, then sample-size gates, then the
// probability-gated ratio adjustment, then the probability-gated full reset.
// Exactly one branch runs per invocation.
func (c *Controller) decide(now time.Time) (*Change, error) {
	elapsed := now.Sub(c.lastChange)

	if elapsed < c.cfg.MinInterval {
		return nil, nil
	}
	if elapsed > c.cfg.MaxInterval {
		return c.regenerate(ReasonTooLongSinceChange, now)
	}
	if c.window.len() < c.cfg.MinSampleSize {
		return nil, nil
	}
	if c.window.len() > c.cfg.MaxSampleSize {
		return c.regenerate(ReasonTooManyMessages, now)
	}

	if c.rng.Float64() < c.cfg.ChangeProbability {
		ratio := c.window.failRatio()
		switch {
		case ratio > c.cfg.MaxFailRatio:
			return c.adjust(ReasonPlayersStruggling, now, c.search.NearestEasier)
		case ratio < c.cfg.MinFailRatio:
			return c.adjust(ReasonPlayersCruising, now, c.search.NearestHarder)
		default:
			return nil, nil
		}
	}

	if c.rng.Float64() < c.cfg.FullResetProbability {
		return c.regenerate(ReasonRandomReset, now)
	}

	return nil, nil
}

// adjust tries a directed neighbor and falls back to full regeneration when
// the neighbor search misses. Callers hold c.mu.
func (c *Controller) adjust(reason string, now time.Time, neighbor func(ruleset.Set) search.Result) (*Change, error) {
	res := neighbor(c.active)
	if !res.Success {
		return c.regenerate(reason, now)
	}
	return c.install(reason, res.Set, now), nil
}

// regenerate replaces the active ruleset with a fresh construction targeting
// the midpoint of the initial and current difficulty. On search exhaustion
// the previous ruleset stays in place and the error surfaces. Callers hold
// c.mu.
func (c *Controller) regenerate(reason string, now time.Time) (*Change, error) {
	target := (c.cfg.InitialDifficulty + c.scorer.Difficulty(c.active)) / 2
	set, err := c.search.RandomValid(target)
	if err != nil {
		return nil, fmt.Errorf("regenerate (%s): %w", reason, err)
	}
	return c.install(reason, set, now), nil
}

// install atomically swaps the active ruleset, clears the window, and resets
// the change clock. Callers hold c.mu.
func (c *Controller) install(reason string, set ruleset.Set, now time.Time) *Change {
	change := &Change{
		Reason:      reason,
		At:          now,
		Set:         set.Clone(),
		Difficulty:  c.scorer.Difficulty(set),
		Fingerprint: ruleset.Fingerprint(set),

		PriorSet:         c.active,
		PriorFingerprint: ruleset.Fingerprint(c.active),
		PriorRecords:     c.window.snapshot(),
	}

	c.active = set
	c.window.clear()
	c.lastChange = now
	return change
}
