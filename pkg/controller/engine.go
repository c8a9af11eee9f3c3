package controller

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/evaluate"
	"github.com/Mindburn-Labs/gauntlet/pkg/ruleset"
)

// RuleStatus is one catalog rule in a render-ready snapshot.
type RuleStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Weight      int    `json:"weight"`
	Active      bool   `json:"active"`
}

// Description is the render-ready snapshot consumed by announcements, the
// canvas, and the admin API. Rules covers the whole catalog with the active
// members marked.
type Description struct {
	Ruleset     []string     `json:"ruleset"`
	Rules       []RuleStatus `json:"rules"`
	Difficulty  int          `json:"difficulty"`
	Fingerprint string       `json:"fingerprint"`
	Since       time.Time    `json:"since"`
}

// Describe returns the render-ready snapshot of the current engine state.
func (c *Controller) Describe() (Description, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return Description{}, ErrNotInitialized
	}

	desc := Description{
		Ruleset:     c.active.IDs(),
		Difficulty:  c.scorer.Difficulty(c.active),
		Fingerprint: ruleset.Fingerprint(c.active),
		Since:       c.lastChange,
	}

	for _, id := range c.cat.IDs() {
		rule, err := c.cat.Rule(id)
		if err != nil {
			continue
		}
		desc.Rules = append(desc.Rules, RuleStatus{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Weight:      rule.Weight,
			Active:      c.active.Has(rule.ID),
		})
	}
	return desc, nil
}

// Engine is the moderator-facing facade: concurrent message evaluation in
// front, the serialized controller behind.
type Engine struct {
	eval *evaluate.Evaluator
	ctrl *Controller
}

// NewEngine wires an evaluator over cat to ctrl. maxParallel bounds
// concurrent rule checks per message; values < 1 use the evaluator default.
func NewEngine(cat *catalog.Catalog, ctrl *Controller, maxParallel int) *Engine {
	return &Engine{
		eval: evaluate.New(cat, maxParallel),
		ctrl: ctrl,
	}
}

// Initialize produces and installs the first active ruleset.
func (e *Engine) Initialize(target int) (ruleset.Set, error) {
	return e.ctrl.Initialize(target)
}

// EvaluateMessage checks msg against a snapshot of the active ruleset taken
// at call start. Individual check failures land in the outcome, not in err.
func (e *Engine) EvaluateMessage(ctx context.Context, msg catalog.Message) (evaluate.Outcome, error) {
	snapshot, err := e.ctrl.Snapshot()
	if err != nil {
		return evaluate.Outcome{}, err
	}
	return e.eval.Evaluate(ctx, msg, snapshot)
}

// RecordAndMaybeChange appends one outcome to the history and runs the
// decision procedure. A nil Change means the ruleset stands.
func (e *Engine) RecordAndMaybeChange(out evaluate.Outcome, now time.Time) (*Change, error) {
	return e.ctrl.RecordAndMaybeChange(out.Violated, now)
}

// Tick runs the decision procedure without recording, for periodic
// invocation while the channel is quiet.
func (e *Engine) Tick(now time.Time) (*Change, error) {
	return e.ctrl.Tick(now)
}

// Rotate forces a full regeneration on operator request.
func (e *Engine) Rotate(reason string, now time.Time) (*Change, error) {
	return e.ctrl.Rotate(reason, now)
}

// DescribeActive returns the render-ready snapshot of the engine state.
func (e *Engine) DescribeActive() (Description, error) {
	return e.ctrl.Describe()
}
