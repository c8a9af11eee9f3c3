// Package archive persists closed game episodes. Every ruleset change ends
// an episode; its change event, the ruleset it closes, the message records
// that drove the decision and a standings snapshot are serialized and
// written content-addressed to a sink, so past games can be replayed or
// audited by reference.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Mindburn-Labs/gauntlet/pkg/announce"
	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/score"
)

// Sink is content-addressed blob storage. Store returns a "sha256:<hex>"
// ref for the data; storing the same bytes twice returns the same ref.
type Sink interface {
	Store(ctx context.Context, data []byte) (string, error)
}

// Episode is the archival record of one ruleset's tenure.
type Episode struct {
	Event            announce.Event      `json:"event"`
	PriorRuleIDs     []string            `json:"prior_rule_ids"`
	PriorFingerprint string              `json:"prior_fingerprint"`
	Records          []controller.Record `json:"records,omitempty"`
	Standings        []score.Standing    `json:"standings,omitempty"`
}

// NewEpisode assembles the episode closed by a change. The event must be
// the one announced for this change so the archive and the announcement
// share an id. Standings may be nil when no keeper is configured.
func NewEpisode(ev announce.Event, change *controller.Change, standings []score.Standing) Episode {
	return Episode{
		Event:            ev,
		PriorRuleIDs:     change.PriorSet.IDs(),
		PriorFingerprint: change.PriorFingerprint,
		Records:          change.PriorRecords,
		Standings:        standings,
	}
}

// Archiver writes episodes to a sink.
type Archiver struct {
	sink Sink
}

func NewArchiver(sink Sink) *Archiver {
	return &Archiver{sink: sink}
}

// Archive stores the episode and returns its content ref.
func (a *Archiver) Archive(ctx context.Context, ep Episode) (string, error) {
	data, err := json.Marshal(ep)
	if err != nil {
		return "", fmt.Errorf("archive: marshal episode: %w", err)
	}
	ref, err := a.sink.Store(ctx, data)
	if err != nil {
		return "", fmt.Errorf("archive: store episode: %w", err)
	}
	return ref, nil
}
