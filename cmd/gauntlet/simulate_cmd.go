package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/random"
)

type simClock struct {
	now time.Time
}

func (c *simClock) Now() time.Time { return c.now }

// simWords is the vocabulary of the synthetic stream. It includes palindromes
// and repeated initials so length, repetition and letter rules all get
// exercised.
var simWords = []string{
	"echo", "granite", "murmur", "apple", "banana", "cascade", "delta",
	"ember", "fjord", "glimmer", "harbor", "iris", "jungle", "kayak",
	"level", "noon", "opal", "prism", "quartz", "river", "stone", "tidal",
	"umber", "violet",
}

func syntheticMessage(rng random.Source) string {
	n := 1 + rng.Intn(7)
	words := make([]string, n)
	for i := range words {
		w := simWords[rng.Intn(len(simWords))]
		if rng.Intn(6) == 0 {
			w = strings.ToUpper(w)
		}
		words[i] = w
	}
	msg := strings.Join(words, " ")
	if rng.Intn(5) == 0 {
		msg += "?"
	}
	return msg
}

type simChange struct {
	Message    int       `json:"message"`
	At         time.Time `json:"at"`
	Reason     string    `json:"reason"`
	Difficulty int       `json:"difficulty"`
	Rules      []string  `json:"rules"`
}

type simResult struct {
	Seed            string      `json:"seed"`
	Initial         []string    `json:"initial"`
	Messages        int         `json:"messages"`
	Violations      int         `json:"violations"`
	Changes         []simChange `json:"changes"`
	FinalDifficulty int         `json:"final_difficulty"`
}

// runSimulateCmd implements `gauntlet simulate`.
//
// Plays a synthetic message stream against a fresh engine on a virtual
// clock and prints the resulting change timeline. The same seed always
// replays the same game, so a surprising production episode can be rerun
// offline from its logged seed.
//
// Exit codes:
//
//	0 = simulation completed
//	1 = catalog invalid
//	2 = runtime error
func runSimulateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("simulate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		catalogPath string
		seedHex     string
		messages    int
		target      int
		step        time.Duration
		jsonOutput  bool
	)

	cmd.StringVar(&catalogPath, "catalog", "", "Path to a catalog YAML file (default: builtin catalog)")
	cmd.StringVar(&seedHex, "seed", "", "Hex-encoded 32-byte seed (default: random, printed for replay)")
	cmd.IntVar(&messages, "messages", 200, "Number of synthetic messages to play")
	cmd.IntVar(&target, "target", 0, "Initial difficulty target (0 = engine default)")
	cmd.DurationVar(&step, "step", 15*time.Second, "Simulated time between messages")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the full timeline as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if messages < 1 {
		_, _ = fmt.Fprintln(stderr, "Error: --messages must be at least 1")
		return 2
	}

	var (
		rng *random.Deterministic
		err error
	)
	if seedHex != "" {
		rng, err = random.NewFromHex(seedHex)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		rng = random.NewSystem()
	}

	var cat *catalog.Catalog
	if catalogPath != "" {
		cat, err = catalog.LoadFile(context.Background(), catalogPath, version)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		cat, err = catalog.Default()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	// Independent child streams keep message generation from perturbing the
	// engine's draws, so a seed replays identically even if the vocabulary
	// changes size.
	engineRng := rng.Child("engine")
	msgRng := rng.Child("messages")

	clock := &simClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	ctrl, err := controller.New(cat, controller.DefaultConfig(), clock, engineRng)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	engine := controller.NewEngine(cat, ctrl, 0)

	initial, err := engine.Initialize(target)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	result := simResult{Seed: rng.Seed(), Initial: initial.IDs(), Messages: messages}

	if !jsonOutput {
		_, _ = fmt.Fprintf(stdout, "Seed: %s\n", result.Seed)
		_, _ = fmt.Fprintf(stdout, "Initial ruleset: %s\n", initial)
	}

	ctx := context.Background()
	for i := 1; i <= messages; i++ {
		clock.now = clock.now.Add(step)
		msg := catalog.Message{
			Text:    syntheticMessage(msgRng),
			Channel: "sim",
			Author:  "player-" + strconv.Itoa(1+i%5),
		}

		out, err := engine.EvaluateMessage(ctx, msg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if !out.Clean() {
			result.Violations++
		}

		change, err := engine.RecordAndMaybeChange(out, clock.now)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if change == nil {
			continue
		}

		result.Changes = append(result.Changes, simChange{
			Message:    i,
			At:         change.At,
			Reason:     change.Reason,
			Difficulty: change.Difficulty,
			Rules:      change.Set.IDs(),
		})
		if !jsonOutput {
			_, _ = fmt.Fprintf(stdout, "msg %03d %s  %s%s%s  difficulty %d  %v\n",
				i, change.At.Format("15:04:05"), ColorYellow, change.Reason, ColorReset,
				change.Difficulty, change.Set.IDs())
		}
	}

	if desc, err := engine.DescribeActive(); err == nil {
		result.FinalDifficulty = desc.Difficulty
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "Played %d messages: %d with violations, %d changes, final difficulty %d\n",
		result.Messages, result.Violations, len(result.Changes), result.FinalDifficulty)
	return 0
}
