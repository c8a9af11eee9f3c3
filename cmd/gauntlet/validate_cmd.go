package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/random"
	"github.com/Mindburn-Labs/gauntlet/pkg/ruleset"
	"github.com/Mindburn-Labs/gauntlet/pkg/search"
)

type validateReport struct {
	Catalog         string   `json:"catalog"`
	Rules           int      `json:"rules"`
	ConflictPairs   int      `json:"conflict_pairs"`
	TotalWeight     int      `json:"total_weight"`
	ProbeTarget     int      `json:"probe_target"`
	ProbeDifficulty int      `json:"probe_difficulty,omitempty"`
	ProbeSet        []string `json:"probe_set,omitempty"`
	Valid           bool     `json:"valid"`
	Error           string   `json:"error,omitempty"`
}

// runValidateCmd implements `gauntlet validate`.
//
// Loads a catalog file through the full daemon path (schema validation,
// checker build, engine gate), then probes that a nonempty valid ruleset is
// reachable at the probe target difficulty.
//
// Exit codes:
//
//	0 = catalog valid
//	1 = catalog invalid or probe target unreachable
//	2 = runtime error
func runValidateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		catalogPath string
		target      int
		jsonOutput  bool
	)

	cmd.StringVar(&catalogPath, "catalog", "catalog.yaml", "Path to the catalog YAML file")
	cmd.IntVar(&target, "target", controller.DefaultConfig().InitialDifficulty, "Reachability probe difficulty target")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON to stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	report := validateReport{Catalog: catalogPath, ProbeTarget: target}

	cat, err := catalog.LoadFile(context.Background(), catalogPath, version)
	if err != nil {
		report.Error = err.Error()
		return emitValidateReport(stdout, report, jsonOutput)
	}

	report.Rules = cat.Len()
	for _, r := range cat.Rules() {
		report.TotalWeight += r.Weight
		report.ConflictPairs += len(r.Conflicts)
	}
	// Conflicts are symmetric, each pair was counted from both sides.
	report.ConflictPairs /= 2

	// Probe with a fixed seed so validate is reproducible across runs.
	seed := make([]byte, random.SeedSize)
	copy(seed, "gauntlet-validate-probe")
	rng, err := random.NewDeterministic(seed)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	s := search.New(cat, ruleset.NewValidator(cat), ruleset.NewScorer(cat), rng)
	set, err := s.RandomValid(target)
	if err != nil {
		report.Error = fmt.Sprintf("probe: %v", err)
		return emitValidateReport(stdout, report, jsonOutput)
	}

	report.Valid = true
	report.ProbeSet = set.IDs()
	report.ProbeDifficulty = ruleset.NewScorer(cat).Difficulty(set)
	return emitValidateReport(stdout, report, jsonOutput)
}

func emitValidateReport(stdout io.Writer, report validateReport, jsonOutput bool) int {
	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if report.Valid {
		_, _ = fmt.Fprintf(stdout, "✅ catalog valid\n")
		_, _ = fmt.Fprintf(stdout, "Catalog: %s\n", report.Catalog)
		_, _ = fmt.Fprintf(stdout, "Rules:   %d (total weight %d, %d conflict pairs)\n",
			report.Rules, report.TotalWeight, report.ConflictPairs)
		_, _ = fmt.Fprintf(stdout, "Probe:   difficulty %d reached %d with %v\n",
			report.ProbeTarget, report.ProbeDifficulty, report.ProbeSet)
	} else {
		_, _ = fmt.Fprintf(stdout, "❌ catalog invalid\n")
		_, _ = fmt.Fprintf(stdout, "Catalog: %s\n", report.Catalog)
		_, _ = fmt.Fprintf(stdout, "  - %s\n", report.Error)
	}

	if !report.Valid {
		return 1
	}
	return 0
}
