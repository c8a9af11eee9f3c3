package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
)

// runDescribeCmd implements `gauntlet describe`.
//
// Fetches the active ruleset from a running daemon and renders the full
// catalog with the active rules marked. The bearer token comes from --token
// or GAUNTLET_TOKEN; mint one with `gauntlet token`.
//
// Exit codes:
//
//	0 = ruleset fetched
//	1 = daemon unreachable or refused the request
//	2 = runtime error
func runDescribeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("describe", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		addr       string
		token      string
		jsonOutput bool
	)

	cmd.StringVar(&addr, "addr", "http://localhost:8080", "Daemon base URL")
	cmd.StringVar(&token, "token", os.Getenv("GAUNTLET_TOKEN"), "Admin bearer token (default: $GAUNTLET_TOKEN)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the raw response JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(addr, "/")+"/v1/rules", nil)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: daemon unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "Error: daemon returned %d: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusUnauthorized {
			_, _ = fmt.Fprintln(stderr, "Hint: mint a token with `gauntlet token` and pass it via --token or GAUNTLET_TOKEN")
		}
		return 1
	}

	if jsonOutput {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			_, _ = stdout.Write(body)
			_, _ = fmt.Fprintln(stdout, "")
		} else {
			_, _ = fmt.Fprintln(stdout, buf.String())
		}
		return 0
	}

	var desc controller.Description
	if err := json.Unmarshal(body, &desc); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: bad response: %v\n", err)
		return 1
	}

	renderDescription(stdout, desc)
	return 0
}

func renderDescription(w io.Writer, desc controller.Description) {
	fmt.Fprintf(w, "\n%sActive Ruleset%s\n", ColorBold+ColorBlue, ColorReset)
	fmt.Fprintf(w, "%sdifficulty %d, %d rules, since %s%s\n", ColorGray,
		desc.Difficulty, len(desc.Ruleset), desc.Since.Format(time.RFC3339), ColorReset)
	fmt.Fprintf(w, "%s%s%s\n\n", ColorGray, desc.Fingerprint, ColorReset)

	for _, r := range desc.Rules {
		if r.Active {
			fmt.Fprintf(w, "  ✅  %s%-24s%s %s (weight %d)\n", ColorGreen, r.ID, ColorReset, r.Name, r.Weight)
		} else {
			fmt.Fprintf(w, "      %s%-24s %s (weight %d)%s\n", ColorGray, r.ID, r.Name, r.Weight, ColorReset)
		}
	}
	fmt.Fprintln(w, "")
}
