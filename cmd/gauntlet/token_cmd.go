package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/api"
	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
)

// runTokenCmd implements `gauntlet token`.
//
// Mints an admin bearer token for the daemon API. The signing key is derived
// from the same master secret the daemon runs with, so a token minted here
// validates against any daemon sharing that secret. The token is printed
// alone on stdout for piping into scripts.
//
// Exit codes:
//
//	0 = token minted
//	2 = missing secret or runtime error
func runTokenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("token", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		subject string
		ttl     time.Duration
		secret  string
	)

	cmd.StringVar(&subject, "subject", "operator", "Token subject, recorded in the daemon's logs")
	cmd.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime (0 = non-expiring, lab setups only)")
	cmd.StringVar(&secret, "secret", os.Getenv("GAUNTLET_MASTER_SECRET"), "Master secret (default: $GAUNTLET_MASTER_SECRET)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if secret == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --secret or GAUNTLET_MASTER_SECRET is required")
		return 2
	}

	key, err := crypto.DeriveKey([]byte(secret), crypto.PurposeAdminJWT, 32)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	token, err := api.IssueToken(key, subject, ttl)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintln(stdout, token)
	return 0
}
