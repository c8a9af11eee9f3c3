package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/api"
	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
)

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"gauntlet"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI("version")
	if code != 0 {
		t.Fatalf("exit = %d, want 0", code)
	}
	if !strings.Contains(out, "gauntlet "+version) {
		t.Errorf("output %q missing version", out)
	}
}

func TestRun_Help(t *testing.T) {
	code, out, _ := runCLI("help")
	if code != 0 {
		t.Fatalf("exit = %d, want 0", code)
	}
	if !strings.Contains(out, "USAGE") {
		t.Errorf("output missing usage block")
	}
}

func TestRun_NoArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"gauntlet"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "USAGE") {
		t.Errorf("stderr missing usage block")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runCLI("frobnicate")
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(errOut, "Unknown command") {
		t.Errorf("stderr %q missing unknown-command notice", errOut)
	}
}

const testCatalogYAML = `engine: ">= 0.1.0"
rules:
  - id: lowercase-only
    name: Lowercase Only
    weight: 2
    kind: builtin
  - id: uppercase-only
    name: Uppercase Only
    weight: 2
    kind: builtin
  - id: max-words-3
    name: Three Words Or Fewer
    weight: 1
    kind: builtin
    builtin: max-words
    params:
      n: 3
conflicts:
  - [lowercase-only, uppercase-only]
`

func TestValidateCmd_ValidCatalog(t *testing.T) {
	path := t.TempDir() + "/catalog.yaml"
	if err := os.WriteFile(path, []byte(testCatalogYAML), 0600); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI("validate", "--catalog", path)
	if code != 0 {
		t.Fatalf("exit = %d, want 0 (output: %s)", code, out)
	}
	if !strings.Contains(out, "catalog valid") {
		t.Errorf("output %q missing verdict", out)
	}
	if !strings.Contains(out, "1 conflict pairs") {
		t.Errorf("output %q missing conflict count", out)
	}
}

func TestValidateCmd_JSON(t *testing.T) {
	path := t.TempDir() + "/catalog.yaml"
	if err := os.WriteFile(path, []byte(testCatalogYAML), 0600); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI("validate", "--catalog", path, "--json")
	if code != 0 {
		t.Fatalf("exit = %d, want 0 (output: %s)", code, out)
	}

	var report validateReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !report.Valid {
		t.Errorf("report.Valid = false, error = %s", report.Error)
	}
	if report.Rules != 3 || report.TotalWeight != 5 || report.ConflictPairs != 1 {
		t.Errorf("report counts = %d/%d/%d, want 3/5/1", report.Rules, report.TotalWeight, report.ConflictPairs)
	}
	if len(report.ProbeSet) == 0 {
		t.Errorf("probe returned no ruleset")
	}
}

func TestValidateCmd_MissingFile(t *testing.T) {
	code, out, _ := runCLI("validate", "--catalog", t.TempDir()+"/nope.yaml")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(out, "catalog invalid") {
		t.Errorf("output %q missing verdict", out)
	}
}

func TestValidateCmd_SchemaViolation(t *testing.T) {
	path := t.TempDir() + "/bad.yaml"
	// Weight zero violates the schema minimum.
	bad := "rules:\n  - id: x\n    name: X\n    weight: 0\n    kind: builtin\n    builtin: no-spaces\n"
	if err := os.WriteFile(path, []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI("validate", "--catalog", path)
	if code != 1 {
		t.Fatalf("exit = %d, want 1 (output: %s)", code, out)
	}
}

func TestSimulateCmd_DeterministicReplay(t *testing.T) {
	seed := strings.Repeat("ab", 32)

	code1, out1, _ := runCLI("simulate", "--seed", seed, "--messages", "60")
	if code1 != 0 {
		t.Fatalf("exit = %d, want 0 (output: %s)", code1, out1)
	}
	code2, out2, _ := runCLI("simulate", "--seed", seed, "--messages", "60")
	if code2 != 0 {
		t.Fatalf("exit = %d, want 0", code2)
	}

	if out1 != out2 {
		t.Errorf("same seed produced different games:\n%s\n---\n%s", out1, out2)
	}
	if !strings.Contains(out1, "Seed: "+seed) {
		t.Errorf("output missing replay seed")
	}
	if !strings.Contains(out1, "Played 60 messages") {
		t.Errorf("output missing summary: %s", out1)
	}
}

func TestSimulateCmd_BadSeed(t *testing.T) {
	code, _, errOut := runCLI("simulate", "--seed", "zz")
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(errOut, "Error") {
		t.Errorf("stderr %q missing error", errOut)
	}
}

func TestTokenCmd_MintsValidToken(t *testing.T) {
	t.Setenv("GAUNTLET_MASTER_SECRET", "cli-test-master-secret-0001")

	code, out, errOut := runCLI("token", "--subject", "ci")
	if code != 0 {
		t.Fatalf("exit = %d, want 0 (stderr: %s)", code, errOut)
	}

	token := strings.TrimSpace(out)
	key, err := crypto.DeriveKey([]byte("cli-test-master-secret-0001"), crypto.PurposeAdminJWT, 32)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := api.NewJWTValidator(key).Validate(token)
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if claims.Subject != "ci" {
		t.Errorf("subject = %s, want ci", claims.Subject)
	}
}

func TestTokenCmd_MissingSecret(t *testing.T) {
	t.Setenv("GAUNTLET_MASTER_SECRET", "")

	code, _, errOut := runCLI("token")
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(errOut, "GAUNTLET_MASTER_SECRET") {
		t.Errorf("stderr %q missing secret hint", errOut)
	}
}

func TestDescribeCmd_RendersRuleset(t *testing.T) {
	desc := controller.Description{
		Ruleset:     []string{"alliteration"},
		Difficulty:  5,
		Fingerprint: "sha256:feedface",
		Since:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Rules: []controller.RuleStatus{
			{ID: "alliteration", Name: "Alliteration", Weight: 5, Active: true},
			{ID: "question-only", Name: "Questions Only", Weight: 2, Active: false},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rules" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(desc)
	}))
	defer srv.Close()

	code, out, _ := runCLI("describe", "--addr", srv.URL, "--token", "good-token")
	if code != 0 {
		t.Fatalf("exit = %d, want 0 (output: %s)", code, out)
	}
	if !strings.Contains(out, "alliteration") || !strings.Contains(out, "question-only") {
		t.Errorf("output %q missing rules", out)
	}
	if !strings.Contains(out, "sha256:feedface") {
		t.Errorf("output %q missing fingerprint", out)
	}
}

func TestDescribeCmd_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	code, _, errOut := runCLI("describe", "--addr", srv.URL, "--token", "bad")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "gauntlet token") {
		t.Errorf("stderr %q missing mint hint", errOut)
	}
}

func TestDescribeCmd_Unreachable(t *testing.T) {
	code, _, errOut := runCLI("describe", "--addr", "http://127.0.0.1:1", "--token", "x")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "unreachable") {
		t.Errorf("stderr %q missing unreachable notice", errOut)
	}
}
