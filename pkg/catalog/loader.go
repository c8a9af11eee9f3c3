package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// catalogSchema is the JSON Schema every catalog document must satisfy
// before rules are built.
const catalogSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["rules"],
  "additionalProperties": false,
  "properties": {
    "engine": {"type": "string"},
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name", "weight", "kind"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$"},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "weight": {"type": "integer", "minimum": 1},
          "kind": {"enum": ["builtin", "cel", "wasm", "lookup"]},
          "builtin": {"type": "string"},
          "params": {"type": "object"},
          "expr": {"type": "string"},
          "module": {"type": "string"},
          "url": {"type": "string"}
        }
      }
    },
    "conflicts": {
      "type": "array",
      "items": {
        "type": "array",
        "items": {"type": "string"},
        "minItems": 2,
        "maxItems": 2
      }
    }
  }
}`

type fileRule struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Weight      int            `yaml:"weight"`
	Kind        string         `yaml:"kind"`
	Builtin     string         `yaml:"builtin"`
	Params      map[string]any `yaml:"params"`
	Expr        string         `yaml:"expr"`
	Module      string         `yaml:"module"`
	URL         string         `yaml:"url"`
}

type fileDoc struct {
	Engine    string     `yaml:"engine"`
	Rules     []fileRule `yaml:"rules"`
	Conflicts [][]string `yaml:"conflicts"`
}

// Loader builds catalogs from YAML documents. The zero value loads documents
// that carry no engine constraint and no wasm or lookup rules.
type Loader struct {
	// EngineVersion is checked against the document's engine constraint.
	EngineVersion string
	// BaseDir resolves relative wasm module paths.
	BaseDir string
	// HTTPClient backs lookup rules; nil falls back to http.DefaultClient.
	HTTPClient *http.Client
}

// LoadFile reads, validates and builds the catalog at path.
func LoadFile(ctx context.Context, path, engineVersion string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied catalog path
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	l := &Loader{EngineVersion: engineVersion, BaseDir: filepath.Dir(path)}
	return l.Load(ctx, data)
}

// Load validates data against the catalog schema, checks the engine
// constraint, and builds the catalog. Every failure is a ConfigError or
// wraps one.
func (l *Loader) Load(ctx context.Context, data []byte) (*Catalog, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, configErrorf("invalid yaml: %v", err)
	}

	if err := l.checkEngineConstraint(doc.Engine); err != nil {
		return nil, err
	}

	defs := make([]Definition, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		check, err := l.buildChecker(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}
		defs = append(defs, Definition{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Weight:      r.Weight,
			Check:       check,
		})
	}

	pairs := make([][2]string, 0, len(doc.Conflicts))
	for _, c := range doc.Conflicts {
		pairs = append(pairs, [2]string{c[0], c[1]})
	}

	return New(defs, pairs)
}

// validateDocument checks the YAML against the embedded JSON Schema. The
// document is round-tripped through encoding/json first so the validator
// sees canonical JSON types.
func validateDocument(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return configErrorf("invalid yaml: %v", err)
	}
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return configErrorf("document not JSON-representable: %v", err)
	}
	var doc any
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return configErrorf("document round-trip failed: %v", err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://gauntlet.schemas.local/catalog.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(catalogSchema)); err != nil {
		return fmt.Errorf("catalog: schema load failed: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("catalog: schema compile failed: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return configErrorf("schema validation failed: %v", err)
	}
	return nil
}

// checkEngineConstraint gates the document on the running engine version,
// so a catalog written for a newer rule vocabulary refuses to load.
func (l *Loader) checkEngineConstraint(constraintStr string) error {
	if constraintStr == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(constraintStr)
	if err != nil {
		return configErrorf("invalid engine constraint %q: %v", constraintStr, err)
	}
	if l.EngineVersion == "" {
		return configErrorf("document requires engine %q but no engine version was supplied", constraintStr)
	}
	v, err := semver.NewVersion(l.EngineVersion)
	if err != nil {
		return configErrorf("invalid engine version %q: %v", l.EngineVersion, err)
	}
	if !constraint.Check(v) {
		return configErrorf("document requires engine %q, running %s", constraintStr, l.EngineVersion)
	}
	return nil
}

func (l *Loader) buildChecker(ctx context.Context, r fileRule) (Checker, error) {
	switch r.Kind {
	case "builtin":
		name := r.Builtin
		if name == "" {
			name = r.ID
		}
		return builtinChecker(name, r.Params)
	case "cel":
		if r.Expr == "" {
			return nil, configErrorf("cel rule without expr")
		}
		return NewCELChecker(r.Expr)
	case "wasm":
		if r.Module == "" {
			return nil, configErrorf("wasm rule without module")
		}
		path := r.Module
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.BaseDir, path)
		}
		wasmBytes, err := os.ReadFile(path) //nolint:gosec // G304: path from validated catalog
		if err != nil {
			return nil, configErrorf("wasm module %s: %v", r.Module, err)
		}
		return NewWASMChecker(ctx, wasmBytes)
	case "lookup":
		if r.URL == "" {
			return nil, configErrorf("lookup rule without url")
		}
		return NewLookupChecker(r.URL, l.HTTPClient), nil
	default:
		return nil, configErrorf("unknown rule kind %q", r.Kind)
	}
}
