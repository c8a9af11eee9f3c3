package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
)

// newCELEnv builds the CEL environment shared by all expression rules.
// Expressions see the message text, its whitespace-split words, and the
// opaque metadata map.
func newCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("text", types.StringType),
			decls.NewVariable("words", types.NewListType(types.StringType)),
			decls.NewVariable("meta", types.NewMapType(types.StringType, types.DynType)),
		),
	)
}

// CELChecker evaluates a compiled CEL expression against a message. The
// expression is linted for determinism and compiled once at catalog build.
type CELChecker struct {
	source string
	prg    cel.Program
}

// NewCELChecker lints and compiles source. Lint findings and compilation
// failures are configuration errors.
func NewCELChecker(source string) (*CELChecker, error) {
	if err := lintExpression(source); err != nil {
		return nil, err
	}

	env, err := newCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, configErrorf("cel expression %q: compile failed: %v", source, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, configErrorf("cel expression %q: program construction failed: %v", source, err)
	}

	return &CELChecker{source: source, prg: prg}, nil
}

// Source returns the expression text.
func (c *CELChecker) Source() string { return c.source }

// Check implements Checker.
func (c *CELChecker) Check(ctx context.Context, msg Message) (bool, error) {
	meta := msg.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	input := map[string]any{
		"text":  msg.Text,
		"words": strings.Fields(msg.Text),
		"meta":  meta,
	}

	out, _, err := c.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("cel expression %q: eval: %w", c.source, err)
	}
	verdict, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cel expression %q: yielded %T, want bool", c.source, out.Value())
	}
	return verdict, nil
}
