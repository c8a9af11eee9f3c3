package catalog

import (
	"strings"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// lintExpression statically rejects CEL constructs that would let the same
// message produce different verdicts on different evaluations: wall-clock
// access, floating-point literals (difficulty math is integer-only), and
// unordered map iteration.
func lintExpression(source string) error {
	env, err := cel.NewEnv()
	if err != nil {
		return err
	}

	parsed, issues := env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return configErrorf("cel expression %q: parse failed: %v", source, issues.Err())
	}

	var problems []string
	expr := parsed.Expr() //nolint:staticcheck // Deprecated but no alternative for AST traversal yet
	lintExpr(expr, &problems)

	if len(problems) > 0 {
		return configErrorf("cel expression %q: %s", source, strings.Join(problems, "; "))
	}
	return nil
}

func lintExpr(e *exprpb.Expr, problems *[]string) {
	if e == nil {
		return
	}

	switch k := e.ExprKind.(type) {
	case *exprpb.Expr_ConstExpr:
		if _, isDouble := k.ConstExpr.ConstantKind.(*exprpb.Constant_DoubleValue); isDouble {
			*problems = append(*problems, "floating point literals are forbidden")
		}

	case *exprpb.Expr_CallExpr:
		call := k.CallExpr
		switch call.Function {
		case "now":
			*problems = append(*problems, "now() is forbidden")
		case "keys", "values":
			*problems = append(*problems, "map iteration (keys/values) is forbidden")
		}
		if call.Target != nil {
			lintExpr(call.Target, problems)
		}
		for _, arg := range call.Args {
			lintExpr(arg, problems)
		}

	case *exprpb.Expr_SelectExpr:
		lintExpr(k.SelectExpr.Operand, problems)

	case *exprpb.Expr_ListExpr:
		for _, el := range k.ListExpr.Elements {
			lintExpr(el, problems)
		}

	case *exprpb.Expr_StructExpr:
		for _, entry := range k.StructExpr.Entries {
			if entry.GetMapKey() != nil {
				lintExpr(entry.GetMapKey(), problems)
			}
			lintExpr(entry.Value, problems)
		}

	case *exprpb.Expr_ComprehensionExpr:
		comp := k.ComprehensionExpr
		lintExpr(comp.IterRange, problems)
		lintExpr(comp.AccuInit, problems)
		lintExpr(comp.LoopCondition, problems)
		lintExpr(comp.LoopStep, problems)
		lintExpr(comp.Result, problems)
	}
}
