package tool

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/nidhogg/pipboy/internal/provider"
)

// calcCharset is the full set of characters an expression may contain.
// Anything else is rejected before the expression reaches the parser.
const calcCharset = "0123456789+-*/%.() "

type calcArgs struct {
	Expression string `json:"expression" validate:"required,max=1000" jsonschema:"description=Arithmetic expression using digits and + - * / % ( )"`
}

func calculatorTool() (provider.Tool, Handler) {
	def := provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "calculate",
			Description: "Evaluate a basic arithmetic expression. Supports + - * / % and parentheses.",
			Parameters:  schemaFor(&calcArgs{}),
		},
	}
	handler := func(ctx context.Context, args string) (string, error) {
		var a calcArgs
		if err := decodeArgs(args, &a); err != nil {
			return fail(err.Error())
		}
		result, err := evalExpression(a.Expression)
		if err != nil {
			return fail(err.Error())
		}
		return ok(map[string]interface{}{
			"expression": a.Expression,
			"result":     result,
		}, fmt.Sprintf("%s = %s", a.Expression, formatNumber(result)))
	}
	return def, handler
}

// evalExpression parses and evaluates an arithmetic expression without
// ever executing it as code. Only numeric literals and the operators in
// calcCharset survive the walk.
func evalExpression(expr string) (float64, error) {
	for _, r := range expr {
		if !strings.ContainsRune(calcCharset, r) {
			return 0, fmt.Errorf("expression contains unsupported character %q", r)
		}
	}
	if strings.Contains(expr, "**") {
		return 0, fmt.Errorf("exponentiation is not supported")
	}
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("parse expression: %w", err)
	}
	return evalNode(node)
}

func evalNode(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT:
			return strconv.ParseFloat(n.Value, 64)
		default:
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
	case *ast.ParenExpr:
		return evalNode(n.X)
	case *ast.UnaryExpr:
		v, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", n.Op)
		}
	case *ast.BinaryExpr:
		x, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		y, err := evalNode(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x / y, nil
		case token.REM:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return math.Mod(x, y), nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", n.Op)
		}
	default:
		return 0, fmt.Errorf("unsupported syntax in expression")
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
