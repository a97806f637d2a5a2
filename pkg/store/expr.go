package store

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ArgDesc describes one argument of a parsed method signature. Literal
// arguments carry a concrete Value; non-literal arguments reference a path
// into the data tree (RootProperty, Structured for multi-segment paths,
// Wildcard for a trailing ".*").
type ArgDesc struct {
	Name         string
	Literal      bool
	Value        interface{}
	Structured   bool
	RootProperty string
	Wildcard     bool
}

// Signature is the dependency descriptor ExpressionParser.Parse produces
// for a method(arg, ...) expression.
type Signature struct {
	MethodName string
	Args       []ArgDesc
	// Static is true iff every argument is a literal: the effect this
	// signature belongs to runs once at registration and never again.
	Static bool
}

// splitArgs splits a method call's argument list on commas, honoring
// quoted strings and a one-level backslash escape (so `\,` inside an
// unquoted argument is not a separator), mirroring the teacher project's
// quote-aware operator-call scanner.
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	var inQuote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			cur.WriteByte(c)
			escaped = true
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
			cur.WriteByte(c)
		case c == ',':
			args = append(args, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 || len(args) > 0 {
		args = append(args, cur.String())
	}
	return args
}

// unescape drops one level of backslash escaping from any character,
// including the `\,` that splitArgs deliberately did not split on.
func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func classifyArg(raw string) (ArgDesc, error) {
	trimmed := unescape(strings.TrimSpace(raw))
	if trimmed == "" {
		return ArgDesc{}, fmt.Errorf("empty argument")
	}

	numStart := 0
	if trimmed[0] == '-' && len(trimmed) > 1 {
		numStart = 1
	}
	if trimmed[numStart] >= '0' && trimmed[numStart] <= '9' {
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return ArgDesc{}, fmt.Errorf("invalid numeric literal %q", trimmed)
		}
		return ArgDesc{Name: trimmed, Literal: true, Value: n}, nil
	}

	if trimmed[0] == '\'' || trimmed[0] == '"' {
		quote := trimmed[0]
		if len(trimmed) < 2 || trimmed[len(trimmed)-1] != quote {
			return ArgDesc{}, fmt.Errorf("unterminated string literal %q", trimmed)
		}
		lit := trimmed[1 : len(trimmed)-1]
		return ArgDesc{Name: lit, Literal: true, Value: lit}, nil
	}

	name := trimmed
	wildcard := false
	if strings.HasSuffix(name, ".*") {
		wildcard = true
		name = strings.TrimSuffix(name, ".*")
	}
	return ArgDesc{
		Name:         name,
		RootProperty: Root(name),
		Structured:   IsDeep(name),
		Wildcard:     wildcard,
	}, nil
}

// ParseExpression parses a `method(arg, arg, ...)` signature into a
// Signature descriptor, or returns a MalformedExpression *StoreError.
func ParseExpression(expr string) (*Signature, error) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return nil, NewMalformedExpressionError(expr)
	}
	methodName := strings.TrimSpace(expr[:open])
	if !identRE.MatchString(methodName) {
		return nil, NewMalformedExpressionError(expr)
	}

	inner := expr[open+1 : len(expr)-1]
	sig := &Signature{MethodName: methodName, Static: true}
	if strings.TrimSpace(inner) == "" {
		return sig, nil
	}

	for _, raw := range splitArgs(inner) {
		arg, err := classifyArg(raw)
		if err != nil {
			return nil, NewMalformedExpressionError(expr)
		}
		sig.Args = append(sig.Args, arg)
		if !arg.Literal {
			sig.Static = false
		}
	}
	return sig, nil
}

var bareIdentRE = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var computedFuncNames = map[string]bool{
	"min": true, "max": true, "mod": true, "pow": true, "sqrt": true,
	"floor": true, "ceil": true, "true": true, "false": true,
}

var computedFunctions = map[string]govaluate.ExpressionFunction{
	"min": func(args ...interface{}) (interface{}, error) {
		a, b := args[0].(float64), args[1].(float64)
		if a < b {
			return a, nil
		}
		return b, nil
	},
	"max": func(args ...interface{}) (interface{}, error) {
		a, b := args[0].(float64), args[1].(float64)
		if a > b {
			return a, nil
		}
		return b, nil
	},
	"mod": func(args ...interface{}) (interface{}, error) {
		a, b := args[0].(float64), args[1].(float64)
		return float64(int64(a) % int64(b)), nil
	},
	"pow": func(args ...interface{}) (interface{}, error) {
		return math.Pow(args[0].(float64), args[1].(float64)), nil
	},
	"sqrt": func(args ...interface{}) (interface{}, error) {
		return math.Sqrt(args[0].(float64)), nil
	},
	"floor": func(args ...interface{}) (interface{}, error) {
		return math.Floor(args[0].(float64)), nil
	},
	"ceil": func(args ...interface{}) (interface{}, error) {
		return math.Ceil(args[0].(float64)), nil
	},
}

// ComputedExpr is the "=" prefixed expression form of a computed property:
// an arithmetic/boolean expression over sibling property values, evaluated
// by govaluate instead of dispatched to a named method.
type ComputedExpr struct {
	Raw          string
	expr         *govaluate.EvaluableExpression
	Dependencies []string
}

// Static reports whether the expression references no sibling property
// (e.g. "=2 + 2"): such a computed effect runs once at registration and
// never again.
func (c *ComputedExpr) Static() bool {
	return len(c.Dependencies) == 0
}

// ParseComputedExpr parses the portion of raw after a leading "=" as a
// govaluate expression. The dependency set is every bare identifier found
// in the expression text that is not a recognized function name, mirroring
// the teacher's calc operator's reference-search approach but over plain
// identifiers rather than dotted cursors (computed properties here are
// single-segment by construction).
func ParseComputedExpr(raw string) (*ComputedExpr, error) {
	body := strings.TrimPrefix(raw, "=")
	parsed, err := govaluate.NewEvaluableExpressionWithFunctions(body, computedFunctions)
	if err != nil {
		return nil, NewMalformedExpressionError(raw)
	}

	seen := map[string]bool{}
	var deps []string
	for _, ident := range bareIdentRE.FindAllString(body, -1) {
		if computedFuncNames[ident] || seen[ident] {
			continue
		}
		seen[ident] = true
		deps = append(deps, ident)
	}

	return &ComputedExpr{Raw: raw, expr: parsed, Dependencies: deps}, nil
}

// Evaluate resolves every dependency against data (root properties only)
// and evaluates the expression.
func (c *ComputedExpr) Evaluate(data map[string]interface{}) (interface{}, error) {
	params := make(map[string]interface{}, len(c.Dependencies))
	for _, d := range c.Dependencies {
		params[d] = data[d]
	}
	return c.expr.Evaluate(params)
}
