package scope

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/lyzr/workflowkernel/internal/werrors"
)

// Evaluator compiles and runs the engine's expression language: CEL
// programs for explicit `${ ... }` expressions, with a jq-flavored
// `.`-as-current-input convention rewritten to a CEL variable before
// compilation.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvaluator constructs an Evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]cel.Program)}
}

var exprPattern = regexp.MustCompile(`^\$\{(.*)\}$`)

// IsExpression reports whether s is a full `${ ... }` expression value
// (form 1), as opposed to a literal or a template.
func IsExpression(s string) bool {
	return exprPattern.MatchString(strings.TrimSpace(s))
}

// IsTemplate reports whether s contains one or more embedded `${...}`
// expressions inside otherwise-literal text (form 3).
func IsTemplate(s string) bool {
	return !IsExpression(s) && strings.Contains(s, "${")
}

// EvaluateBool evaluates a condition expression (e.g. `if`, `when`,
// `exceptWhen`) against sc and requires a boolean result.
func (e *Evaluator) EvaluateBool(expr string, sc *Scope) (bool, error) {
	v, err := e.EvaluateTyped(expr, sc)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, werrors.NewExpression(fmt.Errorf("expression %q did not evaluate to a boolean, got %T", expr, v), "")
	}
	return b, nil
}

// EvaluateTyped evaluates a bare (unwrapped) expression string and
// returns its typed result: string, bool, float64, []any, map[string]any.
func (e *Evaluator) EvaluateTyped(expr string, sc *Scope) (any, error) {
	env := sc.Flatten()
	varNames := make([]string, 0, len(env))
	for k := range env {
		varNames = append(varNames, k)
	}
	sort.Strings(varNames)

	rewritten := rewriteJQRoot(expr)
	program, err := e.compile(rewritten, varNames)
	if err != nil {
		return nil, werrors.NewExpression(fmt.Errorf("compile %q: %w", expr, err), "")
	}

	out, _, err := program.Eval(env)
	if err != nil {
		return nil, werrors.NewExpression(fmt.Errorf("evaluate %q: %w", expr, err), "")
	}
	return out.Value(), nil
}

// Evaluate resolves the `${ ... }` wrapper and evaluates the inner
// expression, for callers holding the full wrapped string.
func (e *Evaluator) Evaluate(wrapped string, sc *Scope) (any, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(wrapped))
	if m == nil {
		return nil, werrors.NewExpression(fmt.Errorf("not an expression: %q", wrapped), "")
	}
	return e.EvaluateTyped(strings.TrimSpace(m[1]), sc)
}

func (e *Evaluator) compile(expr string, varNames []string) (cel.Program, error) {
	key := strings.Join(varNames, ",") + "||" + expr

	e.mu.RLock()
	if p, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[key]; ok {
		return p, nil
	}

	opts := make([]cel.EnvOption, 0, len(varNames))
	for _, name := range varNames {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.cache[key] = program
	return program, nil
}

// ClearCache drops every compiled program; used by tests.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}

// rewriteJQRoot rewrites jq-flavored references to the current input
// (a bare `.` or `.field.path`) into the CEL variable `input`, and
// strips the `$` sigil jq uses for named variables (`$item` -> `item`)
// since CEL variables are declared without it. Integer literals outside
// string literals are rewritten as doubles (`2` -> `2.0`) so they
// combine with JSON numbers, which decode as doubles; CEL has no mixed
// int/double arithmetic. This is a deliberate,
// documented approximation of jq syntax, not a full jq implementation.
func rewriteJQRoot(expr string) string {
	expr = dollarVarPattern.ReplaceAllString(expr, "$1")
	expr = dotFieldPattern.ReplaceAllString(expr, "${1}input.$2")
	expr = bareDotPattern.ReplaceAllString(expr, "${1}input$2")
	expr = numericTokenPattern.ReplaceAllStringFunc(expr, func(tok string) string {
		if intLiteralPattern.MatchString(tok) {
			return tok + ".0"
		}
		return tok
	})
	return expr
}

var (
	dollarVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	dotFieldPattern   = regexp.MustCompile(`(^|[^\w.])\.([A-Za-z_][A-Za-z0-9_]*)`)
	bareDotPattern    = regexp.MustCompile(`(^|[^\w.])\.($|[^\w])`)
	numericTokenPattern = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|[\w.]+`)
	intLiteralPattern   = regexp.MustCompile(`^\d+$`)
)
