package scope

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lyzr/workflowkernel/internal/werrors"
)

// Resolve implements the three expression-input forms :
// an explicit `${ ... }` expression (typed result), a plain literal
// value, or a template whose string leaves may embed `${...}`
// expressions (stringified and concatenated).
func Resolve(e *Evaluator, value any, sc *Scope) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(e, v, sc)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			resolved, err := Resolve(e, elem, sc)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := Resolve(e, elem, sc)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolveString(e *Evaluator, s string, sc *Scope) (any, error) {
	if IsExpression(s) {
		if m := exprPattern.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
			inner := strings.TrimSpace(m[1])
			if simpleFieldPath.MatchString(inner) {
				if v, ok := resolveFieldPath(sc, inner); ok {
					return v, nil
				}
			}
		}
		return e.Evaluate(s, sc)
	}
	if IsTemplate(s) {
		return interpolate(e, s, sc)
	}
	return s, nil
}

// simpleFieldPath matches a bare `.foo.bar` reference into the current
// task input, with no operators or function calls, the cases that
// don't need a CEL compile at all.
var simpleFieldPath = regexp.MustCompile(`^\.[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// resolveFieldPath extracts a dotted field path directly out of the
// current input's JSON via gjson, skipping the CEL program cache
// entirely for the common case of plain field access.
func resolveFieldPath(sc *Scope, dotPath string) (any, bool) {
	input, ok := sc.Get("input")
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(raw, strings.TrimPrefix(dotPath, "."))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

var interpPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// interpolate replaces every `${...}` occurrence inside a larger
// literal string with its stringified evaluation result.
func interpolate(e *Evaluator, s string, sc *Scope) (string, error) {
	var outerErr error
	result := interpPattern.ReplaceAllStringFunc(s, func(match string) string {
		if outerErr != nil {
			return match
		}
		inner := interpPattern.FindStringSubmatch(match)[1]
		val, err := e.EvaluateTyped(strings.TrimSpace(inner), sc)
		if err != nil {
			outerErr = err
			return match
		}
		return stringify(val)
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// ResolveToBool resolves value (any of the three input forms) and
// requires the result to be a boolean — used for `if`/`when` fields
// that may be given as either an expression or a literal true/false.
func ResolveToBool(e *Evaluator, value any, sc *Scope) (bool, error) {
	resolved, err := Resolve(e, value, sc)
	if err != nil {
		return false, err
	}
	b, ok := resolved.(bool)
	if !ok {
		return false, werrors.NewExpression(fmt.Errorf("expected boolean, got %T", resolved), "")
	}
	return b, nil
}
