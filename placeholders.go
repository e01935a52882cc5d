package xlquote

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/javajack/xlquote/grid"
)

// ExpressionEvaluator evaluates ${...} placeholder expressions found
// in the template's header region.
type ExpressionEvaluator interface {
	Evaluate(expression string, data map[string]any) (any, error)
}

type exprEvaluator struct {
	cache map[string]*vm.Program
}

// NewExpressionEvaluator returns an evaluator backed by
// expr-lang/expr with a compiled-program cache. The cache is not
// synchronized; each Builder owns one evaluator.
func NewExpressionEvaluator() ExpressionEvaluator {
	return &exprEvaluator{cache: make(map[string]*vm.Program)}
}

func (e *exprEvaluator) Evaluate(expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, nil
	}
	program, ok := e.cache[expression]
	if !ok {
		var err error
		program, err = expr.Compile(expression, expr.Env(data), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", expression, err)
		}
		e.cache[expression] = program
	}
	result, err := expr.Run(program, data)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

// expandPlaceholders replaces every ${...} expression in the header
// rows of the sheet with its evaluated value. A cell holding exactly
// one expression and nothing else takes the typed result; mixed text
// is interpolated as a string. Evaluation failures leave the cell
// untouched — header text is cosmetic.
func expandPlaceholders(s *grid.Sheet, headerRows int, eval ExpressionEvaluator, data map[string]any, begin, end string) error {
	rows, cols := s.Bounds()
	if headerRows < rows {
		rows = headerRows
	}
	for row := 1; row <= rows; row++ {
		for col := 1; col <= cols; col++ {
			ref := grid.Ref(row, col)
			value, err := s.Value(ref)
			if err != nil {
				return err
			}
			if !strings.Contains(value, begin) {
				continue
			}
			replaced, typed, ok := substitute(value, eval, data, begin, end)
			if !ok {
				continue
			}
			if typed != nil {
				if err := s.SetValue(ref, typed); err != nil {
					return err
				}
			} else if err := s.SetValue(ref, replaced); err != nil {
				return err
			}
		}
	}
	return nil
}

// substitute evaluates every delimited expression inside text. The
// third return is false when any expression fails to evaluate.
func substitute(text string, eval ExpressionEvaluator, data map[string]any, begin, end string) (string, any, bool) {
	// A pure single-expression cell keeps the result's type.
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, begin) && strings.HasSuffix(trimmed, end) {
		inner := trimmed[len(begin) : len(trimmed)-len(end)]
		if !strings.Contains(inner, begin) && !strings.Contains(inner, end) {
			result, err := eval.Evaluate(inner, data)
			if err != nil {
				return "", nil, false
			}
			return "", result, true
		}
	}

	var b strings.Builder
	rest := text
	for {
		i := strings.Index(rest, begin)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		j := strings.Index(rest[i+len(begin):], end)
		if j < 0 {
			b.WriteString(rest)
			break
		}
		expression := rest[i+len(begin) : i+len(begin)+j]
		result, err := eval.Evaluate(expression, data)
		if err != nil {
			return "", nil, false
		}
		b.WriteString(rest[:i])
		if result != nil {
			b.WriteString(fmt.Sprint(result))
		}
		rest = rest[i+len(begin)+j+len(end):]
	}
	return b.String(), nil, true
}

// placeholderData builds the evaluation environment exposed to header
// expressions.
func placeholderData(req *Request) map[string]any {
	return map[string]any{
		"client": map[string]any{
			"name":           req.ClientName,
			"upperName":      strings.ToUpper(req.ClientName),
			"email":          req.ClientEmail,
			"representative": strings.ToUpper(req.Representative),
		},
		"discountPercent": req.DiscountPercent,
		"styleCount":      len(req.Styles),
		"serviceCount":    len(req.Services),
	}
}
