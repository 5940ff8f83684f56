// Package estimate turns per-function cost expressions into task weights.
package estimate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

// ErrNotNumeric is returned when an expression does not evaluate to a number.
var ErrNotNumeric = errors.New("cost expression is not numeric")

// containerLen matches C++ container length calls such as v.size().
var containerLen = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\.\s*(?:size|length)\s*\(\s*\)`)

// Cost is a compiled cost expression.
type Cost struct {
	source  string
	program *vm.Program
}

// Compile parses a C-like arithmetic cost expression. Container length calls
// are rewritten to len().
func Compile(source string) (*Cost, error) {
	rewritten := containerLen.ReplaceAllString(source, "len($1)")
	program, err := expr.Compile(rewritten)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	return &Cost{source: source, program: program}, nil
}

// String returns the original expression.
func (c *Cost) String() string {
	return c.source
}

// Eval binds params to args positionally and evaluates the expression.
// Fractional results are truncated and negative results clamp to zero.
func (c *Cost) Eval(params []string, args []any) (int64, error) {
	env := make(map[string]any, len(params))
	for i, name := range params {
		if i < len(args) {
			env[name] = normalize(args[i])
		}
	}

	out, err := expr.Run(c.program, env)
	if err != nil {
		return 0, fmt.Errorf("eval %q: %w", c.source, err)
	}

	var f float64
	switch v := out.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	default:
		return 0, fmt.Errorf("eval %q returned %T: %w", c.source, out, ErrNotNumeric)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("eval %q returned %v: %w", c.source, f, ErrNotNumeric)
	}
	if f < 0 {
		return 0, nil
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(f), nil
}

// normalize converts decoded JSON values into types expr can do arithmetic on.
func normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		f, _ := n.Float64()
		return f
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int(n)
		}
		return n
	default:
		return v
	}
}

// Resolver computes weights for catalog functions, caching compiled expressions
// by signature.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]*Cost
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]*Cost)}
}

// Weight returns the task weight for info called with args. When there is no
// usable cost expression the statement count is used and fellBack is true.
func (r *Resolver) Weight(info *models.FunctionInfo, args []any) (weight int64, fellBack bool) {
	cost, err := r.compiled(info)
	if err == nil && cost != nil {
		w, err := cost.Eval(info.Params, args)
		if err == nil {
			return w, false
		}
	}
	if info.StatementCount < 0 {
		return 0, true
	}
	return int64(info.StatementCount), true
}

func (r *Resolver) compiled(info *models.FunctionInfo) (*Cost, error) {
	if info.CostExpr == "" {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := info.Signature + "\x00" + info.CostExpr
	if c, ok := r.cache[key]; ok {
		return c, nil
	}
	c, err := Compile(info.CostExpr)
	if err != nil {
		return nil, err
	}
	r.cache[key] = c
	return c, nil
}
