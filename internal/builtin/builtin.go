// Package builtin provides the closed set of function bodies the daemon
// dispatches, with their catalog entries.
package builtin

import (
	"fmt"

	"github.com/TanveerShahriar/Thesis/internal/catalog"
	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/TanveerShahriar/Thesis/internal/scheduler"
)

// Source is recorded on catalog entries for built-in functions.
const Source = "builtin"

// Upper bounds on built-in function arguments, checked on admission.
const (
	MaxFib    = 92 // largest n whose result fits in an int64
	MaxSieve  = 1 << 24
	MaxSpin   = 1 << 30
	MaxFanout = 1 << 10
)

type definition struct {
	name       string
	params     []string
	limits     []int64 // upper bound per param, 0 = unbounded
	statements int
	cost       string
	body       func(ids map[string]models.FunctionID) scheduler.Func
}

// definitions is ordered so that callees are registered before their callers.
var definitions = []definition{
	{
		name: "sum", params: []string{"a", "b"}, statements: 1, cost: "1",
		body: func(map[string]models.FunctionID) scheduler.Func {
			return func(inv *scheduler.Invocation) any { return inv.Int(0) + inv.Int(1) }
		},
	},
	{
		name: "product", params: []string{"a", "b"}, statements: 1, cost: "1",
		body: func(map[string]models.FunctionID) scheduler.Func {
			return func(inv *scheduler.Invocation) any { return inv.Int(0) * inv.Int(1) }
		},
	},
	{
		name: "fib", params: []string{"n"}, limits: []int64{MaxFib}, statements: 6, cost: "n",
		body: func(map[string]models.FunctionID) scheduler.Func {
			return func(inv *scheduler.Invocation) any { return Fib(inv.Int(0)) }
		},
	},
	{
		name: "primes", params: []string{"n"}, limits: []int64{MaxSieve}, statements: 9, cost: "n",
		body: func(map[string]models.FunctionID) scheduler.Func {
			return func(inv *scheduler.Invocation) any {
				count, err := CountPrimes(inv.Int(0))
				if err != nil {
					return err.Error()
				}
				return count
			}
		},
	},
	{
		name: "spin", params: []string{"n"}, limits: []int64{MaxSpin}, statements: 3, cost: "n",
		body: func(map[string]models.FunctionID) scheduler.Func {
			return func(inv *scheduler.Invocation) any { return Spin(inv.Int(0)) }
		},
	},
	{
		name: "fanout", params: []string{"k", "n"}, limits: []int64{MaxFanout, MaxSpin}, statements: 5, cost: "k * n",
		body: func(ids map[string]models.FunctionID) scheduler.Func {
			spin := ids["spin_i"]
			return func(inv *scheduler.Invocation) any {
				k, n := inv.Int(0), inv.Int(1)
				var total int64
				for i := int64(0); i < k; i++ {
					res, err := inv.Call(spin, n, n)
					if err != nil {
						return err.Error()
					}
					total += res.(int64)
				}
				return total
			}
		},
	},
}

func paramTypes(params []string) []string {
	types := make([]string, len(params))
	for i := range types {
		types[i] = "int"
	}
	return types
}

// Infos returns the catalog entries for all built-in functions.
func Infos() []models.FunctionInfo {
	out := make([]models.FunctionInfo, 0, len(definitions))
	for _, s := range definitions {
		types := paramTypes(s.params)
		out = append(out, models.FunctionInfo{
			Name:           s.name,
			Signature:      catalog.Signature(s.name, types),
			Params:         s.params,
			ParamTypes:     types,
			StatementCount: s.statements,
			CostExpr:       s.cost,
			Source:         Source,
		})
	}
	return out
}

// Register adds every built-in function to t under its signature.
func Register(t *scheduler.Table) error {
	ids := make(map[string]models.FunctionID, len(definitions))
	for _, s := range definitions {
		sig := catalog.Signature(s.name, paramTypes(s.params))
		id, err := t.RegisterChecked(sig, len(s.params), s.body(ids), checkLimits(s.limits))
		if err != nil {
			return fmt.Errorf("register builtin %s: %w", sig, err)
		}
		ids[sig] = id
	}
	return nil
}

// checkLimits returns an argument check for the given per-param bounds, or
// nil when no param is bounded.
func checkLimits(limits []int64) scheduler.ArgCheck {
	bounded := false
	for _, l := range limits {
		bounded = bounded || l > 0
	}
	if !bounded {
		return nil
	}
	return func(args []any) error {
		for i, limit := range limits {
			if limit <= 0 || i >= len(args) {
				continue
			}
			n, err := scheduler.ToInt(args[i])
			if err != nil {
				return fmt.Errorf("argument %d: %v: %w", i, err, scheduler.ErrBadArguments)
			}
			if n > limit {
				return fmt.Errorf("argument %d is %d, max %d: %w", i, n, limit, scheduler.ErrBadArguments)
			}
		}
		return nil
	}
}

// Fib returns the n-th Fibonacci number, iteratively.
func Fib(n int64) int64 {
	var a, b int64 = 0, 1
	for i := int64(0); i < n; i++ {
		a, b = b, a+b
	}
	return a
}

// CountPrimes returns the number of primes <= n. n above MaxSieve is rejected.
func CountPrimes(n int64) (int64, error) {
	if n > MaxSieve {
		return 0, fmt.Errorf("sieve of %d exceeds %d: %w", n, MaxSieve, scheduler.ErrBadArguments)
	}
	if n < 2 {
		return 0, nil
	}
	composite := make([]bool, n+1)
	var count int64
	for i := int64(2); i <= n; i++ {
		if composite[i] {
			continue
		}
		count++
		for j := i * i; j <= n; j += i {
			composite[j] = true
		}
	}
	return count, nil
}

// Spin burns n loop iterations and returns a value derived from them.
func Spin(n int64) int64 {
	var acc int64
	for i := int64(0); i < n; i++ {
		acc = acc*31 + i
		acc ^= acc >> 7
	}
	return n + acc&1023
}
