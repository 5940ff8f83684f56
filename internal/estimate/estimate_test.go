package estimate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

func TestCompileAndEval(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		params []string
		args   []any
		want   int64
	}{
		{"cubic", "n*n*n", []string{"n"}, []any{4}, 64},
		{"constant", "(1 + (4 * (1 + 1)))", nil, nil, 9},
		{"container size", "givenArr.size()", []string{"givenArr"}, []any{[]any{1, 2, 3}}, 3},
		{"string length", "s.length() * 2", []string{"s"}, []any{"abcd"}, 8},
		{"division truncates", "n / 2", []string{"n"}, []any{7}, 3},
		{"negative clamps", "n - 10", []string{"n"}, []any{3}, 0},
		{"json number", "a + b", []string{"a", "b"}, []any{json.Number("2"), json.Number("5")}, 7},
		{"float arg", "x * 2", []string{"x"}, []any{2.5}, 5},
		{"two params", "n * m", []string{"n", "m"}, []any{int64(6), 7}, 42},
		{"exactly two to the 63 saturates", "x * 2", []string{"x"}, []any{float64(1 << 62)}, math.MaxInt64},
		{"huge float saturates", "x * x", []string{"x"}, []any{1e30}, math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, c.String())

			got, err := c.Eval(tt.params, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileError(t *testing.T) {
	_, err := Compile("n * (")
	assert.Error(t, err)
}

func TestEvalNotNumeric(t *testing.T) {
	c, err := Compile("n > 1")
	require.NoError(t, err)
	_, err = c.Eval([]string{"n"}, []any{3})
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestResolverWeight(t *testing.T) {
	r := NewResolver()

	info := &models.FunctionInfo{
		Signature:      "funcD_ii",
		Params:         []string{"n", "m"},
		StatementCount: 12,
		CostExpr:       "n*m",
	}
	w, fellBack := r.Weight(info, []any{3, 5})
	assert.Equal(t, int64(15), w)
	assert.False(t, fellBack)

	// Cached program is reused with different args.
	w, _ = r.Weight(info, []any{2, 2})
	assert.Equal(t, int64(4), w)
}

func TestResolverFallback(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name string
		info *models.FunctionInfo
		args []any
		want int64
	}{
		{"no expression", &models.FunctionInfo{Signature: "a", StatementCount: 4}, nil, 4},
		{"bad expression", &models.FunctionInfo{Signature: "b", StatementCount: 6, CostExpr: "n *"}, nil, 6},
		{"eval error", &models.FunctionInfo{Signature: "c", Params: []string{"n"}, StatementCount: 2, CostExpr: "n.size()"}, []any{5}, 2},
		{"negative count", &models.FunctionInfo{Signature: "d", StatementCount: -1}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, fellBack := r.Weight(tt.info, tt.args)
			assert.True(t, fellBack)
			assert.Equal(t, tt.want, w)
		})
	}
}
