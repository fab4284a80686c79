package expr

import (
	"testing"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("  66.20 + 4.02 *  y_memAvg(MB) - 1e3 ")
	kinds := make([]TokenKind, len(tokens))
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"66.20", "+", "4.02", "*", "y_memAvg(MB)", "-", "1e3"}, texts)
	assert.Equal(t, []TokenKind{TokenNumber, TokenOperator, TokenNumber, TokenOperator, TokenIdent, TokenOperator, TokenNumber}, kinds)
	assert.Equal(t, 66.2, tokens[0].Value)

	// values that would break arithmetic stay identifiers
	assert.Equal(t, TokenIdent, Tokenize("Inf")[0].Kind)
	assert.Equal(t, TokenIdent, Tokenize("NaN")[0].Kind)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "66.20 + 4.02 * y_nScenarios", want: "(66.20 + (4.02 * y_nScenarios))"},
		{in: "1 - 2 - 3", want: "((1 - 2) - 3)"},
		{in: "- 3 * x", want: "(-3 * x)"},
		{in: "x * 2 + + 1", want: "((x * 2) + 1)"},
		{in: "42", want: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "1 +", "* 2", "1 2", "x y", "3 * * x"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestEvalAndVars(t *testing.T) {
	n, err := Parse("2 * x - y * 0.5 + x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, Vars(n))

	got, err := Eval(n, map[string]float64{"x": 3, "y": 4})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, got, 1e-12)

	_, err = Eval(n, map[string]float64{"x": 3})
	assert.ErrorIs(t, err, ErrUnbound)
}

func newResolver(t *testing.T, names ...string) (*milp.Model, Resolver) {
	t.Helper()
	m := milp.New("expr")
	for _, name := range names {
		_, err := m.AddVar(name, milp.Continuous, 0, 100)
		require.NoError(t, err)
	}
	return m, m.Var
}

func TestLinearize_EvaluatesLikeTheRule(t *testing.T) {
	m, resolve := newResolver(t, "y_nScenarios")
	e, err := ParseLinear("66.20 + 4.02 * y_nScenarios", resolve)
	require.NoError(t, err)

	require.Len(t, e.Terms, 1)
	assert.Equal(t, "y_nScenarios", e.Terms[0].Var.Name())
	assert.InDelta(t, 4.02, e.Terms[0].Coef, 1e-12)
	assert.InDelta(t, 66.20, e.Constant, 1e-12)

	for _, value := range []float64{0.99, 5, 10.5, 20.79} {
		x, err := m.Values(map[string]float64{"y_nScenarios": value})
		require.NoError(t, err)
		assert.InDelta(t, 66.20+4.02*value, e.Eval(x), 1e-9, "value %v", value)
	}
}

func TestLinearize(t *testing.T) {
	_, resolve := newResolver(t, "x", "y")
	tests := []struct {
		in   string
		want string
	}{
		{in: "x * 3", want: "3 x"},
		{in: "2 * 3 * x", want: "6 x"},
		{in: "- x + 10", want: "-x + 10"},
		{in: "x - 2 * y - 1", want: "x - 2 y - 1"},
		{in: "x - x", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := ParseLinear(tt.in, resolve)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestLinearize_Errors(t *testing.T) {
	_, resolve := newResolver(t, "x", "y")

	_, err := ParseLinear("x * y", resolve)
	assert.ErrorIs(t, err, ErrNonLinear)

	_, err = ParseLinear("2 * z + 1", resolve)
	assert.ErrorIs(t, err, milp.ErrUnknownVariable)

	_, err = ParseLinear("2 +", resolve)
	assert.ErrorIs(t, err, ErrSyntax)
}
