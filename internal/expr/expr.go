// Package expr parses the affine expressions that appear on the right-hand
// side of surrogate rules, e.g. "66.20 + 4.02 * y_nScenarios".
//
// Tokens are separated by whitespace. A token that parses as a number is a
// literal, one of + - * is an operator, anything else names a variable. The
// result is a small AST that can be evaluated against concrete values or
// turned into a linear expression over model variables.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrSyntax indicates a malformed expression.
	ErrSyntax = errors.New("expr: syntax error")
	// ErrNonLinear indicates a product of two variable sub-expressions.
	ErrNonLinear = errors.New("expr: expression is not linear")
	// ErrUnbound indicates Eval met a variable with no value.
	ErrUnbound = errors.New("expr: unbound variable")
)

// TokenKind classifies a token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenOperator
	TokenIdent
)

// Token is one whitespace separated piece of the source text.
type Token struct {
	Kind  TokenKind
	Text  string
	Value float64
}

// Tokenize splits s on whitespace and classifies each piece.
func Tokenize(s string) []Token {
	fields := strings.Fields(s)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		switch {
		case f == "+" || f == "-" || f == "*":
			tokens = append(tokens, Token{Kind: TokenOperator, Text: f})
		default:
			if v, err := strconv.ParseFloat(f, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
				tokens = append(tokens, Token{Kind: TokenNumber, Text: f, Value: v})
				continue
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: f})
		}
	}
	return tokens
}

// Node is an expression tree node: *Literal, *VarRef, *Neg or *BinaryOp.
type Node interface {
	String() string
}

type Literal struct {
	Value float64
	Text  string
}

func (l *Literal) String() string { return l.Text }

type VarRef struct {
	Name string
}

func (r *VarRef) String() string { return r.Name }

// Neg is unary minus.
type Neg struct {
	X Node
}

func (n *Neg) String() string { return "-" + n.X.String() }

type BinaryOp struct {
	Op          byte
	Left, Right Node
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %c %s)", b.Left, b.Op, b.Right)
}

// Parse builds the AST for s. Multiplication binds tighter than addition and
// subtraction; operators of equal precedence group left to right.
func Parse(s string) (Node, error) {
	p := &parser{tokens: Tokenize(s)}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	n, err := p.sum()
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, s)
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, p.tokens[p.pos].Text, s)
	}
	return n, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peekOp(ops string) (byte, bool) {
	if p.pos >= len(p.tokens) {
		return 0, false
	}
	t := p.tokens[p.pos]
	if t.Kind != TokenOperator || !strings.Contains(ops, t.Text) {
		return 0, false
	}
	return t.Text[0], true
}

func (p *parser) sum() (Node, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOp("+-")
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) product() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.peekOp("*"); !ok {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: '*', Left: left, Right: right}
	}
}

func (p *parser) unary() (Node, error) {
	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	t := p.tokens[p.pos]
	p.pos++
	switch t.Kind {
	case TokenNumber:
		return &Literal{Value: t.Value, Text: t.Text}, nil
	case TokenIdent:
		return &VarRef{Name: t.Text}, nil
	}
	switch t.Text {
	case "-":
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Neg{X: x}, nil
	case "+":
		return p.unary()
	}
	return nil, fmt.Errorf("%w: unexpected operator %q", ErrSyntax, t.Text)
}

// Vars lists the variable names referenced by n in first-occurrence order.
func Vars(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *VarRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *Neg:
			walk(n.X)
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(n)
	return names
}

// Eval interprets n with the given variable values.
func Eval(n Node, env map[string]float64) (float64, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *VarRef:
		v, ok := env[n.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnbound, n.Name)
		}
		return v, nil
	case *Neg:
		x, err := Eval(n.X, env)
		return -x, err
	case *BinaryOp:
		l, err := Eval(n.Left, env)
		if err != nil {
			return 0, err
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return l + r, nil
		case '-':
			return l - r, nil
		default:
			return l * r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown node %T", ErrSyntax, n)
}
