package gonewton

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError locates a syntax error in the input of Parse.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gonewton: parse %q at offset %d: %s", e.Input, e.Pos, e.Msg)
}

// Parse reads an expression in ordinary infix notation:
//
//	x^2 + y**2 - 4      ^ and ** are both exponentiation
//	-2^2                is -(2^2); powers are right associative
//	sin(x)*exp(-y)      sin cos tan asin acos atan sinh cosh tanh exp ln log sqrt abs sign
//	2*pi, e             named constants
//
// An equation "lhs = rhs" is returned as lhs - rhs.
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	p.next()
	lhs, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokEquals {
		p.next()
		rhs, err := p.sum()
		if err != nil {
			return nil, err
		}
		lhs = Minus(lhs, rhs)
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s", p.tok)
	}
	return lhs, nil
}

// ParsePair parses two equations in x and y.
func ParsePair(f1, f2 string) (EquationPair, error) {
	e1, err := Parse(f1)
	if err != nil {
		return EquationPair{}, fmt.Errorf("first equation: %w", err)
	}
	e2, err := Parse(f2)
	if err != nil {
		return EquationPair{}, fmt.Errorf("second equation: %w", err)
	}
	return Pair(e1, e2), nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEquals
	tokInvalid
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokNum:
		return "number " + t.text
	case tokIdent:
		return "identifier " + t.text
	}
	return fmt.Sprintf("%q", t.text)
}

type parser struct {
	input string
	off   int
	tok   token
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Input: p.input, Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

// next advances to the following token.
func (p *parser) next() {
	for p.off < len(p.input) && unicode.IsSpace(rune(p.input[p.off])) {
		p.off++
	}
	start := p.off
	if p.off >= len(p.input) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.input[p.off]
	switch {
	case isDigit(c) || c == '.':
		p.off++
		for p.off < len(p.input) && (isDigit(p.input[p.off]) || p.input[p.off] == '.') {
			p.off++
		}
		// exponent part: 1e-3, 2.5E+4
		if p.off < len(p.input) && (p.input[p.off] == 'e' || p.input[p.off] == 'E') {
			j := p.off + 1
			if j < len(p.input) && (p.input[j] == '+' || p.input[j] == '-') {
				j++
			}
			if j < len(p.input) && isDigit(p.input[j]) {
				for j < len(p.input) && isDigit(p.input[j]) {
					j++
				}
				p.off = j
			}
		}
		p.tok = token{kind: tokNum, text: p.input[start:p.off], pos: start}
	case isIdentStart(c):
		for p.off < len(p.input) && (isIdentStart(p.input[p.off]) || isDigit(p.input[p.off])) {
			p.off++
		}
		p.tok = token{kind: tokIdent, text: p.input[start:p.off], pos: start}
	case strings.HasPrefix(p.input[p.off:], "**"):
		p.off += 2
		p.tok = token{kind: tokOp, text: "^", pos: start}
	case strings.IndexByte("+-*/^", c) >= 0:
		p.off++
		p.tok = token{kind: tokOp, text: string(c), pos: start}
	case c == '(':
		p.off++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.off++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case c == '=':
		p.off++
		p.tok = token{kind: tokEquals, text: "=", pos: start}
	default:
		p.off++
		p.tok = token{kind: tokInvalid, text: string(c), pos: start}
	}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }

func (p *parser) isOp(ops string) bool {
	return p.tok.kind == tokOp && strings.Contains(ops, p.tok.text)
}

// sum = product { ("+" | "-") product }
func (p *parser) sum() (Expr, error) {
	lhs, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.isOp("+-") {
		op := p.tok.text
		p.next()
		rhs, err := p.product()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			lhs = AddOf(lhs, rhs)
		} else {
			lhs = Minus(lhs, rhs)
		}
	}
	return lhs, nil
}

// product = unary { ("*" | "/") unary }
func (p *parser) product() (Expr, error) {
	lhs, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*/") {
		op := p.tok.text
		p.next()
		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			lhs = MulOf(lhs, rhs)
		} else {
			lhs = Quo(lhs, rhs)
		}
	}
	return lhs, nil
}

// unary = ("+" | "-") unary | power
func (p *parser) unary() (Expr, error) {
	if p.isOp("+-") {
		neg := p.tok.text == "-"
		p.next()
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		if neg {
			return MulOf(N(-1), e), nil
		}
		return e, nil
	}
	return p.power()
}

// power = primary [ "^" unary ]
func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return PowOf(base, exp), nil
}

// primary = number | constant | variable | function "(" sum ")" | "(" sum ")"
func (p *parser) primary() (Expr, error) {
	tok := p.tok
	switch tok.kind {
	case tokNum:
		n, ok := numFromString(tok.text)
		if !ok {
			return nil, p.errorf("malformed number %q", tok.text)
		}
		p.next()
		return n, nil
	case tokIdent:
		p.next()
		if p.tok.kind == tokLParen {
			return p.call(tok)
		}
		if c, ok := constNamed(tok.text); ok {
			return c, nil
		}
		return S(tok.text), nil
	case tokLParen:
		p.next()
		e, err := p.sum()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("expected \")\", found %s", p.tok)
		}
		p.next()
		return e, nil
	}
	return nil, p.errorf("unexpected %s", tok)
}

func (p *parser) call(name token) (Expr, error) {
	p.next() // (
	arg, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokRParen {
		return nil, p.errorf("expected \")\" to close %s(, found %s", name.text, p.tok)
	}
	p.next()
	switch name.text {
	case "sqrt":
		return SqrtOf(arg), nil
	case "log":
		return LnOf(arg), nil
	}
	if !knownFuncs[name.text] {
		return nil, &ParseError{Input: p.input, Pos: name.pos, Msg: fmt.Sprintf("unknown function %q", name.text)}
	}
	return funcOf(name.text, arg).Simplify(), nil
}
