// Package parser parses annotations written in Go comments.
//
// An annotation starts with '@', names its type (optionally qualified with a
// package name), and may have arguments in parentheses or braces:
//
//    @autoserv.Provides(SomeService, other.AnotherService)
//    @autoserv.Provides{Value: {SomeService}}
//    @autoserv.SuppressWarnings("rawtypes")
//    @autoserv.ToString
//
// Each annotation ends at the end of its line, unless the line ends in a
// character that cannot end an annotation (such as a comma or an open brace)
// or unless a parenthesis or brace is still open.
package parser

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"io"
	"text/scanner"
)

// ParseError is a syntax error, with the position at which it was found.
type ParseError struct {
	err error
	pos scanner.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.pos.Line, e.pos.Column, e.err)
}

func (e *ParseError) Underlying() error {
	return e.err
}

func (e *ParseError) Pos() scanner.Position {
	return e.pos
}

// ParseAnnotations parses all annotations in r.
func ParseAnnotations(filename string, r io.Reader) (annos []Annotation, perr *ParseError) {
	p := &annoParser{lex: newLexer(filename, r)}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*ParseError); ok {
				annos, perr = nil, e
				return
			}
			panic(r)
		}
	}()
	return p.parseAnnotations(), nil
}

type annoParser struct {
	lex *annoLex

	tok    int
	val    lexVal
	peeked bool

	// depth of open parentheses and braces; end-of-line is insignificant
	// while it is positive
	depth int
}

func (p *annoParser) peek() (int, lexVal) {
	if !p.peeked {
		for {
			p.val = lexVal{}
			p.tok = p.lex.Lex(&p.val)
			if p.tok == _ERROR {
				p.fail(p.val.p, p.val.err)
			}
			if p.tok != _EOL || p.depth == 0 {
				break
			}
		}
		p.peeked = true
	}
	return p.tok, p.val
}

func (p *annoParser) next() (int, lexVal) {
	t, v := p.peek()
	p.peeked = false
	return t, v
}

func (p *annoParser) expect(want int) lexVal {
	t, v := p.next()
	if t != want {
		p.unexpected(t, v, tokenName(want))
	}
	return v
}

func (p *annoParser) unexpected(t int, v lexVal, wanted string) {
	p.fail(v.p, fmt.Errorf("syntax error: unexpected %s, expecting %s", tokenName(t), wanted))
}

func (p *annoParser) fail(pos scanner.Position, err error) {
	if err == nil {
		err = errors.New("syntax error")
	}
	panic(&ParseError{err: err, pos: pos})
}

func (p *annoParser) parseAnnotations() []Annotation {
	var annos []Annotation
	for {
		t, v := p.peek()
		switch t {
		case _EOF:
			return annos
		case _EOL:
			p.next()
		case '@':
			annos = append(annos, p.parseAnnotation())
		default:
			p.unexpected(t, v, `"@"`)
		}
	}
}

func (p *annoParser) parseAnnotation() Annotation {
	at := p.expect('@')
	anno := Annotation{Pos: at.p}
	anno.Type = p.parseIdentifier()

	switch t, _ := p.peek(); t {
	case '(':
		anno.Args = p.parseArgs('(', ')')
	case '{':
		anno.Args = p.parseArgs('{', '}')
	}

	switch t, v := p.next(); t {
	case _EOL, _EOF:
	default:
		p.unexpected(t, v, "end-of-line")
	}
	return anno
}

func (p *annoParser) parseIdentifier() Identifier {
	v := p.expect(_IDENT)
	id := Identifier{Name: v.id, Pos: v.p}
	if t, _ := p.peek(); t == '.' {
		p.next()
		n := p.expect(_IDENT)
		id.PackageAlias = id.Name
		id.Name = n.id
	}
	return id
}

func (p *annoParser) parseArgs(open, close int) []Element {
	p.expect(open)
	p.depth++
	defer func() {
		p.depth--
	}()

	elems := []Element{}
	for {
		if t, _ := p.peek(); t == close {
			break
		}
		elems = append(elems, p.parseElement())
		t, v := p.peek()
		if t == ',' {
			p.next()
			continue
		}
		if t != close {
			p.unexpected(t, v, fmt.Sprintf(`"," or %s`, tokenName(close)))
		}
	}
	p.expect(close)
	return elems
}

func (p *annoParser) parseElement() Element {
	val := p.parseValue()
	if ref, ok := val.(RefNode); ok && ref.Ident.PackageAlias == "" {
		if t, _ := p.peek(); t == ':' {
			p.next()
			return Element{Key: ref.Ident, HasKey: true, Value: p.parseValue()}
		}
	}
	return Element{Value: val}
}

func (p *annoParser) parseValue() ExpressionNode {
	t, v := p.peek()
	switch t {
	case _IDENT:
		return RefNode{Ident: p.parseIdentifier()}
	case _STRING_LIT, _RAW_STRING_LIT, _INT_LIT:
		p.next()
		return LiteralNode{Val: v.lit, pos: v.p}
	case _TRUE, _FALSE:
		p.next()
		return LiteralNode{Val: constant.MakeBool(t == _TRUE), pos: v.p}
	case '-':
		p.next()
		n := p.expect(_INT_LIT)
		return LiteralNode{Val: constant.UnaryOp(token.SUB, n.lit, 0), pos: v.p}
	case '{':
		return AggregateNode{Contents: p.parseArgs('{', '}'), pos: v.p}
	default:
		p.next()
		p.unexpected(t, v, "value")
		return nil
	}
}
