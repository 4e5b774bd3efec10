package parser

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"io"
	"text/scanner"
)

// token kinds; all other tokens are single runes
const (
	_EOF = -(iota + 1)
	_IDENT
	_STRING_LIT
	_RAW_STRING_LIT
	_INT_LIT
	_TRUE
	_FALSE
	_EOL
	_ERROR
)

var tokenNames = map[int]string{
	_EOF:            "end of input",
	_IDENT:          "identifier",
	_STRING_LIT:     "string literal",
	_RAW_STRING_LIT: "raw string literal",
	_INT_LIT:        "int literal",
	_TRUE:           `"true"`,
	_FALSE:          `"false"`,
	_EOL:            "end-of-line",
	_ERROR:          "error",
}

func tokenName(t int) string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%q", rune(t))
}

var keywords = map[string]int{
	"true":  _TRUE,
	"false": _FALSE,
}

// a newline after one of these runes continues the annotation on the next
// line
var trailingRunes = map[rune]struct{}{
	',': {},
	'.': {},
	'{': {},
	'(': {},
	':': {},
	'-': {},
}

type lexVal struct {
	p   scanner.Position
	id  string
	lit constant.Value
	err error
}

type annoLex struct {
	err error

	nextRune rune
	nextTok  string
	nextPos  scanner.Position

	lastRune rune
	lastPos  scanner.Position

	s scanner.Scanner
}

func newLexer(filename string, r io.Reader) *annoLex {
	var l annoLex
	l.s.Init(r)
	l.s.Filename = filename
	l.s.Mode = l.s.Mode &^ (scanner.ScanComments | scanner.SkipComments)
	l.s.Whitespace = 0
	l.s.Error = func(s *scanner.Scanner, msg string) {
		l.err = errors.New(msg)
	}
	return &l
}

func (l *annoLex) Lex(lval *lexVal) (t int) {
	if l.err != nil {
		lval.err = l.err
		return _ERROR
	}

	var r rune
	var tok string
	var pos scanner.Position
	defer func() {
		if r != scanner.EOF {
			l.lastRune = r
			l.lastPos = pos
		}
		if t == _ERROR && l.err == nil {
			l.err = lval.err
		}
	}()

	for {
		if l.nextRune != 0 {
			r = l.nextRune
			tok = l.nextTok
			pos = l.nextPos
			l.nextRune = 0
			l.nextTok = ""
			l.nextPos = scanner.Position{}
		} else {
			pos = l.s.Pos()
			r = l.s.Scan()
			tok = l.s.TokenText()
			if l.err != nil {
				lval.err = l.err
				return _ERROR
			}
		}

		if r == scanner.EOF {
			lval.p = pos
			return _EOF
		}

		// we handle whitespace ourselves so that we can easily know the
		// *start* position for a token (otherwise, scanner package only makes
		// easy to determine *end* position for a token)
		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}

		lval.p = pos

		switch r {
		case scanner.Ident:
			if v, ok := keywords[tok]; ok {
				return v
			}
			lval.id = tok
			return _IDENT

		case scanner.Int:
			lval.lit = constant.MakeFromLiteral(tok, token.INT, 0)
			return _INT_LIT

		case scanner.Float, scanner.Char:
			lval.err = fmt.Errorf("unsupported literal %s", tok)
			return _ERROR

		case scanner.String, scanner.RawString:
			lval.lit = constant.MakeFromLiteral(tok, token.STRING, 0)
			if tok[0] == '`' {
				return _RAW_STRING_LIT
			}
			return _STRING_LIT

		case '\n':
			if _, ok := trailingRunes[l.lastRune]; ok {
				continue
			}
			return _EOL
		}

		return int(r)
	}
}
