package graph

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
	tokKeyword
)

type token struct {
	kind        tokenKind
	text        string
	line, col   int
}

var keywords = map[string]bool{
	"contract": true, "interface": true, "library": true, "is": true,
	"function": true, "modifier": true, "constructor": true, "fallback": true,
	"receive": true, "returns": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"try": true, "catch": true, "break": true, "continue": true,
	"emit": true, "revert": true, "assembly": true, "new": true,
	"memory": true, "storage": true, "calldata": true,
	"public": true, "private": true, "internal": true, "external": true,
	"view": true, "pure": true, "payable": true, "virtual": true, "override": true,
	"true": true, "false": true, "mapping": true, "struct": true, "enum": true,
	"event": true, "uint": true, "uint256": true, "int": true, "int256": true,
	"address": true, "bool": true, "string": true, "bytes": true, "bytes32": true,
}

// lexer tokenizes a reduced Solidity-like subset: enough for contracts,
// interfaces, inheritance, functions/modifiers, state/local variables,
// if/for/while/do-while/try-catch, return/break/continue/emit/revert, and
// the full expression grammar. Assembly blocks are lexed as a single opaque
// string token (the Yul grammar is not implemented; spec §4.1 treats unknown
// constructs as contributing no edges).
type lexer struct {
	src        []rune
	pos        int
	line, col  int
	file       string
}

func newLexer(file, src string) *lexer {
	return &lexer{src: []rune(src), line: 1, col: 1, file: file}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		r := l.peekRune()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peekRune() != '\n' {
				l.advance()
			}
		case r == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) && !(l.peekRune() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if l.pos < len(l.src) {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

// rawAssemblyBlock consumes a balanced-brace blob starting at the current
// '{' and returns its raw text (braces included).
func (l *lexer) rawAssemblyBlock() string {
	var sb strings.Builder
	depth := 0
	for l.pos < len(l.src) {
		r := l.peekRune()
		if r == '{' {
			depth++
		} else if r == '}' {
			depth--
		}
		sb.WriteRune(l.advance())
		if depth == 0 {
			break
		}
	}
	return sb.String()
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' || r == '$' }
func isIdentPart(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' }

var multiCharPuncts = []string{
	"<<=", ">>=", "**", "&&", "||", "==", "!=", "<=", ">=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
	"++", "--", "->", "=>",
}

func (l *lexer) next() token {
	l.skipTrivia()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}
	}
	r := l.peekRune()
	switch {
	case isIdentStart(r):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.peekRune()) {
			l.advance()
		}
		text := string(l.src[start:l.pos])
		if keywords[text] {
			return token{kind: tokKeyword, text: text, line: line, col: col}
		}
		return token{kind: tokIdent, text: text, line: line, col: col}
	case unicode.IsDigit(r):
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsDigit(l.peekRune()) || l.peekRune() == '.' || isIdentPart(l.peekRune())) {
			l.advance()
		}
		return token{kind: tokNumber, text: string(l.src[start:l.pos]), line: line, col: col}
	case r == '"' || r == '\'':
		quote := r
		l.advance()
		start := l.pos
		for l.pos < len(l.src) && l.peekRune() != quote {
			if l.peekRune() == '\\' {
				l.advance()
			}
			l.advance()
		}
		text := string(l.src[start:l.pos])
		if l.pos < len(l.src) {
			l.advance()
		}
		return token{kind: tokString, text: text, line: line, col: col}
	default:
		for _, mc := range multiCharPuncts {
			if l.hasPrefix(mc) {
				for range mc {
					l.advance()
				}
				return token{kind: tokPunct, text: mc, line: line, col: col}
			}
		}
		l.advance()
		return token{kind: tokPunct, text: string(r), line: line, col: col}
	}
}

func (l *lexer) hasPrefix(s string) bool {
	rs := []rune(s)
	if l.pos+len(rs) > len(l.src) {
		return false
	}
	for i, r := range rs {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}
