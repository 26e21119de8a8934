package graph

import (
	"fmt"
	"strings"

	"github.com/shivasurya/code-pathfinder/sast-engine/model"
)

// Parser implements the external-collaborator role from spec.md §1 for a
// deliberately reduced Solidity-like grammar: contracts/interfaces/libraries
// with inheritance, functions with modifier invocations, state and local
// variables, the executable statement set named in spec.md §3, and the full
// expression grammar. Assembly bodies are accepted but lexed opaquely (see
// lexer.go); no Yul parse tree is produced, matching §4.1's rule that
// unrecognized constructs contribute no CFG edges.
//
// A malformed input never aborts the whole tree: Parse recovers at the
// nearest statement or member boundary and continues, recording a parse
// diagnostic rather than returning early, consistent with §7's "never abort
// on malformed input."
type Parser struct {
	lex      *lexer
	file     string
	cur, ahead token
	hasAhead  bool
	nextID    int
	Diagnostics []string
}

// NewParser creates a parser over src, attributing all nodes to file.
func NewParser(file, src string) *Parser {
	p := &Parser{lex: newLexer(file, src), file: file}
	p.cur = p.lex.next()
	return p
}

func (p *Parser) advance() {
	if p.hasAhead {
		p.cur = p.ahead
		p.hasAhead = false
		return
	}
	p.cur = p.lex.next()
}

func (p *Parser) peek2() token {
	if !p.hasAhead {
		p.ahead = p.lex.next()
		p.hasAhead = true
	}
	return p.ahead
}

func (p *Parser) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s_%d", prefix, p.nextID)
}

func (p *Parser) isPunct(s string) bool { return p.cur.kind == tokPunct && p.cur.text == s }
func (p *Parser) isKeyword(s string) bool { return p.cur.kind == tokKeyword && p.cur.text == s }

func (p *Parser) expectPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	p.Diagnostics = append(p.Diagnostics, fmt.Sprintf("%s:%d:%d: expected %q, found %q", p.file, p.cur.line, p.cur.col, s, p.cur.text))
	return false
}

func (p *Parser) loc(startLine, startCol int) model.Location {
	return model.Location{File: p.file, StartLine: startLine, StartCol: startCol, EndLine: p.cur.line, EndCol: p.cur.col}
}

// ParseSourceUnit parses one file's worth of top-level declarations into an
// InMemoryTree, adding each as a root under p.file.
func (p *Parser) ParseSourceUnit(tree *InMemoryTree) {
	for p.cur.kind != tokEOF {
		startLine, startCol := p.cur.line, p.cur.col
		switch {
		case p.isKeyword("contract"):
			tree.AddRoot(p.file, p.parseContractLike(KindContractDeclaration, startLine, startCol))
		case p.isKeyword("interface"):
			tree.AddRoot(p.file, p.parseContractLike(KindInterfaceDeclaration, startLine, startCol))
		case p.isKeyword("library"):
			tree.AddRoot(p.file, p.parseContractLike(KindLibraryDeclaration, startLine, startCol))
		default:
			// Unknown top-level construct (pragma, import, free function):
			// skip to the next recognizable keyword rather than aborting.
			p.advance()
		}
	}
}

func (p *Parser) parseContractLike(kind NodeKind, startLine, startCol int) *Node {
	p.advance() // contract/interface/library
	name := p.cur.text
	p.advance()
	n := NewNode(p.id("decl"), kind, model.Location{})
	n.Name = name

	if p.isKeyword("is") {
		p.advance()
		for {
			specStart := p.cur
			base := p.cur.text
			p.advance()
			spec := NewNode(p.id("inherit"), KindInheritanceSpecifier, p.loc(specStart.line, specStart.col))
			spec.Name = base
			if p.isPunct("(") {
				p.advance()
				for !p.isPunct(")") && p.cur.kind != tokEOF {
					spec.AddListField("arguments", p.parseExpression())
					if p.isPunct(",") {
						p.advance()
					}
				}
				p.expectPunct(")")
			}
			n.AddListField("baseContracts", spec)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	p.expectPunct("{")
	for !p.isPunct("}") && p.cur.kind != tokEOF {
		member := p.parseMember()
		if member != nil {
			n.AddListField("members", member)
		}
	}
	p.expectPunct("}")
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseMember() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	switch {
	case p.isKeyword("function"):
		return p.parseFunctionLike(KindFunctionDefinition, startLine, startCol)
	case p.isKeyword("constructor"):
		return p.parseFunctionLike(KindConstructorDefinition, startLine, startCol)
	case p.isKeyword("fallback") || p.isKeyword("receive"):
		return p.parseFunctionLike(KindFallbackReceiveDefinition, startLine, startCol)
	case p.isKeyword("modifier"):
		return p.parseFunctionLike(KindModifierDefinition, startLine, startCol)
	case p.isKeyword("event") || p.isKeyword("struct") || p.isKeyword("enum"):
		// Not in the executable/CFG-relevant set; skip the declaration body.
		p.skipToSemicolonOrBlock()
		return nil
	default:
		return p.parseStateVariable(startLine, startCol)
	}
}

func (p *Parser) skipToSemicolonOrBlock() {
	depth := 0
	for p.cur.kind != tokEOF {
		if p.isPunct("{") {
			depth++
			p.advance()
			continue
		}
		if p.isPunct("}") {
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			if depth == 0 {
				return
			}
			continue
		}
		if depth == 0 && p.isPunct(";") {
			p.advance()
			return
		}
		p.advance()
	}
}

// parseFunctionLike handles function/constructor/fallback/receive/modifier
// definitions: a name (optional for constructor/fallback/receive), a
// parameter list, zero or more modifier invocations interleaved with
// visibility/mutability keywords (accepted and discarded — name-based
// analysis has no use for them), an optional returns clause, and a body or
// a bare ";" for an interface/abstract declaration.
func (p *Parser) parseFunctionLike(kind NodeKind, startLine, startCol int) *Node {
	keyword := p.cur.text
	p.advance()
	n := NewNode(p.id("fn"), kind, model.Location{})
	if p.cur.kind == tokIdent || (p.cur.kind == tokKeyword && !p.isPunct("(")) {
		if !p.isPunct("(") {
			n.Name = p.cur.text
			p.advance()
		}
	}
	if kind == KindFallbackReceiveDefinition {
		n.Name = keyword
	}

	if p.isPunct("(") {
		p.advance()
		for !p.isPunct(")") && p.cur.kind != tokEOF {
			n.AddListField("parameters", p.parseParameter())
			if p.isPunct(",") {
				p.advance()
			}
		}
		p.expectPunct(")")
	}

	for {
		switch {
		case p.cur.kind == tokKeyword && (p.cur.text == "public" || p.cur.text == "private" || p.cur.text == "internal" ||
			p.cur.text == "external" || p.cur.text == "view" || p.cur.text == "pure" || p.cur.text == "payable" ||
			p.cur.text == "virtual" || p.cur.text == "override"):
			if p.cur.text == "virtual" {
				n.Name = n.Name // no-op, virtual tracked via attribute below
				n.TypeName = strings.TrimSpace(n.TypeName + " virtual")
			}
			if p.cur.text == "override" {
				n.TypeName = strings.TrimSpace(n.TypeName + " override")
			}
			p.advance()
			if p.isPunct("(") { // override(Base1, Base2)
				p.advance()
				for !p.isPunct(")") && p.cur.kind != tokEOF {
					p.advance()
				}
				p.expectPunct(")")
			}
		case p.cur.kind == tokIdent:
			// modifier invocation
			mi := p.parseModifierInvocation()
			n.AddListField("modifiers", mi)
		case p.isKeyword("returns"):
			p.advance()
			p.expectPunct("(")
			for !p.isPunct(")") && p.cur.kind != tokEOF {
				n.AddListField("returnParameters", p.parseParameter())
				if p.isPunct(",") {
					p.advance()
				}
			}
			p.expectPunct(")")
		default:
			goto afterHeader
		}
	}
afterHeader:
	if p.isPunct("{") {
		n.SetField("body", p.parseBlock())
	} else {
		p.expectPunct(";")
	}
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseModifierInvocation() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	name := p.cur.text
	p.advance()
	mi := NewNode(p.id("modinv"), KindModifierInvocation, model.Location{})
	mi.Name = name
	if p.isPunct("(") {
		p.advance()
		for !p.isPunct(")") && p.cur.kind != tokEOF {
			mi.AddListField("arguments", p.parseExpression())
			if p.isPunct(",") {
				p.advance()
			}
		}
		p.expectPunct(")")
	}
	mi.Loc = p.loc(startLine, startCol)
	return mi
}

func (p *Parser) parseParameter() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	typeName := p.parseTypeName()
	n := NewNode(p.id("param"), KindParameter, model.Location{})
	n.TypeName = typeName
	for p.isKeyword("memory") || p.isKeyword("storage") || p.isKeyword("calldata") || p.isKeyword("public") || p.isKeyword("indexed") {
		p.advance()
	}
	if p.cur.kind == tokIdent {
		n.Name = p.cur.text
		p.advance()
	}
	n.Loc = p.loc(startLine, startCol)
	return n
}

// parseTypeName greedily consumes a type expression (possibly a mapping,
// array, or dotted/qualified name) and returns its raw text. Types are never
// resolved beyond this text (spec.md §1 non-goals: no type inference beyond
// name-based contract/interface recognition).
func (p *Parser) parseTypeName() string {
	var sb strings.Builder
	if p.isKeyword("mapping") {
		sb.WriteString("mapping")
		p.advance()
		if p.isPunct("(") {
			sb.WriteString("(")
			p.advance()
			depth := 1
			for depth > 0 && p.cur.kind != tokEOF {
				if p.isPunct("(") {
					depth++
				} else if p.isPunct(")") {
					depth--
				}
				sb.WriteString(p.cur.text)
				sb.WriteString(" ")
				p.advance()
			}
		}
		return sb.String()
	}
	sb.WriteString(p.cur.text)
	p.advance()
	for p.isPunct(".") {
		p.advance()
		sb.WriteString(".")
		sb.WriteString(p.cur.text)
		p.advance()
	}
	for p.isPunct("[") {
		sb.WriteString("[")
		p.advance()
		if !p.isPunct("]") {
			sb.WriteString(p.cur.text)
			p.advance()
		}
		if p.isPunct("]") {
			sb.WriteString("]")
			p.advance()
		}
	}
	return sb.String()
}

func (p *Parser) parseStateVariable(startLine, startCol int) *Node {
	typeName := p.parseTypeName()
	n := NewNode(p.id("statevar"), KindStateVariableDeclaration, model.Location{})
	n.TypeName = typeName
	for p.cur.kind == tokKeyword && (p.cur.text == "public" || p.cur.text == "private" || p.cur.text == "internal" ||
		p.cur.text == "constant" || p.cur.text == "immutable") {
		p.advance()
	}
	if p.cur.kind == tokIdent {
		n.Name = p.cur.text
		p.advance()
	}
	if p.isPunct("=") {
		p.advance()
		n.SetField("initializer", p.parseExpression())
	}
	p.expectPunct(";")
	n.Loc = p.loc(startLine, startCol)
	return n
}

// ---- statements ----

func (p *Parser) parseBlock() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	p.expectPunct("{")
	n := NewNode(p.id("block"), KindBlockStatement, model.Location{})
	for !p.isPunct("}") && p.cur.kind != tokEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			n.AddListField("statements", stmt)
		}
	}
	p.expectPunct("}")
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseStatement() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isKeyword("if"):
		return p.parseIf(startLine, startCol)
	case p.isKeyword("for"):
		return p.parseFor(startLine, startCol)
	case p.isKeyword("while"):
		return p.parseWhile(startLine, startCol)
	case p.isKeyword("do"):
		return p.parseDoWhile(startLine, startCol)
	case p.isKeyword("try"):
		return p.parseTry(startLine, startCol)
	case p.isKeyword("return"):
		p.advance()
		n := NewNode(p.id("ret"), KindReturnStatement, model.Location{})
		if !p.isPunct(";") {
			n.SetField("argument", p.parseExpression())
		}
		p.expectPunct(";")
		n.Loc = p.loc(startLine, startCol)
		return n
	case p.isKeyword("break"):
		p.advance()
		p.expectPunct(";")
		n := NewNode(p.id("brk"), KindBreakStatement, p.loc(startLine, startCol))
		return n
	case p.isKeyword("continue"):
		p.advance()
		p.expectPunct(";")
		n := NewNode(p.id("cont"), KindContinueStatement, p.loc(startLine, startCol))
		return n
	case p.isKeyword("emit"):
		p.advance()
		n := NewNode(p.id("emit"), KindEmitStatement, model.Location{})
		n.SetField("call", p.parseExpression())
		p.expectPunct(";")
		n.Loc = p.loc(startLine, startCol)
		return n
	case p.isKeyword("revert"):
		p.advance()
		n := NewNode(p.id("revert"), KindRevertStatement, model.Location{})
		if !p.isPunct(";") {
			n.SetField("call", p.parseExpression())
		}
		p.expectPunct(";")
		n.Loc = p.loc(startLine, startCol)
		return n
	case p.isKeyword("assembly"):
		p.advance()
		if p.isString() { // assembly "evmasm" {...} memory-safety annotation
			p.advance()
		}
		n := NewNode(p.id("asm"), KindAssemblyStatement, model.Location{})
		if p.isPunct("{") {
			n.Text_ = p.lex.rawAssemblyBlock()
			p.cur = p.lex.next()
			p.hasAhead = false
		}
		n.Loc = p.loc(startLine, startCol)
		return n
	case p.looksLikeVariableDeclaration():
		return p.parseVariableDeclarationStatement(startLine, startCol)
	default:
		n := NewNode(p.id("exprstmt"), KindExpressionStatement, model.Location{})
		n.SetField("expression", p.parseExpression())
		p.expectPunct(";")
		n.Loc = p.loc(startLine, startCol)
		return n
	}
}

func (p *Parser) isString() bool { return p.cur.kind == tokString }

// looksLikeVariableDeclaration distinguishes "uint256 x = 1;" from an
// expression statement like "x = 1;" by checking whether the current
// identifier/type keyword is followed (after an optional location keyword
// or bracket run) by another identifier rather than an operator.
func (p *Parser) looksLikeVariableDeclaration() bool {
	if p.cur.kind != tokIdent && p.cur.kind != tokKeyword {
		return false
	}
	if p.cur.kind == tokKeyword {
		switch p.cur.text {
		case "if", "for", "while", "do", "try", "return", "break", "continue", "emit", "revert", "assembly", "true", "false", "new":
			return false
		}
	}
	la := p.peek2()
	if la.kind == tokIdent {
		return true
	}
	if la.kind == tokKeyword && (la.text == "memory" || la.text == "storage" || la.text == "calldata") {
		return true
	}
	if la.kind == tokPunct && (la.text == "[" || la.text == ".") {
		return false // could be array type or member access; treat conservatively as expression
	}
	return false
}

func (p *Parser) parseVariableDeclarationStatement(startLine, startCol int) *Node {
	typeName := p.parseTypeName()
	for p.isKeyword("memory") || p.isKeyword("storage") || p.isKeyword("calldata") {
		p.advance()
	}
	n := NewNode(p.id("vardecl"), KindVariableDeclarationStatement, model.Location{})
	n.TypeName = typeName
	if p.cur.kind == tokIdent {
		n.Name = p.cur.text
		p.advance()
	}
	if p.isPunct("=") {
		p.advance()
		n.SetField("initializer", p.parseExpression())
	}
	p.expectPunct(";")
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseIf(startLine, startCol int) *Node {
	p.advance()
	p.expectPunct("(")
	n := NewNode(p.id("if"), KindIfStatement, model.Location{})
	n.SetField("condition", p.parseExpression())
	p.expectPunct(")")
	n.SetField("consequent", p.parseStatement())
	if p.isKeyword("else") {
		p.advance()
		n.SetField("alternate", p.parseStatement())
	}
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseFor(startLine, startCol int) *Node {
	p.advance()
	p.expectPunct("(")
	n := NewNode(p.id("for"), KindForStatement, model.Location{})
	if !p.isPunct(";") {
		if p.looksLikeVariableDeclaration() {
			typeName := p.parseTypeName()
			for p.isKeyword("memory") || p.isKeyword("storage") || p.isKeyword("calldata") {
				p.advance()
			}
			init := NewNode(p.id("vardecl"), KindVariableDeclarationStatement, model.Location{})
			init.TypeName = typeName
			if p.cur.kind == tokIdent {
				init.Name = p.cur.text
				p.advance()
			}
			if p.isPunct("=") {
				p.advance()
				init.SetField("initializer", p.parseExpression())
			}
			n.SetField("init", init)
		} else {
			exprStmt := NewNode(p.id("exprstmt"), KindExpressionStatement, model.Location{})
			exprStmt.SetField("expression", p.parseExpression())
			n.SetField("init", exprStmt)
		}
	}
	p.expectPunct(";")
	if !p.isPunct(";") {
		n.SetField("condition", p.parseExpression())
	}
	p.expectPunct(";")
	if !p.isPunct(")") {
		update := NewNode(p.id("exprstmt"), KindExpressionStatement, model.Location{})
		update.SetField("expression", p.parseExpression())
		n.SetField("update", update)
	}
	p.expectPunct(")")
	n.SetField("body", p.parseStatement())
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseWhile(startLine, startCol int) *Node {
	p.advance()
	p.expectPunct("(")
	n := NewNode(p.id("while"), KindWhileStatement, model.Location{})
	n.SetField("condition", p.parseExpression())
	p.expectPunct(")")
	n.SetField("body", p.parseStatement())
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseDoWhile(startLine, startCol int) *Node {
	p.advance()
	n := NewNode(p.id("dowhile"), KindDoWhileStatement, model.Location{})
	n.SetField("body", p.parseStatement())
	if !p.isKeyword("while") {
		p.Diagnostics = append(p.Diagnostics, fmt.Sprintf("%s:%d:%d: expected 'while'", p.file, p.cur.line, p.cur.col))
	} else {
		p.advance()
	}
	p.expectPunct("(")
	n.SetField("condition", p.parseExpression())
	p.expectPunct(")")
	p.expectPunct(";")
	n.Loc = p.loc(startLine, startCol)
	return n
}

func (p *Parser) parseTry(startLine, startCol int) *Node {
	p.advance()
	n := NewNode(p.id("try"), KindTryStatement, model.Location{})
	n.SetField("expression", p.parseExpression())
	if p.isKeyword("returns") {
		p.advance()
		p.expectPunct("(")
		for !p.isPunct(")") && p.cur.kind != tokEOF {
			n.AddListField("returnParameters", p.parseParameter())
			if p.isPunct(",") {
				p.advance()
			}
		}
		p.expectPunct(")")
	}
	n.SetField("body", p.parseBlock())
	for p.isKeyword("catch") {
		catchStart := p.cur.line
		catchCol := p.cur.col
		p.advance()
		clause := NewNode(p.id("catch"), KindCatchClause, model.Location{})
		if p.cur.kind == tokIdent { // catch Error(...)
			clause.Name = p.cur.text
			p.advance()
		}
		if p.isPunct("(") {
			p.advance()
			for !p.isPunct(")") && p.cur.kind != tokEOF {
				clause.AddListField("parameters", p.parseParameter())
				if p.isPunct(",") {
					p.advance()
				}
			}
			p.expectPunct(")")
		}
		clause.SetField("body", p.parseBlock())
		clause.Loc = p.loc(catchStart, catchCol)
		n.AddListField("handlers", clause)
	}
	n.Loc = p.loc(startLine, startCol)
	return n
}

// ---- expressions (precedence climbing) ----

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

func (p *Parser) parseExpression() *Node {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() *Node {
	left := p.parseTernary()
	if p.cur.kind == tokPunct && assignOps[p.cur.text] {
		op := p.cur.text
		startLine, startCol := left.Loc.StartLine, left.Loc.StartCol
		p.advance()
		right := p.parseAssignment()
		kind := KindAssignmentExpression
		if op != "=" {
			kind = KindAugmentedAssignmentExpression
		}
		n := NewNode(p.id("assign"), kind, model.Location{})
		n.Operator = op
		n.SetField("left", left)
		n.SetField("right", right)
		n.Loc = p.loc(startLine, startCol)
		return n
	}
	return left
}

func (p *Parser) parseTernary() *Node {
	cond := p.parseBinary(0)
	if p.isPunct("?") {
		startLine, startCol := cond.Loc.StartLine, cond.Loc.StartCol
		p.advance()
		thenExpr := p.parseExpression()
		p.expectPunct(":")
		elseExpr := p.parseAssignment()
		n := NewNode(p.id("ternary"), KindTernaryExpression, model.Location{})
		n.SetField("condition", cond)
		n.SetField("consequent", thenExpr)
		n.SetField("alternate", elseExpr)
		n.Loc = p.loc(startLine, startCol)
		return n
	}
	return cond
}

func (p *Parser) parseBinary(minPrec int) *Node {
	left := p.parseUnary()
	for {
		if p.cur.kind != tokPunct {
			return left
		}
		prec, ok := binPrec[p.cur.text]
		if !ok || prec < minPrec {
			return left
		}
		op := p.cur.text
		p.advance()
		right := p.parseBinary(prec + 1)
		n := NewNode(p.id("bin"), KindBinaryExpression, model.Location{})
		n.Operator = op
		n.SetField("left", left)
		n.SetField("right", right)
		n.Loc = model.Location{File: p.file, StartLine: left.Loc.StartLine, StartCol: left.Loc.StartCol, EndLine: right.Loc.EndLine, EndCol: right.Loc.EndCol}
		left = n
	}
}

func (p *Parser) parseUnary() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	if p.cur.kind == tokPunct && (p.cur.text == "!" || p.cur.text == "-" || p.cur.text == "+" || p.cur.text == "~") {
		op := p.cur.text
		p.advance()
		operand := p.parseUnary()
		n := NewNode(p.id("unary"), KindUnaryExpression, model.Location{})
		n.Operator = op
		n.SetField("operand", operand)
		n.Loc = p.loc(startLine, startCol)
		return n
	}
	if p.cur.kind == tokPunct && (p.cur.text == "++" || p.cur.text == "--") {
		op := p.cur.text
		p.advance()
		operand := p.parseUnary()
		n := NewNode(p.id("update"), KindUpdateExpression, model.Location{})
		n.Operator = "prefix" + op
		n.SetField("operand", operand)
		n.Loc = p.loc(startLine, startCol)
		return n
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *Node {
	expr := p.parsePrimary()
	for {
		switch {
		case p.isPunct("."):
			p.advance()
			member := p.cur.text
			p.advance()
			n := NewNode(p.id("member"), KindMemberExpression, model.Location{})
			n.Name = member
			n.SetField("object", expr)
			n.Loc = model.Location{File: p.file, StartLine: expr.Loc.StartLine, StartCol: expr.Loc.StartCol, EndLine: p.cur.line, EndCol: p.cur.col}
			expr = n
		case p.isPunct("["):
			p.advance()
			n := NewNode(p.id("index"), KindArrayAccess, model.Location{})
			n.SetField("base", expr)
			if !p.isPunct("]") {
				n.SetField("index", p.parseExpression())
			}
			p.expectPunct("]")
			n.Loc = model.Location{File: p.file, StartLine: expr.Loc.StartLine, StartCol: expr.Loc.StartCol, EndLine: p.cur.line, EndCol: p.cur.col}
			expr = n
		case p.isPunct("("):
			p.advance()
			n := NewNode(p.id("call"), KindCallExpression, model.Location{})
			n.SetField("callee", expr)
			for !p.isPunct(")") && p.cur.kind != tokEOF {
				n.AddListField("arguments", p.parseExpression())
				if p.isPunct(",") {
					p.advance()
				}
			}
			p.expectPunct(")")
			n.Loc = model.Location{File: p.file, StartLine: expr.Loc.StartLine, StartCol: expr.Loc.StartCol, EndLine: p.cur.line, EndCol: p.cur.col}
			expr = n
		case p.isPunct("{"): // named-argument call: callee({a: 1, b: 2})
			p.advance()
			n := NewNode(p.id("call"), KindCallExpression, model.Location{})
			n.SetField("callee", expr)
			for !p.isPunct("}") && p.cur.kind != tokEOF {
				if p.cur.kind == tokIdent {
					p.advance()
				}
				if p.isPunct(":") {
					p.advance()
				}
				n.AddListField("arguments", p.parseExpression())
				if p.isPunct(",") {
					p.advance()
				}
			}
			p.expectPunct("}")
			expr = n
		case p.isPunct("++") || p.isPunct("--"):
			op := p.cur.text
			p.advance()
			n := NewNode(p.id("update"), KindUpdateExpression, model.Location{})
			n.Operator = "postfix" + op
			n.SetField("operand", expr)
			n.Loc = expr.Loc
			expr = n
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() *Node {
	startLine, startCol := p.cur.line, p.cur.col
	switch {
	case p.isPunct("("):
		p.advance()
		first := p.parseExpression()
		if p.isPunct(",") {
			n := NewNode(p.id("tuple"), KindTupleExpression, model.Location{})
			n.AddListField("elements", first)
			for p.isPunct(",") {
				p.advance()
				n.AddListField("elements", p.parseExpression())
			}
			p.expectPunct(")")
			n.Loc = p.loc(startLine, startCol)
			return n
		}
		p.expectPunct(")")
		n := NewNode(p.id("paren"), KindParenthesizedExpression, model.Location{})
		n.SetField("inner", first)
		n.Loc = p.loc(startLine, startCol)
		return n
	case p.isKeyword("new"):
		p.advance()
		typeName := p.parseTypeName()
		n := NewNode(p.id("new"), KindNewExpression, model.Location{})
		n.TypeName = typeName
		if p.isPunct("(") {
			p.advance()
			for !p.isPunct(")") && p.cur.kind != tokEOF {
				n.AddListField("arguments", p.parseExpression())
				if p.isPunct(",") {
					p.advance()
				}
			}
			p.expectPunct(")")
		}
		n.Loc = p.loc(startLine, startCol)
		return n
	case p.cur.kind == tokNumber:
		text := p.cur.text
		p.advance()
		n := NewNode(p.id("num"), KindNumberLiteral, p.loc(startLine, startCol))
		n.Text_ = text
		return n
	case p.cur.kind == tokString:
		text := p.cur.text
		p.advance()
		n := NewNode(p.id("str"), KindStringLiteral, p.loc(startLine, startCol))
		n.Text_ = text
		return n
	case p.isKeyword("true") || p.isKeyword("false"):
		text := p.cur.text
		p.advance()
		n := NewNode(p.id("bool"), KindBoolLiteral, p.loc(startLine, startCol))
		n.Text_ = text
		return n
	case p.cur.kind == tokIdent || p.cur.kind == tokKeyword:
		text := p.cur.text
		p.advance()
		n := NewNode(p.id("ident"), KindIdentifier, p.loc(startLine, startCol))
		n.Name = text
		n.Text_ = text
		return n
	default:
		// Malformed expression: consume the token and emit a placeholder
		// identifier so the surrounding statement still parses (§7).
		text := p.cur.text
		p.Diagnostics = append(p.Diagnostics, fmt.Sprintf("%s:%d:%d: unexpected token %q in expression", p.file, p.cur.line, p.cur.col, text))
		if p.cur.kind != tokEOF {
			p.advance()
		}
		n := NewNode(p.id("err"), KindIdentifier, p.loc(startLine, startCol))
		n.Name = "<error>"
		return n
	}
}

// ParseFile is the convenience entry point: parses src under file and
// returns a tree containing just that file's roots (callers building a
// multi-file project call NewParser/ParseSourceUnit directly against one
// shared InMemoryTree instead).
func ParseFile(file, src string) (*InMemoryTree, []string) {
	tree := NewInMemoryTree()
	p := NewParser(file, src)
	p.ParseSourceUnit(tree)
	return tree, p.Diagnostics
}
