package syntax

import (
	"strings"
	"unicode"

	"github.com/malphas-lang/matchc/internal/diag"
)

type (
	prefixParseFn func() Expr
	infixParseFn  func(Expr) Expr
)

const (
	precedenceLowest = iota
	precedenceAssign
	precedenceOr
	precedenceAnd
	precedenceEquality
	precedenceComparison
	precedenceSum
	precedenceProduct
	precedencePrefix
	precedencePostfix
)

var precedences = map[TokenType]int{
	ASSIGN:   precedenceAssign,
	OR:       precedenceOr,
	AND:      precedenceAnd,
	EQ:       precedenceEquality,
	NOT_EQ:   precedenceEquality,
	LT:       precedenceComparison,
	LE:       precedenceComparison,
	GT:       precedenceComparison,
	GE:       precedenceComparison,
	PLUS:     precedenceSum,
	MINUS:    precedenceSum,
	ASTERISK: precedenceProduct,
	LPAREN:   precedencePostfix,
	DOT:      precedencePostfix,
}

// Errors is a list of diagnostics returned as one error.
type Errors []diag.Diagnostic

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, d := range e {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// Parser is a Pratt-style recursive descent parser.
//
// curTok is the token under examination and peekTok the next one; they
// are only advanced by nextToken. Every parse function starts with curTok
// at the first token of its construct and returns with curTok at the
// last one.
type Parser struct {
	lx      *Lexer
	curTok  Token
	peekTok Token

	errors []diag.Diagnostic

	prefixFns map[TokenType]prefixParseFn
	infixFns  map[TokenType]infixParseFn

	// noStruct forbids struct literals, as in `match x {` and `if x {`.
	noStruct bool
}

// NewParser returns a parser initialised with the provided source input.
func NewParser(filename, input string) *Parser {
	p := &Parser{
		lx:        NewLexer(filename, input),
		prefixFns: make(map[TokenType]prefixParseFn),
		infixFns:  make(map[TokenType]infixParseFn),
	}

	p.prefixFns[IDENT] = p.parseIdentifier
	p.prefixFns[INT] = p.parseLiteral
	p.prefixFns[STRING] = p.parseLiteral
	p.prefixFns[CHAR] = p.parseLiteral
	p.prefixFns[TRUE] = p.parseLiteral
	p.prefixFns[FALSE] = p.parseLiteral
	p.prefixFns[MINUS] = p.parsePrefixExpr
	p.prefixFns[BANG] = p.parsePrefixExpr
	p.prefixFns[ASTERISK] = p.parsePrefixExpr
	p.prefixFns[AMPERSAND] = p.parsePrefixExpr
	p.prefixFns[AND] = p.parsePrefixExpr
	p.prefixFns[LPAREN] = p.parseGroupedExpr
	p.prefixFns[LBRACKET] = p.parseArrayExpr
	p.prefixFns[LBRACE] = func() Expr {
		if b := p.parseBlockExpr(); b != nil {
			return b
		}
		return nil
	}
	p.prefixFns[IF] = p.parseIfExpr
	p.prefixFns[MATCH] = p.parseMatchExpr
	p.prefixFns[LET] = p.parseLetExpr
	p.prefixFns[BOX] = p.parseBoxExpr
	p.prefixFns[RETURN] = p.parseReturnExpr

	for _, tt := range []TokenType{OR, AND, EQ, NOT_EQ, LT, LE, GT, GE, PLUS, MINUS, ASTERISK} {
		p.infixFns[tt] = p.parseInfixExpr
	}
	p.infixFns[ASSIGN] = p.parseAssignExpr
	p.infixFns[LPAREN] = p.parseCallExpr
	p.infixFns[DOT] = p.parseFieldExpr

	// Seed curTok/peekTok.
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns lexer and parser errors in source order.
func (p *Parser) Errors() []diag.Diagnostic {
	return append(append([]diag.Diagnostic{}, p.lx.Errors...), p.errors...)
}

func (p *Parser) err() error {
	if errs := p.Errors(); len(errs) != 0 {
		return Errors(errs)
	}
	return nil
}

// nextToken advances the parser's token window.
func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.lx.NextToken()
}

// expect asserts that the peek token matches tt and promotes it into curTok.
func (p *Parser) expect(tt TokenType) bool {
	if p.peekTok.Type == tt {
		p.nextToken()
		return true
	}

	p.reportError("expected '"+string(tt)+"', got '"+p.peekTok.Literal+"'", p.peekTok.Span)
	return false
}

// accept consumes the peek token if it is tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.peekTok.Type != tt {
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) reportError(msg string, span diag.Span) {
	p.errors = append(p.errors, diag.Errorf(diag.StageParser, diag.CodeParseUnexpectedToken, span, "%s", msg))
}

// mergeSpan returns a span covering start and end.
func mergeSpan(start, end diag.Span) diag.Span {
	return diag.Merge(start, end)
}

func (p *Parser) spanFrom(start diag.Span) diag.Span {
	return mergeSpan(start, p.curTok.Span)
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekTok.Type]; ok {
		return prec
	}
	return precedenceLowest
}

// ParseFile parses a sequence of enum, struct and fn declarations.
func (p *Parser) ParseFile() (*File, error) {
	f := &File{}

	for p.curTok.Type != EOF {
		errCount := len(p.errors)

		if d := p.parseDecl(); d != nil {
			f.Decls = append(f.Decls, d)
		}
		if len(p.errors) != errCount {
			break
		}

		p.nextToken()
	}

	return f, p.err()
}

// parseDelimited parses `item (sep item)* [sep]` up to closing. It starts
// with curTok at the opening delimiter and ends on closing.
func parseDelimited[T any](p *Parser, closing TokenType, item func() (T, bool)) ([]T, bool) {
	var out []T

	for {
		if p.accept(closing) {
			return out, true
		}

		p.nextToken()
		x, ok := item()
		if !ok {
			return nil, false
		}
		out = append(out, x)

		if p.accept(COMMA) {
			continue
		}
		if !p.expect(closing) {
			return nil, false
		}

		return out, true
	}
}

func (p *Parser) parseDecl() Decl {
	switch p.curTok.Type {
	case ENUM:
		return p.parseEnumDecl()
	case STRUCT:
		return p.parseStructDecl()
	case FN:
		return p.parseFnDecl()
	}

	p.reportError("expected declaration, got '"+p.curTok.Literal+"'", p.curTok.Span)
	return nil
}

func (p *Parser) parseEnumDecl() Decl {
	start := p.curTok.Span
	if !p.expect(IDENT) {
		return nil
	}
	d := &EnumDecl{Name: p.curTok.Literal}
	if !p.expect(LBRACE) {
		return nil
	}

	vars, ok := parseDelimited(p, RBRACE, func() (VariantDecl, bool) {
		if p.curTok.Type != IDENT {
			p.reportError("expected variant name", p.curTok.Span)
			return VariantDecl{}, false
		}
		v := VariantDecl{Name: p.curTok.Literal, Span: p.curTok.Span}
		if p.accept(LPAREN) {
			payload, ok := parseDelimited(p, RPAREN, p.parseTypeOK)
			if !ok {
				return v, false
			}
			v.Payload = payload
		}
		return v, true
	})
	if !ok {
		return nil
	}

	d.Variants = vars
	d.span = p.spanFrom(start)

	return d
}

func (p *Parser) parseStructDecl() Decl {
	start := p.curTok.Span
	if !p.expect(IDENT) {
		return nil
	}
	d := &StructDecl{Name: p.curTok.Literal}
	if !p.expect(LBRACE) {
		return nil
	}

	fields, ok := parseDelimited(p, RBRACE, func() (FieldDecl, bool) {
		if p.curTok.Type != IDENT {
			p.reportError("expected field name", p.curTok.Span)
			return FieldDecl{}, false
		}
		f := FieldDecl{Name: p.curTok.Literal, Span: p.curTok.Span}
		if !p.expect(COLON) {
			return f, false
		}
		p.nextToken()
		f.Type = p.parseType()
		return f, f.Type != nil
	})
	if !ok {
		return nil
	}

	d.Fields = fields
	d.span = p.spanFrom(start)

	return d
}

func (p *Parser) parseFnDecl() Decl {
	start := p.curTok.Span
	if !p.expect(IDENT) {
		return nil
	}
	d := &FnDecl{Name: p.curTok.Literal}
	if !p.expect(LPAREN) {
		return nil
	}

	params, ok := parseDelimited(p, RPAREN, func() (ParamDecl, bool) {
		pd := ParamDecl{Span: p.curTok.Span}
		if p.curTok.Type == MUT {
			pd.Mutable = true
			p.nextToken()
		}
		if p.curTok.Type != IDENT {
			p.reportError("expected parameter name", p.curTok.Span)
			return pd, false
		}
		pd.Name = p.curTok.Literal
		if !p.expect(COLON) {
			return pd, false
		}
		p.nextToken()
		pd.Type = p.parseType()
		return pd, pd.Type != nil
	})
	if !ok {
		return nil
	}
	d.Params = params

	if p.accept(ARROW) {
		p.nextToken()
		if d.Ret = p.parseType(); d.Ret == nil {
			return nil
		}
	}

	switch {
	case p.accept(SEMICOLON):
	case p.expect(LBRACE):
		if d.Body = p.parseBlockExpr(); d.Body == nil {
			return nil
		}
	default:
		return nil
	}

	d.span = p.spanFrom(start)

	return d
}

func (p *Parser) parseTypeOK() (TypeExpr, bool) {
	t := p.parseType()
	return t, t != nil
}

func (p *Parser) parseType() TypeExpr {
	start := p.curTok.Span

	switch p.curTok.Type {
	case IDENT:
		name := p.curTok.Literal
		if name == "Box" && p.accept(LT) {
			p.nextToken()
			elem := p.parseType()
			if elem == nil || !p.expect(GT) {
				return nil
			}
			return &BoxType{node: node{p.spanFrom(start)}, Elem: elem}
		}
		return &NamedType{node: node{start}, Name: name}

	case LPAREN:
		elems, ok := parseDelimited(p, RPAREN, p.parseTypeOK)
		if !ok {
			return nil
		}
		return &TupleType{node: node{p.spanFrom(start)}, Elems: elems}

	case AMPERSAND, AND:
		double := p.curTok.Type == AND
		mut := p.accept(MUT)
		p.nextToken()
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		var t TypeExpr = &RefType{node: node{p.spanFrom(start)}, Mutable: mut, Elem: elem}
		if double {
			t = &RefType{node: node{p.spanFrom(start)}, Elem: t}
		}
		return t

	case LBRACKET:
		p.nextToken()
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		t := &SliceType{Elem: elem, Len: -1}
		if p.accept(SEMICOLON) {
			if !p.expect(INT) {
				return nil
			}
			n, ok := parseInt(p.curTok.Literal)
			if !ok {
				p.reportError("invalid array length "+p.curTok.Literal, p.curTok.Span)
				return nil
			}
			t.Len = int(n)
		}
		if !p.expect(RBRACKET) {
			return nil
		}
		t.span = p.spanFrom(start)
		return t

	case BANG:
		return &NeverType{node: node{start}}
	}

	p.reportError("expected type, got '"+p.curTok.Literal+"'", p.curTok.Span)
	return nil
}

// ParseExpression parses one expression.
func (p *Parser) parseExpression(precedence int) Expr {
	prefix := p.prefixFns[p.curTok.Type]
	if prefix == nil {
		p.reportError("unexpected '"+p.curTok.Literal+"' in expression", p.curTok.Span)
		return nil
	}

	left := prefix()

	for left != nil && precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekTok.Type]
		if infix == nil {
			return left
		}

		p.nextToken()
		left = infix(left)
	}

	return left
}

// parseNoStruct parses an expression in which struct literals are not
// allowed, so that a following `{` opens a block.
func (p *Parser) parseNoStruct(precedence int) Expr {
	saved := p.noStruct
	p.noStruct = true
	defer func() { p.noStruct = saved }()

	return p.parseExpression(precedence)
}

func (p *Parser) withStructs(f func() Expr) Expr {
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	return f()
}

func (p *Parser) parseIdentifier() Expr {
	start := p.curTok.Span
	name := p.curTok.Literal

	if p.peekTok.Type == DOUBLE_COLON {
		path := []string{name}
		for p.accept(DOUBLE_COLON) {
			if !p.expect(IDENT) {
				return nil
			}
			path = append(path, p.curTok.Literal)
		}
		return &PathExpr{node: node{p.spanFrom(start)}, Path: path}
	}

	if p.peekTok.Type == LBRACE && !p.noStruct && isUppercase(name) {
		return p.parseStructExpr()
	}

	return &IdentExpr{node: node{start}, Name: name}
}

func (p *Parser) parseStructExpr() Expr {
	start := p.curTok.Span
	e := &StructExpr{Name: p.curTok.Literal}
	p.nextToken() // '{'

	fields, ok := parseDelimited(p, RBRACE, func() (FieldInit, bool) {
		if p.curTok.Type != IDENT {
			p.reportError("expected field name", p.curTok.Span)
			return FieldInit{}, false
		}
		f := FieldInit{Name: p.curTok.Literal, Span: p.curTok.Span}
		if !p.accept(COLON) {
			f.Value = &IdentExpr{node: node{f.Span}, Name: f.Name}
			return f, true
		}
		p.nextToken()
		f.Value = p.withStructs(func() Expr { return p.parseExpression(precedenceLowest) })
		return f, f.Value != nil
	})
	if !ok {
		return nil
	}

	e.Fields = fields
	e.span = p.spanFrom(start)

	return e
}

func (p *Parser) parseLiteral() Expr {
	return &LitExpr{node: node{p.curTok.Span}, Kind: p.curTok.Type, Value: p.curTok.Literal}
}

func (p *Parser) parsePrefixExpr() Expr {
	start := p.curTok.Span
	op := p.curTok.Type

	if op == MINUS && p.peekTok.Type == INT {
		p.nextToken()
		return &LitExpr{node: node{p.spanFrom(start)}, Kind: INT, Value: p.curTok.Literal, Neg: true}
	}

	mut := false
	if op == AMPERSAND || op == AND {
		mut = p.accept(MUT)
	}

	p.nextToken()
	x := p.parseExpression(precedencePrefix)
	if x == nil {
		return nil
	}

	if op == AND {
		inner := &UnaryExpr{node: node{p.spanFrom(start)}, Op: AMPERSAND, Mutable: mut, X: x}
		return &UnaryExpr{node: node{p.spanFrom(start)}, Op: AMPERSAND, X: inner}
	}

	return &UnaryExpr{node: node{p.spanFrom(start)}, Op: op, Mutable: mut, X: x}
}

func (p *Parser) parseInfixExpr(left Expr) Expr {
	op := p.curTok.Type
	prec := precedences[op]

	p.nextToken()
	right := p.parseExpression(prec)
	if right == nil {
		return nil
	}

	return &BinaryExpr{node: node{mergeSpan(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
}

func (p *Parser) parseAssignExpr(left Expr) Expr {
	id, ok := left.(*IdentExpr)
	if !ok {
		p.reportError("only variables can be assigned", left.Span())
		return nil
	}

	p.nextToken()
	val := p.parseExpression(precedenceAssign - 1)
	if val == nil {
		return nil
	}

	return &AssignExpr{node: node{mergeSpan(left.Span(), val.Span())}, Name: id.Name, Value: val}
}

func (p *Parser) parseCallExpr(callee Expr) Expr {
	args, ok := parseDelimited(p, RPAREN, func() (Expr, bool) {
		e := p.withStructs(func() Expr { return p.parseExpression(precedenceLowest) })
		return e, e != nil
	})
	if !ok {
		return nil
	}

	return &CallExpr{node: node{p.spanFrom(callee.Span())}, Callee: callee, Args: args}
}

func (p *Parser) parseFieldExpr(x Expr) Expr {
	p.nextToken()
	if p.curTok.Type != IDENT && p.curTok.Type != INT {
		p.reportError("expected field name or index", p.curTok.Span)
		return nil
	}

	return &FieldExpr{node: node{p.spanFrom(x.Span())}, X: x, Name: p.curTok.Literal}
}

func (p *Parser) parseGroupedExpr() Expr {
	start := p.curTok.Span
	trailingComma := false

	elems, ok := parseDelimited(p, RPAREN, func() (Expr, bool) {
		e := p.withStructs(func() Expr { return p.parseExpression(precedenceLowest) })
		trailingComma = p.peekTok.Type == COMMA
		return e, e != nil
	})
	if !ok {
		return nil
	}

	if len(elems) == 1 && !trailingComma {
		return elems[0]
	}

	return &TupleExpr{node: node{p.spanFrom(start)}, Elems: elems}
}

func (p *Parser) parseArrayExpr() Expr {
	start := p.curTok.Span

	elems, ok := parseDelimited(p, RBRACKET, func() (Expr, bool) {
		e := p.withStructs(func() Expr { return p.parseExpression(precedenceLowest) })
		return e, e != nil
	})
	if !ok {
		return nil
	}

	return &ArrayExpr{node: node{p.spanFrom(start)}, Elems: elems}
}

func (p *Parser) parseBoxExpr() Expr {
	start := p.curTok.Span
	p.nextToken()

	x := p.parseExpression(precedencePrefix)
	if x == nil {
		return nil
	}

	return &BoxExpr{node: node{p.spanFrom(start)}, X: x}
}

func (p *Parser) parseReturnExpr() Expr {
	start := p.curTok.Span
	e := &ReturnExpr{}

	switch p.peekTok.Type {
	case SEMICOLON, RBRACE, COMMA, EOF:
	default:
		p.nextToken()
		if e.Value = p.parseExpression(precedenceLowest); e.Value == nil {
			return nil
		}
	}

	e.span = p.spanFrom(start)

	return e
}

// parseLetExpr parses `let PAT = EXPR` in a condition. The initializer
// binds tighter than && and ||.
func (p *Parser) parseLetExpr() Expr {
	start := p.curTok.Span
	p.nextToken()

	pat := p.parsePattern()
	if pat == nil || !p.expect(ASSIGN) {
		return nil
	}

	p.nextToken()
	init := p.parseExpression(precedenceAnd)
	if init == nil {
		return nil
	}

	return &LetExpr{node: node{p.spanFrom(start)}, Pat: pat, Init: init}
}

func (p *Parser) parseIfExpr() Expr {
	start := p.curTok.Span
	p.nextToken()

	cond := p.parseNoStruct(precedenceLowest)
	if cond == nil || !p.expect(LBRACE) {
		return nil
	}

	then := p.parseBlockExpr()
	if then == nil {
		return nil
	}

	e := &IfExpr{Cond: cond, Then: then}

	if p.accept(ELSE) {
		switch {
		case p.accept(IF):
			e.Else = p.parseIfExpr()
		case p.expect(LBRACE):
			e.Else = p.parseBlockExpr()
		default:
			return nil
		}
		if isNil(e.Else) {
			return nil
		}
	}

	e.span = p.spanFrom(start)

	return e
}

func (p *Parser) parseMatchExpr() Expr {
	start := p.curTok.Span
	p.nextToken()

	scrut := p.parseNoStruct(precedenceLowest)
	if scrut == nil || !p.expect(LBRACE) {
		return nil
	}

	e := &MatchExpr{Scrutinee: scrut}

	for !p.accept(RBRACE) {
		p.nextToken()
		if p.curTok.Type == EOF {
			p.reportError("unterminated match", p.curTok.Span)
			return nil
		}

		arm := p.parseMatchArm()
		if arm == nil {
			return nil
		}
		e.Arms = append(e.Arms, arm)

		if p.accept(COMMA) {
			continue
		}
		if _, block := arm.Body.(*BlockExpr); !block && p.peekTok.Type != RBRACE {
			p.reportError("expected ',' after match arm", p.peekTok.Span)
			return nil
		}
	}

	e.span = p.spanFrom(start)

	return e
}

func (p *Parser) parseMatchArm() *MatchArm {
	start := p.curTok.Span

	pat := p.parsePattern()
	if pat == nil {
		return nil
	}
	arm := &MatchArm{Pattern: pat}

	if p.accept(IF) {
		p.nextToken()
		if arm.Guard = p.withStructs(func() Expr { return p.parseExpression(precedenceLowest) }); arm.Guard == nil {
			return nil
		}
	}

	if !p.expect(FATARROW) {
		return nil
	}

	p.nextToken()
	if arm.Body = p.withStructs(func() Expr { return p.parseExpression(precedenceLowest) }); arm.Body == nil {
		return nil
	}

	arm.Span = p.spanFrom(start)

	return arm
}

// parseBlockExpr parses `{ stmts [tail] }` starting at '{'.
func (p *Parser) parseBlockExpr() *BlockExpr {
	start := p.curTok.Span
	b := &BlockExpr{}

	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	for !p.accept(RBRACE) {
		p.nextToken()

		switch p.curTok.Type {
		case EOF:
			p.reportError("unterminated block", p.curTok.Span)
			return nil
		case SEMICOLON:
			continue
		case LET:
			st := p.parseLetStmt()
			if st == nil {
				return nil
			}
			b.Stmts = append(b.Stmts, st)
			continue
		}

		x := p.parseExpression(precedenceLowest)
		if x == nil {
			return nil
		}

		switch {
		case p.accept(SEMICOLON), p.peekTok.Type != RBRACE && isBlockLike(x):
			b.Stmts = append(b.Stmts, &ExprStmt{node: node{x.Span()}, X: x})
		case p.peekTok.Type == RBRACE:
			b.Tail = x
		default:
			p.reportError("expected ';' or '}' after expression", p.peekTok.Span)
			return nil
		}
	}

	b.span = p.spanFrom(start)

	return b
}

func (p *Parser) parseLetStmt() Stmt {
	start := p.curTok.Span
	p.nextToken()

	st := &LetStmt{}
	if st.Pat = p.parsePattern(); st.Pat == nil {
		return nil
	}

	if p.accept(COLON) {
		p.nextToken()
		if st.Type = p.parseType(); st.Type == nil {
			return nil
		}
	}

	if p.accept(ASSIGN) {
		p.nextToken()
		if st.Init = p.parseExpression(precedenceLowest); st.Init == nil {
			return nil
		}

		if p.accept(ELSE) {
			if !p.expect(LBRACE) {
				return nil
			}
			if st.Else = p.parseBlockExpr(); st.Else == nil {
				return nil
			}
		}
	}

	if !p.expect(SEMICOLON) {
		return nil
	}

	st.span = p.spanFrom(start)

	return st
}

func isBlockLike(e Expr) bool {
	switch e.(type) {
	case *BlockExpr, *IfExpr, *MatchExpr:
		return true
	}
	return false
}

func isUppercase(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func isNil(e Expr) bool {
	switch e := e.(type) {
	case nil:
		return true
	case *IfExpr:
		return e == nil
	case *BlockExpr:
		return e == nil
	}
	return false
}
