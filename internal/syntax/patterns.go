package syntax

import "github.com/malphas-lang/matchc/internal/diag"

func (p *Parser) parsePattern() Pattern {
	return p.parsePatternOr()
}

func (p *Parser) parsePatternOr() Pattern {
	left := p.parsePatternBinding()
	if left == nil {
		return nil
	}

	if p.peekTok.Type != PIPE {
		return left
	}

	alts := []Pattern{left}

	for p.accept(PIPE) {
		p.nextToken() // advance to next pattern start
		next := p.parsePatternBinding()
		if next == nil {
			return nil
		}
		alts = append(alts, next)
	}

	span := mergeSpan(alts[0].Span(), alts[len(alts)-1].Span())

	return &OrPat{node: node{span}, Alts: alts}
}

func (p *Parser) parsePatternBinding() Pattern {
	left := p.parsePatternPrimary()
	if left == nil {
		return nil
	}

	if p.peekTok.Type != AT {
		return left
	}

	ident, ok := left.(*IdentPat)
	if !ok || ident.Sub != nil {
		p.reportError("binding patterns require an identifier before '@'", left.Span())
		return nil
	}

	p.nextToken() // move to '@'
	p.nextToken() // move to pattern start

	right := p.parsePatternBinding()
	if right == nil {
		return nil
	}

	span := mergeSpan(ident.Span(), right.Span())

	if rest, ok := right.(*RestPat); ok && rest.Binding == nil {
		return &RestPat{node: node{span}, Binding: ident}
	}

	ident.Sub = right
	ident.span = span

	return ident
}

func (p *Parser) parsePatternPrimary() Pattern {
	start := p.curTok.Span

	switch p.curTok.Type {
	case IDENT:
		return p.parsePatternIdentOrPath()

	case REF, MUT:
		return p.parsePatternIdent()

	case INT, CHAR, STRING, TRUE, FALSE, MINUS:
		return p.parsePatternLiteralOrRange()

	case DOTDOTEQ:
		p.nextToken()
		hi := p.parsePatternLiteral()
		if hi == nil {
			return nil
		}
		return &RangePat{node: node{p.spanFrom(start)}, Hi: hi, Inclusive: true}

	case DOTDOT:
		return &RestPat{node: node{start}}

	case LPAREN:
		trailingComma := false
		elems, ok := parseDelimited(p, RPAREN, func() (Pattern, bool) {
			pat := p.parsePattern()
			trailingComma = p.peekTok.Type == COMMA
			return pat, pat != nil
		})
		if !ok {
			return nil
		}
		if len(elems) == 1 && !trailingComma {
			return elems[0]
		}
		return &TuplePat{node: node{p.spanFrom(start)}, Elems: elems}

	case LBRACKET:
		elems, ok := parseDelimited(p, RBRACKET, p.parsePatternOK)
		if !ok {
			return nil
		}
		return &SlicePat{node: node{p.spanFrom(start)}, Elems: elems}

	case AMPERSAND, AND:
		double := p.curTok.Type == AND
		mut := p.accept(MUT)
		p.nextToken()
		sub := p.parsePatternPrimary()
		if sub == nil {
			return nil
		}
		var pat Pattern = &RefPat{node: node{p.spanFrom(start)}, Mutable: mut, Sub: sub}
		if double {
			pat = &RefPat{node: node{p.spanFrom(start)}, Sub: pat}
		}
		return pat

	case BOX:
		p.nextToken()
		sub := p.parsePatternPrimary()
		if sub == nil {
			return nil
		}
		return &BoxPat{node: node{p.spanFrom(start)}, Sub: sub}

	case BANG:
		return &NeverPat{node: node{start}}

	case LBRACE:
		p.reportError("match patterns cannot contain blocks; move logic to a guard", start)
		return nil

	case IF:
		p.reportError("match patterns cannot contain control flow; move logic to a guard", start)
		return nil
	}

	p.reportError("expected pattern, got '"+p.curTok.Literal+"'", start)
	return nil
}

func (p *Parser) parsePatternOK() (Pattern, bool) {
	pat := p.parsePattern()
	return pat, pat != nil
}

// parsePatternIdent parses `[ref] [mut] name`.
func (p *Parser) parsePatternIdent() Pattern {
	start := p.curTok.Span
	pat := &IdentPat{}

	if p.curTok.Type == REF {
		pat.Ref = true
		p.nextToken()
	}
	if p.curTok.Type == MUT {
		pat.Mutable = true
		p.nextToken()
	}
	if p.curTok.Type != IDENT {
		p.reportError("expected identifier in binding pattern", p.curTok.Span)
		return nil
	}

	pat.Name = p.curTok.Literal
	pat.span = p.spanFrom(start)

	return pat
}

func (p *Parser) parsePatternIdentOrPath() Pattern {
	start := p.curTok.Span

	if p.curTok.Literal == "_" {
		return &WildPat{node: node{start}}
	}

	path := []string{p.curTok.Literal}
	for p.accept(DOUBLE_COLON) {
		if !p.expect(IDENT) {
			return nil
		}
		path = append(path, p.curTok.Literal)
	}

	switch p.peekTok.Type {
	case LPAREN:
		p.nextToken()
		args, ok := parseDelimited(p, RPAREN, p.parsePatternOK)
		if !ok {
			return nil
		}
		return &PathPat{node: node{p.spanFrom(start)}, Path: path, Args: args, HasArgs: true}

	case LBRACE:
		return p.parsePatternStruct(start, path)
	}

	if len(path) == 1 {
		return &IdentPat{node: node{start}, Name: path[0]}
	}

	return &PathPat{node: node{p.spanFrom(start)}, Path: path}
}

// parsePatternStruct parses `Path { field: pat, field, .. }`.
func (p *Parser) parsePatternStruct(start diag.Span, path []string) Pattern {
	p.nextToken() // '{'
	pat := &PathPat{Path: path, Braced: true}

	fields, ok := parseDelimited(p, RBRACE, func() (FieldPattern, bool) {
		if p.curTok.Type == DOTDOT {
			pat.Rest = true
			return FieldPattern{}, true
		}

		if p.curTok.Type == REF || p.curTok.Type == MUT {
			id := p.parsePatternIdent()
			if id == nil {
				return FieldPattern{}, false
			}
			return FieldPattern{Name: id.(*IdentPat).Name, Pattern: id, Span: id.Span()}, true
		}

		if p.curTok.Type != IDENT {
			p.reportError("expected field name", p.curTok.Span)
			return FieldPattern{}, false
		}

		f := FieldPattern{Name: p.curTok.Literal, Span: p.curTok.Span}
		if !p.accept(COLON) {
			f.Pattern = &IdentPat{node: node{f.Span}, Name: f.Name}
			return f, true
		}

		p.nextToken()
		f.Pattern = p.parsePattern()
		return f, f.Pattern != nil
	})
	if !ok {
		return nil
	}

	for _, f := range fields {
		if f.Pattern != nil {
			pat.Fields = append(pat.Fields, f)
		}
	}
	pat.span = p.spanFrom(start)

	return pat
}

func (p *Parser) parsePatternLiteralOrRange() Pattern {
	start := p.curTok.Span

	lo := p.parsePatternLiteral()
	if lo == nil {
		return nil
	}

	if p.peekTok.Type != DOTDOT && p.peekTok.Type != DOTDOTEQ {
		return &LitPat{node: node{start}, Lit: lo}
	}

	p.nextToken()
	rng := &RangePat{Lo: lo, Inclusive: p.curTok.Type == DOTDOTEQ}

	switch p.peekTok.Type {
	case INT, CHAR, MINUS:
		p.nextToken()
		if rng.Hi = p.parsePatternLiteral(); rng.Hi == nil {
			return nil
		}
	default:
		if rng.Inclusive {
			p.reportError("inclusive range without an end", p.curTok.Span)
			return nil
		}
	}

	rng.span = p.spanFrom(start)

	return rng
}

func (p *Parser) parsePatternLiteral() *LitExpr {
	start := p.curTok.Span
	neg := false

	if p.curTok.Type == MINUS {
		if !p.expect(INT) {
			return nil
		}
		neg = true
	}

	switch p.curTok.Type {
	case INT, CHAR, STRING, TRUE, FALSE:
		return &LitExpr{node: node{p.spanFrom(start)}, Kind: p.curTok.Type, Value: p.curTok.Literal, Neg: neg}
	}

	p.reportError("expected literal, got '"+p.curTok.Literal+"'", p.curTok.Span)
	return nil
}
