package parser

import (
	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/token"
)

// parseExprList parses "e1, e2, ..." into a tuple when a comma is present.
func (p *Parser) parseExprList() ast.Expr {
	first := p.peek()
	e := p.parseExpr()
	if !p.at(token.Comma) {
		return e
	}
	elts := []ast.Expr{e}
	for p.eat(token.Comma) {
		if p.atOr(token.Newline, token.EOF, token.Assign, token.RParen, token.Colon, token.Dedent) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	return &ast.TupleExpr{Pos: p.cover(p.posOf(first)), Elts: elts}
}

func (p *Parser) parseExprListOrYield() ast.Expr {
	if p.at(token.KwYield) {
		return p.parseYield()
	}
	return p.parseExprList()
}

func (p *Parser) parseYield() ast.Expr {
	kw := p.next()
	y := &ast.Yield{Pos: p.posOf(kw)}
	if !p.atOr(token.Newline, token.EOF, token.RParen, token.Dedent) {
		y.Value = p.parseExprList()
	}
	y.Pos = p.cover(y.Pos)
	return y
}

func (p *Parser) parseExpr() ast.Expr {
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	start := p.peek()
	cond := p.parseOr()
	if !p.at(token.KwIf) {
		return cond
	}
	// "x if c else y": cond holds x
	p.next()
	test := p.parseOr()
	p.expect(token.KwElse, diag.SynUnexpectedToken)
	other := p.parseExpr()
	return &ast.IfExp{Pos: p.cover(p.posOf(start)), Cond: test, Then: cond, Else: other}
}

// parseExprNoCond is used where a trailing "if" belongs to an outer construct.
func (p *Parser) parseExprNoCond() ast.Expr {
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	return p.parseOr()
}

func (p *Parser) parseLambda() ast.Expr {
	kw := p.next()
	params := p.parseParams(token.Colon)
	p.expect(token.Colon, diag.SynExpectColon)
	lam := &ast.Lambda{Pos: p.posOf(kw), Params: params, Body: p.parseExpr()}
	lam.Pos = p.cover(lam.Pos)
	return lam
}

func (p *Parser) parseOr() ast.Expr {
	return p.parseBool(token.KwOr, p.parseAnd)
}

func (p *Parser) parseAnd() ast.Expr {
	return p.parseBool(token.KwAnd, p.parseNot)
}

func (p *Parser) parseBool(op token.Kind, operand func() ast.Expr) ast.Expr {
	start := p.peek()
	first := operand()
	if !p.at(op) {
		return first
	}
	values := []ast.Expr{first}
	for p.eat(op) {
		values = append(values, operand())
	}
	return &ast.BoolOp{Pos: p.cover(p.posOf(start)), Op: op, Values: values}
}

func (p *Parser) parseNot() ast.Expr {
	if p.at(token.KwNot) {
		tok := p.next()
		x := p.parseNot()
		return &ast.UnaryOp{Pos: p.cover(p.posOf(tok)), Op: token.KwNot, X: x}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expr {
	start := p.peek()
	left := p.parseArith()
	var ops []ast.CmpOp
	var rights []ast.Expr
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		ops = append(ops, op)
		rights = append(rights, p.parseArith())
	}
	if len(ops) == 0 {
		return left
	}
	return &ast.Compare{Pos: p.cover(p.posOf(start)), L: left, Ops: ops, Rights: rights}
}

func (p *Parser) compareOp() (ast.CmpOp, bool) {
	switch p.peek().Kind {
	case token.EqEq:
		p.next()
		return ast.CmpEq, true
	case token.NotEq:
		p.next()
		return ast.CmpNotEq, true
	case token.Lt:
		p.next()
		return ast.CmpLt, true
	case token.LtEq:
		p.next()
		return ast.CmpLtEq, true
	case token.Gt:
		p.next()
		return ast.CmpGt, true
	case token.GtEq:
		p.next()
		return ast.CmpGtEq, true
	case token.KwIn:
		p.next()
		return ast.CmpIn, true
	case token.KwNot:
		if p.peekN(1).Kind == token.KwIn {
			p.next()
			p.next()
			return ast.CmpNotIn, true
		}
	case token.KwIs:
		p.next()
		if p.eat(token.KwNot) {
			return ast.CmpIsNot, true
		}
		return ast.CmpIs, true
	}
	return 0, false
}

func (p *Parser) parseArith() ast.Expr {
	start := p.peek()
	left := p.parseTerm()
	for p.atOr(token.Plus, token.Minus) {
		op := p.next().Kind
		right := p.parseTerm()
		left = &ast.BinOp{Pos: p.cover(p.posOf(start)), Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseTerm() ast.Expr {
	start := p.peek()
	left := p.parseFactor()
	for p.atOr(token.Star, token.Slash, token.DoubleSlash, token.Percent) {
		op := p.next().Kind
		right := p.parseFactor()
		left = &ast.BinOp{Pos: p.cover(p.posOf(start)), Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseFactor() ast.Expr {
	if p.atOr(token.Minus, token.Plus) {
		tok := p.next()
		x := p.parseFactor()
		return &ast.UnaryOp{Pos: p.cover(p.posOf(tok)), Op: tok.Kind, X: x}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() ast.Expr {
	start := p.peek()
	base := p.parsePostfix()
	if p.eat(token.DoubleStar) {
		exp := p.parseFactor()
		return &ast.BinOp{Pos: p.cover(p.posOf(start)), Op: token.DoubleStar, L: base, R: exp}
	}
	return base
}

func (p *Parser) parsePostfix() ast.Expr {
	start := p.peek()
	x := p.parseAtom()
	for {
		switch p.peek().Kind {
		case token.LParen:
			x = p.parseCall(start, x)
		case token.LBracket:
			p.next()
			idx := p.parseSubscriptIndex()
			p.expect(token.RBracket, diag.SynUnclosedDelimiter)
			x = &ast.Subscript{Pos: p.cover(p.posOf(start)), X: x, Index: idx}
		case token.Dot:
			p.next()
			name := p.expectIdent()
			x = &ast.Attribute{Pos: p.cover(p.posOf(start)), X: x, Attr: name.Text}
		default:
			return x
		}
	}
}

func (p *Parser) parseCall(start token.Token, fn ast.Expr) ast.Expr {
	p.next()
	call := &ast.Call{Fn: fn}
	for !p.at(token.RParen) {
		if p.at(token.Ident) && p.peekN(1).Kind == token.Assign {
			name := p.next()
			p.next()
			kw := &ast.Keyword{Pos: p.posOf(name), Name: name.Text, Value: p.parseExpr()}
			kw.Pos = p.cover(kw.Pos)
			call.Keywords = append(call.Keywords, kw)
		} else {
			if len(call.Keywords) > 0 {
				p.failf(diag.SynUnexpectedToken, p.peek(), "positional argument follows keyword argument")
			}
			call.Args = append(call.Args, p.parseExpr())
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter)
	call.Pos = p.cover(p.posOf(start))
	return call
}

func (p *Parser) parseSubscriptIndex() ast.Expr {
	start := p.peek()
	var lo ast.Expr
	if !p.at(token.Colon) {
		lo = p.parseExprList()
		if !p.at(token.Colon) {
			return lo
		}
	}
	p.next()
	sl := &ast.Slice{Lo: lo}
	if !p.at(token.RBracket) {
		sl.Hi = p.parseExpr()
	}
	sl.Pos = p.cover(p.posOf(start))
	return sl
}

func (p *Parser) parseAtom() ast.Expr {
	tok := p.peek()
	pos := p.posOf(tok)
	switch tok.Kind {
	case token.Ident:
		p.next()
		return &ast.Name{Pos: pos, ID: tok.Text}
	case token.IntLit:
		p.next()
		return &ast.Constant{Pos: pos, Kind: ast.ConstInt, Value: tok.Value}
	case token.FloatLit:
		p.next()
		return &ast.Constant{Pos: pos, Kind: ast.ConstFloat, Value: tok.Value}
	case token.StringLit, token.BytesLit:
		return p.parseStrings()
	case token.KwNone:
		p.next()
		return &ast.Constant{Pos: pos, Kind: ast.ConstNone}
	case token.KwTrue:
		p.next()
		return &ast.Constant{Pos: pos, Kind: ast.ConstTrue}
	case token.KwFalse:
		p.next()
		return &ast.Constant{Pos: pos, Kind: ast.ConstFalse}
	case token.LParen:
		return p.parseParen()
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseDict()
	case token.KwYield:
		p.failf(diag.SynUnexpectedToken, tok, "yield expression must be parenthesized here")
	}
	p.failf(diag.SynExpectExpression, tok, "expected expression, found %s", describe(tok))
	return nil
}

// parseStrings concatenates adjacent literals; mixing str and bytes is an error.
func (p *Parser) parseStrings() ast.Expr {
	first := p.next()
	kind := ast.ConstStr
	if first.Kind == token.BytesLit {
		kind = ast.ConstBytes
	}
	value := first.Value
	for p.atOr(token.StringLit, token.BytesLit) {
		tok := p.next()
		if (tok.Kind == token.BytesLit) != (kind == ast.ConstBytes) {
			p.failf(diag.SynUnexpectedToken, tok, "cannot mix bytes and nonbytes literals")
		}
		value += tok.Value
	}
	return &ast.Constant{Pos: p.cover(p.posOf(first)), Kind: kind, Value: value}
}

func (p *Parser) parseParen() ast.Expr {
	open := p.next()
	pos := p.posOf(open)
	if p.eat(token.RParen) {
		return &ast.TupleExpr{Pos: p.cover(pos)}
	}
	if p.at(token.KwYield) {
		y := p.parseYield()
		p.expect(token.RParen, diag.SynUnclosedDelimiter)
		return y
	}
	e := p.parseExpr()
	if !p.at(token.Comma) {
		p.expect(token.RParen, diag.SynUnclosedDelimiter)
		return e
	}
	elts := []ast.Expr{e}
	for p.eat(token.Comma) {
		if p.at(token.RParen) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter)
	return &ast.TupleExpr{Pos: p.cover(pos), Elts: elts}
}

func (p *Parser) parseList() ast.Expr {
	open := p.next()
	pos := p.posOf(open)
	if p.eat(token.RBracket) {
		return &ast.ListExpr{Pos: p.cover(pos)}
	}
	first := p.parseExpr()
	if p.at(token.KwFor) {
		p.next()
		comp := &ast.ListComp{Elt: first, Target: p.parseTargetList()}
		p.expect(token.KwIn, diag.SynUnexpectedToken)
		comp.Iter = p.parseOr()
		for p.eat(token.KwIf) {
			comp.Ifs = append(comp.Ifs, p.parseExprNoCond())
		}
		p.expect(token.RBracket, diag.SynUnclosedDelimiter)
		comp.Pos = p.cover(pos)
		return comp
	}
	elts := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.at(token.RBracket) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(token.RBracket, diag.SynUnclosedDelimiter)
	return &ast.ListExpr{Pos: p.cover(pos), Elts: elts}
}

func (p *Parser) parseDict() ast.Expr {
	open := p.next()
	d := &ast.DictExpr{Pos: p.posOf(open)}
	for !p.at(token.RBrace) {
		d.Keys = append(d.Keys, p.parseExpr())
		p.expect(token.Colon, diag.SynExpectColon)
		d.Values = append(d.Values, p.parseExpr())
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter)
	d.Pos = p.cover(d.Pos)
	return d
}
