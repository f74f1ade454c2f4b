package parser

import (
	"capsule/internal/ast"
	"capsule/internal/diag"
	"capsule/internal/token"
)

// parseStmt returns a single statement; the slice form keeps callers uniform.
func (p *Parser) parseStmt() []ast.Stmt {
	switch p.peek().Kind {
	case token.KwDef:
		return []ast.Stmt{p.parseFuncDef()}
	case token.KwClass:
		return []ast.Stmt{p.parseClassDef()}
	case token.KwIf:
		return []ast.Stmt{p.parseIf()}
	case token.KwWhile:
		return []ast.Stmt{p.parseWhile()}
	case token.KwFor:
		return []ast.Stmt{p.parseFor()}
	case token.KwWith:
		return []ast.Stmt{p.parseWith()}
	case token.Indent:
		p.failf(diag.SynUnexpectedToken, p.peek(), "unexpected indent")
	}
	s := p.parseSimpleStmt()
	if !p.eat(token.Newline) && !p.at(token.EOF) {
		p.failf(diag.SynUnexpectedToken, p.peek(), "expected end of statement, found %s", describe(p.peek()))
	}
	return []ast.Stmt{s}
}

func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(token.Colon, diag.SynExpectColon)
	if !p.eat(token.Newline) {
		s := p.parseSimpleStmt()
		if !p.eat(token.Newline) && !p.at(token.EOF) {
			p.failf(diag.SynUnexpectedToken, p.peek(), "expected end of statement, found %s", describe(p.peek()))
		}
		return []ast.Stmt{s}
	}
	if !p.at(token.Indent) {
		p.failf(diag.SynExpectIndent, p.peek(), "expected an indented block")
	}
	p.next()
	var body []ast.Stmt
	for !p.at(token.Dedent) && !p.at(token.EOF) {
		if p.eat(token.Newline) {
			continue
		}
		body = append(body, p.parseStmt()...)
	}
	p.eat(token.Dedent)
	return body
}

func (p *Parser) parseFuncDef() *ast.FuncDef {
	kw := p.next()
	name := p.expectIdent()
	p.expect(token.LParen, diag.SynUnexpectedToken)
	params := p.parseParams(token.RParen)
	p.expect(token.RParen, diag.SynUnclosedDelimiter)
	fn := &ast.FuncDef{Pos: p.posOf(kw), Name: name.Text, Params: params}
	fn.Body = p.parseBlock()
	fn.Pos = p.cover(fn.Pos)
	return fn
}

func (p *Parser) parseParams(end token.Kind) *ast.Params {
	params := &ast.Params{}
	seenDefault := false
	for !p.at(end) {
		name := p.expectIdent()
		prm := &ast.Param{Pos: p.posOf(name), Name: name.Text}
		if p.eat(token.Assign) {
			prm.Default = p.parseExpr()
			seenDefault = true
		} else if seenDefault {
			p.failf(diag.SynUnexpectedToken, name, "non-default parameter follows default parameter")
		}
		for _, other := range params.List {
			if other.Name == prm.Name {
				p.failf(diag.SynUnexpectedToken, name, "duplicate parameter %q", prm.Name)
			}
		}
		params.List = append(params.List, prm)
		if !p.eat(token.Comma) {
			break
		}
	}
	return params
}

func (p *Parser) parseClassDef() *ast.ClassDef {
	kw := p.next()
	name := p.expectIdent()
	cls := &ast.ClassDef{Pos: p.posOf(kw), Name: name.Text}
	if p.eat(token.LParen) {
		for !p.at(token.RParen) {
			cls.Bases = append(cls.Bases, p.parseExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, diag.SynUnclosedDelimiter)
	}
	cls.Body = p.parseBlock()
	cls.Pos = p.cover(cls.Pos)
	return cls
}

func (p *Parser) parseIf() *ast.If {
	kw := p.next()
	st := &ast.If{Pos: p.posOf(kw), Cond: p.parseExpr()}
	st.Body = p.parseBlock()
	switch {
	case p.at(token.KwElif):
		st.Else = []ast.Stmt{p.parseIf()}
	case p.eat(token.KwElse):
		st.Else = p.parseBlock()
	}
	st.Pos = p.cover(st.Pos)
	return st
}

func (p *Parser) parseWhile() *ast.While {
	kw := p.next()
	st := &ast.While{Pos: p.posOf(kw), Cond: p.parseExpr()}
	st.Body = p.parseBlock()
	st.Pos = p.cover(st.Pos)
	return st
}

func (p *Parser) parseFor() *ast.For {
	kw := p.next()
	st := &ast.For{Pos: p.posOf(kw), Target: p.parseTargetList()}
	p.expect(token.KwIn, diag.SynUnexpectedToken)
	st.Iter = p.parseExprList()
	st.Body = p.parseBlock()
	st.Pos = p.cover(st.Pos)
	return st
}

func (p *Parser) parseWith() *ast.With {
	kw := p.next()
	st := &ast.With{Pos: p.posOf(kw), Ctx: p.parseExpr()}
	if p.eat(token.KwAs) {
		st.Var = p.parseTargetList()
	}
	st.Body = p.parseBlock()
	st.Pos = p.cover(st.Pos)
	return st
}

// parseTargetList parses for/with targets, which must stop before "in".
func (p *Parser) parseTargetList() ast.Expr {
	first := p.peek()
	targets := []ast.Expr{p.parsePostfix()}
	for p.at(token.Comma) {
		p.next()
		if p.at(token.KwIn) || p.at(token.Colon) {
			break
		}
		targets = append(targets, p.parsePostfix())
	}
	for _, t := range targets {
		p.checkTarget(t)
	}
	if len(targets) == 1 && p.toks[p.pos-1].Kind != token.Comma {
		return targets[0]
	}
	return &ast.TupleExpr{Pos: p.cover(p.posOf(first)), Elts: targets}
}

func (p *Parser) parseSimpleStmt() ast.Stmt {
	tok := p.peek()
	pos := p.posOf(tok)
	switch tok.Kind {
	case token.KwPass:
		p.next()
		return &ast.Pass{Pos: pos}
	case token.KwBreak:
		p.next()
		return &ast.Break{Pos: pos}
	case token.KwContinue:
		p.next()
		return &ast.Continue{Pos: pos}
	case token.KwReturn:
		p.next()
		st := &ast.Return{Pos: pos}
		if !p.atOr(token.Newline, token.EOF, token.Dedent) {
			st.Value = p.parseExprList()
		}
		st.Pos = p.cover(st.Pos)
		return st
	case token.KwRaise:
		p.next()
		st := &ast.Raise{Pos: pos}
		if !p.atOr(token.Newline, token.EOF, token.Dedent) {
			st.Exc = p.parseExpr()
		}
		st.Pos = p.cover(st.Pos)
		return st
	case token.KwImport:
		p.next()
		st := &ast.Import{Pos: pos, Name: p.expectIdent().Text}
		if p.eat(token.KwAs) {
			st.Alias = p.expectIdent().Text
		}
		st.Pos = p.cover(st.Pos)
		return st
	case token.KwGlobal, token.KwNonlocal:
		p.next()
		var names []string
		for {
			names = append(names, p.expectIdent().Text)
			if !p.eat(token.Comma) {
				break
			}
		}
		if tok.Kind == token.KwGlobal {
			return &ast.Global{Pos: p.cover(pos), Names: names}
		}
		return &ast.Nonlocal{Pos: p.cover(pos), Names: names}
	}

	first := p.parseExprListOrYield()
	switch p.peek().Kind {
	case token.Assign:
		targets := []ast.Expr{first}
		var value ast.Expr
		for p.eat(token.Assign) {
			value = p.parseExprListOrYield()
			targets = append(targets, value)
		}
		targets = targets[:len(targets)-1]
		for _, t := range targets {
			p.checkTarget(t)
		}
		return &ast.Assign{Pos: p.cover(pos), Targets: targets, Value: value}
	case token.PlusAssign, token.MinusAssign, token.StarAssign:
		opTok := p.next()
		switch first.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			p.failf(diag.SynBadAssignTarget, opTok, "illegal target for augmented assignment")
		}
		op := map[token.Kind]token.Kind{token.PlusAssign: token.Plus, token.MinusAssign: token.Minus, token.StarAssign: token.Star}[opTok.Kind]
		return &ast.AugAssign{Pos: p.cover(pos), Target: first, Op: op, Value: p.parseExpr()}
	}
	return &ast.ExprStmt{Pos: p.cover(pos), X: first}
}

func (p *Parser) checkTarget(e ast.Expr) {
	switch x := e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		return
	case *ast.TupleExpr:
		for _, el := range x.Elts {
			p.checkTarget(el)
		}
		return
	case *ast.ListExpr:
		for _, el := range x.Elts {
			p.checkTarget(el)
		}
		return
	}
	p.failf(diag.SynBadAssignTarget, p.tokenAt(e), "cannot assign to expression")
}

// tokenAt finds the token that starts e, for diagnostics.
func (p *Parser) tokenAt(e ast.Node) token.Token {
	for _, tok := range p.toks {
		if tok.Span.Start == e.Span().Start && !tok.IsLayout() {
			return tok
		}
	}
	return token.Token{Span: e.Span()}
}
