package parser

import (
	"fmt"
	"slices"

	"capsule/internal/ast"
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/lexer"
	"capsule/internal/source"
	"capsule/internal/token"
)

type Options struct {
	Reporter diag.Reporter
}

// Parser holds the state for parsing one file. It stops at the first error.
type Parser struct {
	file *source.File
	toks []token.Token
	pos  int
	opts Options
}

// bailout carries the first syntax error out of deep recursion.
type bailout struct{ err *diag.Error }

// firstError records the first lexical error while still forwarding to the caller's reporter.
type firstError struct {
	next  diag.Reporter
	first *diag.Diagnostic
}

func (r *firstError) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if r.first == nil && sev >= diag.SevError {
		d := diag.New(sev, code, primary, msg)
		r.first = &d
	}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}

// ParseFile lexes and parses a whole file.
func ParseFile(f *source.File, opts Options) (mod *ast.Module, err error) {
	rep := &firstError{next: opts.Reporter}
	toks := lexer.New(f, lexer.Options{Reporter: rep}).All()
	if rep.first != nil {
		return nil, diag.Errorf(rep.first.Code, f.Pos(rep.first.Primary.Start), "%s", rep.first.Message)
	}

	p := &Parser{file: f, toks: toks, opts: opts}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			mod, err = nil, b.err
		}
	}()
	return p.parseModule(), nil
}

// ParseAt parses f and returns the def, class, lambda or with statement that
// starts on line. name narrows the match as in ast.FindAll.
func ParseAt(f *source.File, line int, name string) (ast.Node, *ast.Module, error) {
	return ParseSite(f, defs.Site{Line: line, Name: name})
}

// ParseSite is ParseAt with an optional keyword column. A site that still
// matches more than one definition is an error rather than a guess.
func ParseSite(f *source.File, at defs.Site) (ast.Node, *ast.Module, error) {
	mod, err := ParseFile(f, Options{})
	if err != nil {
		return nil, nil, err
	}
	var found []ast.Node
	for _, n := range ast.FindAll(mod, at.Line, at.Name) {
		if at.Col == 0 || KeywordCol(f, n) == at.Col {
			found = append(found, n)
		}
	}
	pos := source.Position{Path: f.Path, Line: at.Line, Col: at.Col}
	what := at.Name
	if what == "" {
		what = "definition"
	}
	switch len(found) {
	case 0:
		return nil, mod, diag.Errorf(diag.SynNoNodeAtLine, pos, "no %s starts at line %d", what, at.Line)
	case 1:
		return found[0], mod, nil
	}
	return nil, mod, diag.Errorf(diag.SynAmbiguousSite, pos, "can't find a unique %s at line %d: %d candidates", what, at.Line, len(found))
}

// KeywordCol is the 1-based column at which n starts in f.
func KeywordCol(f *source.File, n ast.Node) int {
	return f.Pos(n.Span().Start).Col
}

func (p *Parser) parseModule() *ast.Module {
	mod := &ast.Module{Pos: ast.Pos{Sp: source.Span{File: p.file.ID}, Ln: 1}, File: p.file}
	for !p.at(token.EOF) {
		if p.eat(token.Newline) {
			continue
		}
		mod.Body = append(mod.Body, p.parseStmt()...)
	}
	mod.Sp.End = p.peek().Span.End
	return mod
}

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekN(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) next() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind, code diag.Code) token.Token {
	if !p.at(k) {
		p.failf(code, p.peek(), "expected %s, found %s", k, describe(p.peek()))
	}
	return p.next()
}

func (p *Parser) expectIdent() token.Token {
	return p.expect(token.Ident, diag.SynExpectIdentifier)
}

func (p *Parser) failf(code diag.Code, at token.Token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	span, pos := at.Span, p.file.Pos(at.Span.Start)
	if prev, ok := p.lastSolid(at); ok {
		span = source.Span{File: prev.Span.File, Start: prev.Span.End, End: prev.Span.End}
		pos = p.file.Pos(prev.Span.End - 1)
	}
	if p.opts.Reporter != nil {
		diag.ReportError(p.opts.Reporter, code, span, msg).Emit()
	}
	panic(bailout{err: diag.Errorf(code, pos, "%s", msg)})
}

// lastSolid returns the token before at when at is a line-structure token,
// so errors about a line's end are reported on that line.
func (p *Parser) lastSolid(at token.Token) (token.Token, bool) {
	switch at.Kind {
	case token.Newline, token.Indent, token.Dedent:
	default:
		return token.Token{}, false
	}
	for i := p.pos - 1; i >= 0; i-- {
		switch tok := p.toks[i]; tok.Kind {
		case token.Newline, token.Indent, token.Dedent:
		default:
			if tok.Span.End > tok.Span.Start {
				return tok, true
			}
		}
	}
	return token.Token{}, false
}

func (p *Parser) posOf(tok token.Token) ast.Pos {
	return ast.Pos{Sp: tok.Span, Ln: p.file.LineOf(tok.Span.Start)}
}

// cover extends start to the end of the last consumed token.
func (p *Parser) cover(start ast.Pos) ast.Pos {
	if p.pos > 0 {
		start.Sp = start.Sp.Cover(p.toks[p.pos-1].Span)
	}
	return start
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of file"
	case token.Newline:
		return "end of line"
	case token.Indent:
		return "indent"
	case token.Dedent:
		return "dedent"
	}
	return fmt.Sprintf("%q", tok.Text)
}
