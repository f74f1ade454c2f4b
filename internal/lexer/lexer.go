package lexer

import (
	"capsule/internal/diag"
	"capsule/internal/source"
	"capsule/internal/token"
)

// Lexer turns indentation-structured source into a token stream with
// synthesized NEWLINE, INDENT and DEDENT tokens.
type Lexer struct {
	file        *source.File
	cursor      Cursor
	opts        Options
	indents     []int
	depth       int // open brackets; layout is ignored inside them
	pending     []token.Token
	atLineStart bool
	lastKind    token.Kind
	look        *token.Token
	done        bool
}

func New(file *source.File, opts Options) *Lexer {
	if opts.TabSize <= 0 {
		opts.TabSize = 8
	}
	return &Lexer{
		file:        file,
		cursor:      NewCursor(file),
		opts:        opts,
		indents:     []int{0},
		atLineStart: true,
		lastKind:    token.Newline,
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	tok := lx.next()
	lx.lastKind = tok.Kind
	return tok
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	if lx.look != nil {
		return *lx.look
	}
	t := lx.Next()
	lx.look = &t
	return t
}

// All drains the lexer, EOF included.
func (lx *Lexer) All() []token.Token {
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

func (lx *Lexer) next() token.Token {
	for {
		if len(lx.pending) > 0 {
			tok := lx.pending[0]
			lx.pending = lx.pending[1:]
			return tok
		}
		if lx.done {
			return lx.layout(token.EOF)
		}
		if lx.atLineStart && lx.depth == 0 {
			lx.atLineStart = false
			if lx.handleIndent() {
				continue
			}
		}

		lx.skipSpaceAndComments()
		if lx.cursor.EOF() {
			lx.finish()
			continue
		}

		ch := lx.cursor.Peek()
		if ch == '\n' {
			lx.cursor.Bump()
			if lx.depth > 0 {
				continue
			}
			lx.atLineStart = true
			if lx.lastKind == token.Newline {
				continue
			}
			return lx.layout(token.Newline)
		}

		switch {
		case ch == '"' || ch == '\'':
			return lx.scanString(lx.cursor.Mark(), false, false)
		case isStringPrefix(lx):
			return lx.scanPrefixedString()
		case isIdentStartByte(ch) || ch >= utf8RuneSelf:
			return lx.scanIdentOrKeyword()
		case isDec(ch) || (ch == '.' && isDec(lx.cursor.PeekAt(1))):
			return lx.scanNumber()
		default:
			return lx.scanOperatorOrPunct()
		}
	}
}

// handleIndent measures the indentation of the next non-blank line and queues
// INDENT or DEDENT tokens. It reports whether anything was queued.
func (lx *Lexer) handleIndent() bool {
	for {
		col := 0
	measure:
		for !lx.cursor.EOF() {
			switch lx.cursor.Peek() {
			case ' ':
				col++
			case '\t':
				col = (col/lx.opts.TabSize + 1) * lx.opts.TabSize
			case '\f':
				col = 0
			default:
				break measure
			}
			lx.cursor.Bump()
		}
		if lx.cursor.Peek() == '#' {
			lx.skipComment()
		}
		if lx.cursor.EOF() {
			return false
		}
		if lx.cursor.Peek() == '\n' {
			lx.cursor.Bump()
			continue
		}

		top := lx.indents[len(lx.indents)-1]
		switch {
		case col > top:
			lx.indents = append(lx.indents, col)
			lx.pending = append(lx.pending, lx.layout(token.Indent))
			return true
		case col < top:
			for col < lx.indents[len(lx.indents)-1] {
				lx.indents = lx.indents[:len(lx.indents)-1]
				lx.pending = append(lx.pending, lx.layout(token.Dedent))
			}
			if col != lx.indents[len(lx.indents)-1] {
				lx.report(diag.LexBadIndent, lx.emptySpan(), "unindent does not match any outer indentation level")
			}
			return true
		}
		return false
	}
}

func (lx *Lexer) finish() {
	lx.done = true
	if lx.lastKind != token.Newline && lx.lastKind != token.Dedent && lx.lastKind != token.Indent {
		lx.pending = append(lx.pending, lx.layout(token.Newline))
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.pending = append(lx.pending, lx.layout(token.Dedent))
	}
}

func (lx *Lexer) skipSpaceAndComments() {
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case ' ', '\t', '\f', '\r':
			lx.cursor.Bump()
		case '#':
			lx.skipComment()
		case '\\':
			if lx.cursor.PeekAt(1) != '\n' {
				return
			}
			lx.cursor.Bump()
			lx.cursor.Bump()
		default:
			return
		}
	}
}

func (lx *Lexer) skipComment() {
	for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
		lx.cursor.Bump()
	}
}

func (lx *Lexer) layout(k token.Kind) token.Token {
	return token.Token{Kind: k, Span: lx.emptySpan()}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) report(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
	}
}
