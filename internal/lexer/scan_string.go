package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"capsule/internal/diag"
	"capsule/internal/token"
)

func (lx *Lexer) scanPrefixedString() token.Token {
	start := lx.cursor.Mark()
	bytesLit, raw := false, false
	for !isQuote(lx.cursor.Peek()) {
		switch lx.cursor.Bump() {
		case 'b', 'B':
			bytesLit = true
		case 'r', 'R':
			raw = true
		}
	}
	return lx.scanString(start, bytesLit, raw)
}

// scanString scans a single or triple quoted literal whose opening quote is at
// the cursor. start includes any prefix already consumed.
func (lx *Lexer) scanString(start Mark, bytesLit, raw bool) token.Token {
	quote := lx.cursor.Bump()
	triple := false
	if lx.cursor.Peek() == quote && lx.cursor.PeekAt(1) == quote {
		lx.cursor.Bump()
		lx.cursor.Bump()
		triple = true
	}

	var sb strings.Builder
	closed := false
	for !lx.cursor.EOF() {
		c := lx.cursor.Peek()
		if c == quote {
			if !triple {
				lx.cursor.Bump()
				closed = true
				break
			}
			if lx.cursor.PeekAt(1) == quote && lx.cursor.PeekAt(2) == quote {
				lx.cursor.Bump()
				lx.cursor.Bump()
				lx.cursor.Bump()
				closed = true
				break
			}
		}
		if c == '\n' && !triple {
			break
		}
		if c == '\\' && !raw {
			lx.scanEscape(&sb, bytesLit)
			continue
		}
		if c == '\\' && raw {
			// a raw backslash still protects the following quote
			sb.WriteByte(lx.cursor.Bump())
			if !lx.cursor.EOF() {
				sb.WriteByte(lx.cursor.Bump())
			}
			continue
		}
		sb.WriteByte(lx.cursor.Bump())
	}

	sp := lx.cursor.SpanFrom(start)
	text := string(lx.file.Content[sp.Start:sp.End])
	if !closed {
		lx.report(diag.LexUnterminatedString, sp, "unterminated string literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: text}
	}
	kind := token.StringLit
	if bytesLit {
		kind = token.BytesLit
	}
	return token.Token{Kind: kind, Span: sp, Text: text, Value: sb.String()}
}

func (lx *Lexer) scanEscape(sb *strings.Builder, bytesLit bool) {
	mark := lx.cursor.Mark()
	lx.cursor.Bump() // backslash
	c := lx.cursor.Bump()
	switch c {
	case '\n':
		// line continuation inside the literal
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'x':
		h := string([]byte{lx.cursor.Peek(), lx.cursor.PeekAt(1)})
		v, err := strconv.ParseUint(h, 16, 8)
		if err != nil {
			lx.report(diag.LexBadEscape, lx.cursor.SpanFrom(mark), "invalid \\x escape")
			return
		}
		lx.cursor.Bump()
		lx.cursor.Bump()
		if bytesLit {
			sb.WriteByte(byte(v))
		} else {
			sb.WriteRune(rune(v))
		}
	case 'u':
		if bytesLit {
			sb.WriteString(`\u`)
			return
		}
		var h []byte
		for range 4 {
			h = append(h, lx.cursor.Bump())
		}
		v, err := strconv.ParseUint(string(h), 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			lx.report(diag.LexBadEscape, lx.cursor.SpanFrom(mark), "invalid \\u escape")
			return
		}
		sb.WriteRune(rune(v))
	default:
		// unknown escapes keep the backslash
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
}
