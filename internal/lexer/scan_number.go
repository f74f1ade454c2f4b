package lexer

import (
	"strings"

	"capsule/internal/diag"
	"capsule/internal/token"
)

// scanNumber scans decimal, 0x/0o/0b integers and decimal floats. Underscores
// between digits are allowed and stripped from Value.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		switch lx.cursor.PeekAt(1) {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			lx.cursor.Bump()
			lx.cursor.Bump()
			digits := 0
			for isHex(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
				lx.cursor.Bump()
				digits++
			}
			sp := lx.cursor.SpanFrom(start)
			text := string(lx.file.Content[sp.Start:sp.End])
			if digits == 0 {
				lx.report(diag.LexBadNumber, sp, "missing digits after base prefix")
				return token.Token{Kind: token.Invalid, Span: sp, Text: text}
			}
			return token.Token{Kind: token.IntLit, Span: sp, Text: text, Value: strings.ReplaceAll(text, "_", "")}
		}
	}

	lx.digits()
	if lx.cursor.Peek() == '.' && lx.cursor.PeekAt(1) != '.' {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.digits()
	}
	if c := lx.cursor.Peek(); c == 'e' || c == 'E' {
		mark := lx.cursor.Mark()
		lx.cursor.Bump()
		if c := lx.cursor.Peek(); c == '+' || c == '-' {
			lx.cursor.Bump()
		}
		if isDec(lx.cursor.Peek()) {
			kind = token.FloatLit
			lx.digits()
		} else {
			lx.cursor.Off = uint32(mark)
		}
	}

	sp := lx.cursor.SpanFrom(start)
	text := string(lx.file.Content[sp.Start:sp.End])
	if isIdentStartByte(lx.cursor.Peek()) {
		lx.report(diag.LexBadNumber, sp, "invalid suffix on numeric literal")
	}
	return token.Token{Kind: kind, Span: sp, Text: text, Value: strings.ReplaceAll(text, "_", "")}
}

func (lx *Lexer) digits() {
	for isDec(lx.cursor.Peek()) || (lx.cursor.Peek() == '_' && isDec(lx.cursor.PeekAt(1))) {
		lx.cursor.Bump()
	}
}
