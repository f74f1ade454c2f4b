package lexer

import (
	"capsule/internal/diag"
	"capsule/internal/token"
)

func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	c := lx.cursor.Bump()
	kind := token.Invalid

	switch c {
	case '+':
		kind = lx.pick('=', token.PlusAssign, token.Plus)
	case '-':
		kind = lx.pick('=', token.MinusAssign, token.Minus)
	case '*':
		switch {
		case lx.cursor.Eat('*'):
			kind = token.DoubleStar
		case lx.cursor.Eat('='):
			kind = token.StarAssign
		default:
			kind = token.Star
		}
	case '/':
		kind = lx.pick('/', token.DoubleSlash, token.Slash)
	case '%':
		kind = token.Percent
	case '=':
		kind = lx.pick('=', token.EqEq, token.Assign)
	case '!':
		if lx.cursor.Eat('=') {
			kind = token.NotEq
		}
	case '<':
		kind = lx.pick('=', token.LtEq, token.Lt)
	case '>':
		kind = lx.pick('=', token.GtEq, token.Gt)
	case '(':
		kind = token.LParen
		lx.depth++
	case '[':
		kind = token.LBracket
		lx.depth++
	case '{':
		kind = token.LBrace
		lx.depth++
	case ')':
		kind = token.RParen
		lx.closeBracket()
	case ']':
		kind = token.RBracket
		lx.closeBracket()
	case '}':
		kind = token.RBrace
		lx.closeBracket()
	case ',':
		kind = token.Comma
	case ':':
		kind = token.Colon
	case '.':
		kind = token.Dot
	}

	sp := lx.cursor.SpanFrom(start)
	text := string(lx.file.Content[sp.Start:sp.End])
	if kind == token.Invalid {
		lx.report(diag.LexUnknownChar, sp, "unexpected character "+text)
	}
	return token.Token{Kind: kind, Span: sp, Text: text}
}

func (lx *Lexer) pick(next byte, two, one token.Kind) token.Kind {
	if lx.cursor.Eat(next) {
		return two
	}
	return one
}

func (lx *Lexer) closeBracket() {
	if lx.depth > 0 {
		lx.depth--
	}
}
