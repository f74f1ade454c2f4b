// Package token defines lexical token kinds for the host language.
// Invariants:
//   - Token.Span covers the lexeme in the original source.
//   - Token.Text is the lexeme; for identifiers it is NFKC-normalized.
//   - Token.Value holds the decoded payload of string and bytes literals.
//   - NEWLINE, INDENT and DEDENT are synthesized from layout and have empty spans.
package token
