package lexer

import "capsule/internal/diag"

// Options configures a Lexer.
type Options struct {
	Reporter diag.Reporter
	// TabSize is the column width a tab advances to; defaults to 8.
	TabSize int
}
