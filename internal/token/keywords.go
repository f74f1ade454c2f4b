package token

var keywords = map[string]Kind{
	"def":      KwDef,
	"class":    KwClass,
	"return":   KwReturn,
	"yield":    KwYield,
	"lambda":   KwLambda,
	"if":       KwIf,
	"elif":     KwElif,
	"else":     KwElse,
	"while":    KwWhile,
	"for":      KwFor,
	"in":       KwIn,
	"with":     KwWith,
	"as":       KwAs,
	"pass":     KwPass,
	"break":    KwBreak,
	"continue": KwContinue,
	"raise":    KwRaise,
	"not":      KwNot,
	"and":      KwAnd,
	"or":       KwOr,
	"is":       KwIs,
	"None":     KwNone,
	"True":     KwTrue,
	"False":    KwFalse,
	"import":   KwImport,
	"global":   KwGlobal,
	"nonlocal": KwNonlocal,
}

// LookupKeyword reports whether ident is a keyword. Keywords are case-sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
