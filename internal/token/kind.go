package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF
	// Newline ends a logical line.
	Newline
	// Indent opens a block.
	Indent
	// Dedent closes a block.
	Dedent

	Ident
	IntLit
	FloatLit
	StringLit
	BytesLit

	KwDef
	KwClass
	KwReturn
	KwYield
	KwLambda
	KwIf
	KwElif
	KwElse
	KwWhile
	KwFor
	KwIn
	KwWith
	KwAs
	KwPass
	KwBreak
	KwContinue
	KwRaise
	KwNot
	KwAnd
	KwOr
	KwIs
	KwNone
	KwTrue
	KwFalse
	KwImport
	KwGlobal
	KwNonlocal

	Plus        // +
	Minus       // -
	Star        // *
	DoubleStar  // **
	Slash       // /
	DoubleSlash // //
	Percent     // %
	Assign      // =
	PlusAssign  // +=
	MinusAssign // -=
	StarAssign  // *=
	EqEq        // ==
	NotEq       // !=
	Lt          // <
	LtEq        // <=
	Gt          // >
	GtEq        // >=
	LParen      // (
	RParen      // )
	LBracket    // [
	RBracket    // ]
	LBrace      // {
	RBrace      // }
	Comma       // ,
	Colon       // :
	Dot         // .
)

var kindNames = [...]string{
	Invalid: "Invalid", EOF: "EOF", Newline: "NEWLINE", Indent: "INDENT", Dedent: "DEDENT",
	Ident: "Ident", IntLit: "IntLit", FloatLit: "FloatLit", StringLit: "StringLit", BytesLit: "BytesLit",
	KwDef: "def", KwClass: "class", KwReturn: "return", KwYield: "yield", KwLambda: "lambda",
	KwIf: "if", KwElif: "elif", KwElse: "else", KwWhile: "while", KwFor: "for", KwIn: "in",
	KwWith: "with", KwAs: "as", KwPass: "pass", KwBreak: "break", KwContinue: "continue",
	KwRaise: "raise", KwNot: "not", KwAnd: "and", KwOr: "or", KwIs: "is", KwNone: "None",
	KwTrue: "True", KwFalse: "False", KwImport: "import", KwGlobal: "global", KwNonlocal: "nonlocal",
	Plus: "+", Minus: "-", Star: "*", DoubleStar: "**", Slash: "/", DoubleSlash: "//",
	Percent: "%", Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=",
	EqEq: "==", NotEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Comma: ",", Colon: ":", Dot: ".",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}
