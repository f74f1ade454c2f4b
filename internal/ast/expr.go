package ast

import "capsule/internal/token"

type (
	Name struct {
		Pos
		ID string
	}

	Attribute struct {
		Pos
		X    Expr
		Attr string
	}

	Keyword struct {
		Pos
		Name  string
		Value Expr
	}

	Call struct {
		Pos
		Fn       Expr
		Args     []Expr
		Keywords []*Keyword
	}

	Subscript struct {
		Pos
		X     Expr
		Index Expr
	}

	// Slice appears only as a Subscript index; Lo and Hi may be nil.
	Slice struct {
		Pos
		Lo Expr
		Hi Expr
	}

	Constant struct {
		Pos
		Kind ConstKind
		// Value is the literal text for numbers and the decoded payload for str and bytes.
		Value string
	}

	BinOp struct {
		Pos
		Op token.Kind
		L  Expr
		R  Expr
	}

	// BoolOp is a chain of and/or with short-circuit semantics.
	BoolOp struct {
		Pos
		Op     token.Kind
		Values []Expr
	}

	UnaryOp struct {
		Pos
		Op token.Kind
		X  Expr
	}

	Compare struct {
		Pos
		L      Expr
		Ops    []CmpOp
		Rights []Expr
	}

	IfExp struct {
		Pos
		Cond Expr
		Then Expr
		Else Expr
	}

	Lambda struct {
		Pos
		Params *Params
		Body   Expr
	}

	ListExpr struct {
		Pos
		Elts []Expr
	}

	TupleExpr struct {
		Pos
		Elts []Expr
	}

	DictExpr struct {
		Pos
		Keys   []Expr
		Values []Expr
	}

	// ListComp is [Elt for Target in Iter if Ifs...]; it opens its own scope.
	ListComp struct {
		Pos
		Elt    Expr
		Target Expr
		Iter   Expr
		Ifs    []Expr
	}

	Yield struct {
		Pos
		Value Expr
	}
)

// ConstKind classifies literal constants.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstTrue
	ConstFalse
	ConstInt
	ConstFloat
	ConstStr
	ConstBytes
)

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNotEq
	CmpLt
	CmpLtEq
	CmpGt
	CmpGtEq
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
)

var cmpNames = [...]string{"==", "!=", "<", "<=", ">", ">=", "in", "not in", "is", "is not"}

func (c CmpOp) String() string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return "?"
}

func (*Name) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Call) exprNode()      {}
func (*Subscript) exprNode() {}
func (*Slice) exprNode()     {}
func (*Constant) exprNode()  {}
func (*BinOp) exprNode()     {}
func (*BoolOp) exprNode()    {}
func (*UnaryOp) exprNode()   {}
func (*Compare) exprNode()   {}
func (*IfExp) exprNode()     {}
func (*Lambda) exprNode()    {}
func (*ListExpr) exprNode()  {}
func (*TupleExpr) exprNode() {}
func (*DictExpr) exprNode()  {}
func (*ListComp) exprNode()  {}
func (*Yield) exprNode()     {}

// DottedPath returns the names of a Name(.Attr)* expression, or nil.
func DottedPath(e Expr) []string {
	switch x := e.(type) {
	case *Name:
		return []string{x.ID}
	case *Attribute:
		base := DottedPath(x.X)
		if base == nil {
			return nil
		}
		return append(base, x.Attr)
	}
	return nil
}
