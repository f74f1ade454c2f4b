package ast

import "capsule/internal/token"

type (
	FuncDef struct {
		Pos
		Name   string
		Params *Params
		Body   []Stmt
	}

	ClassDef struct {
		Pos
		Name  string
		Bases []Expr
		Body  []Stmt
	}

	Return struct {
		Pos
		Value Expr
	}

	// Assign binds Value to every target: a = b = value.
	Assign struct {
		Pos
		Targets []Expr
		Value   Expr
	}

	AugAssign struct {
		Pos
		Target Expr
		Op     token.Kind // Plus, Minus or Star
		Value  Expr
	}

	ExprStmt struct {
		Pos
		X Expr
	}

	// If holds elif chains as a single nested If in Else.
	If struct {
		Pos
		Cond Expr
		Body []Stmt
		Else []Stmt
	}

	While struct {
		Pos
		Cond Expr
		Body []Stmt
	}

	For struct {
		Pos
		Target Expr
		Iter   Expr
		Body   []Stmt
	}

	With struct {
		Pos
		Ctx  Expr
		Var  Expr // nil without "as"
		Body []Stmt
	}

	Pass     struct{ Pos }
	Break    struct{ Pos }
	Continue struct{ Pos }

	Raise struct {
		Pos
		Exc Expr
	}

	// Import binds a module to Alias, or to Name when Alias is empty.
	Import struct {
		Pos
		Name  string
		Alias string
	}

	Global struct {
		Pos
		Names []string
	}

	Nonlocal struct {
		Pos
		Names []string
	}
)

func (*FuncDef) stmtNode()   {}
func (*ClassDef) stmtNode()  {}
func (*Return) stmtNode()    {}
func (*Assign) stmtNode()    {}
func (*AugAssign) stmtNode() {}
func (*ExprStmt) stmtNode()  {}
func (*If) stmtNode()        {}
func (*While) stmtNode()     {}
func (*For) stmtNode()       {}
func (*With) stmtNode()      {}
func (*Pass) stmtNode()      {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Raise) stmtNode()     {}
func (*Import) stmtNode()    {}
func (*Global) stmtNode()    {}
func (*Nonlocal) stmtNode()  {}

// Binding returns the name the import statement binds.
func (i *Import) Binding() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}
