package ast

import "capsule/internal/source"

// Pos is the location every node carries: its span and the 1-based line it starts on.
type Pos struct {
	Sp source.Span
	Ln int
}

func (p Pos) Span() source.Span { return p.Sp }
func (p Pos) Line() int         { return p.Ln }

// Node is any syntax tree node.
type Node interface {
	Span() source.Span
	Line() int
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Module is a parsed source file.
type Module struct {
	Pos
	File *source.File
	Body []Stmt
}

// Param is one positional parameter with an optional default.
type Param struct {
	Pos
	Name    string
	Default Expr
}

// Params lists the parameters of a def or lambda.
type Params struct {
	List []*Param
}

// Names returns the parameter names in order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.List))
	for i, prm := range p.List {
		out[i] = prm.Name
	}
	return out
}
