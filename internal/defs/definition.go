// Package defs holds the definition graph produced by capture: one immutable
// Definition per captured object, addressed by ObjectID.
package defs

// Definition is a closed sum type. Consumers switch over the concrete
// pointer types; the unexported marker keeps the set fixed to this package.
type Definition interface {
	Kind() Kind
	// Deps lists the ids this definition references directly, in a stable order.
	Deps() []ObjectID
	definition()
}

// Shape tells whether a Primitive is one scalar or a packed sequence.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeList
	ShapeTuple
)

// Primitive is a scalar, or a list/tuple whose members are all scalars.
type Primitive struct {
	Shape Shape    `msgpack:"shape"`
	Items []Scalar `msgpack:"items"`
}

// List is a mutable sequence of walked members.
type List struct {
	Members []ObjectID `msgpack:"members"`
}

// Tuple is an immutable sequence of walked members.
type Tuple struct {
	Members []ObjectID `msgpack:"members"`
}

// Dict keeps keys and values in insertion order.
type Dict struct {
	Keys   []ObjectID `msgpack:"keys"`
	Values []ObjectID `msgpack:"values"`
}

// Site is where a def, lambda or class starts: its line, the 1-based byte
// column of its keyword (zero when unknown) and its name, "<lambda>" for
// lambdas.
type Site struct {
	Line int
	Col  int
	Name string
}

// Function is a def or lambda. Chains maps each dotted free-variable chain
// to the id it resolved to at capture time.
type Function struct {
	SourceFile ObjectID            `msgpack:"file"`
	Line       int                 `msgpack:"line"`
	Col        int                 `msgpack:"col,omitempty"`
	Name       string              `msgpack:"name,omitempty"`
	Chains     map[string]ObjectID `msgpack:"chains"`
}

func (f *Function) Site() Site { return Site{Line: f.Line, Col: f.Col, Name: f.Name} }

type Class struct {
	SourceFile ObjectID            `msgpack:"file"`
	Line       int                 `msgpack:"line"`
	Name       string              `msgpack:"name,omitempty"`
	Chains     map[string]ObjectID `msgpack:"chains"`
	Bases      []ObjectID          `msgpack:"bases"`
}

func (c *Class) Site() Site { return Site{Line: c.Line, Name: c.Name} }

// ClassInstance holds an instance's class and its data members.
type ClassInstance struct {
	Class   ObjectID            `msgpack:"class"`
	Members map[string]ObjectID `msgpack:"members"`
}

// InstanceMethod is a method bound to an instance.
type InstanceMethod struct {
	Instance ObjectID `msgpack:"instance"`
	Method   string   `msgpack:"method"`
}

// NamedSingleton is a value the remote side already knows by name: None,
// True, False, builtins, builtin exception types and stdlib module members.
type NamedSingleton struct {
	Name string `msgpack:"name"`
}

type BuiltinExceptionInstance struct {
	Type string   `msgpack:"type"`
	Args ObjectID `msgpack:"args"`
}

// RemoteObjectReference names an object that already lives remotely.
type RemoteObjectReference struct {
	Path string `msgpack:"path"`
}

type SourceFile struct {
	Path string `msgpack:"path"`
	Text string `msgpack:"text"`
}

// ScopedBlock is a with-block body captured as a standalone unit.
type ScopedBlock struct {
	SourceFile ObjectID            `msgpack:"file"`
	Line       int                 `msgpack:"line"`
	Chains     map[string]ObjectID `msgpack:"chains"`
}

// Unconvertible stands in for a value with no remote representation.
type Unconvertible struct {
	Reason string `msgpack:"reason"`
}

func (p *Primitive) Kind() Kind {
	if p.Shape != ShapeScalar {
		return KindListOfPrimitives
	}
	if len(p.Items) == 0 {
		return KindNone
	}
	return p.Items[0].Type.kind()
}
func (*List) Kind() Kind                     { return KindList }
func (*Tuple) Kind() Kind                    { return KindTuple }
func (*Dict) Kind() Kind                     { return KindDict }
func (*Function) Kind() Kind                 { return KindFunction }
func (*Class) Kind() Kind                    { return KindClass }
func (*ClassInstance) Kind() Kind            { return KindClassInstance }
func (*InstanceMethod) Kind() Kind           { return KindInstanceMethod }
func (*NamedSingleton) Kind() Kind           { return KindNamedSingleton }
func (*BuiltinExceptionInstance) Kind() Kind { return KindBuiltinExceptionInstance }
func (*RemoteObjectReference) Kind() Kind    { return KindRemoteObject }
func (*SourceFile) Kind() Kind               { return KindFile }
func (*ScopedBlock) Kind() Kind              { return KindWithBlock }
func (*Unconvertible) Kind() Kind            { return KindUnconvertible }

func (*Primitive) Deps() []ObjectID                  { return nil }
func (l *List) Deps() []ObjectID                     { return l.Members }
func (t *Tuple) Deps() []ObjectID                    { return t.Members }
func (*NamedSingleton) Deps() []ObjectID             { return nil }
func (e *BuiltinExceptionInstance) Deps() []ObjectID { return []ObjectID{e.Args} }
func (*RemoteObjectReference) Deps() []ObjectID      { return nil }
func (*SourceFile) Deps() []ObjectID                 { return nil }
func (*Unconvertible) Deps() []ObjectID              { return nil }
func (m *InstanceMethod) Deps() []ObjectID           { return []ObjectID{m.Instance} }

func (d *Dict) Deps() []ObjectID {
	out := make([]ObjectID, 0, len(d.Keys)+len(d.Values))
	out = append(out, d.Keys...)
	return append(out, d.Values...)
}

func (f *Function) Deps() []ObjectID {
	return append(sortedValues(f.Chains), f.SourceFile)
}

// Deps of a class include its bases, which must be built before it.
func (c *Class) Deps() []ObjectID {
	out := append(sortedValues(c.Chains), c.SourceFile)
	return append(out, c.Bases...)
}

func (i *ClassInstance) Deps() []ObjectID {
	return append([]ObjectID{i.Class}, sortedValues(i.Members)...)
}

func (b *ScopedBlock) Deps() []ObjectID {
	return append(sortedValues(b.Chains), b.SourceFile)
}

func (*Primitive) definition()                {}
func (*List) definition()                     {}
func (*Tuple) definition()                    {}
func (*Dict) definition()                     {}
func (*Function) definition()                 {}
func (*Class) definition()                    {}
func (*ClassInstance) definition()            {}
func (*InstanceMethod) definition()           {}
func (*NamedSingleton) definition()           {}
func (*BuiltinExceptionInstance) definition() {}
func (*RemoteObjectReference) definition()    {}
func (*SourceFile) definition()               {}
func (*ScopedBlock) definition()              {}
func (*Unconvertible) definition()            {}

// MayCycle reports whether d is allowed to sit in a reference cycle.
func MayCycle(d Definition) bool {
	switch d.(type) {
	case *Function, *Class, *ClassInstance, *InstanceMethod:
		return true
	}
	return false
}

// IsContainer reports whether d is a List, Tuple or Dict.
func IsContainer(d Definition) bool {
	switch d.(type) {
	case *List, *Tuple, *Dict:
		return true
	}
	return false
}
