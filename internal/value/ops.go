package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Truthy reports the truth value of v.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, NoneType:
		return false
	case Bool:
		return bool(x)
	case Int:
		return x != 0
	case Float:
		return x != 0
	case Str:
		return x != ""
	case Bytes:
		return x != ""
	case *List:
		return len(x.Elems) > 0
	case *Tuple:
		return len(x.Elems) > 0
	case *Dict:
		return x.Len() > 0
	}
	return true
}

// Equal implements ==. Numbers compare across int, float and bool;
// sequences and dicts compare by content; everything else by identity.
func Equal(a, b Value) bool {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			if ai, aok := a.(Int); aok {
				if bi, bok := b.(Int); bok {
					return ai == bi
				}
			}
			return af == bf
		}
		return false
	}
	switch x := a.(type) {
	case NoneType:
		_, ok := b.(NoneType)
		return ok
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && x == y
	case *List:
		y, ok := b.(*List)
		return ok && equalSeq(x.Elems, y.Elems)
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalSeq(x.Elems, y.Elems)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		eq := true
		x.Items(func(k, v Value) bool {
			w, found, err := y.Get(k)
			eq = err == nil && found && Equal(v, w)
			return eq
		})
		return eq
	}
	return a == b
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func numeric(v Value) (float64, bool) {
	switch x := v.(type) {
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	}
	return 0, false
}

// ToStr renders v the way str() does.
func ToStr(v Value) string {
	switch x := v.(type) {
	case Str:
		return string(x)
	case *Exception:
		return x.Message()
	}
	return Repr(v)
}

// Repr renders v the way repr() does.
func Repr(v Value) string {
	var b strings.Builder
	writeRepr(&b, v, 0)
	return b.String()
}

const maxReprDepth = 32

func writeRepr(b *strings.Builder, v Value, depth int) {
	if depth > maxReprDepth {
		b.WriteString("...")
		return
	}
	switch x := v.(type) {
	case nil:
		b.WriteString("<nil>")
	case NoneType:
		b.WriteString("None")
	case Bool:
		if x {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		b.WriteString(FormatFloat(float64(x)))
	case Str:
		b.WriteString(quote(string(x)))
	case Bytes:
		b.WriteByte('b')
		b.WriteString(quote(string(x)))
	case *List:
		b.WriteByte('[')
		writeElems(b, x.Elems, depth)
		b.WriteByte(']')
	case *Tuple:
		b.WriteByte('(')
		writeElems(b, x.Elems, depth)
		if len(x.Elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case *Dict:
		b.WriteByte('{')
		i := 0
		x.Items(func(k, val Value) bool {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, k, depth+1)
			b.WriteString(": ")
			writeRepr(b, val, depth+1)
			i++
			return true
		})
		b.WriteByte('}')
	case *Function:
		fmt.Fprintf(b, "<function %s>", x.Name)
	case *Class:
		fmt.Fprintf(b, "<class '%s'>", x.Name)
	case *Instance:
		fmt.Fprintf(b, "<%s object>", x.Class.Name)
	case *BoundMethod:
		fmt.Fprintf(b, "<bound method %s.%s>", x.Self.Class.Name, x.Name)
	case *Module:
		fmt.Fprintf(b, "<module '%s'>", x.Name)
	case *Builtin:
		fmt.Fprintf(b, "<built-in function %s>", x.Name)
	case *ExceptionType:
		fmt.Fprintf(b, "<class '%s'>", x.Name)
	case *Exception:
		b.WriteString(x.Type.Name)
		b.WriteByte('(')
		writeElems(b, x.Args, depth)
		b.WriteByte(')')
	case *RemoteRef:
		fmt.Fprintf(b, "<remote %s>", x.Path)
	case *Native:
		fmt.Fprintf(b, "<native %s>", x.Type)
	case *ScopedBlock:
		fmt.Fprintf(b, "<with-block %s:%d>", x.File, x.Line)
	case *Unconvertible:
		fmt.Fprintf(b, "<unconvertible %s>", x.Reason)
	default:
		fmt.Fprintf(b, "<%s>", v.TypeName())
	}
}

func writeElems(b *strings.Builder, elems []Value, depth int) {
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, e, depth+1)
	}
}

func quote(s string) string {
	q := strconv.Quote(s)
	if !strings.Contains(s, "'") {
		return "'" + strings.ReplaceAll(q[1:len(q)-1], `\"`, `"`) + "'"
	}
	return q
}
