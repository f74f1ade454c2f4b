package value

// Namespace is an insertion-ordered string-keyed attribute table.
type Namespace struct {
	names []string
	vals  map[string]Value
}

func NewNamespace() *Namespace {
	return &Namespace{vals: make(map[string]Value)}
}

func (ns *Namespace) Get(name string) (Value, bool) {
	if ns == nil {
		return nil, false
	}
	v, ok := ns.vals[name]
	return v, ok
}

func (ns *Namespace) Set(name string, v Value) {
	if _, ok := ns.vals[name]; !ok {
		ns.names = append(ns.names, name)
	}
	ns.vals[name] = v
}

func (ns *Namespace) Delete(name string) bool {
	if _, ok := ns.vals[name]; !ok {
		return false
	}
	delete(ns.vals, name)
	for i, n := range ns.names {
		if n == name {
			ns.names = append(ns.names[:i], ns.names[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the attribute names in insertion order.
func (ns *Namespace) Names() []string {
	if ns == nil {
		return nil
	}
	return append([]string(nil), ns.names...)
}

func (ns *Namespace) Len() int {
	if ns == nil {
		return 0
	}
	return len(ns.names)
}
