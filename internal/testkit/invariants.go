// Package testkit holds structural checks shared by capture and rebuild
// tests.
package testkit

import (
	"fmt"
	"strings"

	"capsule/internal/defs"
	"capsule/internal/graph"
	"capsule/internal/registry"
)

// CheckClosure runs the structural invariants on everything reachable from
// root:
// 1) every referenced id has a definition
// 2) no list, tuple or dict lies on a reference cycle
// 3) code definitions point at a source file and a line inside it
// 4) class bases, instance classes and method receivers have the right kind
func CheckClosure(reg *registry.Registry, root defs.ObjectID) error {
	if reg == nil {
		return fmt.Errorf("nil registry")
	}
	g, err := reg.DependencyGraph(root)
	if err != nil {
		return err
	}
	kinds := make(map[defs.ObjectID]defs.Definition, len(g))
	for _, id := range g.Nodes() {
		d, err := reg.Get(id)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		kinds[id] = d
	}

	// 1) closed under Deps
	for id, d := range kinds {
		for _, dep := range d.Deps() {
			if _, ok := kinds[dep]; !ok {
				return fmt.Errorf("%s references undefined %s", id, dep)
			}
		}
	}

	// 2) containers are never cyclic
	for _, comp := range graph.Components(g) {
		if !graph.IsCyclic(g, comp) {
			continue
		}
		for _, id := range comp {
			if defs.IsContainer(kinds[id]) {
				return fmt.Errorf("container %s (%s) lies on a cycle", id, kinds[id].Kind())
			}
		}
	}

	// 3) and 4)
	for id, d := range kinds {
		switch d := d.(type) {
		case *defs.Function:
			if err := checkSource(kinds, id, d.SourceFile, d.Line); err != nil {
				return err
			}
		case *defs.ScopedBlock:
			if err := checkSource(kinds, id, d.SourceFile, d.Line); err != nil {
				return err
			}
		case *defs.Class:
			if err := checkSource(kinds, id, d.SourceFile, d.Line); err != nil {
				return err
			}
			for _, b := range d.Bases {
				switch kinds[b].(type) {
				case *defs.Class, *defs.NamedSingleton:
				default:
					return fmt.Errorf("class %s has base %s of kind %s", id, b, kinds[b].Kind())
				}
			}
		case *defs.ClassInstance:
			if _, ok := kinds[d.Class].(*defs.Class); !ok {
				return fmt.Errorf("instance %s has class %s of kind %s", id, d.Class, kinds[d.Class].Kind())
			}
		case *defs.InstanceMethod:
			if _, ok := kinds[d.Instance].(*defs.ClassInstance); !ok {
				return fmt.Errorf("method %s is bound to %s of kind %s", id, d.Instance, kinds[d.Instance].Kind())
			}
			if d.Method == "" {
				return fmt.Errorf("method %s has no name", id)
			}
		}
	}
	return nil
}

func checkSource(kinds map[defs.ObjectID]defs.Definition, id, file defs.ObjectID, line int) error {
	sf, ok := kinds[file].(*defs.SourceFile)
	if !ok {
		return fmt.Errorf("%s: source %s is not a file", id, file)
	}
	lines := strings.Count(sf.Text, "\n") + 1
	if line < 1 || line > lines {
		return fmt.Errorf("%s: line %d outside %s (%d lines)", id, line, sf.Path, lines)
	}
	return nil
}
