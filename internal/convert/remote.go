package convert

import (
	"capsule/internal/defs"
	"capsule/internal/diag"
	"capsule/internal/source"
	"capsule/internal/value"
)

// RemoteResolver looks up objects that live on the converting side and were
// captured by path only.
type RemoteResolver interface {
	ResolveRemote(path string) (value.Value, bool)
}

// RemoteMap resolves paths from a fixed table.
type RemoteMap map[string]value.Value

func (m RemoteMap) ResolveRemote(path string) (value.Value, bool) {
	v, ok := m[path]
	return v, ok
}

func (c *Converter) remote(d *defs.RemoteObjectReference) (value.Value, error) {
	if c.opts.Remote == nil {
		return nil, diag.Errorf(diag.CnvRemoteMissing, source.Position{}, "no resolver for remote object %q", d.Path)
	}
	v, ok := c.opts.Remote.ResolveRemote(d.Path)
	if !ok {
		return nil, diag.Errorf(diag.CnvRemoteMissing, source.Position{}, "remote object %q not found", d.Path)
	}
	return v, nil
}
