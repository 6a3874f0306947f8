// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package state

import (
	"sync"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/entityindex"
)

// entityGroup holds one dataset's entity group: its shared Index and the
// attributes registered against it.
type entityGroup struct {
	mu         sync.RWMutex
	name       string
	optional   bool
	index      *entityindex.Index
	attributes map[string]*attribute.Attribute
	// trackUnknown mirrors the owning state's TrackUnknownColumns, sampled
	// at group-registration time so groups behave consistently even if the
	// state's setting changes afterwards.
	trackUnknown bool
}

func newEntityGroup(name string, optional, trackUnknown bool) *entityGroup {
	return &entityGroup{
		name:         name,
		optional:     optional,
		index:        entityindex.NewIndex(),
		attributes:   make(map[string]*attribute.Attribute),
		trackUnknown: trackUnknown,
	}
}

func (g *entityGroup) attr(name string) (*attribute.Attribute, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.attributes[name]
	return a, ok
}

func (g *entityGroup) attrNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.attributes))
	for name := range g.attributes {
		names = append(names, name)
	}
	return names
}

type dataset struct {
	mu     sync.RWMutex
	name   string
	groups map[string]*entityGroup
}

func newDataset(name string) *dataset {
	return &dataset{name: name, groups: make(map[string]*entityGroup)}
}

// group finds or creates the named group, mirroring the double-checked
// locking used by the hierarchical metric store this module is grounded
// on: an RLock fast path for the common already-registered case, and a
// Lock-protected create path re-checked for a race against a concurrent
// registration.
func (d *dataset) group(name string, optional, trackUnknown bool) *entityGroup {
	d.mu.RLock()
	g, ok := d.groups[name]
	d.mu.RUnlock()
	if ok {
		return g
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok = d.groups[name]; ok {
		return g
	}
	g = newEntityGroup(name, optional, trackUnknown)
	d.groups[name] = g
	return g
}

func (d *dataset) findGroup(name string) (*entityGroup, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.groups[name]
	return g, ok
}

func (d *dataset) groupNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.groups))
	for name := range d.groups {
		names = append(names, name)
	}
	return names
}
