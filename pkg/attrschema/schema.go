// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package attrschema implements the case-sensitive registry from attribute
// name to its declared shape, described in spec.md §4.6.
package attrschema

import (
	"fmt"
	"sync"
	"time"

	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/lrucache"
)

// inferredSpecTTL is long enough that a cached inferred spec effectively
// never expires for the lifetime of one simulation run.
const inferredSpecTTL = 365 * 24 * time.Hour

// Spec is one registered attribute shape: element kind, unit shape,
// raggedness, and an optional enum binding.
type Spec struct {
	Name     string
	DataType dtype.DataType
	EnumName string
}

func (s Spec) equal(other Spec) bool {
	return s.Name == other.Name && s.DataType.Equal(other.DataType) && s.EnumName == other.EnumName
}

// Schema is a registry of attribute Specs, populated from explicit specs,
// model-class-declared specs, or a plugin namespace of spec constants.
type Schema struct {
	mu    sync.RWMutex
	specs map[string]Spec
	cache *lrucache.Cache
}

// New builds an empty schema. cacheBudget bounds the memory used by the
// inferred-spec cache consulted by Get(cache=true); pass 0 to disable it.
func New(cacheBudget int) *Schema {
	var c *lrucache.Cache
	if cacheBudget > 0 {
		c = lrucache.New(cacheBudget)
	}
	return &Schema{specs: make(map[string]Spec), cache: c}
}

// Register adds spec under its name. Idempotent if an identical spec is
// already registered; rejects an incompatible redefinition of the same
// name.
func (s *Schema) Register(spec Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.specs[spec.Name]; ok {
		if existing.equal(spec) {
			return nil
		}
		return fmt.Errorf("attrschema: %q already registered as %+v, cannot redefine as %+v", spec.Name, existing, spec)
	}
	s.specs[spec.Name] = spec
	return nil
}

// Get returns the registered spec for name. If unregistered and
// defaultDataType is non-nil, a Spec is constructed from it; when cache is
// true, that inferred spec is stored in the bounded lrucache so a later
// unregistered lookup for the same name can be served without
// reconstructing it, subject to the cache's own size-based eviction. This
// is not the same as registering the spec — a caller that needs the name
// to stick regardless of eviction must call Register with the returned
// Spec (as pkg/rules does immediately after an inferred Get).
func (s *Schema) Get(name string, defaultDataType *dtype.DataType, cache bool) (Spec, error) {
	s.mu.RLock()
	spec, ok := s.specs[name]
	s.mu.RUnlock()
	if ok {
		return spec, nil
	}

	if s.cache != nil {
		if v := s.cache.Get(name, nil); v != nil {
			return v.(Spec), nil
		}
	}

	if defaultDataType == nil {
		return Spec{}, fmt.Errorf("attrschema: %q is not registered and no default data type was given", name)
	}

	inferred := Spec{Name: name, DataType: *defaultDataType}
	if cache && s.cache != nil {
		s.cache.Get(name, func() (any, time.Duration, int) {
			return inferred, inferredSpecTTL, 1
		})
	}
	return inferred, nil
}

// Names returns every registered attribute name.
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.specs))
	for name := range s.specs {
		out = append(out, name)
	}
	return out
}
