// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package state implements the Tracked State (spec.md §4.7) and the
// per-group Entity Data Handler (spec.md §4.8): the three-level
// dataset -> entity group -> attribute map that every model in a
// simulation run reads and writes through.
package state

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

// Metrics are the Prometheus counters exposed by a State. They are
// registered with Options.Registerer when it is non-nil (for example
// prometheus.DefaultRegisterer, or a per-run *prometheus.Registry); with a
// nil Registerer they are counted but registered nowhere.
type Metrics struct {
	UpdatesReceived  *prometheus.CounterVec
	UpdatesGenerated *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpdatesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simcore_state_updates_received_total",
			Help: "Number of per-group updates applied to the tracked state.",
		}, []string{"dataset", "group"}),
		UpdatesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simcore_state_updates_generated_total",
			Help: "Number of non-empty per-group update payloads generated from the tracked state.",
		}, []string{"dataset", "group"}),
	}
	if reg != nil {
		reg.MustRegister(m.UpdatesReceived, m.UpdatesGenerated)
	}
	return m
}

// State is the tracked state of one simulation run.
type State struct {
	mu       sync.RWMutex
	datasets map[string]*dataset
	schema   *attrschema.Schema

	// TrackUnknownColumns, when true, auto-registers any column name not
	// already known to a group's schema instead of silently ignoring it
	// (spec.md §4.8).
	TrackUnknownColumns bool

	metrics *Metrics
}

// Options configures a new State.
type Options struct {
	Schema              *attrschema.Schema
	TrackUnknownColumns bool
	Registerer          prometheus.Registerer
}

// New builds an empty tracked state.
func New(opts Options) *State {
	schema := opts.Schema
	if schema == nil {
		schema = attrschema.New(0)
	}
	return &State{
		datasets:            make(map[string]*dataset),
		schema:              schema,
		TrackUnknownColumns: opts.TrackUnknownColumns,
		metrics:             newMetrics(opts.Registerer),
	}
}

func (s *State) dataset(name string) *dataset {
	s.mu.RLock()
	d, ok := s.datasets[name]
	s.mu.RUnlock()
	if ok {
		return d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok = s.datasets[name]; ok {
		return d
	}
	d = newDataset(name)
	s.datasets[name] = d
	return d
}

func (s *State) findDataset(name string) (*dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[name]
	return d, ok
}

// RegisterEntityGroup registers (idempotently) an entity group under a
// dataset. optional marks the group as tolerant of an empty ID set when
// evaluating IsReadyFor.
func (s *State) RegisterEntityGroup(datasetName, groupName string, optional bool) {
	s.dataset(datasetName).group(groupName, optional, s.TrackUnknownColumns)
}

// RegisterAttribute registers (idempotently) an attribute spec against a
// group, OR-accumulating flags across repeat registrations from different
// models. A later registration with an incompatible data type is an
// error.
func (s *State) RegisterAttribute(datasetName, groupName string, spec attrschema.Spec, flags attribute.Flags, tol tracked.Tolerance) error {
	if err := s.schema.Register(spec); err != nil {
		return err
	}

	g := s.dataset(datasetName).group(groupName, false, s.TrackUnknownColumns)
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.attributes[spec.Name]; ok {
		if !existing.DataType.Equal(spec.DataType) {
			return fmt.Errorf("state: %s.%s.%s already registered with data type %+v, got %+v",
				datasetName, groupName, spec.Name, existing.DataType, spec.DataType)
		}
		existing.Flags |= flags
		return nil
	}

	a := attribute.New(spec.Name, spec.DataType, flags, tol, attribute.Options{EnumName: spec.EnumName})
	if n := g.index.Len(); n > 0 {
		if err := a.Initialize(n); err != nil {
			return err
		}
	}
	g.attributes[spec.Name] = a
	return nil
}

// IsReadyFor reports whether every attribute across every dataset/group
// whose flags intersect flag is initialized. A group declared optional at
// registration with an empty ID set is vacuously ready regardless of its
// attributes.
func (s *State) IsReadyFor(flag attribute.Flags) bool {
	s.mu.RLock()
	datasets := make([]*dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		datasets = append(datasets, d)
	}
	s.mu.RUnlock()

	for _, d := range datasets {
		for _, name := range d.groupNames() {
			g, ok := d.findGroup(name)
			if !ok {
				continue
			}
			g.mu.RLock()
			empty := g.index.Len() == 0
			optional := g.optional
			if optional && empty {
				g.mu.RUnlock()
				continue
			}
			for _, a := range g.attributes {
				if a.Flags.Intersects(flag) && !a.IsInitialized() {
					g.mu.RUnlock()
					return false
				}
			}
			g.mu.RUnlock()
		}
	}
	return true
}

// ReadinessFailures lists the "dataset/group/attr" tuples whose flags
// intersect flag and are not yet initialized, skipping optional groups
// with no registered IDs. Used to format a readiness-gate error message
// (spec.md §4.9).
func (s *State) ReadinessFailures(flag attribute.Flags) []string {
	var out []string
	s.mu.RLock()
	datasets := make(map[string]*dataset, len(s.datasets))
	for name, d := range s.datasets {
		datasets[name] = d
	}
	s.mu.RUnlock()

	for dsName, d := range datasets {
		for _, grName := range d.groupNames() {
			g, ok := d.findGroup(grName)
			if !ok {
				continue
			}
			g.mu.RLock()
			if g.optional && g.index.Len() == 0 {
				g.mu.RUnlock()
				continue
			}
			for attrName, a := range g.attributes {
				if a.Flags.Intersects(flag) && !a.IsInitialized() {
					out = append(out, fmt.Sprintf("%s/%s/%s", dsName, grName, attrName))
				}
			}
			g.mu.RUnlock()
		}
	}
	return out
}

// ResetTrackedChanges resets change tracking on every attribute whose
// flags intersect flag. flag must be Subscribe or Publish.
func (s *State) ResetTrackedChanges(flag attribute.Flags) error {
	if flag != attribute.Subscribe && flag != attribute.Publish {
		return fmt.Errorf("state: reset_tracked_changes flag must be SUBSCRIBE or PUBLISH, got %v", flag)
	}
	s.mu.RLock()
	datasets := make([]*dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		datasets = append(datasets, d)
	}
	s.mu.RUnlock()

	for _, d := range datasets {
		for _, name := range d.groupNames() {
			g, ok := d.findGroup(name)
			if !ok {
				continue
			}
			g.mu.RLock()
			for _, a := range g.attributes {
				if a.Flags.Intersects(flag) {
					a.Reset()
				}
			}
			g.mu.RUnlock()
		}
	}
	return nil
}

// GetDataMask scans every registered attribute's flags and returns which
// attributes of which group of which dataset are published or
// subscribed.
func (s *State) GetDataMask() DataMask {
	mask := DataMask{Pub: map[string]map[string][]string{}, Sub: map[string]map[string][]string{}}
	s.mu.RLock()
	datasets := make(map[string]*dataset, len(s.datasets))
	for name, d := range s.datasets {
		datasets[name] = d
	}
	s.mu.RUnlock()

	for dsName, d := range datasets {
		for _, grName := range d.groupNames() {
			g, ok := d.findGroup(grName)
			if !ok {
				continue
			}
			g.mu.RLock()
			for attrName, a := range g.attributes {
				if a.Flags.Intersects(attribute.Publish) {
					addMaskEntry(mask.Pub, dsName, grName, attrName)
				}
				if a.Flags.Intersects(attribute.Subscribe) {
					addMaskEntry(mask.Sub, dsName, grName, attrName)
				}
			}
			g.mu.RUnlock()
		}
	}
	return mask
}

func addMaskEntry(m map[string]map[string][]string, dataset, group, attr string) {
	groups, ok := m[dataset]
	if !ok {
		groups = map[string][]string{}
		m[dataset] = groups
	}
	groups[group] = append(groups[group], attr)
}

// ReadScalar returns the current value of attrName for entity id in
// datasetName/groupName, or ok=false if the dataset, group, attribute or
// id is not known, or the row is undefined. Single-element rows are
// unboxed; multi-element rows are returned as a []any.
func (s *State) ReadScalar(datasetName, groupName, attrName string, id int64) (any, bool) {
	d, ok := s.findDataset(datasetName)
	if !ok {
		return nil, false
	}
	g, ok := d.findGroup(groupName)
	if !ok {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.attr(attrName)
	if !ok || !a.IsAllocated() {
		return nil, false
	}
	row := g.index.Query(id)
	if row < 0 {
		return nil, false
	}
	values := a.ReadRow(row)
	if len(values) == 1 {
		if a.DataType.Kind.IsUndefined(values[0]) {
			return nil, false
		}
		return values[0], true
	}
	return values, true
}

// WriteScalar writes value to attrName's row for entity id in
// datasetName/groupName. value is boxed into a single-element row unless
// it is already a []any.
func (s *State) WriteScalar(datasetName, groupName, attrName string, id int64, value any) error {
	d, ok := s.findDataset(datasetName)
	if !ok {
		return fmt.Errorf("state: unknown dataset %s", datasetName)
	}
	g, ok := d.findGroup(groupName)
	if !ok {
		return fmt.Errorf("state: unknown group %s/%s", datasetName, groupName)
	}
	g.mu.RLock()
	a, ok := g.attr(attrName)
	row := g.index.Query(id)
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("state: unknown attribute %s/%s/%s", datasetName, groupName, attrName)
	}
	if row < 0 {
		return fmt.Errorf("state: unknown id %d in %s/%s", id, datasetName, groupName)
	}

	values, ok := value.([]any)
	if !ok {
		values = []any{value}
	}
	return a.WriteRow(row, values)
}

// ProcessGeneralSection consumes a dataset's side-channel metadata: enum
// label tables bind to every attribute whose EnumName matches, and special
// values bind to the named "<group>.<attr>" attribute. Processed before
// any entity-group data in the same update, so enum/special are in place
// before values land. Repeat assignments with the same value are silent;
// conflicting values are logged at WARN and the first value is kept.
func (s *State) ProcessGeneralSection(datasetName string, section *GeneralSection) {
	if section == nil {
		return
	}
	d := s.dataset(datasetName)

	if len(section.Special) > 0 {
		for key, value := range section.Special {
			groupName, attrName, ok := splitGroupAttr(key)
			if !ok {
				log.Warnf("state: malformed special key %q in dataset %s, ignored", key, datasetName)
				continue
			}
			g := d.group(groupName, false, s.TrackUnknownColumns)
			g.mu.Lock()
			a, ok := g.attributes[attrName]
			if !ok {
				g.mu.Unlock()
				continue
			}
			if a.Options.HasSpecial {
				if !specialEqual(a.Options.Special, value) {
					log.Warnf("state: conflicting special value for %s.%s.%s: keeping %v, ignoring %v",
						datasetName, groupName, attrName, a.Options.Special, value)
				}
				g.mu.Unlock()
				continue
			}
			a.Options.Special = value
			a.Options.HasSpecial = true
			g.mu.Unlock()
		}
	}

	if len(section.Enum) == 0 {
		return
	}
	for _, groupName := range d.groupNames() {
		g, ok := d.findGroup(groupName)
		if !ok {
			continue
		}
		g.mu.Lock()
		for attrName, a := range g.attributes {
			if a.Options.EnumName == "" {
				continue
			}
			labels, ok := section.Enum[a.Options.EnumName]
			if !ok {
				continue
			}
			if a.Options.EnumLabels == nil {
				a.Options.EnumLabels = labels
				continue
			}
			if !stringsEqual(a.Options.EnumLabels, labels) {
				log.Warnf("state: conflicting enum labels for %s.%s.%s (enum %s): keeping first definition",
					datasetName, groupName, attrName, a.Options.EnumName)
			}
		}
		g.mu.Unlock()
	}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitGroupAttr(key string) (group, attr string, ok bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

func specialEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	default:
		return a == b
	}
}
