// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package state

import (
	"fmt"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

const idColumn = "id"

// ReceiveUpdate applies one incoming update to the state. The general
// section of each dataset is processed before its entity groups, so
// enum/special bindings are in place before data lands (spec.md §4.7).
func (s *State) ReceiveUpdate(update Update, isInitial, processUndefined bool) error {
	for dsName, dsUpdate := range update.Datasets {
		s.ProcessGeneralSection(dsName, dsUpdate.General)
	}
	for dsName, dsUpdate := range update.Datasets {
		d := s.dataset(dsName)
		for grName, grUpdate := range dsUpdate.Groups {
			g := d.group(grName, false, s.TrackUnknownColumns)
			if err := s.applyGroupUpdate(dsName, g, grUpdate, isInitial, processUndefined); err != nil {
				return fmt.Errorf("state: %s.%s: %w", dsName, grName, err)
			}
			if s.metrics != nil {
				s.metrics.UpdatesReceived.WithLabelValues(dsName, grName).Inc()
			}
		}
	}
	return nil
}

// applyGroupUpdate implements the Entity Data Handler (spec.md §4.8) for
// one entity group.
func (s *State) applyGroupUpdate(datasetName string, g *entityGroup, update GroupUpdate, isInitial, processUndefined bool) error {
	if update.IDs == nil {
		return fmt.Errorf("invalid data, no ids")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if isInitial || g.index.Len() == 0 {
		if err := g.index.SetIDs(update.IDs); err != nil {
			return err
		}
		n := g.index.Len()
		for _, a := range g.attributes {
			if !a.IsAllocated() {
				if err := a.Initialize(n); err != nil {
					return err
				}
			}
		}
		if err := s.writeGroupColumns(g, update, allRows(n), true); err != nil {
			return err
		}
		for _, a := range g.attributes {
			a.Reset()
		}
		return nil
	}

	var newIDs []int64
	for _, id := range update.IDs {
		if g.index.Query(id) < 0 {
			newIDs = append(newIDs, id)
		}
	}
	if len(newIDs) > 0 {
		if err := g.index.AddIDs(newIDs); err != nil {
			return err
		}
		n := g.index.Len()
		for _, a := range g.attributes {
			if !a.IsAllocated() {
				if err := a.Initialize(n); err != nil {
					return err
				}
				continue
			}
			if a.Len() < n {
				if err := a.Resize(n); err != nil {
					return err
				}
			}
		}
	}

	rows, err := g.index.QueryMany(update.IDs, true)
	if err != nil {
		return err
	}
	return s.writeGroupColumns(g, update, rows, processUndefined)
}

// writeGroupColumns routes every non-id column of update to its attribute,
// auto-registering unknown columns when the group's TrackUnknownColumns
// is set, else ignoring them.
func (s *State) writeGroupColumns(g *entityGroup, update GroupUpdate, rows []int, processUndefined bool) error {
	for name, values := range update.Columns {
		if name == idColumn {
			continue
		}
		a, ok := g.attributes[name]
		if !ok {
			if !g.trackUnknown {
				continue
			}
			a = inferAttribute(name, values)
			if err := a.Initialize(g.index.Len()); err != nil {
				return err
			}
			g.attributes[name] = a
		}
		// Decoded JSON nulls arrive as nil placeholders; the attribute's
		// kind is known here, so they become its undefined sentinel.
		undefined := a.DataType.Kind.Undefined()
		filled := make([][]any, len(values))
		for i, row := range values {
			filled[i] = make([]any, len(row))
			for k, v := range row {
				if v == nil {
					v = undefined
				}
				filled[i][k] = v
			}
		}
		if err := a.Update(rows, filled, processUndefined); err != nil {
			return err
		}
	}
	return nil
}

// inferAttribute builds a new attribute for an unknown column, inferring
// its element kind from the first defined scalar seen.
func inferAttribute(name string, values [][]any) *attribute.Attribute {
	dt := dtype.DataType{Kind: dtype.Float}
	for _, row := range values {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		switch row[0].(type) {
		case int8, bool:
			dt.Kind = dtype.Bool
		case int32, int:
			dt.Kind = dtype.Int
		case string:
			dt.Kind = dtype.String
		default:
			dt.Kind = dtype.Float
		}
		if len(row) > 1 {
			dt.Ragged = true
		}
		break
	}
	return attribute.New(name, dt, attribute.Pub, tracked.DefaultTolerance, attribute.Options{})
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// GenerateUpdate produces a payload containing, for each group, only the
// rows where any flagged attribute has changes, with every flagged
// attribute in that group emitted as a column aligned to that row set.
func (s *State) GenerateUpdate(flags attribute.Flags) Update {
	out := Update{Datasets: map[string]DatasetUpdate{}}

	s.mu.RLock()
	datasets := make(map[string]*dataset, len(s.datasets))
	for name, d := range s.datasets {
		datasets[name] = d
	}
	s.mu.RUnlock()

	for dsName, d := range datasets {
		groups := map[string]GroupUpdate{}
		for _, grName := range d.groupNames() {
			g, ok := d.findGroup(grName)
			if !ok {
				continue
			}
			grUpdate, ok := s.generateGroupUpdate(g, flags)
			if !ok {
				continue
			}
			groups[grName] = grUpdate
			if s.metrics != nil {
				s.metrics.UpdatesGenerated.WithLabelValues(dsName, grName).Inc()
			}
		}
		if len(groups) > 0 {
			out.Datasets[dsName] = DatasetUpdate{Groups: groups}
		}
	}
	return out
}

func (s *State) generateGroupUpdate(g *entityGroup, flags attribute.Flags) (GroupUpdate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := g.index.Len()
	mask := make([]bool, n)
	anyChanged := false
	for _, a := range g.attributes {
		if !a.Flags.Intersects(flags) {
			continue
		}
		for i, c := range a.Changed() {
			if c {
				mask[i] = true
				anyChanged = true
			}
		}
	}
	if !anyChanged {
		return GroupUpdate{}, false
	}

	ids := g.index.AllIDs()
	var outIDs []int64
	for i, want := range mask {
		if want {
			outIDs = append(outIDs, ids[i])
		}
	}

	columns := map[string][][]any{}
	for name, a := range g.attributes {
		if !a.Flags.Intersects(flags) {
			continue
		}
		_, values := a.GenerateUpdate(mask)
		// values is aligned to every masked row in index order; reorder to
		// rowPositions is unnecessary since GenerateUpdate(mask) already
		// walks rows in ascending order, matching outIDs' order above.
		columns[name] = values
	}
	return GroupUpdate{IDs: outIDs, Columns: columns}, true
}
