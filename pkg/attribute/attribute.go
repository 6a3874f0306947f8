// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package attribute implements the per-column unit of tracked state: a
// (column, data type, flags) triple plus lifecycle and options, as
// described in spec.md §4.5.
package attribute

import (
	"errors"
	"fmt"

	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

// ErrAlreadyAllocated is returned by Initialize on an attribute that
// already has a column.
var ErrAlreadyAllocated = errors.New("attribute: already initialized")

// ErrNotAllocated is returned by operations that require Initialize to
// have run first.
var ErrNotAllocated = errors.New("attribute: not yet initialized")

// ErrRaggedAsType is returned by AsType on a ragged attribute: type
// conversion only applies to uniform columns (spec.md §4.2).
var ErrRaggedAsType = errors.New("attribute: astype is not supported on ragged attributes")

// Options carries the special-value sentinel and enum binding for an
// attribute, set independently of its core column.
type Options struct {
	Special    any
	HasSpecial bool
	EnumName   string
	EnumLabels []string
}

// Attribute is one named column of an entity group: its data, data type,
// role flags, and lifecycle state.
type Attribute struct {
	Name      string
	DataType  dtype.DataType
	Flags     Flags
	Tolerance tracked.Tolerance
	Options   Options

	col         storage
	initialized bool // monotonic once true, per spec.md E5
}

// New builds an unallocated attribute; call Initialize before using it.
func New(name string, dt dtype.DataType, flags Flags, tol tracked.Tolerance, opts Options) *Attribute {
	return &Attribute{Name: name, DataType: dt, Flags: flags, Tolerance: tol, Options: opts}
}

// Initialize allocates the backing column at the given length, filled with
// undefined. The attribute must not already have data.
func (a *Attribute) Initialize(length int) error {
	if a.col != nil {
		return ErrAlreadyAllocated
	}
	a.col = newStorage(a.DataType, length, a.Tolerance)
	return nil
}

func newStorage(dt dtype.DataType, length int, tol tracked.Tolerance) storage {
	if dt.Ragged {
		switch dt.Kind {
		case dtype.Bool:
			return raggedStorage{tracked.NewBoolCSRColumn(length)}
		case dtype.Int:
			return raggedStorage{tracked.NewIntCSRColumn(length)}
		case dtype.Float:
			return raggedStorage{tracked.NewFloatCSRColumn(length, tol)}
		default:
			return raggedStorage{tracked.NewStringCSRColumn(length)}
		}
	}
	switch dt.Kind {
	case dtype.Bool:
		return uniformStorage{tracked.NewBoolColumn(length, dt.UnitShape)}
	case dtype.Int:
		return uniformStorage{tracked.NewIntColumn(length, dt.UnitShape)}
	case dtype.Float:
		return uniformStorage{tracked.NewFloatColumn(length, dt.UnitShape, tol)}
	default:
		return uniformStorage{tracked.NewStringColumn(length, dt.UnitShape)}
	}
}

// IsAllocated reports whether Initialize has run.
func (a *Attribute) IsAllocated() bool { return a.col != nil }

// Len returns the number of rows, or 0 if unallocated.
func (a *Attribute) Len() int {
	if a.col == nil {
		return 0
	}
	return a.col.Len()
}

// Resize grows the column to newLength, filling new rows with undefined.
// Grow-only; shrinking is a caller error surfaced via tracked.ErrShrink.
func (a *Attribute) Resize(newLength int) error {
	if a.col == nil {
		return ErrNotAllocated
	}
	return a.col.Resize(newLength)
}

// Update writes values at the given rows. When processUndefined is false
// (the usual case), undefined-sentinel elements of value are skipped,
// preserving the value already at that row; for ragged attributes, rows
// consisting of a single undefined element are elided from the update
// entirely along with their row index.
func (a *Attribute) Update(rows []int, values [][]any, processUndefined bool) error {
	if a.col == nil {
		return ErrNotAllocated
	}
	if len(rows) != len(values) {
		return fmt.Errorf("attribute %s: rows/values length mismatch (%d vs %d)", a.Name, len(rows), len(values))
	}
	if err := a.col.WriteRows(rows, values, processUndefined); err != nil {
		return err
	}
	if !a.initialized {
		a.initialized = a.computeIsInitialized()
	}
	return nil
}

// IsInitialized reports whether the attribute has data and every row is
// currently defined. Once true, it is cached and never re-evaluated
// (monotonic), so a later direct write that clears a row back to undefined
// does not un-set it — matching spec.md E5.
func (a *Attribute) IsInitialized() bool {
	if a.initialized {
		return true
	}
	if a.col == nil {
		return false
	}
	a.initialized = a.computeIsInitialized()
	return a.initialized
}

func (a *Attribute) computeIsInitialized() bool {
	if a.col.Len() == 0 {
		return false
	}
	for i := 0; i < a.col.Len(); i++ {
		if a.col.IsUndefinedRow(i) {
			return false
		}
	}
	return true
}

// IsUndefined returns a per-row boolean mask.
func (a *Attribute) IsUndefined() []bool {
	if a.col == nil {
		return nil
	}
	out := make([]bool, a.col.Len())
	for i := range out {
		out[i] = a.col.IsUndefinedRow(i)
	}
	return out
}

// IsSpecial returns a per-row boolean comparing each row to
// Options.Special under closeness; empty if no special value is
// configured.
func (a *Attribute) IsSpecial() []bool {
	if a.col == nil || !a.Options.HasSpecial {
		return nil
	}
	out := make([]bool, a.col.Len())
	for i := range out {
		out[i] = rowEquals(a.col.ReadRow(i), a.Options.Special, a.Tolerance)
	}
	return out
}

// Changed reports, per row, whether the underlying column has a pending
// change since the last Reset.
func (a *Attribute) Changed() []bool {
	if a.col == nil {
		return nil
	}
	return a.col.Changed()
}

// GenerateUpdate produces the payload form of this attribute's current
// data. If mask is nil, only changed rows are included. Otherwise every
// row where mask is true is included; rows that are true in mask but not
// actually changed are emitted as the undefined sentinel, so that
// multiple attributes aligned on the same update carry a full-width
// column per spec.md §4.5.
func (a *Attribute) GenerateUpdate(mask []bool) (rows []int, values [][]any) {
	if a.col == nil {
		return nil, nil
	}
	changed := a.col.Changed()
	if mask == nil {
		for i, c := range changed {
			if c {
				rows = append(rows, i)
				values = append(values, a.col.ReadRow(i))
			}
		}
		return rows, values
	}
	for i, want := range mask {
		if !want {
			continue
		}
		rows = append(rows, i)
		if i < len(changed) && changed[i] {
			values = append(values, a.col.ReadRow(i))
		} else {
			values = append(values, a.undefinedRow())
		}
	}
	return rows, values
}

func (a *Attribute) undefinedRow() []any {
	width := a.DataType.RowWidth()
	if a.DataType.Ragged {
		width = 1
	}
	if width == 0 {
		width = 1
	}
	row := make([]any, width)
	u := a.DataType.Kind.Undefined()
	for i := range row {
		row[i] = u
	}
	return row
}

// ReadRow returns the current value(s) at row i.
func (a *Attribute) ReadRow(i int) []any {
	if a.col == nil {
		return nil
	}
	return a.col.ReadRow(i)
}

// WriteRow writes a single row, equivalent to Update([]int{i}, [][]any{values}, true).
func (a *Attribute) WriteRow(i int, values []any) error {
	return a.Update([]int{i}, [][]any{values}, true)
}

// Reset clears change tracking on the underlying column.
func (a *Attribute) Reset() {
	if a.col != nil {
		a.col.Reset()
	}
}

// AsType converts the attribute's column to a new element kind in place,
// preserving length, unit shape, and any pending snapshot (spec.md §4.2).
// Only uniform (non-ragged) attributes support conversion; a ragged
// attribute returns ErrRaggedAsType.
func (a *Attribute) AsType(k dtype.Kind) error {
	if a.col == nil {
		return ErrNotAllocated
	}
	us, ok := a.col.(uniformStorage)
	if !ok {
		return ErrRaggedAsType
	}
	converted, err := us.col.AsType(k)
	if err != nil {
		return err
	}
	a.col = uniformStorage{col: converted}
	a.DataType.Kind = k
	return nil
}

func rowEquals(row []any, special any, tol tracked.Tolerance) bool {
	for _, v := range row {
		if !scalarEquals(v, special, tol) {
			return false
		}
	}
	return len(row) > 0
}

func scalarEquals(a, b any, tol tracked.Tolerance) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := toFloat(b); ok {
			return tracked.CloseFloat(av, bv, tol)
		}
		return false
	case int8:
		if bv, ok := b.(int8); ok {
			return av == bv
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return av == bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}
