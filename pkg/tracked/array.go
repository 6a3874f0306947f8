// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tracked implements the columnar storage layer: a uniform
// (fixed-width) Array and a ragged (CSR) Array, both with per-row change
// detection against a snapshot taken lazily on first mutation.
package tracked

// EqualFunc reports whether a and b should be considered equal for change
// detection purposes. Floats use a closeness rule (see FloatEqual);
// every other kind uses exact equality.
type EqualFunc[T any] func(a, b T) bool

// Array is a contiguous column of shape (N, rowWidth), where rowWidth is the
// product of a unit shape describing per-entity dimensions beyond the row
// axis (e.g. a 3-vector per entity has rowWidth 3).
//
// Array holds an optional snapshot: the value of every row at the moment
// tracking began. Changed() is computed lazily from snapshot vs. current
// data and cached until the next mutation or Reset().
type Array[T any] struct {
	unitShape []int
	rowWidth  int
	data      []T
	undefined T
	equal     EqualFunc[T]

	snapshot    []T
	hasSnapshot bool

	changeMask []bool
	maskValid  bool
}

// NewArray allocates an Array of n rows, each row filled with undefined.
func NewArray[T any](n int, unitShape []int, undefined T, equal EqualFunc[T]) *Array[T] {
	rowWidth := 1
	for _, d := range unitShape {
		rowWidth *= d
	}
	if rowWidth == 0 {
		rowWidth = 1
	}
	data := make([]T, n*rowWidth)
	for i := range data {
		data[i] = undefined
	}
	return &Array[T]{
		unitShape: unitShape,
		rowWidth:  rowWidth,
		data:      data,
		undefined: undefined,
		equal:     equal,
	}
}

// Len returns the number of rows.
func (a *Array[T]) Len() int {
	if a.rowWidth == 0 {
		return 0
	}
	return len(a.data) / a.rowWidth
}

// UnitShape returns the per-entity dimensions beyond the row axis.
func (a *Array[T]) UnitShape() []int { return a.unitShape }

// RowWidth returns the number of scalar elements per row.
func (a *Array[T]) RowWidth() int { return a.rowWidth }

// Row returns a view of row i. Callers must not mutate it directly; use
// Write so change tracking stays correct.
func (a *Array[T]) Row(i int) []T {
	return a.data[i*a.rowWidth : (i+1)*a.rowWidth]
}

func (a *Array[T]) snapshotIfNeeded() {
	if a.hasSnapshot {
		return
	}
	a.snapshot = append([]T(nil), a.data...)
	a.hasSnapshot = true
}

// Write overwrites row i with values, unconditionally (no undefined
// elision). It triggers a lazy snapshot on the first mutation since
// construction or the last Reset().
func (a *Array[T]) Write(i int, values []T) {
	a.snapshotIfNeeded()
	copy(a.data[i*a.rowWidth:(i+1)*a.rowWidth], values)
	a.maskValid = false
}

// WriteMasked overwrites row i with values, except where skip(value) is
// true: those positions keep their current value. This implements the
// undefined-elision semantics of Attribute.update (spec.md §4.5): when
// skip is the kind's IsUndefined predicate, incoming sentinel elements
// leave the existing value at that row untouched.
func (a *Array[T]) WriteMasked(i int, values []T, skip func(T) bool) {
	a.snapshotIfNeeded()
	base := i * a.rowWidth
	for k, v := range values {
		if skip != nil && skip(v) {
			continue
		}
		a.data[base+k] = v
	}
	a.maskValid = false
}

// Resize grows the array to newLen rows (grow-only), filling new rows with
// undefined. If a snapshot exists, it is grown the same way so that newly
// added rows compare as unchanged until explicitly written.
func (a *Array[T]) Resize(newLen int) error {
	cur := a.Len()
	if newLen < cur {
		return ErrShrink
	}
	if newLen == cur {
		return nil
	}
	addRows := newLen - cur
	extra := make([]T, addRows*a.rowWidth)
	for i := range extra {
		extra[i] = a.undefined
	}
	a.data = append(a.data, extra...)
	if a.hasSnapshot {
		snapExtra := make([]T, addRows*a.rowWidth)
		for i := range snapExtra {
			snapExtra[i] = a.undefined
		}
		a.snapshot = append(a.snapshot, snapExtra...)
	}
	a.maskValid = false
	return nil
}

func (a *Array[T]) rowChanged(i int) bool {
	if !a.hasSnapshot {
		return false
	}
	base := i * a.rowWidth
	for k := 0; k < a.rowWidth; k++ {
		if !a.equal(a.data[base+k], a.snapshot[base+k]) {
			return true
		}
	}
	return false
}

// Changed returns, per row, whether it differs from its snapshot value
// under the configured equality rule. Absent a snapshot, every row is
// unchanged. The result is cached until the next Write/Resize/Reset.
func (a *Array[T]) Changed() []bool {
	if a.maskValid {
		return a.changeMask
	}
	n := a.Len()
	mask := make([]bool, n)
	if a.hasSnapshot {
		for i := 0; i < n; i++ {
			mask[i] = a.rowChanged(i)
		}
	}
	a.changeMask = mask
	a.maskValid = true
	return mask
}

// Diff returns the changed row indices together with their previous and
// current values (each rowWidth elements long).
func (a *Array[T]) Diff() (rows []int, oldRows [][]T, newRows [][]T) {
	mask := a.Changed()
	for i, changed := range mask {
		if !changed {
			continue
		}
		rows = append(rows, i)
		old := append([]T(nil), a.snapshot[i*a.rowWidth:(i+1)*a.rowWidth]...)
		cur := append([]T(nil), a.data[i*a.rowWidth:(i+1)*a.rowWidth]...)
		oldRows = append(oldRows, old)
		newRows = append(newRows, cur)
	}
	return rows, oldRows, newRows
}

// Reset clears the snapshot and the cached change mask: after Reset,
// Changed() reports every row as unchanged until the next mutation.
func (a *Array[T]) Reset() {
	a.snapshot = nil
	a.hasSnapshot = false
	a.changeMask = nil
	a.maskValid = false
}

// HasSnapshot reports whether a snapshot has been taken since construction
// or the last Reset.
func (a *Array[T]) HasSnapshot() bool { return a.hasSnapshot }

// SnapshotRow returns the baseline value of row i: the snapshot value if
// one has been taken, otherwise the current value (i.e. "unchanged").
func (a *Array[T]) SnapshotRow(i int) []T {
	base := i * a.rowWidth
	if !a.hasSnapshot {
		return append([]T(nil), a.data[base:base+a.rowWidth]...)
	}
	return append([]T(nil), a.snapshot[base:base+a.rowWidth]...)
}

// IsUndefinedRow reports whether every element of row i equals undefined.
func (a *Array[T]) IsUndefinedRow(i int, isUndefined func(T) bool) bool {
	base := i * a.rowWidth
	for k := 0; k < a.rowWidth; k++ {
		if !isUndefined(a.data[base+k]) {
			return false
		}
	}
	return true
}
