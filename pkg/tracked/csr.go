// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tracked

// CSRArray is a ragged (variable-length-row) column: a flat data vector plus
// a strictly non-decreasing row-offset vector of length N+1, with
// offsets[0]=0 and offsets[N]=len(data). Row i is data[offsets[i]:offsets[i+1]].
//
// Unlike the uniform Array, CSR change tracking is not a lazy snapshot diff:
// it accumulates a per-row boolean vector across successive Update() calls,
// per spec.md §4.3.
type CSRArray[T any] struct {
	data      []T
	offsets   []int
	undefined T
	equal     EqualFunc[T]
	changed   []bool
}

// NewCSRArray builds a CSR array from flat data and offsets. offsets must
// have length n+1, be non-decreasing, start at 0 and end at len(data).
func NewCSRArray[T any](data []T, offsets []int, undefined T, equal EqualFunc[T]) *CSRArray[T] {
	n := len(offsets) - 1
	return &CSRArray[T]{
		data:      data,
		offsets:   offsets,
		undefined: undefined,
		equal:     equal,
		changed:   make([]bool, n),
	}
}

// NewEmptyCSRArray builds an all-undefined-row CSR array of n rows, each a
// single undefined element (matching the JSON `null` → one-row-with-one-
// undefined-element convention of spec.md §6).
func NewEmptyCSRArray[T any](n int, undefined T, equal EqualFunc[T]) *CSRArray[T] {
	data := make([]T, n)
	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		data[i] = undefined
		offsets[i+1] = i + 1
	}
	return &CSRArray[T]{data: data, offsets: offsets, undefined: undefined, equal: equal, changed: make([]bool, n)}
}

// Len returns the number of rows.
func (c *CSRArray[T]) Len() int { return len(c.offsets) - 1 }

// Row returns a view of row i.
func (c *CSRArray[T]) Row(i int) []T {
	return c.data[c.offsets[i]:c.offsets[i+1]]
}

// Changed returns the accumulated per-row change vector.
func (c *CSRArray[T]) Changed() []bool {
	out := make([]bool, len(c.changed))
	copy(out, c.changed)
	return out
}

// Reset clears the accumulated change vector.
func (c *CSRArray[T]) Reset() {
	for i := range c.changed {
		c.changed[i] = false
	}
}

func (c *CSRArray[T]) rowsEqual(a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !c.equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Update replaces the rows named by targetRows with the rows described by
// (updateData, updateOffsets) — a CSR array in its own right, addressed by
// position (updateOffsets has len(targetRows)+1 entries) — and sets the
// change bit of each touched row whose contents differ from its previous
// contents; a bit already set stays set until Reset. Rows of unequal length
// to their predecessor always count as changed.
//
// When every touched row keeps the same length as before, the new values
// are written in place without reallocating the flat buffer or offsets;
// otherwise the whole array is rebuilt by concatenating unchanged and
// replacement rows in row order.
func (c *CSRArray[T]) Update(updateData []T, updateOffsets []int, targetRows []int) error {
	touched := make(map[int][]T, len(targetRows))
	for i, row := range targetRows {
		touched[row] = updateData[updateOffsets[i]:updateOffsets[i+1]]
	}

	sameLayout := true
	for row, newRow := range touched {
		if row < 0 || row >= c.Len() {
			sameLayout = false
			break
		}
		if len(newRow) != len(c.Row(row)) {
			sameLayout = false
			break
		}
	}

	if sameLayout {
		for row, newRow := range touched {
			old := append([]T(nil), c.Row(row)...)
			copy(c.Row(row), newRow)
			if !c.rowsEqual(old, newRow) {
				c.changed[row] = true
			}
		}
		return nil
	}

	n := c.Len()
	newData := make([]T, 0, len(c.data))
	newOffsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		var rowVals []T
		if newRow, ok := touched[i]; ok {
			old := c.Row(i)
			if !c.rowsEqual(old, newRow) {
				c.changed[i] = true
			}
			rowVals = newRow
		} else {
			rowVals = c.Row(i)
		}
		newData = append(newData, rowVals...)
		newOffsets[i+1] = len(newData)
	}
	c.data = newData
	c.offsets = newOffsets
	return nil
}

// Slice returns a new CSRArray containing the selected rows, in the given
// order, with fresh (empty) change tracking.
func (c *CSRArray[T]) Slice(rows []int) *CSRArray[T] {
	data := make([]T, 0, len(rows))
	offsets := make([]int, len(rows)+1)
	for i, r := range rows {
		data = append(data, c.Row(r)...)
		offsets[i+1] = len(data)
	}
	return &CSRArray[T]{data: data, offsets: offsets, undefined: c.undefined, equal: c.equal, changed: make([]bool, len(rows))}
}

// RowsEqual reports, per row, whether it equals the given row under the
// closeness rule.
func (c *CSRArray[T]) RowsEqual(row []T) []bool {
	out := make([]bool, c.Len())
	for i := 0; i < c.Len(); i++ {
		out[i] = c.rowsEqual(c.Row(i), row)
	}
	return out
}

// RowsContain reports, per row, whether any element equals value.
func (c *CSRArray[T]) RowsContain(value T) []bool {
	out := make([]bool, c.Len())
	for i := 0; i < c.Len(); i++ {
		for _, v := range c.Row(i) {
			if c.equal(v, value) {
				out[i] = true
				break
			}
		}
	}
	return out
}

// RowsIntersect reports, per row, whether any element equals any of values.
func (c *CSRArray[T]) RowsIntersect(values []T) []bool {
	out := make([]bool, c.Len())
	for i := 0; i < c.Len(); i++ {
		row := c.Row(i)
		for _, v := range row {
			for _, want := range values {
				if c.equal(v, want) {
					out[i] = true
				}
			}
			if out[i] {
				break
			}
		}
	}
	return out
}

// AsMatrix promotes the CSR array to a dense uniform Array iff every row
// has equal length.
func (c *CSRArray[T]) AsMatrix() (*Array[T], error) {
	n := c.Len()
	if n == 0 {
		return NewArray[T](0, nil, c.undefined, c.equal), nil
	}
	width := len(c.Row(0))
	for i := 1; i < n; i++ {
		if len(c.Row(i)) != width {
			return nil, ErrNotRagged
		}
	}
	arr := NewArray[T](n, []int{width}, c.undefined, c.equal)
	for i := 0; i < n; i++ {
		arr.Write(i, c.Row(i))
	}
	return arr, nil
}

// UpdateFromMatrix is the inverse of AsMatrix: it overwrites all rows with
// the rows of a dense Array of matching length, computing change bits
// against the prior flat data.
func (c *CSRArray[T]) UpdateFromMatrix(m *Array[T]) error {
	n := m.Len()
	rows := make([]int, n)
	width := m.RowWidth()
	flat := make([]T, 0, n*width)
	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		rows[i] = i
		flat = append(flat, m.Row(i)...)
		offsets[i+1] = len(flat)
	}
	if n != c.Len() {
		// Grow/shrink to match: CSR arrays backing attributes are grown via
		// the entity group, not here; a mismatched length is a caller error.
		c.offsets = make([]int, n+1)
		c.changed = make([]bool, n)
	}
	return c.Update(flat, offsets, rows)
}

// Sum reduces each row by addition; emptyVal is used for rows with no
// elements.
func (c *CSRArray[T]) Sum(add func(a, b T) T, zero T, emptyVal T) []T {
	out := make([]T, c.Len())
	for i := 0; i < c.Len(); i++ {
		row := c.Row(i)
		if len(row) == 0 {
			out[i] = emptyVal
			continue
		}
		acc := zero
		for _, v := range row {
			acc = add(acc, v)
		}
		out[i] = acc
	}
	return out
}

// Min/Max reduce each row with a caller-supplied less-than comparator;
// emptyVal is used for rows with no elements.
func (c *CSRArray[T]) Min(less func(a, b T) bool, emptyVal T) []T {
	return c.extreme(less, emptyVal)
}

func (c *CSRArray[T]) Max(less func(a, b T) bool, emptyVal T) []T {
	return c.extreme(func(a, b T) bool { return less(b, a) }, emptyVal)
}

func (c *CSRArray[T]) extreme(less func(a, b T) bool, emptyVal T) []T {
	out := make([]T, c.Len())
	for i := 0; i < c.Len(); i++ {
		row := c.Row(i)
		if len(row) == 0 {
			out[i] = emptyVal
			continue
		}
		best := row[0]
		for _, v := range row[1:] {
			if less(v, best) {
				best = v
			}
		}
		out[i] = best
	}
	return out
}
