// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tracked

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntCSR(n int) *CSRArray[int32] {
	return NewEmptyCSRArray[int32](n, -1, ExactEqual[int32]())
}

func TestCSRArrayEmptyRowsAreUndefined(t *testing.T) {
	c := newIntCSR(2)
	assert.Equal(t, []int32{-1}, c.Row(0))
	assert.Equal(t, []bool{false, false}, c.Changed())
}

func TestCSRArrayUpdateSameLayoutInPlace(t *testing.T) {
	c := NewCSRArray[int32]([]int32{1, 2, 3}, []int{0, 1, 3}, -1, ExactEqual[int32]())
	require.NoError(t, c.Update([]int32{9}, []int{0, 1}, []int{0}))
	assert.Equal(t, []int32{9}, c.Row(0))
	assert.Equal(t, []bool{true, false}, c.Changed())
}

func TestCSRArrayUpdateChangingRowLengthRebuilds(t *testing.T) {
	c := NewCSRArray[int32]([]int32{1, 2, 3}, []int{0, 1, 3}, -1, ExactEqual[int32]())
	require.NoError(t, c.Update([]int32{9, 10, 11}, []int{0, 3}, []int{0}))
	assert.Equal(t, []int32{9, 10, 11}, c.Row(0))
	assert.Equal(t, []int32{2, 3}, c.Row(1))
	assert.Equal(t, []bool{true, false}, c.Changed())
}

func TestCSRArrayResetClearsChangeVector(t *testing.T) {
	c := NewCSRArray[int32]([]int32{1}, []int{0, 1}, -1, ExactEqual[int32]())
	require.NoError(t, c.Update([]int32{2}, []int{0, 1}, []int{0}))
	c.Reset()
	assert.Equal(t, []bool{false}, c.Changed())
}

func TestCSRArraySliceProducesFreshChangeTracking(t *testing.T) {
	c := NewCSRArray[int32]([]int32{1, 2, 3}, []int{0, 1, 3}, -1, ExactEqual[int32]())
	require.NoError(t, c.Update([]int32{9}, []int{0, 1}, []int{0}))
	sliced := c.Slice([]int{1, 0})
	assert.Equal(t, []int32{2, 3}, sliced.Row(0))
	assert.Equal(t, []int32{9}, sliced.Row(1))
	assert.Equal(t, []bool{false, false}, sliced.Changed())
}

func TestCSRArrayRowsEqualAndContain(t *testing.T) {
	c := NewCSRArray[int32]([]int32{1, 2, 3, 3}, []int{0, 2, 4}, -1, ExactEqual[int32]())
	assert.Equal(t, []bool{true, false}, c.RowsEqual([]int32{1, 2}))
	assert.Equal(t, []bool{false, true}, c.RowsContain(int32(3)))
	assert.Equal(t, []bool{true, true}, c.RowsIntersect([]int32{1, 3}))
}

func TestCSRArrayAsMatrixRequiresUniformWidth(t *testing.T) {
	ragged := NewCSRArray[int32]([]int32{1, 2, 3}, []int{0, 1, 3}, -1, ExactEqual[int32]())
	_, err := ragged.AsMatrix()
	assert.ErrorIs(t, err, ErrNotRagged)

	uniform := NewCSRArray[int32]([]int32{1, 2, 3, 4}, []int{0, 2, 4}, -1, ExactEqual[int32]())
	m, err := uniform.AsMatrix()
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []int32{1, 2}, m.Row(0))
}

func TestCSRArraySumMinMax(t *testing.T) {
	c := NewCSRArray[int32]([]int32{1, 2, 3}, []int{0, 2, 3}, -1, ExactEqual[int32]())
	sums := c.Sum(func(a, b int32) int32 { return a + b }, 0, -1)
	assert.Equal(t, []int32{3, 3}, sums)

	less := func(a, b int32) bool { return a < b }
	assert.Equal(t, []int32{1, 3}, c.Min(less, -1))
	assert.Equal(t, []int32{2, 3}, c.Max(less, -1))
}
