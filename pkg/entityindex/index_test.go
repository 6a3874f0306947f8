// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package entityindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContiguousIDsCollapseToOneBlock(t *testing.T) {
	idx, err := NewIndexFromIDs([]int64{10, 11, 12, 13})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.BlockCount())
	assert.Equal(t, 0, idx.Query(10))
	assert.Equal(t, 3, idx.Query(13))
	assert.Equal(t, -1, idx.Query(14))
}

func TestNonContiguousIDsMultipleBlocks(t *testing.T) {
	idx, err := NewIndexFromIDs([]int64{5, 6, 100, 101, 102})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.BlockCount())
	assert.Equal(t, 0, idx.Query(5))
	assert.Equal(t, 1, idx.Query(6))
	assert.Equal(t, 2, idx.Query(100))
	assert.Equal(t, 4, idx.Query(102))
	assert.Equal(t, -1, idx.Query(7))
}

func TestDuplicateIDsRejected(t *testing.T) {
	_, err := NewIndexFromIDs([]int64{1, 2, 2, 3})
	require.Error(t, err)

	idx, err := NewIndexFromIDs([]int64{1, 2, 3})
	require.NoError(t, err)
	err = idx.AddIDs([]int64{3, 4})
	require.Error(t, err)
}

func TestAddIDsGrows(t *testing.T) {
	idx, err := NewIndexFromIDs([]int64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, idx.AddIDs([]int64{4, 5}))
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 4, idx.Query(5))
}

func TestSetIDsMatchesExisting(t *testing.T) {
	idx, err := NewIndexFromIDs([]int64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, idx.SetIDs([]int64{1, 2, 3}))
	require.Error(t, idx.SetIDs([]int64{1, 2, 4}))
	require.Error(t, idx.SetIDs([]int64{1, 2}))
}

func TestQueryManyRaiseOnInvalid(t *testing.T) {
	idx, err := NewIndexFromIDs([]int64{1, 2, 3})
	require.NoError(t, err)

	rows, err := idx.QueryMany([]int64{1, 3, 9}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, -1}, rows)

	_, err = idx.QueryMany([]int64{1, 9, 10}, true)
	require.Error(t, err)
}

func TestAllIDsRoundTrips(t *testing.T) {
	ids := []int64{5, 6, 7, 20, 21}
	idx, err := NewIndexFromIDs(ids)
	require.NoError(t, err)
	assert.Equal(t, ids, idx.AllIDs())
}
