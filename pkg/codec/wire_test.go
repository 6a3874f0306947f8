// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/dtype"
)

func TestWireArrayRoundTripsFloat(t *testing.T) {
	a := WireArray{Kind: dtype.Float, Shape: []int{3}, Data: []any{1.5, 2.5, 3.5}}
	raw, err := EncodeWireArray(a)
	require.NoError(t, err)

	got, err := DecodeWireArray(raw)
	require.NoError(t, err)
	assert.Equal(t, a.Kind, got.Kind)
	assert.Equal(t, a.Shape, got.Shape)
	assert.Equal(t, a.Data, got.Data)
}

func TestWireArrayRoundTripsString(t *testing.T) {
	a := WireArray{Kind: dtype.String, Shape: []int{2}, Data: []any{"alpha", "beta"}}
	raw, err := EncodeWireArray(a)
	require.NoError(t, err)

	got, err := DecodeWireArray(raw)
	require.NoError(t, err)
	assert.Equal(t, a.Data, got.Data)
}

func TestWireArrayRoundTripsIntAndBool(t *testing.T) {
	ints := WireArray{Kind: dtype.Int, Shape: []int{2}, Data: []any{int32(10), int32(-5)}}
	raw, err := EncodeWireArray(ints)
	require.NoError(t, err)
	got, err := DecodeWireArray(raw)
	require.NoError(t, err)
	assert.Equal(t, ints.Data, got.Data)

	bools := WireArray{Kind: dtype.Bool, Shape: []int{2}, Data: []any{int8(1), int8(0)}}
	raw, err = EncodeWireArray(bools)
	require.NoError(t, err)
	got, err = DecodeWireArray(raw)
	require.NoError(t, err)
	assert.Equal(t, bools.Data, got.Data)
}

func TestWireArrayRejectsUnknownVersion(t *testing.T) {
	a := WireArray{Kind: dtype.Float, Shape: []int{1}, Data: []any{1.0}}
	raw, err := EncodeWireArray(a)
	require.NoError(t, err)

	corrupted := append([]byte(nil), raw...)
	corrupted[0] = 0xFF
	_, err = DecodeWireArray(corrupted)
	require.Error(t, err)
}
