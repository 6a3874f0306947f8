// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package attrschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/dtype"
)

func TestRegisterIsIdempotent(t *testing.T) {
	s := New(0)
	spec := Spec{Name: "speed", DataType: dtype.DataType{Kind: dtype.Float}}
	require.NoError(t, s.Register(spec))
	require.NoError(t, s.Register(spec))
}

func TestRegisterRejectsIncompatibleRedefinition(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Register(Spec{Name: "speed", DataType: dtype.DataType{Kind: dtype.Float}}))
	err := s.Register(Spec{Name: "speed", DataType: dtype.DataType{Kind: dtype.Int}})
	require.Error(t, err)
}

func TestGetReturnsRegistered(t *testing.T) {
	s := New(0)
	want := Spec{Name: "speed", DataType: dtype.DataType{Kind: dtype.Float}}
	require.NoError(t, s.Register(want))
	got, err := s.Get("speed", nil, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetInfersFromDefault(t *testing.T) {
	s := New(0)
	dt := dtype.DataType{Kind: dtype.Int}
	got, err := s.Get("count", &dt, false)
	require.NoError(t, err)
	assert.Equal(t, "count", got.Name)
	assert.True(t, dt.Equal(got.DataType))
}

func TestGetWithoutDefaultAndUnregisteredFails(t *testing.T) {
	s := New(0)
	_, err := s.Get("missing", nil, false)
	require.Error(t, err)
}

func TestGetCachesInferredSpec(t *testing.T) {
	s := New(1 << 20)
	dt := dtype.DataType{Kind: dtype.String}
	_, err := s.Get("label", &dt, true)
	require.NoError(t, err)

	got, err := s.Get("label", nil, false)
	require.NoError(t, err)
	assert.Equal(t, dtype.String, got.DataType.Kind)
}
