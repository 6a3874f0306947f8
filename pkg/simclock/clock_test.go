// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package simclock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/modeladapter"
	"github.com/nhr-fau/simcore/pkg/moment"
	"github.com/nhr-fau/simcore/pkg/state"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

type stubModel struct{ newTimeCalls int }

func (m *stubModel) Setup(s *state.State, schema *attrschema.Schema, initData modeladapter.InitDataProvider, settings any) error {
	s.RegisterEntityGroup("ds", "nodes", false)
	return s.RegisterAttribute("ds", "nodes", attrschema.Spec{Name: "speed", DataType: dtype.DataType{Kind: dtype.Float}}, attribute.Init, tracked.DefaultTolerance)
}

func (m *stubModel) Initialize(s *state.State) error { return nil }

func (m *stubModel) Update(s *state.State, t moment.Moment) (int64, bool, error) {
	return 0, false, nil
}

func (m *stubModel) NewTime(s *state.State, t moment.Moment) error {
	m.newTimeCalls++
	return nil
}

func (m *stubModel) Shutdown(s *state.State) error { return nil }

type stubInitData struct{ updates []state.Update }

func (f stubInitData) InitialDatasets() ([]state.Update, error) { return f.updates, nil }

func readyAdapter(t *testing.T) (*modeladapter.Adapter, *stubModel) {
	t.Helper()
	model := &stubModel{}
	s := state.New(state.Options{})
	sch := attrschema.New(0)
	a := modeladapter.New(model, s, sch, nil, moment.TimelineInfo{Scale: 1})
	require.NoError(t, a.Setup(context.Background(), stubInitData{}))

	initial := state.Update{Datasets: map[string]state.DatasetUpdate{
		"ds": {Groups: map[string]state.GroupUpdate{
			"nodes": {IDs: []int64{1}, Columns: map[string][][]any{"speed": {{1.0}}}},
		}},
	}}
	_, err := a.Initialize(stubInitData{updates: []state.Update{initial}})
	require.NoError(t, err)
	require.True(t, a.IsInitialized())

	_, _, err = a.Update(0, initial)
	require.NoError(t, err)
	require.True(t, a.IsReadyForUpdate())

	return a, model
}

func TestClockTickAdvancesTimestampAndCallsNewTime(t *testing.T) {
	a, model := readyAdapter(t)
	c, err := New(a, 0, 5)
	require.NoError(t, err)

	c.tick()
	c.tick()

	assert.Equal(t, int64(10), c.Timestamp())
	assert.Equal(t, 2, model.newTimeCalls)
	assert.Equal(t, 0, c.ErrorCount())
}

func TestClockTickCountsErrorsWhenAdapterNotReady(t *testing.T) {
	model := &stubModel{}
	s := state.New(state.Options{})
	sch := attrschema.New(0)
	a := modeladapter.New(model, s, sch, nil, moment.TimelineInfo{Scale: 1})
	require.NoError(t, a.Setup(context.Background(), stubInitData{}))

	c, err := New(a, 0, 1)
	require.NoError(t, err)

	c.tick()
	assert.Equal(t, 1, c.ErrorCount())
	assert.Equal(t, 0, model.newTimeCalls)
}
