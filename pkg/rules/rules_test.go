// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/moment"
	"github.com/nhr-fau/simcore/pkg/state"
)

func newTestState(t *testing.T) (*state.State, *attrschema.Schema) {
	t.Helper()
	sch := attrschema.New(0)
	return state.New(state.Options{Schema: sch}), sch
}

func seedSpeed(t *testing.T, s *state.State, id int64, speed float64) {
	t.Helper()
	update := state.Update{Datasets: map[string]state.DatasetUpdate{
		"traffic": {Groups: map[string]state.GroupUpdate{
			"links": {IDs: []int64{id}, Columns: map[string][][]any{"speed": {{speed}}}},
		}},
	}}
	require.NoError(t, s.ReceiveUpdate(update, true, true))
}

func TestRuleFiresValueWhenConditionHolds(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"rules": [{
		"if": "speed < 10",
		"attributes": ["speed"],
		"from_dataset": "traffic", "from_group": "links", "from_id": 1,
		"to_dataset": "traffic", "to_group": "links", "to_id": 1,
		"output": "congested", "value": true, "else_value": false
	}]}`))
	require.NoError(t, err)

	s, sch := newTestState(t)
	m := New(cfg)
	require.NoError(t, m.Setup(s, sch, nil, nil))
	seedSpeed(t, s, 1, 5.0)

	_, _, err = m.Update(s, moment.New(0, moment.TimelineInfo{Scale: 1}))
	require.NoError(t, err)

	v, ok := s.ReadScalar("traffic", "links", "congested", 1)
	require.True(t, ok)
	assert.Equal(t, int8(1), v)
}

func TestRuleFiresElseValueWhenConditionFails(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"rules": [{
		"if": "speed < 10",
		"attributes": ["speed"],
		"from_dataset": "traffic", "from_group": "links", "from_id": 1,
		"to_dataset": "traffic", "to_group": "links", "to_id": 1,
		"output": "congested", "value": true, "else_value": false
	}]}`))
	require.NoError(t, err)

	s, sch := newTestState(t)
	m := New(cfg)
	require.NoError(t, m.Setup(s, sch, nil, nil))
	seedSpeed(t, s, 1, 50.0)

	_, _, err = m.Update(s, moment.New(0, moment.TimelineInfo{Scale: 1}))
	require.NoError(t, err)

	v, ok := s.ReadScalar("traffic", "links", "congested", 1)
	require.True(t, ok)
	assert.Equal(t, int8(0), v)
}

func TestRuleUsesSimtimeAndClocktime(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"rules": [{
		"if": "simtime >= 60",
		"to_dataset": "traffic", "to_group": "links", "to_id": 1,
		"output": "elapsed", "value": true, "else_value": false
	}]}`))
	require.NoError(t, err)

	s, sch := newTestState(t)
	m := New(cfg)
	require.NoError(t, m.Setup(s, sch, nil, nil))
	seedSpeed(t, s, 1, 1.0)

	tl := moment.TimelineInfo{Scale: 1}
	_, _, err = m.Update(s, moment.New(30, tl))
	require.NoError(t, err)
	v, ok := s.ReadScalar("traffic", "links", "elapsed", 1)
	require.True(t, ok)
	assert.Equal(t, int8(0), v)

	_, _, err = m.Update(s, moment.New(90, tl))
	require.NoError(t, err)
	v, ok = s.ReadScalar("traffic", "links", "elapsed", 1)
	require.True(t, ok)
	assert.Equal(t, int8(1), v)
}

func TestRuleSkipsGracefullyWhenSourceNotYetInitialized(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"rules": [{
		"if": "speed < 10",
		"attributes": ["speed"],
		"from_dataset": "traffic", "from_group": "links", "from_id": 1,
		"to_dataset": "traffic", "to_group": "links", "to_id": 1,
		"output": "congested", "value": true, "else_value": false
	}]}`))
	require.NoError(t, err)

	s, sch := newTestState(t)
	m := New(cfg)
	require.NoError(t, m.Setup(s, sch, nil, nil))

	_, _, err = m.Update(s, moment.New(0, moment.TimelineInfo{Scale: 1}))
	require.NoError(t, err)

	_, ok := s.ReadScalar("traffic", "links", "congested", 1)
	assert.False(t, ok)
}

func TestParseConfigRejectsMissingFields(t *testing.T) {
	_, err := ParseConfig([]byte(`{"rules": [{"output": "x"}]}`))
	assert.Error(t, err)

	_, err = ParseConfig([]byte(`{"rules": [{"if": "true"}]}`))
	assert.Error(t, err)
}
