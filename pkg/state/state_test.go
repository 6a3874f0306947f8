// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

func newTestState() *State {
	return New(Options{})
}

func speedSpec() attrschema.Spec {
	return attrschema.Spec{Name: "speed", DataType: dtype.DataType{Kind: dtype.Float}}
}

func TestRegisterAttributeIdempotentAndORsFlags(t *testing.T) {
	s := newTestState()
	s.RegisterEntityGroup("ds", "nodes", false)
	require.NoError(t, s.RegisterAttribute("ds", "nodes", speedSpec(), attribute.Sub, tracked.DefaultTolerance))
	require.NoError(t, s.RegisterAttribute("ds", "nodes", speedSpec(), attribute.Pub, tracked.DefaultTolerance))

	d, _ := s.findDataset("ds")
	g, _ := d.findGroup("nodes")
	a, _ := g.attr("speed")
	assert.True(t, a.Flags.Has(attribute.Sub))
	assert.True(t, a.Flags.Has(attribute.Pub))
}

func TestReceiveUpdateInitialThenIncremental(t *testing.T) {
	s := newTestState()
	s.RegisterEntityGroup("ds", "nodes", false)
	require.NoError(t, s.RegisterAttribute("ds", "nodes", speedSpec(), attribute.Pub, tracked.DefaultTolerance))

	initial := Update{Datasets: map[string]DatasetUpdate{
		"ds": {Groups: map[string]GroupUpdate{
			"nodes": {
				IDs:     []int64{1, 2},
				Columns: map[string][][]any{"speed": {{1.0}, {2.0}}},
			},
		}},
	}}
	require.NoError(t, s.ReceiveUpdate(initial, true, false))

	// Initial values are not "changes".
	update := s.GenerateUpdate(attribute.Publish)
	assert.Empty(t, update.Datasets)

	incr := Update{Datasets: map[string]DatasetUpdate{
		"ds": {Groups: map[string]GroupUpdate{
			"nodes": {
				IDs:     []int64{1, 3},
				Columns: map[string][][]any{"speed": {{9.0}, {3.0}}},
			},
		}},
	}}
	require.NoError(t, s.ReceiveUpdate(incr, false, false))

	update = s.GenerateUpdate(attribute.Publish)
	grUpdate := update.Datasets["ds"].Groups["nodes"]
	assert.ElementsMatch(t, []int64{1, 3}, grUpdate.IDs)
}

func TestIsReadyForRequiresInitializedAttributes(t *testing.T) {
	s := newTestState()
	s.RegisterEntityGroup("ds", "nodes", false)
	require.NoError(t, s.RegisterAttribute("ds", "nodes", speedSpec(), attribute.Init, tracked.DefaultTolerance))
	assert.False(t, s.IsReadyFor(attribute.Initialize))

	initial := Update{Datasets: map[string]DatasetUpdate{
		"ds": {Groups: map[string]GroupUpdate{
			"nodes": {IDs: []int64{1}, Columns: map[string][][]any{"speed": {{1.0}}}},
		}},
	}}
	require.NoError(t, s.ReceiveUpdate(initial, true, false))
	assert.True(t, s.IsReadyFor(attribute.Initialize))
}

func TestOptionalEmptyGroupIsReady(t *testing.T) {
	s := newTestState()
	s.RegisterEntityGroup("ds", "nodes", true)
	require.NoError(t, s.RegisterAttribute("ds", "nodes", speedSpec(), attribute.Init, tracked.DefaultTolerance))
	assert.True(t, s.IsReadyFor(attribute.Initialize))
}

func TestProcessGeneralSectionSpecialAndEnum(t *testing.T) {
	s := newTestState()
	s.RegisterEntityGroup("ds", "nodes", false)
	spec := attrschema.Spec{Name: "status", DataType: dtype.DataType{Kind: dtype.Int}, EnumName: "status_enum"}
	require.NoError(t, s.RegisterAttribute("ds", "nodes", spec, attribute.Pub, tracked.DefaultTolerance))

	section := &GeneralSection{
		Enum:    map[string][]string{"status_enum": {"ok", "broken"}},
		Special: map[string]any{"nodes.status": int32(-1)},
	}
	s.ProcessGeneralSection("ds", section)

	d, _ := s.findDataset("ds")
	g, _ := d.findGroup("nodes")
	a, _ := g.attr("status")
	assert.Equal(t, []string{"ok", "broken"}, a.Options.EnumLabels)
	assert.Equal(t, int32(-1), a.Options.Special)
}

func TestGetDataMask(t *testing.T) {
	s := newTestState()
	s.RegisterEntityGroup("ds", "nodes", false)
	require.NoError(t, s.RegisterAttribute("ds", "nodes", speedSpec(), attribute.Pub, tracked.DefaultTolerance))
	mask := s.GetDataMask()
	assert.Equal(t, []string{"speed"}, mask.Pub["ds"]["nodes"])
}

func TestResetTrackedChangesRejectsOtherFlags(t *testing.T) {
	s := newTestState()
	err := s.ResetTrackedChanges(attribute.Initialize)
	require.Error(t, err)
}
