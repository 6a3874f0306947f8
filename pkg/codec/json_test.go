// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/state"
)

func TestDecodeInitialDatasetPlainArrays(t *testing.T) {
	raw := []byte(`{
		"name": "grid",
		"type": "power",
		"data": {
			"nodes": {
				"id": [1, 2, 3],
				"voltage": [1.0, 2.0, 3.0]
			}
		}
	}`)

	name, update, err := DecodeInitialDataset(raw)
	require.NoError(t, err)
	assert.Equal(t, "grid", name)

	ds := update.Datasets["grid"]
	gr := ds.Groups["nodes"]
	assert.Equal(t, []int64{1, 2, 3}, gr.IDs)
	assert.Equal(t, [][]any{{1.0}, {2.0}, {3.0}}, gr.Columns["voltage"])
}

func TestDecodeInitialDatasetNestedComponents(t *testing.T) {
	raw := []byte(`{
		"name": "grid",
		"type": "power",
		"data": {
			"nodes": {
				"id": [1, 2],
				"electrical": {
					"voltage": [1.0, 2.0],
					"current": [0.1, 0.2]
				}
			}
		}
	}`)

	_, update, err := DecodeInitialDataset(raw)
	require.NoError(t, err)

	gr := update.Datasets["grid"].Groups["nodes"]
	assert.Equal(t, [][]any{{1.0}, {2.0}}, gr.Columns["electrical.voltage"])
	assert.Equal(t, [][]any{{0.1}, {0.2}}, gr.Columns["electrical.current"])
}

func TestDecodeInitialDatasetWirePayloadWithRowPointer(t *testing.T) {
	raw := []byte(`{
		"name": "grid",
		"type": "power",
		"data": {
			"lines": {
				"id": [1, 2],
				"endpoints": {"data": [10, 20, 30, 40, 50], "indptr": [0, 2, 5]}
			}
		}
	}`)

	_, update, err := DecodeInitialDataset(raw)
	require.NoError(t, err)

	gr := update.Datasets["grid"].Groups["lines"]
	assert.Equal(t, [][]any{{10.0, 20.0}, {30.0, 40.0, 50.0}}, gr.Columns["endpoints"])
}

func TestDecodeInitialDatasetWirePayloadAliasKeys(t *testing.T) {
	for _, key := range rowPtrKeys {
		raw := []byte(`{
			"name": "grid",
			"type": "power",
			"data": {
				"lines": {
					"id": [1],
					"endpoints": {"data": [10, 20], "` + key + `": [0, 2]}
				}
			}
		}`)
		_, update, err := DecodeInitialDataset(raw)
		require.NoError(t, err, "key %s", key)
		gr := update.Datasets["grid"].Groups["lines"]
		assert.Equal(t, [][]any{{10.0, 20.0}}, gr.Columns["endpoints"])
	}
}

func TestDecodeInitialDatasetMissingIDsErrors(t *testing.T) {
	raw := []byte(`{"name": "grid", "type": "power", "data": {"nodes": {"voltage": [1.0]}}}`)
	_, _, err := DecodeInitialDataset(raw)
	require.Error(t, err)
}

func TestDecodeInitialDatasetGeneralSection(t *testing.T) {
	raw := []byte(`{
		"name": "grid",
		"type": "power",
		"general": {
			"enum": {"phase": ["A", "B", "C"]},
			"special": {"nodes.voltage": -1.0}
		},
		"data": {
			"nodes": {"id": [1], "voltage": [1.0]}
		}
	}`)
	_, update, err := DecodeInitialDataset(raw)
	require.NoError(t, err)

	general := update.Datasets["grid"].General
	require.NotNil(t, general)
	assert.Equal(t, []string{"A", "B", "C"}, general.Enum["phase"])
	assert.Equal(t, -1.0, general.Special["nodes.voltage"])
}

func TestEncodeUpdateRoundTripsScalarColumns(t *testing.T) {
	dsUpdate := state.DatasetUpdate{
		Groups: map[string]state.GroupUpdate{
			"nodes": {
				IDs:     []int64{1, 2},
				Columns: map[string][][]any{"voltage": {{1.0}, {2.0}}},
			},
		},
	}
	raw, err := EncodeUpdate("grid", "power", dsUpdate)
	require.NoError(t, err)

	_, update, err := DecodeInitialDataset(raw)
	require.NoError(t, err)
	gr := update.Datasets["grid"].Groups["nodes"]
	assert.Equal(t, []int64{1, 2}, gr.IDs)
	assert.Equal(t, [][]any{{1.0}, {2.0}}, gr.Columns["voltage"])
}

func TestEncodeUpdateKeepsMultiElementRowsAsLists(t *testing.T) {
	dsUpdate := state.DatasetUpdate{
		Groups: map[string]state.GroupUpdate{
			"lines": {
				IDs:     []int64{1},
				Columns: map[string][][]any{"endpoints": {{10.0, 20.0}}},
			},
		},
	}
	raw, err := EncodeUpdate("grid", "power", dsUpdate)
	require.NoError(t, err)

	_, update, err := DecodeInitialDataset(raw)
	require.NoError(t, err)
	gr := update.Datasets["grid"].Groups["lines"]
	assert.Equal(t, [][]any{{10.0, 20.0}}, gr.Columns["endpoints"])
}
