// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package initload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `{
	"name": "grid",
	"type": "power",
	"data": {
		"nodes": {
			"id": [1, 2, 3],
			"voltage": [1.0, 2.0, 3.0]
		}
	}
}`

func writeSample(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderReadsPlainJSON(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "grid.json", sampleDataset)

	l, err := New(NewFSBackend(dir), true)
	require.NoError(t, err)

	updates, err := l.InitialDatasets()
	require.NoError(t, err)
	require.Len(t, updates, 1)

	gr := updates[0].Datasets["grid"].Groups["nodes"]
	assert.Equal(t, []int64{1, 2, 3}, gr.IDs)
}

func TestLoaderIgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "grid.json", sampleDataset)
	writeSample(t, dir, "README.md", "not a dataset")

	l, err := New(NewFSBackend(dir), false)
	require.NoError(t, err)

	updates, err := l.InitialDatasets()
	require.NoError(t, err)
	require.Len(t, updates, 1)
}

func TestLoaderRejectsSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "bad.json", `{"type": "power", "data": {}}`)

	l, err := New(NewFSBackend(dir), true)
	require.NoError(t, err)

	_, err = l.InitialDatasets()
	require.Error(t, err)
}
