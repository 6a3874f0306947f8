// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package simconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "datasets": {"kind": "fs", "path": "./data"},
  "timeline": {"reference": "2024-01-01T00:00:00Z", "scale": 1},
  "tick_interval": "250ms",
  "tick_step": 5
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitDecodesValidConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	require.NoError(t, Init(path))

	assert.Equal(t, "fs", Keys.Datasets.Kind)
	assert.Equal(t, "./data", Keys.Datasets.Path)
	assert.Equal(t, int64(5), Keys.TickStep)
	assert.Equal(t, 250*time.Millisecond, Keys.TickIntervalDuration())

	tl, err := Keys.Timeline.ToTimelineInfo()
	require.NoError(t, err)
	assert.Equal(t, 1.0, tl.Scale)
}

func TestInitRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `{"datasets": {"kind": "fs", "path": "./data"}}`)
	assert.Error(t, Init(path))
}

func TestInitRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `{
		"datasets": {"kind": "fs", "path": "./data"},
		"timeline": {"reference": "2024-01-01T00:00:00Z", "scale": 1},
		"bogus_field": true
	}`)
	assert.Error(t, Init(path))
}

func TestTickIntervalDurationDefaultsOnBadValue(t *testing.T) {
	cfg := Config{TickInterval: "not-a-duration"}
	assert.Equal(t, time.Second, cfg.TickIntervalDuration())
}
