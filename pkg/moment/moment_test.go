// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package moment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallClockConversion(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tl := TimelineInfo{Reference: ref, Scale: 60, Start: 0, Duration: 1440}
	m := New(10, tl)
	assert.Equal(t, ref.Add(10*time.Minute), m.WallClock())
}

func TestTimestampAtSecondsIsInverseOfSeconds(t *testing.T) {
	tl := TimelineInfo{Scale: 60}
	assert.Equal(t, int64(10), tl.TimestampAtSeconds(tl.Seconds(10)))
}

func TestMomentOrdering(t *testing.T) {
	tl := TimelineInfo{}
	a := New(1, tl)
	b := New(2, tl)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Equal(b))
}

func TestStringToDatetimeBareYear(t *testing.T) {
	d, err := StringToDatetime("2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.January, d.Month())
}

func TestStringToDatetimeUnixSeconds(t *testing.T) {
	d, err := StringToDatetime("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), d.Unix())
}

func TestStringToDatetimeISO8601(t *testing.T) {
	d, err := StringToDatetime("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())
}

func TestStringToDatetimeDDMMYYYY(t *testing.T) {
	d, err := StringToDatetime("15-03-2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())
}

func TestStringToDatetimeInvalid(t *testing.T) {
	_, err := StringToDatetime("not-a-date")
	require.Error(t, err)
}
