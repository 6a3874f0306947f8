// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhr-fau/simcore/pkg/moment"
)

const sampleCSV = `seconds,speed,occupancy
0,10.0,0.1
60,20.0,0.2
120,30.0,0.3
`

func TestCsvTapeStepsThroughRows(t *testing.T) {
	tl := moment.TimelineInfo{Scale: 1}
	tape := NewCsvTape(tl)
	require.NoError(t, tape.Initialize(strings.NewReader(sampleCSV), "seconds"))

	tape.ProceedTo(moment.New(0, tl))
	assert.True(t, tape.HasUpdate())
	v, err := tape.GetData("speed")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	tape.ProceedTo(moment.New(90, tl))
	assert.True(t, tape.HasUpdate())
	v, err = tape.GetData("speed")
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)

	tape.ProceedTo(moment.New(95, tl))
	assert.False(t, tape.HasUpdate())
}

func TestCsvTapeGetNextTimestamp(t *testing.T) {
	tl := moment.TimelineInfo{Scale: 1}
	tape := NewCsvTape(tl)
	require.NoError(t, tape.Initialize(strings.NewReader(sampleCSV), "seconds"))

	tape.ProceedTo(moment.New(0, tl))
	next, ok := tape.GetNextTimestamp()
	require.True(t, ok)
	assert.Equal(t, int64(60), next.Timestamp)

	tape.ProceedTo(moment.New(120, tl))
	_, ok = tape.GetNextTimestamp()
	assert.False(t, ok)
}

func TestCsvTapeAssertParameter(t *testing.T) {
	tl := moment.TimelineInfo{Scale: 1}
	tape := NewCsvTape(tl)
	require.NoError(t, tape.Initialize(strings.NewReader(sampleCSV), "seconds"))

	require.NoError(t, tape.AssertParameter("speed"))
	require.Error(t, tape.AssertParameter("nonexistent"))
}

func TestCsvTapeRejectsUnsortedTime(t *testing.T) {
	unsorted := "seconds,speed\n10,1.0\n5,2.0\n"
	tl := moment.TimelineInfo{Scale: 1}
	tape := NewCsvTape(tl)
	require.Error(t, tape.Initialize(strings.NewReader(unsorted), "seconds"))
}
