// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tape implements a CSV-driven replay reader: CsvTape parses a
// CSV time series and steps a cursor through it in lockstep with
// simulation time. It does not itself build or apply state updates.
// Supplements spec.md — the distilled spec has no replay-source
// component; this carries over the CsvTape reader that drives the
// original implementation's tape_player model.
package tape

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nhr-fau/simcore/pkg/moment"
)

// CsvTape holds a parsed CSV time series keyed by a "seconds" column and
// steps through it in lockstep with simulation time, mirroring the
// original CsvTape's proceed_to/has_update/get_data cycle. The time
// column is converted to timestamp units once at Initialize, the same
// point the original applies timeline_info.seconds_to_timestamp.
type CsvTape struct {
	timeline   moment.TimelineInfo
	timestamps []int64
	columns    map[string][]float64
	currentPos int
	lastPos    int
}

// NewCsvTape builds an empty CsvTape anchored to timeline.
func NewCsvTape(timeline moment.TimelineInfo) *CsvTape {
	return &CsvTape{timeline: timeline, currentPos: -1, lastPos: -1}
}

// Initialize parses r as CSV with a header row; timeColumn names the
// column holding the seconds-since-start offset for each row (all other
// columns are numeric series). Rows must be sorted by timeColumn.
func (c *CsvTape) Initialize(r io.Reader, timeColumn string) error {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("tape: reading csv header: %w", err)
	}

	timeIdx := -1
	columns := make(map[string][]float64, len(header))
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		if name == timeColumn {
			timeIdx = i
			continue
		}
		columns[name] = nil
		colIdx[name] = i
	}
	if timeIdx < 0 {
		return fmt.Errorf("tape: time column %q not found in header", timeColumn)
	}

	var timestamps []int64
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tape: reading csv row: %w", err)
		}

		t, err := strconv.ParseFloat(row[timeIdx], 64)
		if err != nil {
			return fmt.Errorf("tape: parsing time column: %w", err)
		}
		timestamps = append(timestamps, c.timeline.TimestampAtSeconds(t))

		for name, idx := range colIdx {
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return fmt.Errorf("tape: parsing column %q: %w", name, err)
			}
			columns[name] = append(columns[name], v)
		}
	}
	if !sort.IsSorted(int64Slice(timestamps)) {
		return fmt.Errorf("tape: time column %q is not sorted", timeColumn)
	}

	c.timestamps = timestamps
	c.columns = columns
	return nil
}

type int64Slice []int64

func (s int64Slice) Len() int           { return len(s) }
func (s int64Slice) Less(i, j int) bool { return s[i] < s[j] }
func (s int64Slice) Swap(i, j int)       { s[i], s[j] = s[j], s[i] }

// AssertParameter returns an error if name is not a column in the tape.
func (c *CsvTape) AssertParameter(name string) error {
	if _, ok := c.columns[name]; !ok {
		return fmt.Errorf("tape: parameter %q not found in supplied csv", name)
	}
	return nil
}

// GetData returns the current row's value for column name.
func (c *CsvTape) GetData(name string) (float64, error) {
	if c.currentPos < 0 {
		return 0, fmt.Errorf("tape: proceed_to has not been called yet")
	}
	col, ok := c.columns[name]
	if !ok {
		return 0, fmt.Errorf("tape: parameter %q not found", name)
	}
	return col[c.currentPos], nil
}

// ProceedTo advances the tape's cursor to m, moving it to the last row
// whose timestamp is <= m.Timestamp (numpy.searchsorted side="right",
// minus one, in the original).
func (c *CsvTape) ProceedTo(m moment.Moment) {
	c.lastPos = c.currentPos
	c.currentPos = sort.Search(len(c.timestamps), func(i int) bool {
		return c.timestamps[i] > m.Timestamp
	}) - 1
}

// HasUpdate reports whether the cursor moved on the last ProceedTo call.
func (c *CsvTape) HasUpdate() bool {
	return c.lastPos != c.currentPos
}

// GetNextTimestamp returns the Moment of the row after the current
// cursor, or false if the tape is exhausted.
func (c *CsvTape) GetNextTimestamp() (moment.Moment, bool) {
	next := c.currentPos + 1
	if next >= len(c.timestamps) {
		return moment.Moment{}, false
	}
	return moment.New(c.timestamps[next], c.timeline), true
}
