// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package moment implements simulation time: an integer timestamp plus the
// explicit TimelineInfo needed to convert it to wall-clock time, per
// spec.md §4.11. TimelineInfo is a plain value threaded through by
// callers — never a package-level mutable singleton, per the REDESIGN
// FLAGS: a global timeline would make every conversion implicitly
// stateful and untestable in isolation.
package moment

import (
	"fmt"
	"strconv"
	"time"
)

// TimelineInfo anchors simulation timestamps to wall-clock time: timestamp
// 0 corresponds to Reference, and each unit of timestamp is Scale real
// seconds.
type TimelineInfo struct {
	Reference time.Time
	Scale     float64 // real seconds per timestamp unit
	Start     int64   // first valid timestamp
	Duration  int64   // number of timestamp units in the run
}

// Seconds returns the number of real seconds since Reference at timestamp
// ts.
func (tl TimelineInfo) Seconds(ts int64) float64 {
	return tl.Scale * float64(ts)
}

// WallClock returns the wall-clock time at timestamp ts.
func (tl TimelineInfo) WallClock(ts int64) time.Time {
	return tl.Reference.Add(time.Duration(tl.Seconds(ts) * float64(time.Second)))
}

// TimestampAtSeconds is the inverse of Seconds: it rounds a real-seconds
// offset from Reference down to the enclosing integer timestamp.
func (tl TimelineInfo) TimestampAtSeconds(seconds float64) int64 {
	if tl.Scale == 0 {
		return 0
	}
	return int64(seconds / tl.Scale)
}

// Moment is a discrete simulation timestamp paired with the timeline that
// gives it meaning.
type Moment struct {
	Timestamp int64
	Timeline  TimelineInfo
}

// New builds a Moment.
func New(timestamp int64, timeline TimelineInfo) Moment {
	return Moment{Timestamp: timestamp, Timeline: timeline}
}

// WallClock returns the wall-clock time of this moment.
func (m Moment) WallClock() time.Time {
	return m.Timeline.WallClock(m.Timestamp)
}

// SecondsSinceStart returns the elapsed real seconds since the timeline's
// Start timestamp.
func (m Moment) SecondsSinceStart() float64 {
	return m.Timeline.Scale * float64(m.Timestamp-m.Timeline.Start)
}

// Before, After and Equal give Moment a total order by timestamp. Moments
// built from different TimelineInfo are still comparable by timestamp
// alone — the timeline only matters for wall-clock conversion.
func (m Moment) Before(other Moment) bool { return m.Timestamp < other.Timestamp }
func (m Moment) After(other Moment) bool  { return m.Timestamp > other.Timestamp }
func (m Moment) Equal(other Moment) bool  { return m.Timestamp == other.Timestamp }

// yearThreshold is the boundary used by StringToDatetime to disambiguate a
// bare year from a Unix timestamp: any integer above it is treated as
// seconds since the epoch, at or below it as a calendar year.
const yearThreshold = 5000

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02-01-2006 15:04:05",
}

// StringToDatetime recognizes three forms, per spec.md §4.11: a bare year
// (1..5000, interpreted as YYYY-01-01), a Unix-seconds integer above that
// threshold, or a common ISO-8601 / dd-mm-yyyy string.
func StringToDatetime(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n >= 1 && n <= yearThreshold {
			return time.Date(int(n), time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("moment: cannot parse %q as a year, unix timestamp, or ISO-8601/dd-mm-yyyy date", s)
}
