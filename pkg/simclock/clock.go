// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package simclock drives a model adapter's NewTime lifecycle call on a
// fixed wall-clock cadence, advancing simulation time by a fixed step
// each tick. Supplements spec.md — the core itself is driven by an
// external orchestrator's timestamps, but a standalone demo run (see
// cmd/simcore-runner) needs something to produce those timestamps, so
// this wraps a periodic worker in the style of the teacher's
// taskmanager services.
package simclock

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/modeladapter"
)

// Clock periodically advances a modeladapter.Adapter's notion of time by
// calling NewTime with a monotonically increasing timestamp.
type Clock struct {
	scheduler gocron.Scheduler
	adapter   *modeladapter.Adapter
	step      int64
	timestamp int64
	errs      int
}

// New builds a Clock that advances adapter's time by step timestamp units
// per tick. The tick interval is the one passed to Start; the interval
// argument of New is not used.
func New(adapter *modeladapter.Adapter, interval time.Duration, step int64) (*Clock, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("simclock: creating scheduler: %w", err)
	}
	return &Clock{scheduler: s, adapter: adapter, step: step}, nil
}

// Start registers the tick job and starts the scheduler. It does not
// block; call Shutdown to stop.
func (c *Clock) Start(interval time.Duration) error {
	_, err := c.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(c.tick),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("simclock: registering tick job: %w", err)
	}
	c.scheduler.Start()
	return nil
}

func (c *Clock) tick() {
	c.timestamp += c.step
	if err := c.adapter.NewTime(c.timestamp); err != nil {
		c.errs++
		log.Warnf("simclock: new_time at %d: %v", c.timestamp, err)
		return
	}
	log.Debugf("simclock: advanced to timestamp %d", c.timestamp)
}

// Timestamp returns the clock's current timestamp.
func (c *Clock) Timestamp() int64 { return c.timestamp }

// ErrorCount returns the number of ticks whose NewTime call failed, for
// diagnostics.
func (c *Clock) ErrorCount() int { return c.errs }

// Shutdown stops the scheduler.
func (c *Clock) Shutdown() error {
	return c.scheduler.Shutdown()
}
