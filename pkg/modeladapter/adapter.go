// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package modeladapter drives one model's lifecycle against a tracked
// state: setup, initialize, update, new_time, shutdown, as described in
// spec.md §4.9.
package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/moment"
	"github.com/nhr-fau/simcore/pkg/state"
)

// ErrNotReady is the dedicated not-ready condition a Model implementation
// raises from Initialize or Update to tell the adapter to retry later
// without treating the call as a failure.
var ErrNotReady = errors.New("modeladapter: model reported not ready")

// InitDataProvider supplies the initial datasets applied to the state
// before a model's Initialize is invoked.
type InitDataProvider interface {
	InitialDatasets() ([]state.Update, error)
}

// Model is the interface a simulation model implements to be driven by an
// Adapter.
type Model interface {
	Setup(s *state.State, schema *attrschema.Schema, initData InitDataProvider, settings any) error
	Initialize(s *state.State) error
	Update(s *state.State, m moment.Moment) (nextTimestamp int64, hasNext bool, err error)
	NewTime(s *state.State, m moment.Moment) error
	Shutdown(s *state.State) error
}

// setupWindow bounds how long Setup waits for model.Setup to return, and
// is the minimum interval between repeated not-ready log lines.
const setupWindow = 5 * time.Second

// Adapter wraps one Model and maintains its two lifecycle flags.
type Adapter struct {
	Model    Model
	State    *state.State
	Schema   *attrschema.Schema
	Settings any

	modelInitialized  bool
	modelReadyForUpdate bool
	cachedNext        *moment.Moment
	timeline          moment.TimelineInfo

	// notReadyLog throttles repeated "still not ready" log lines to at
	// most once per setupWindow, so an orchestrator polling Initialize
	// every tick doesn't flood the log while a model waits on upstream
	// data.
	notReadyLog *rate.Limiter
}

// New builds an Adapter around model, using timeline to convert the
// timestamps passed to Update/NewTime into Moments.
func New(model Model, s *state.State, schema *attrschema.Schema, settings any, timeline moment.TimelineInfo) *Adapter {
	return &Adapter{
		Model:       model,
		State:       s,
		Schema:      schema,
		Settings:    settings,
		timeline:    timeline,
		notReadyLog: rate.NewLimiter(rate.Every(setupWindow), 1),
	}
}

// Setup calls model.Setup so the model can register its entity groups and
// attributes. ctx bounds the call; a model that blocks past setupWindow
// on first contact surfaces a deadline error rather than hanging the
// orchestrator indefinitely.
func (a *Adapter) Setup(ctx context.Context, initData InitDataProvider) error {
	ctx, cancel := context.WithTimeout(ctx, setupWindow)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.Model.Setup(a.State, a.Schema, initData, a.Settings)
	}()

	select {
	case err := <-done:
		if err == nil {
			log.Infof("modeladapter: setup completed")
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("modeladapter: setup did not return within %s: %w", setupWindow, ctx.Err())
	}
}

// Initialize applies every initial dataset to the state, then calls
// model.Initialize iff the state is ready for INITIALIZE. If the model
// reports ErrNotReady, modelInitialized stays false and the caller should
// retry on a later tick. Returns the data mask computed from the final
// state once the model has initialized (nil before that).
func (a *Adapter) Initialize(initData InitDataProvider) (*state.DataMask, error) {
	datasets, err := initData.InitialDatasets()
	if err != nil {
		return nil, fmt.Errorf("modeladapter: loading initial datasets: %w", err)
	}
	for _, u := range datasets {
		if err := a.State.ReceiveUpdate(u, true, false); err != nil {
			return nil, err
		}
	}

	if !a.State.IsReadyFor(attribute.Initialize) {
		if a.notReadyLog.Allow() {
			log.Notef("modeladapter: not ready for INITIALIZE, missing: %s", strings.Join(a.State.ReadinessFailures(attribute.Initialize), ", "))
		}
		return nil, nil
	}

	if err := a.Model.Initialize(a.State); err != nil {
		if errors.Is(err, ErrNotReady) {
			if a.notReadyLog.Allow() {
				log.Notef("modeladapter: model reported not ready for INITIALIZE")
			}
			return nil, nil
		}
		return nil, err
	}

	a.modelInitialized = true
	log.Infof("modeladapter: model initialized")
	mask := a.State.GetDataMask()
	return &mask, nil
}

func payloadEmpty(u state.Update) bool {
	for _, ds := range u.Datasets {
		if len(ds.Groups) > 0 {
			return false
		}
	}
	return true
}

// Update applies payload to the state and, once the state is ready for
// REQUIRED, invokes model.Update. Returns the PUBLISH payload generated
// from the resulting state and the model's next-scheduled moment.
//
// An empty payload while the model isn't yet ready-for-update is a no-op.
// An empty payload once the model is already ready-for-update is also
// skipped (no new data to react to) and returns the previously cached
// next time, per spec.md §4.9.
func (a *Adapter) Update(timestamp int64, payload state.Update) (state.Update, *moment.Moment, error) {
	if payloadEmpty(payload) {
		return state.Update{}, a.cachedNext, nil
	}

	if err := a.State.ReceiveUpdate(payload, false, false); err != nil {
		return state.Update{}, nil, err
	}

	if !a.State.IsReadyFor(attribute.Required) {
		return state.Update{}, a.cachedNext, nil
	}

	next, hasNext, err := a.Model.Update(a.State, moment.New(timestamp, a.timeline))
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return state.Update{}, a.cachedNext, nil
		}
		return state.Update{}, nil, err
	}
	if !a.modelReadyForUpdate {
		log.Infof("modeladapter: model ready for update")
	}
	a.modelReadyForUpdate = true

	if hasNext {
		m := moment.New(next, a.timeline)
		a.cachedNext = &m
	} else {
		a.cachedNext = nil
	}

	out := a.State.GenerateUpdate(attribute.Publish)
	if err := a.State.ResetTrackedChanges(attribute.Publish); err != nil {
		return state.Update{}, nil, err
	}
	return out, a.cachedNext, nil
}

// NewTime advances the model's notion of time. Requires both lifecycle
// flags set; resets SUBSCRIBE-side change tracking afterwards so the next
// interval starts clean.
func (a *Adapter) NewTime(timestamp int64) error {
	if !a.modelInitialized || !a.modelReadyForUpdate {
		return fmt.Errorf("modeladapter: new_time called before model is initialized and ready-for-update")
	}
	if err := a.Model.NewTime(a.State, moment.New(timestamp, a.timeline)); err != nil {
		return err
	}
	return a.State.ResetTrackedChanges(attribute.Subscribe)
}

// Close shuts the model down. Requires both lifecycle flags set unless
// failing is true (an orchestrator tearing down after an upstream
// failure still wants shutdown attempted).
func (a *Adapter) Close(failing bool) error {
	if !failing && !(a.modelInitialized && a.modelReadyForUpdate) {
		return fmt.Errorf("modeladapter: close called before model is initialized and ready-for-update")
	}
	if failing {
		log.Warnf("modeladapter: tearing down after an upstream failure")
	}
	return a.Model.Shutdown(a.State)
}

// IsInitialized and IsReadyForUpdate expose the adapter's two lifecycle
// flags for diagnostics and tests.
func (a *Adapter) IsInitialized() bool    { return a.modelInitialized }
func (a *Adapter) IsReadyForUpdate() bool { return a.modelReadyForUpdate }
