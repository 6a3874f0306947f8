// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package simconfig loads the demo runner's configuration: where initial
// datasets live, the run's timeline, and the optional NATS transport and
// rules model settings. Supplements spec.md — grounded on the teacher's
// internal/config.Init (global Keys var, schema-validate then
// DisallowUnknownFields decode).
package simconfig

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nhr-fau/simcore/pkg/initload"
	"github.com/nhr-fau/simcore/pkg/moment"
	"github.com/nhr-fau/simcore/pkg/transport/natstransport"
)

//go:embed schemas/*
var schemaFiles embed.FS

// schemaLoaderScheme is distinct from pkg/initload's "embedFS" scheme:
// jsonschema.Loaders is a shared, package-level registry keyed by URL
// scheme, so two packages both registering "embedFS" against different
// embed.FS values would silently clobber one another.
const schemaLoaderScheme = "simconfigFS"

func loadEmbeddedSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders[schemaLoaderScheme] = loadEmbeddedSchema
}

const schemaURL = schemaLoaderScheme + "://schemas/config.schema.json"

// DatasetSource describes where initial datasets are loaded from.
type DatasetSource struct {
	Kind     string            `json:"kind"` // "fs" or "s3"
	Path     string            `json:"path"` // local directory ("fs"); "s3" reads S3 instead
	Validate bool              `json:"validate"`
	S3       *initload.S3Config `json:"s3"`
}

// TimelineConfig is the JSON-decodable form of moment.TimelineInfo; its
// Reference is an RFC3339 string rather than a time.Time so it round-trips
// through JSON without a custom UnmarshalJSON.
type TimelineConfig struct {
	Reference string  `json:"reference"`
	Scale     float64 `json:"scale"`
	Start     int64   `json:"start"`
	Duration  int64   `json:"duration"`
}

// ToTimelineInfo parses Reference and builds a moment.TimelineInfo.
func (c TimelineConfig) ToTimelineInfo() (moment.TimelineInfo, error) {
	ref, err := time.Parse(time.RFC3339, c.Reference)
	if err != nil {
		return moment.TimelineInfo{}, fmt.Errorf("simconfig: parsing timeline reference %q: %w", c.Reference, err)
	}
	return moment.TimelineInfo{Reference: ref, Scale: c.Scale, Start: c.Start, Duration: c.Duration}, nil
}

// Config is the demo runner's full configuration.
type Config struct {
	Datasets     DatasetSource        `json:"datasets"`
	Timeline     TimelineConfig       `json:"timeline"`
	TickInterval string               `json:"tick_interval"`
	TickStep     int64                `json:"tick_step"`
	RulesPath    string               `json:"rules_path"`
	Nats         *natstransport.Config `json:"nats"`
}

// Keys holds the process-wide configuration, populated by Init.
var Keys = Config{
	TickInterval: "1s",
	TickStep:     1,
}

// Init reads, schema-validates, and decodes path into Keys.
func Init(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("simconfig: reading %s: %w", path, err)
	}

	s, err := jsonschema.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("simconfig: compiling config schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("simconfig: decoding %s for validation: %w", path, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("simconfig: %s failed schema validation: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("simconfig: decoding %s: %w", path, err)
	}
	return nil
}

// TickIntervalDuration parses TickInterval, defaulting to 1s on error.
func (c Config) TickIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return time.Second
	}
	return d
}
