// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package initload

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nhr-fau/simcore/pkg/codec"
	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/state"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadEmbeddedSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadEmbeddedSchema
}

const schemaURL = "embedFS://schemas/initial-dataset.schema.json"

// Loader reads every initial dataset file a Backend lists, optionally
// validates each against the initial-dataset JSON schema, and decodes it
// into a state.Update. It implements pkg/modeladapter.InitDataProvider.
type Loader struct {
	backend  Backend
	validate bool
	schema   *jsonschema.Schema
}

// New compiles the initial-dataset schema (if validate is true) and
// returns a Loader over backend.
func New(backend Backend, validate bool) (*Loader, error) {
	l := &Loader{backend: backend, validate: validate}
	if validate {
		s, err := jsonschema.Compile(schemaURL)
		if err != nil {
			return nil, fmt.Errorf("initload: compiling schema: %w", err)
		}
		l.schema = s
	}
	return l, nil
}

// InitialDatasets lists and decodes every dataset file the backend
// exposes. Satisfies pkg/modeladapter.InitDataProvider.
func (l *Loader) InitialDatasets() ([]state.Update, error) {
	ctx := context.Background()
	names, err := l.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	updates := make([]state.Update, 0, len(names))
	for _, name := range names {
		u, err := l.loadOne(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("initload: %s: %w", name, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func (l *Loader) loadOne(ctx context.Context, name string) (state.Update, error) {
	r, err := l.backend.Open(ctx, name)
	if err != nil {
		return state.Update{}, err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return state.Update{}, fmt.Errorf("reading: %w", err)
	}

	if l.validate {
		var v interface{}
		if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
			return state.Update{}, fmt.Errorf("decoding for validation: %w", err)
		}
		if err := l.schema.Validate(v); err != nil {
			return state.Update{}, fmt.Errorf("schema validation: %w", err)
		}
	}

	datasetName, update, err := codec.DecodeInitialDataset(raw)
	if err != nil {
		return state.Update{}, err
	}
	log.Debugf("initload: loaded dataset %q from %s", datasetName, name)
	return update, nil
}
