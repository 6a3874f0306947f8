// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package initload loads initial dataset files (spec.md §6) from a local
// directory or an S3 bucket, optionally validating them against a JSON
// schema before decoding, and exposes them as a
// pkg/modeladapter.InitDataProvider. Grounded on the teacher's
// pkg/archive FsArchive/S3Archive backend split and pkg/schema's
// embedded-schema validate pattern, generalized from the job archive's
// meta.json/data.json pair to one initial-dataset file per dataset.
package initload

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Backend lists and opens initial dataset files from some storage.
type Backend interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FSBackend reads initial dataset files from a local directory. Files
// ending in ".json" or ".json.gz" are considered; any other extension is
// ignored, mirroring the teacher's fsBackend's directory-scan discipline.
type FSBackend struct {
	root string
}

// NewFSBackend builds a Backend rooted at dir.
func NewFSBackend(dir string) *FSBackend {
	return &FSBackend{root: dir}
}

func (b *FSBackend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("initload: reading %s: %w", b.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".json") || strings.HasSuffix(n, ".json.gz") {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *FSBackend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(b.root, name))
	if err != nil {
		return nil, fmt.Errorf("initload: opening %s: %w", name, err)
	}
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("initload: ungzipping %s: %w", name, err)
		}
		return gzipReadCloser{gz: gz, f: f}, nil
	}
	return f, nil
}

// gzipReadCloser closes both the gzip stream and the underlying file.
type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}
