// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package attribute

import (
	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

// storage unifies tracked.Column (uniform) and tracked.RaggedColumn (CSR)
// behind the row-indexed update shape Attribute needs, so the rest of this
// package does not branch on raggedness.
type storage interface {
	Kind() dtype.Kind
	Len() int
	Resize(newLen int) error
	ReadRow(row int) []any
	WriteRows(rows []int, values [][]any, processUndefined bool) error
	Changed() []bool
	Reset()
	IsUndefinedRow(row int) bool
}

type uniformStorage struct{ col tracked.Column }

func (s uniformStorage) Kind() dtype.Kind   { return s.col.Kind() }
func (s uniformStorage) Len() int           { return s.col.Len() }
func (s uniformStorage) Resize(n int) error { return s.col.Resize(n) }
func (s uniformStorage) ReadRow(row int) []any {
	return s.col.ReadRow(row)
}
func (s uniformStorage) Changed() []bool            { return s.col.Changed() }
func (s uniformStorage) Reset()                     { s.col.Reset() }
func (s uniformStorage) IsUndefinedRow(row int) bool { return s.col.IsUndefinedRow(row) }

func (s uniformStorage) WriteRows(rows []int, values [][]any, processUndefined bool) error {
	for i, row := range rows {
		if err := s.col.WriteRow(row, values[i], processUndefined); err != nil {
			return err
		}
	}
	return nil
}

type raggedStorage struct{ col tracked.RaggedColumn }

func (s raggedStorage) Kind() dtype.Kind            { return s.col.Kind() }
func (s raggedStorage) Len() int                    { return s.col.Len() }
func (s raggedStorage) Resize(n int) error          { return s.col.Resize(n) }
func (s raggedStorage) ReadRow(row int) []any       { return s.col.ReadRow(row) }
func (s raggedStorage) Changed() []bool             { return s.col.Changed() }
func (s raggedStorage) Reset()                      { s.col.Reset() }
func (s raggedStorage) IsUndefinedRow(row int) bool { return s.col.IsUndefinedRow(row) }

func (s raggedStorage) WriteRows(rows []int, values [][]any, processUndefined bool) error {
	return s.col.UpdateRows(values, rows, processUndefined)
}
