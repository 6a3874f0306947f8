// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tracked

import (
	"github.com/nhr-fau/simcore/pkg/dtype"
)

// RaggedColumn is the kind-erased view of a CSR column.
type RaggedColumn interface {
	Kind() dtype.Kind
	Len() int
	Resize(newLen int) error
	ReadRow(row int) []any
	// UpdateRows replaces the named rows. rows[i] holds the new value for
	// targetRows[i]; a row consisting of a single undefined-sentinel
	// element is elided (its row index is dropped from targetRows) per
	// spec.md §4.5, unless processUndefined is true.
	UpdateRows(rows [][]any, targetRows []int, processUndefined bool) error
	Changed() []bool
	Reset()
	IsUndefinedRow(row int) bool
}

type boolCSRColumn struct{ a *CSRArray[int8] }
type intCSRColumn struct{ a *CSRArray[int32] }
type floatCSRColumn struct{ a *CSRArray[float64] }
type stringCSRColumn struct{ a *CSRArray[string] }

func NewBoolCSRColumn(n int) RaggedColumn {
	return &boolCSRColumn{a: NewEmptyCSRArray[int8](n, dtype.UndefinedBool, ExactEqual[int8]())}
}
func NewIntCSRColumn(n int) RaggedColumn {
	return &intCSRColumn{a: NewEmptyCSRArray[int32](n, dtype.UndefinedInt, ExactEqual[int32]())}
}
func NewFloatCSRColumn(n int, tol Tolerance) RaggedColumn {
	return &floatCSRColumn{a: NewEmptyCSRArray[float64](n, dtype.UndefinedFloat(), FloatEqual(tol))}
}
func NewStringCSRColumn(n int) RaggedColumn {
	return &stringCSRColumn{a: NewEmptyCSRArray[string](n, dtype.UndefinedString, ExactEqual[string]())}
}

func (c *boolCSRColumn) Kind() dtype.Kind   { return dtype.Bool }
func (c *boolCSRColumn) Len() int           { return c.a.Len() }
func (c *boolCSRColumn) Resize(n int) error { return resizeCSR(c.a, n, dtype.UndefinedBool) }
func (c *boolCSRColumn) Changed() []bool    { return c.a.Changed() }
func (c *boolCSRColumn) Reset()             { c.a.Reset() }
func (c *boolCSRColumn) IsUndefinedRow(row int) bool {
	return isUndefinedRagged(c.a.Row(row), dtype.IsUndefinedBool)
}
func (c *boolCSRColumn) ReadRow(row int) []any { return toAnySlice(c.a.Row(row)) }
func (c *boolCSRColumn) UpdateRows(rows [][]any, targetRows []int, processUndefined bool) error {
	data, offsets, targets, err := elideAndFlattenBool(rows, targetRows, processUndefined)
	if err != nil {
		return err
	}
	return c.a.Update(data, offsets, targets)
}

func (c *intCSRColumn) Kind() dtype.Kind   { return dtype.Int }
func (c *intCSRColumn) Len() int           { return c.a.Len() }
func (c *intCSRColumn) Resize(n int) error { return resizeCSR(c.a, n, dtype.UndefinedInt) }
func (c *intCSRColumn) Changed() []bool    { return c.a.Changed() }
func (c *intCSRColumn) Reset()             { c.a.Reset() }
func (c *intCSRColumn) IsUndefinedRow(row int) bool {
	return isUndefinedRagged(c.a.Row(row), dtype.IsUndefinedInt)
}
func (c *intCSRColumn) ReadRow(row int) []any { return toAnySlice(c.a.Row(row)) }
func (c *intCSRColumn) UpdateRows(rows [][]any, targetRows []int, processUndefined bool) error {
	data, offsets, targets, err := elideAndFlattenInt(rows, targetRows, processUndefined)
	if err != nil {
		return err
	}
	return c.a.Update(data, offsets, targets)
}

func (c *floatCSRColumn) Kind() dtype.Kind   { return dtype.Float }
func (c *floatCSRColumn) Len() int           { return c.a.Len() }
func (c *floatCSRColumn) Resize(n int) error { return resizeCSR(c.a, n, dtype.UndefinedFloat()) }
func (c *floatCSRColumn) Changed() []bool    { return c.a.Changed() }
func (c *floatCSRColumn) Reset()             { c.a.Reset() }
func (c *floatCSRColumn) IsUndefinedRow(row int) bool {
	return isUndefinedRagged(c.a.Row(row), dtype.IsUndefinedFloat)
}
func (c *floatCSRColumn) ReadRow(row int) []any { return toAnySlice(c.a.Row(row)) }
func (c *floatCSRColumn) UpdateRows(rows [][]any, targetRows []int, processUndefined bool) error {
	data, offsets, targets, err := elideAndFlattenFloat(rows, targetRows, processUndefined)
	if err != nil {
		return err
	}
	return c.a.Update(data, offsets, targets)
}

func (c *stringCSRColumn) Kind() dtype.Kind   { return dtype.String }
func (c *stringCSRColumn) Len() int           { return c.a.Len() }
func (c *stringCSRColumn) Resize(n int) error { return resizeCSR(c.a, n, dtype.UndefinedString) }
func (c *stringCSRColumn) Changed() []bool    { return c.a.Changed() }
func (c *stringCSRColumn) Reset()             { c.a.Reset() }
func (c *stringCSRColumn) IsUndefinedRow(row int) bool {
	return isUndefinedRagged(c.a.Row(row), dtype.IsUndefinedString)
}
func (c *stringCSRColumn) ReadRow(row int) []any { return toAnySlice(c.a.Row(row)) }
func (c *stringCSRColumn) UpdateRows(rows [][]any, targetRows []int, processUndefined bool) error {
	data, offsets, targets, err := elideAndFlattenString(rows, targetRows, processUndefined)
	if err != nil {
		return err
	}
	return c.a.Update(data, offsets, targets)
}

func isUndefinedRagged[T any](row []T, isUndefined func(T) bool) bool {
	for _, v := range row {
		if !isUndefined(v) {
			return false
		}
	}
	return true
}

func toAnySlice[T any](row []T) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// resizeCSR grows a CSR array by n-Len() new single-element-undefined rows.
func resizeCSR[T any](a *CSRArray[T], newLen int, undefined T) error {
	cur := a.Len()
	if newLen < cur {
		return ErrShrink
	}
	addRows := newLen - cur
	if addRows == 0 {
		return nil
	}

	data := make([]T, 0, len(a.data)+addRows)
	offsets := make([]int, newLen+1)
	pos := 0
	for i := 0; i < cur; i++ {
		data = append(data, a.Row(i)...)
		offsets[i] = pos
		pos += len(a.Row(i))
	}
	for i := cur; i < newLen; i++ {
		data = append(data, undefined)
		offsets[i] = pos
		pos++
	}
	offsets[newLen] = pos

	a.data = data
	a.offsets = offsets
	a.changed = append(append([]bool(nil), a.changed...), make([]bool, addRows)...)
	return nil
}

func elideAndFlattenBool(rows [][]any, targetRows []int, processUndefined bool) ([]int8, []int, []int, error) {
	var data []int8
	var offsets []int
	var targets []int
	offsets = append(offsets, 0)
	for i, row := range rows {
		if !processUndefined && len(row) == 1 {
			if v, ok := row[0].(int8); ok && dtype.IsUndefinedBool(v) {
				continue
			}
		}
		vals, err := toBoolSlice(row)
		if err != nil {
			return nil, nil, nil, err
		}
		data = append(data, vals...)
		offsets = append(offsets, len(data))
		targets = append(targets, targetRows[i])
	}
	return data, offsets, targets, nil
}

func elideAndFlattenInt(rows [][]any, targetRows []int, processUndefined bool) ([]int32, []int, []int, error) {
	var data []int32
	var offsets []int
	var targets []int
	offsets = append(offsets, 0)
	for i, row := range rows {
		if !processUndefined && len(row) == 1 {
			if v, ok := row[0].(int32); ok && dtype.IsUndefinedInt(v) {
				continue
			}
		}
		vals, err := toIntSlice(row)
		if err != nil {
			return nil, nil, nil, err
		}
		data = append(data, vals...)
		offsets = append(offsets, len(data))
		targets = append(targets, targetRows[i])
	}
	return data, offsets, targets, nil
}

func elideAndFlattenFloat(rows [][]any, targetRows []int, processUndefined bool) ([]float64, []int, []int, error) {
	var data []float64
	var offsets []int
	var targets []int
	offsets = append(offsets, 0)
	for i, row := range rows {
		if !processUndefined && len(row) == 1 {
			if v, ok := row[0].(float64); ok && dtype.IsUndefinedFloat(v) {
				continue
			}
		}
		vals, err := toFloatSlice(row)
		if err != nil {
			return nil, nil, nil, err
		}
		data = append(data, vals...)
		offsets = append(offsets, len(data))
		targets = append(targets, targetRows[i])
	}
	return data, offsets, targets, nil
}

func elideAndFlattenString(rows [][]any, targetRows []int, processUndefined bool) ([]string, []int, []int, error) {
	var data []string
	var offsets []int
	var targets []int
	offsets = append(offsets, 0)
	for i, row := range rows {
		if !processUndefined && len(row) == 1 {
			if v, ok := row[0].(string); ok && dtype.IsUndefinedString(v) {
				continue
			}
		}
		vals, err := toStringSlice(row)
		if err != nil {
			return nil, nil, nil, err
		}
		data = append(data, vals...)
		offsets = append(offsets, len(data))
		targets = append(targets, targetRows[i])
	}
	return data, offsets, targets, nil
}

