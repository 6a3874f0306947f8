// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tracked

import (
	"fmt"
	"strconv"

	"github.com/nhr-fau/simcore/pkg/dtype"
)

// Column is the kind-erased view of a uniform tracked column (CSR columns
// use RaggedColumn) that the Attribute and Tracked State layers operate on without knowing the
// concrete element type at compile time.
type Column interface {
	Kind() dtype.Kind
	UnitShape() []int
	Ragged() bool
	Len() int
	Resize(newLen int) error
	ReadRow(row int) []any
	WriteRow(row int, values []any, processUndefined bool) error
	Changed() []bool
	Reset()
	IsUndefinedRow(row int) bool
	AsType(k dtype.Kind) (Column, error)
	StringBucket() int

	// HasSnapshot and SnapshotRow expose the pre-mutation baseline so
	// AsType can carry it across a type conversion instead of losing it.
	HasSnapshot() bool
	SnapshotRow(row int) []any
}

// stringBucketCap is the maximum fixed-width string bucket (spec.md §4.2/§6).
const stringBucketCap = 256

const minStringBucket = 8

func nextBucket(size int) int {
	b := minStringBucket
	for b < size && b < stringBucketCap {
		b *= 2
	}
	if b > stringBucketCap {
		b = stringBucketCap
	}
	return b
}

// boolColumn, intColumn, floatColumn and stringColumn adapt the generic
// Array[T] to the Column interface — the "tagged variant over
// {bool,int,float,string}" design called for in spec.md §9.

type boolColumn struct{ a *Array[int8] }
type intColumn struct{ a *Array[int32] }
type floatColumn struct {
	a   *Array[float64]
	tol Tolerance
}
type stringColumn struct {
	a      *Array[string]
	bucket int
}

func NewBoolColumn(n int, unitShape []int) Column {
	return &boolColumn{a: NewArray[int8](n, unitShape, dtype.UndefinedBool, ExactEqual[int8]())}
}

func NewIntColumn(n int, unitShape []int) Column {
	return &intColumn{a: NewArray[int32](n, unitShape, dtype.UndefinedInt, ExactEqual[int32]())}
}

func NewFloatColumn(n int, unitShape []int, tol Tolerance) Column {
	return &floatColumn{a: NewArray[float64](n, unitShape, dtype.UndefinedFloat(), FloatEqual(tol)), tol: tol}
}

func NewStringColumn(n int, unitShape []int) Column {
	return &stringColumn{a: NewArray[string](n, unitShape, dtype.UndefinedString, ExactEqual[string]()), bucket: minStringBucket}
}

func (c *boolColumn) Kind() dtype.Kind   { return dtype.Bool }
func (c *boolColumn) UnitShape() []int   { return c.a.UnitShape() }
func (c *boolColumn) Ragged() bool       { return false }
func (c *boolColumn) Len() int           { return c.a.Len() }
func (c *boolColumn) Resize(n int) error { return c.a.Resize(n) }
func (c *boolColumn) Changed() []bool    { return c.a.Changed() }
func (c *boolColumn) Reset()             { c.a.Reset() }
func (c *boolColumn) StringBucket() int  { return 0 }

func (c *boolColumn) ReadRow(row int) []any {
	r := c.a.Row(row)
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v
	}
	return out
}

func (c *boolColumn) WriteRow(row int, values []any, processUndefined bool) error {
	vals, err := toBoolSlice(values)
	if err != nil {
		return err
	}
	if processUndefined {
		c.a.Write(row, vals)
	} else {
		c.a.WriteMasked(row, vals, dtype.IsUndefinedBool)
	}
	return nil
}

func (c *boolColumn) IsUndefinedRow(row int) bool {
	return c.a.IsUndefinedRow(row, dtype.IsUndefinedBool)
}

func (c *boolColumn) AsType(k dtype.Kind) (Column, error) { return convertColumn(c, k) }

func (c *boolColumn) HasSnapshot() bool { return c.a.HasSnapshot() }

func (c *boolColumn) SnapshotRow(row int) []any {
	return anySlice(c.a.SnapshotRow(row))
}

func (c *intColumn) Kind() dtype.Kind   { return dtype.Int }
func (c *intColumn) UnitShape() []int   { return c.a.UnitShape() }
func (c *intColumn) Ragged() bool       { return false }
func (c *intColumn) Len() int           { return c.a.Len() }
func (c *intColumn) Resize(n int) error { return c.a.Resize(n) }
func (c *intColumn) Changed() []bool    { return c.a.Changed() }
func (c *intColumn) Reset()             { c.a.Reset() }
func (c *intColumn) StringBucket() int  { return 0 }

func (c *intColumn) ReadRow(row int) []any {
	r := c.a.Row(row)
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v
	}
	return out
}

func (c *intColumn) WriteRow(row int, values []any, processUndefined bool) error {
	vals, err := toIntSlice(values)
	if err != nil {
		return err
	}
	if processUndefined {
		c.a.Write(row, vals)
	} else {
		c.a.WriteMasked(row, vals, dtype.IsUndefinedInt)
	}
	return nil
}

func (c *intColumn) IsUndefinedRow(row int) bool {
	return c.a.IsUndefinedRow(row, dtype.IsUndefinedInt)
}

func (c *intColumn) AsType(k dtype.Kind) (Column, error) { return convertColumn(c, k) }

func (c *intColumn) HasSnapshot() bool { return c.a.HasSnapshot() }

func (c *intColumn) SnapshotRow(row int) []any {
	return anySlice(c.a.SnapshotRow(row))
}

func (c *floatColumn) Kind() dtype.Kind   { return dtype.Float }
func (c *floatColumn) UnitShape() []int   { return c.a.UnitShape() }
func (c *floatColumn) Ragged() bool       { return false }
func (c *floatColumn) Len() int           { return c.a.Len() }
func (c *floatColumn) Resize(n int) error { return c.a.Resize(n) }
func (c *floatColumn) Changed() []bool    { return c.a.Changed() }
func (c *floatColumn) Reset()             { c.a.Reset() }
func (c *floatColumn) StringBucket() int  { return 0 }

func (c *floatColumn) ReadRow(row int) []any {
	r := c.a.Row(row)
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v
	}
	return out
}

func (c *floatColumn) WriteRow(row int, values []any, processUndefined bool) error {
	vals, err := toFloatSlice(values)
	if err != nil {
		return err
	}
	if processUndefined {
		c.a.Write(row, vals)
	} else {
		c.a.WriteMasked(row, vals, dtype.IsUndefinedFloat)
	}
	return nil
}

func (c *floatColumn) IsUndefinedRow(row int) bool {
	return c.a.IsUndefinedRow(row, dtype.IsUndefinedFloat)
}

func (c *floatColumn) AsType(k dtype.Kind) (Column, error) { return convertColumn(c, k) }

func (c *floatColumn) HasSnapshot() bool { return c.a.HasSnapshot() }

func (c *floatColumn) SnapshotRow(row int) []any {
	return anySlice(c.a.SnapshotRow(row))
}

func (c *stringColumn) Kind() dtype.Kind   { return dtype.String }
func (c *stringColumn) UnitShape() []int   { return c.a.UnitShape() }
func (c *stringColumn) Ragged() bool       { return false }
func (c *stringColumn) Len() int           { return c.a.Len() }
func (c *stringColumn) Resize(n int) error { return c.a.Resize(n) }
func (c *stringColumn) Changed() []bool    { return c.a.Changed() }
func (c *stringColumn) Reset()             { c.a.Reset() }
func (c *stringColumn) StringBucket() int  { return c.bucket }

func (c *stringColumn) ReadRow(row int) []any {
	r := c.a.Row(row)
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v
	}
	return out
}

// promote grows the string bucket to the next power of two (cap 256) that
// fits the longest value being written, per spec.md §4.2/§9.
func (c *stringColumn) promote(values []string) {
	maxLen := c.bucket
	for _, v := range values {
		if len(v) > maxLen {
			maxLen = len(v)
		}
	}
	if maxLen > c.bucket {
		c.bucket = nextBucket(maxLen)
	}
}

func (c *stringColumn) WriteRow(row int, values []any, processUndefined bool) error {
	vals, err := toStringSlice(values)
	if err != nil {
		return err
	}
	c.promote(vals)
	if processUndefined {
		c.a.Write(row, vals)
	} else {
		c.a.WriteMasked(row, vals, dtype.IsUndefinedString)
	}
	return nil
}

func (c *stringColumn) IsUndefinedRow(row int) bool {
	return c.a.IsUndefinedRow(row, dtype.IsUndefinedString)
}

func (c *stringColumn) AsType(k dtype.Kind) (Column, error) { return convertColumn(c, k) }

func (c *stringColumn) HasSnapshot() bool { return c.a.HasSnapshot() }

func (c *stringColumn) SnapshotRow(row int) []any {
	return anySlice(c.a.SnapshotRow(row))
}

func toBoolSlice(values []any) ([]int8, error) {
	out := make([]int8, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case int8:
			out[i] = t
		case bool:
			if t {
				out[i] = 1
			}
		default:
			return nil, fmt.Errorf("tracked: cannot use %T as bool element", v)
		}
	}
	return out, nil
}

func toIntSlice(values []any) ([]int32, error) {
	out := make([]int32, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case int32:
			out[i] = t
		case int:
			out[i] = int32(t)
		case int64:
			out[i] = int32(t)
		case float64:
			out[i] = int32(t)
		default:
			return nil, fmt.Errorf("tracked: cannot use %T as int element", v)
		}
	}
	return out, nil
}

func toFloatSlice(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case float64:
			out[i] = t
		case float32:
			out[i] = float64(t)
		case int32:
			out[i] = float64(t)
		case int:
			out[i] = float64(t)
		default:
			return nil, fmt.Errorf("tracked: cannot use %T as float element", v)
		}
	}
	return out, nil
}

func toStringSlice(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("tracked: cannot use %T as string element", v)
		}
		out[i] = s
	}
	return out, nil
}

// convertColumn implements Array.astype (spec.md §4.2): build a new column
// of the target kind with the same length/shape, converting every value. If
// src has a snapshot, dst is given an equivalent one — the converted
// baseline is written to every row and dst is reset, so writing the
// converted current values next takes dst's snapshot at that baseline and
// dst.Changed() reports the same rows as src.Changed() did. If src has no
// snapshot, dst is reset to the same snapshot-free state.
func convertColumn(src Column, k dtype.Kind) (Column, error) {
	n := src.Len()
	var dst Column
	switch k {
	case dtype.Bool:
		dst = NewBoolColumn(n, src.UnitShape())
	case dtype.Int:
		dst = NewIntColumn(n, src.UnitShape())
	case dtype.Float:
		dst = NewFloatColumn(n, src.UnitShape(), DefaultTolerance)
	case dtype.String:
		dst = NewStringColumn(n, src.UnitShape())
	default:
		return nil, fmt.Errorf("tracked: unknown target kind %v", k)
	}

	convertRow := func(vals []any) ([]any, error) {
		converted := make([]any, len(vals))
		for i, v := range vals {
			cv, err := convertScalar(v, k)
			if err != nil {
				return nil, err
			}
			converted[i] = cv
		}
		return converted, nil
	}

	hadSnapshot := src.HasSnapshot()
	if hadSnapshot {
		for row := 0; row < n; row++ {
			snapVals, err := convertRow(src.SnapshotRow(row))
			if err != nil {
				return nil, err
			}
			if err := dst.WriteRow(row, snapVals, true); err != nil {
				return nil, err
			}
		}
		dst.Reset()
	}
	for row := 0; row < n; row++ {
		curVals, err := convertRow(src.ReadRow(row))
		if err != nil {
			return nil, err
		}
		if err := dst.WriteRow(row, curVals, true); err != nil {
			return nil, err
		}
	}
	if !hadSnapshot {
		dst.Reset()
	}
	return dst, nil
}

// anySlice widens a typed slice to []any, shared by every Column's
// SnapshotRow/ReadRow implementation.
func anySlice[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func convertScalar(v any, k dtype.Kind) (any, error) {
	switch k {
	case dtype.Bool:
		switch t := v.(type) {
		case int8:
			return t != 0, nil
		case int32:
			return t != 0, nil
		case float64:
			return t != 0, nil
		case string:
			return t == "true", nil
		}
	case dtype.Int:
		switch t := v.(type) {
		case int8:
			return int32(t), nil
		case int32:
			return t, nil
		case float64:
			return int32(t), nil
		case string:
			iv, err := strconv.Atoi(t)
			if err != nil {
				return nil, err
			}
			return int32(iv), nil
		}
	case dtype.Float:
		switch t := v.(type) {
		case int8:
			return float64(t), nil
		case int32:
			return float64(t), nil
		case float64:
			return t, nil
		case string:
			return strconv.ParseFloat(t, 64)
		}
	case dtype.String:
		switch t := v.(type) {
		case int8:
			return strconv.Itoa(int(t)), nil
		case int32:
			return strconv.Itoa(int(t)), nil
		case float64:
			return strconv.FormatFloat(t, 'g', -1, 64), nil
		case string:
			return t, nil
		}
	}
	return nil, fmt.Errorf("tracked: cannot convert %T to %v", v, k)
}
