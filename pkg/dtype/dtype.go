// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dtype classifies the semantic type of an attribute column: its
// element kind, its per-entity shape beyond the row axis, and whether it is
// ragged (CSR) or uniform. Every element kind has a fixed sentinel
// "undefined" value so that absence-of-data can travel through the whole
// pipeline without a separate validity bitmap.
package dtype

import "math"

// Kind is the element type of a column.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "str"
	default:
		return "unknown"
	}
}

// Storage widths are fixed, per spec.md §3: bool->int8, int->int32,
// float->float64, str->variable-width UTF-8 buckets (see StorageWidth;
// each string column tracks its own bucket in pkg/tracked).
const (
	boolWidth = 1
	intWidth  = 4
	floatWidth = 8
)

// StorageWidth returns the fixed byte width used when constructing fresh
// arrays of this kind. For String it returns the current bucket width,
// which may grow at runtime (see the tracked package's width promotion).
func (k Kind) StorageWidth(stringBucket int) int {
	switch k {
	case Bool:
		return boolWidth
	case Int:
		return intWidth
	case Float:
		return floatWidth
	case String:
		return stringBucket
	default:
		return 0
	}
}

// UndefinedBool, UndefinedInt, UndefinedFloat, UndefinedString are the fixed
// per-kind sentinels: the minimum representable value of the storage width
// for bool/int, NaN for float, and the literal "_udf_" for strings.
const (
	UndefinedBool   int8    = math.MinInt8
	UndefinedInt    int32   = math.MinInt32
	UndefinedString string  = "_udf_"
)

// UndefinedFloat returns NaN. It is a function (not a const) because Go has
// no constant NaN.
func UndefinedFloat() float64 {
	return math.NaN()
}

// Undefined returns the sentinel "undefined" value for k, boxed as any.
func (k Kind) Undefined() any {
	switch k {
	case Bool:
		return UndefinedBool
	case Int:
		return UndefinedInt
	case Float:
		return UndefinedFloat()
	case String:
		return UndefinedString
	default:
		return nil
	}
}

// IsUndefinedBool, IsUndefinedInt, IsUndefinedFloat, IsUndefinedString test a
// scalar against the sentinel for its kind. Float comparison is NaN-aware:
// NaN-vs-NaN is treated as undefined-vs-undefined, matching IEEE-754's own
// "NaN is never equal to NaN" being deliberately overridden here.
func IsUndefinedBool(v int8) bool     { return v == UndefinedBool }
func IsUndefinedInt(v int32) bool     { return v == UndefinedInt }
func IsUndefinedFloat(v float64) bool { return math.IsNaN(v) }
func IsUndefinedString(v string) bool { return v == UndefinedString }

// IsUndefined is the any-typed dispatch used by code that only knows the
// Kind at runtime (e.g. the update codec).
func (k Kind) IsUndefined(v any) bool {
	switch k {
	case Bool:
		b, ok := v.(int8)
		return ok && IsUndefinedBool(b)
	case Int:
		i, ok := v.(int32)
		return ok && IsUndefinedInt(i)
	case Float:
		f, ok := v.(float64)
		return ok && IsUndefinedFloat(f)
	case String:
		s, ok := v.(string)
		return ok && IsUndefinedString(s)
	default:
		return false
	}
}

// DataType is the immutable triple described in spec.md §3: element kind,
// unit shape (per-entity dimensions beyond the row axis), and raggedness.
type DataType struct {
	Kind      Kind
	UnitShape []int
	Ragged    bool
}

// RowWidth returns the product of UnitShape, i.e. how many scalar elements
// make up one row for a uniform (non-ragged) column. A nil/empty UnitShape
// means one scalar per row.
func (dt DataType) RowWidth() int {
	w := 1
	for _, d := range dt.UnitShape {
		w *= d
	}
	return w
}

// Equal reports whether two DataTypes describe the same storage shape.
func (dt DataType) Equal(other DataType) bool {
	if dt.Kind != other.Kind || dt.Ragged != other.Ragged {
		return false
	}
	if len(dt.UnitShape) != len(other.UnitShape) {
		return false
	}
	for i := range dt.UnitShape {
		if dt.UnitShape[i] != other.UnitShape[i] {
			return false
		}
	}
	return true
}
