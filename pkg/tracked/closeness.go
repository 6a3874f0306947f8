// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tracked

import "math"

// Tolerance holds the rtol/atol pair used for float closeness comparisons,
// per spec.md §3: |a-b| <= atol + rtol*|b|, with NaN-vs-NaN treated as
// equal (both "undefined", not "changed").
type Tolerance struct {
	Rtol float64
	Atol float64
}

// DefaultTolerance matches common floating-point noise thresholds used
// throughout the corpus this module is grounded on.
var DefaultTolerance = Tolerance{Rtol: 1e-5, Atol: 1e-8}

// CloseFloat implements the closeness predicate described above.
func CloseFloat(a, b float64, tol Tolerance) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) <= tol.Atol+tol.Rtol*math.Abs(b)
}

// FloatEqual builds an EqualFunc[float64] bound to a fixed tolerance.
func FloatEqual(tol Tolerance) EqualFunc[float64] {
	return func(a, b float64) bool { return CloseFloat(a, b, tol) }
}

// ExactEqual builds an EqualFunc for any comparable type using ==: used for
// bool, int and string columns, where equality is exact (spec.md §3, §8.5).
func ExactEqual[T comparable]() EqualFunc[T] {
	return func(a, b T) bool { return a == b }
}
