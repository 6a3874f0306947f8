// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tracked

import "errors"

// ErrShrink is returned by Resize when asked to shrink a column: columns
// are grow-only (spec.md §4.5).
var ErrShrink = errors.New("tracked: resize cannot shrink a column")

// ErrRowLength is returned when a CSR update supplies a row whose length
// does not match what the caller asserted.
var ErrRowLength = errors.New("tracked: row length mismatch")

// ErrNotRagged is returned by AsMatrix when rows have unequal lengths.
var ErrNotRagged = errors.New("tracked: rows have unequal length, cannot densify")
