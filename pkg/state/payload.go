// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package state

// Update is the in-memory form of one wire update: a general section plus
// per-dataset entity-group columns. pkg/codec converts this to and from
// the on-disk/wire payload shapes.
type Update struct {
	Datasets map[string]DatasetUpdate
}

// DatasetUpdate holds one dataset's general section and its entity groups.
type DatasetUpdate struct {
	General *GeneralSection
	Groups  map[string]GroupUpdate
}

// GroupUpdate is one entity group's worth of an update: the id column plus
// every other attribute column present in the payload. Column values are
// row-major: Columns[name][i] is the value(s) for row i — length 1 for a
// uniform scalar attribute's row, RowWidth() for a fixed-shape row, and
// variable length for a ragged (CSR) row.
type GroupUpdate struct {
	IDs     []int64
	Columns map[string][][]any
}

// GeneralSection is the side-channel dataset-level metadata consumed ahead
// of entity-group data: enum label tables and special-value bindings.
type GeneralSection struct {
	// Enum maps an enum name to its ordered list of string labels.
	Enum map[string][]string
	// Special maps "<group>.<attr>" to the sentinel value configured for
	// that attribute.
	Special map[string]any
}

// DataMask is the get_data_mask() result: which attributes of which group
// of which dataset a role (pub/sub) touches.
type DataMask struct {
	Pub map[string]map[string][]string
	Sub map[string]map[string][]string
}
