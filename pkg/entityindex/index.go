// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package entityindex implements the bijective external-ID to internal
// row-position map shared by every attribute of an entity group.
//
// IDs are stored as a sorted run of contiguous blocks: {first, last, row}.
// A block covers the ID range [first, last] mapped to consecutive rows
// starting at row. Fully contiguous ID sets collapse to a single block;
// lookup is a binary search over block.first, O(log B) where B is the
// number of blocks rather than the number of IDs.
package entityindex

import (
	"fmt"
	"sort"
)

type block struct {
	first int64
	last  int64
	row   int
}

func (b block) contains(id int64) bool { return id >= b.first && id <= b.last }

// Index is the stable external-ID <-> row-position map of one entity group.
type Index struct {
	blocks []block
	byID   map[int64]int
}

// NewIndex builds an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[int64]int)}
}

// NewIndexFromIDs builds an index from a flat, not-necessarily-sorted ID
// array, assigning row i to ids[i]. Duplicate IDs are rejected.
func NewIndexFromIDs(ids []int64) (*Index, error) {
	idx := NewIndex()
	if err := idx.AddIDs(ids); err != nil {
		return nil, err
	}
	return idx, nil
}

// Len returns the number of registered IDs.
func (idx *Index) Len() int { return len(idx.byID) }

// AllIDs returns the IDs in row order.
func (idx *Index) AllIDs() []int64 {
	out := make([]int64, idx.Len())
	for _, b := range idx.blocks {
		row := b.row
		for id := b.first; id <= b.last; id++ {
			out[row] = id
			row++
		}
	}
	return out
}

// AddIDs appends ids to the index, assigning them consecutive new rows in
// the order given. Any id already present, or repeated within ids itself,
// is a "duplicate IDs" error naming the offending values.
func (idx *Index) AddIDs(ids []int64) error {
	var dups []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := idx.byID[id]; ok || seen[id] {
			dups = append(dups, id)
			continue
		}
		seen[id] = true
	}
	if len(dups) > 0 {
		return fmt.Errorf("entityindex: duplicate IDs: %v", dups)
	}

	row := idx.Len()
	for _, id := range ids {
		idx.byID[id] = row
		idx.insertBlock(id, row)
		row++
	}
	return nil
}

// SetIDs asserts that ids, in order, equal the IDs already occupying rows
// [0, len(ids)) — used when re-applying an initial dataset that must match
// a previously registered ID set. If the index is empty, it behaves like
// AddIDs.
func (idx *Index) SetIDs(ids []int64) error {
	if idx.Len() == 0 {
		return idx.AddIDs(ids)
	}
	if len(ids) != idx.Len() {
		return fmt.Errorf("entityindex: set_ids length %d does not match existing index length %d", len(ids), idx.Len())
	}
	existing := idx.AllIDs()
	for i, id := range ids {
		if existing[i] != id {
			return fmt.Errorf("entityindex: set_ids id %d at row %d does not match existing id %d", id, i, existing[i])
		}
	}
	return nil
}

// insertBlock extends the trailing block if id and row both continue it
// contiguously, else opens a new one and keeps the block list sorted by first. Only the
// trailing block is checked because AddIDs assigns rows in append order;
// Query falls back to the exact map for any id a non-trailing merge would
// have covered, so correctness never depends on this fast path.
func (idx *Index) insertBlock(id int64, row int) {
	if n := len(idx.blocks); n > 0 {
		last := &idx.blocks[n-1]
		if last.last+1 == id && last.row+int(last.last-last.first)+1 == row {
			last.last = id
			return
		}
	}
	idx.blocks = append(idx.blocks, block{first: id, last: id, row: row})
	sort.Slice(idx.blocks, func(i, j int) bool { return idx.blocks[i].first < idx.blocks[j].first })
}

// Query returns the row position of id, or -1 if not present.
func (idx *Index) Query(id int64) int {
	i := sort.Search(len(idx.blocks), func(i int) bool { return idx.blocks[i].first > id })
	if i == 0 {
		return idx.queryFallback(id)
	}
	b := idx.blocks[i-1]
	if b.contains(id) {
		return b.row + int(id-b.first)
	}
	return idx.queryFallback(id)
}

// queryFallback handles the case where blocks were merged out of id order
// (AddIDs does not require the input to be sorted): fall back to the exact
// map, which is always authoritative.
func (idx *Index) queryFallback(id int64) int {
	if row, ok := idx.byID[id]; ok {
		return row
	}
	return -1
}

// QueryMany is the vectorized form of Query. If raiseOnInvalid is set, any
// −1 lookup escalates into a single "not found" error reporting every id
// that failed.
func (idx *Index) QueryMany(ids []int64, raiseOnInvalid bool) ([]int, error) {
	out := make([]int, len(ids))
	var missing []int64
	for i, id := range ids {
		row := idx.Query(id)
		out[i] = row
		if row < 0 {
			missing = append(missing, id)
		}
	}
	if raiseOnInvalid && len(missing) > 0 {
		return out, fmt.Errorf("entityindex: IDs not found: %v", missing)
	}
	return out, nil
}

// BlockCount reports the number of contiguous blocks backing the index,
// exposed for diagnostics and tests (B in the O(log B) lookup bound).
func (idx *Index) BlockCount() int { return len(idx.blocks) }
