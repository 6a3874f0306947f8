// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package codec implements the Update Codec (spec.md §4.10): conversion
// between the in-memory state.Update form and the two external payload
// shapes — JSON for on-disk initial datasets and human-debuggable
// updates, and a compact binary wire form for inter-process transport.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/nhr-fau/simcore/pkg/state"
)

// rowPtrKeys lists every accepted spelling of the CSR row-offset key on
// ingest; emit always uses "indptr" (spec.md §4.10).
var rowPtrKeys = []string{"indptr", "row_ptr", "ind_ptr"}

const emitRowPtrKey = "indptr"

// initialDatasetFile mirrors the on-disk initial dataset shape of
// spec.md §6.
type initialDatasetFile struct {
	Name    string                     `json:"name"`
	Type    string                     `json:"type"`
	General *generalSectionJSON        `json:"general"`
	Data    map[string]json.RawMessage `json:"data"`
}

type generalSectionJSON struct {
	Enum    map[string][]string `json:"enum"`
	Special map[string]any      `json:"special"`
}

// DecodeInitialDataset parses one initial dataset file into a
// state.Update containing a single dataset entry.
func DecodeInitialDataset(raw []byte) (string, state.Update, error) {
	var file initialDatasetFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return "", state.Update{}, fmt.Errorf("codec: decoding initial dataset: %w", err)
	}
	if file.Name == "" {
		return "", state.Update{}, fmt.Errorf("codec: initial dataset file has no \"name\"")
	}

	groups := make(map[string]state.GroupUpdate, len(file.Data))
	for groupName, raw := range file.Data {
		var flat map[string]json.RawMessage
		if err := json.Unmarshal(raw, &flat); err != nil {
			return "", state.Update{}, fmt.Errorf("codec: dataset %s group %s: %w", file.Name, groupName, err)
		}
		grUpdate, err := decodeGroup(flat)
		if err != nil {
			return "", state.Update{}, fmt.Errorf("codec: dataset %s group %s: %w", file.Name, groupName, err)
		}
		groups[groupName] = grUpdate
	}

	var general *state.GeneralSection
	if file.General != nil {
		general = &state.GeneralSection{Enum: file.General.Enum, Special: file.General.Special}
	}

	update := state.Update{Datasets: map[string]state.DatasetUpdate{
		file.Name: {General: general, Groups: groups},
	}}
	return file.Name, update, nil
}

// decodeGroup flattens one entity group's raw JSON fields into a
// GroupUpdate. A field is either:
//   - the "id" array,
//   - a flat attribute array (uniform or CSR list-of-lists), or
//   - a nested component object {"<component>": {"<attr>": [...]}}, which
//     is flattened into dotted "<component>.<attr>" column names.
func decodeGroup(flat map[string]json.RawMessage) (state.GroupUpdate, error) {
	var ids []int64
	columns := map[string][][]any{}

	for key, raw := range flat {
		if key == "id" {
			if err := json.Unmarshal(raw, &ids); err != nil {
				return state.GroupUpdate{}, fmt.Errorf("decoding id column: %w", err)
			}
			continue
		}

		rows, nested, err := decodeColumnField(raw)
		if err != nil {
			return state.GroupUpdate{}, fmt.Errorf("column %q: %w", key, err)
		}
		if rows != nil {
			columns[key] = rows
			continue
		}
		for attr, attrRows := range nested {
			columns[fmt.Sprintf("%s.%s", key, attr)] = attrRows
		}
	}

	if ids == nil {
		return state.GroupUpdate{}, fmt.Errorf("invalid data, no ids")
	}
	return state.GroupUpdate{IDs: ids, Columns: columns}, nil
}

// decodeColumnField interprets one column's raw JSON as one of:
//   - a plain array (on-disk initial-dataset form, possibly list-of-lists
//     for a CSR attribute) -> returns rows, nil
//   - a {"data": [...], "indptr"/"row_ptr"/"ind_ptr": [...]} wire-payload
//     form (§4.10) -> returns rows, nil
//   - a component map {"<attr>": <column>, ...} -> returns nil, a map of
//     attr name to decoded rows
func decodeColumnField(raw json.RawMessage) (rows [][]any, nested map[string][][]any, err error) {
	var asArray []any
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return decodeColumnValues(asArray), nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, nil, fmt.Errorf("neither an array, a {data,...} object, nor a component object: %w", err)
	}

	if dataRaw, ok := obj["data"]; ok {
		var flatData []any
		if err := json.Unmarshal(dataRaw, &flatData); err != nil {
			return nil, nil, fmt.Errorf("decoding data field: %w", err)
		}
		if ptrRaw, ok := rowPtrKeyIn(obj); ok {
			var offsets []int
			if err := json.Unmarshal(ptrRaw, &offsets); err != nil {
				return nil, nil, fmt.Errorf("decoding row-pointer field: %w", err)
			}
			return splitByOffsets(flatData, offsets), nil, nil
		}
		return decodeColumnValues(flatData), nil, nil
	}

	nested = make(map[string][][]any, len(obj))
	for attr, rawAttr := range obj {
		attrRows, attrNested, err := decodeColumnField(rawAttr)
		if err != nil {
			return nil, nil, fmt.Errorf("component attr %q: %w", attr, err)
		}
		if attrRows == nil {
			return nil, nil, fmt.Errorf("component attr %q: nested components more than one level deep are not supported", attr)
		}
		_ = attrNested
		nested[attr] = attrRows
	}
	return nil, nested, nil
}

func splitByOffsets(flat []any, offsets []int) [][]any {
	rows := make([][]any, len(offsets)-1)
	for i := 0; i < len(rows); i++ {
		rows[i] = flat[offsets[i]:offsets[i+1]]
	}
	return rows
}

// decodeColumnValues interprets one attribute's raw JSON array as either
// a uniform column (one scalar/tuple per row) or a CSR column (one
// sub-list per row); a null entry becomes one row holding a single nil
// placeholder, later substituted with the kind's undefined sentinel once
// the attribute's kind is known (pkg/state does this on Update, since
// decoding here happens before an attribute's kind may even be
// registered).
func decodeColumnValues(values []any) [][]any {
	rows := make([][]any, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case nil:
			rows[i] = []any{nil}
		case []any:
			if len(t) == 0 {
				rows[i] = []any{nil}
			} else {
				rows[i] = t
			}
		default:
			rows[i] = []any{t}
		}
	}
	return rows
}

// EncodeUpdate renders a state.Update for one dataset as the on-disk JSON
// initial-dataset shape, including a "general" section when
// dsUpdate.General is set.
func EncodeUpdate(datasetName, datasetType string, dsUpdate state.DatasetUpdate) ([]byte, error) {
	data := make(map[string]any, len(dsUpdate.Groups))
	for groupName, gr := range dsUpdate.Groups {
		group := map[string]any{"id": gr.IDs}
		for attr, rows := range gr.Columns {
			group[attr] = encodeRows(rows)
		}
		data[groupName] = group
	}

	file := map[string]any{
		"name": datasetName,
		"type": datasetType,
		"data": data,
	}
	if dsUpdate.General != nil {
		file["general"] = map[string]any{
			"enum":    dsUpdate.General.Enum,
			"special": dsUpdate.General.Special,
		}
	}
	return json.Marshal(file)
}

func encodeRows(rows [][]any) any {
	out := make([]any, len(rows))
	for i, row := range rows {
		if len(row) == 1 {
			out[i] = row[0]
		} else {
			out[i] = row
		}
	}
	return out
}

// rowPtrKeyIn reports whether flat carries any accepted row-pointer key
// and returns the value under whichever key matched.
func rowPtrKeyIn(flat map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, key := range rowPtrKeys {
		if v, ok := flat[key]; ok {
			return v, true
		}
	}
	return nil, false
}
