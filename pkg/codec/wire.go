// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nhr-fau/simcore/pkg/dtype"
)

// wireEncodeVersion is the only version this codec understands; an
// unknown version on decode is a hard error (spec.md §6).
const wireEncodeVersion = 1

// WireArray is the decoded form of one {dtype, shape, data} wire array:
// a column plus its declared per-entity shape.
type WireArray struct {
	Kind  dtype.Kind
	Shape []int
	Data  []any
}

// EncodeWireArray serializes one column to the compact binary wire form
// used for inter-process transport, written little-endian with
// binary.Write: a small self-describing header ({version, dtype, shape})
// followed by an element count and the elements themselves, strings
// length-prefixed.
func EncodeWireArray(a WireArray) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(wireEncodeVersion)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint8(a.Kind)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(a.Shape))); err != nil {
		return nil, err
	}
	for _, d := range a.Shape {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(d)); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(a.Data))); err != nil {
		return nil, err
	}
	for _, v := range a.Data {
		if err := encodeScalar(&buf, a.Kind, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeWireArray is the inverse of EncodeWireArray. An unrecognized
// version raises rather than attempting a best-effort decode.
func DecodeWireArray(raw []byte) (WireArray, error) {
	r := bytes.NewReader(raw)

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return WireArray{}, fmt.Errorf("codec: reading wire array version: %w", err)
	}
	if version != wireEncodeVersion {
		return WireArray{}, fmt.Errorf("codec: unknown wire array version %d (only %d is supported)", version, wireEncodeVersion)
	}

	var kindByte uint8
	if err := binary.Read(r, binary.LittleEndian, &kindByte); err != nil {
		return WireArray{}, fmt.Errorf("codec: reading wire array dtype: %w", err)
	}
	kind := dtype.Kind(kindByte)

	var ndim uint32
	if err := binary.Read(r, binary.LittleEndian, &ndim); err != nil {
		return WireArray{}, fmt.Errorf("codec: reading wire array shape length: %w", err)
	}
	shape := make([]int, ndim)
	for i := range shape {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return WireArray{}, fmt.Errorf("codec: reading wire array shape: %w", err)
		}
		shape[i] = int(d)
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return WireArray{}, fmt.Errorf("codec: reading wire array element count: %w", err)
	}
	data := make([]any, n)
	for i := range data {
		v, err := decodeScalar(r, kind)
		if err != nil {
			return WireArray{}, fmt.Errorf("codec: reading wire array element %d: %w", i, err)
		}
		data[i] = v
	}

	return WireArray{Kind: kind, Shape: shape, Data: data}, nil
}

func encodeScalar(buf *bytes.Buffer, kind dtype.Kind, v any) error {
	switch kind {
	case dtype.Bool:
		b, _ := v.(int8)
		return binary.Write(buf, binary.LittleEndian, b)
	case dtype.Int:
		i, _ := v.(int32)
		return binary.Write(buf, binary.LittleEndian, i)
	case dtype.Float:
		f, _ := v.(float64)
		return binary.Write(buf, binary.LittleEndian, math.Float64bits(f))
	case dtype.String:
		s, _ := v.(string)
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		_, err := buf.WriteString(s)
		return err
	default:
		return fmt.Errorf("codec: unknown kind %v", kind)
	}
}

func decodeScalar(r *bytes.Reader, kind dtype.Kind) (any, error) {
	switch kind {
	case dtype.Bool:
		var b int8
		err := binary.Read(r, binary.LittleEndian, &b)
		return b, err
	case dtype.Int:
		var i int32
		err := binary.Read(r, binary.LittleEndian, &i)
		return i, err
	case dtype.Float:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		return math.Float64frombits(bits), nil
	case dtype.String:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return nil, fmt.Errorf("codec: unknown kind %v", kind)
	}
}
