// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package attribute

// Flags is a bitmask over an attribute's role in the update lifecycle.
type Flags uint8

const (
	Initialize Flags = 1 << iota
	Subscribe
	Required
	Publish
)

// Composite roles (spec.md §3): the four ways a model declares interest in
// an attribute.
const (
	Init = Subscribe | Initialize | Required // required at init time
	Sub  = Subscribe | Required              // required at first update time
	Opt  = Subscribe                         // subscribed but tolerant of absence
	Pub  = Publish                           // produced by this attribute's owner
)

// Has reports whether all bits of other are set in f.
func (f Flags) Has(other Flags) bool { return f&other == other }

// Intersects reports whether f and other share any bit.
func (f Flags) Intersects(other Flags) bool { return f&other != 0 }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var out string
	add := func(bit Flags, name string) {
		if f&bit != 0 {
			if out != "" {
				out += "|"
			}
			out += name
		}
	}
	add(Initialize, "INITIALIZE")
	add(Subscribe, "SUBSCRIBE")
	add(Required, "REQUIRED")
	add(Publish, "PUBLISH")
	return out
}
