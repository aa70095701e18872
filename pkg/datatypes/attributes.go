// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the small shared data types exchanged between
// SDK packages.
package datatypes

// Attributes is a set of custom profile, device, or event attributes.
//
// Keys are unique attribute names; values are strings, numbers, booleans,
// or nested maps — anything JSON-serializable. Attributes are merged
// shallowly into outgoing payloads.
type Attributes map[string]any

// Merged returns a new Attributes with other merged shallowly over a.
// Neither input is modified. Keys in other win on conflict.
func (a Attributes) Merged(other Attributes) Attributes {
	out := make(Attributes, len(a)+len(other))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Copy returns a shallow copy of a. A nil receiver yields an empty,
// writable map.
func (a Attributes) Copy() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
