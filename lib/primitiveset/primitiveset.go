/*
Copyright 2024 Keycove, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package primitiveset indexes the primitive instances built from one keyset
// by their output prefix. A decrypting or verifying caller reads the prefix
// off the wire and asks the set for the candidate entries sharing it, instead
// of trying every key in the keyset; raw keys, which carry no prefix, are
// kept on a dedicated fallback path.
package primitiveset

import (
	"github.com/gravitational/trace"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/cryptofmt"
)

// Entry pairs one primitive instance with the metadata of the key it was
// built from. Entries are constructed once and never mutated.
type Entry[P any] struct {
	// Primitive is the usable primitive instance.
	Primitive P
	// Prefix is the key's output prefix; empty for raw keys.
	Prefix string
	// KeyID is the keyset-local ID of the source key.
	KeyID uint32
	// Status is the source key's status. Only enabled keys produce
	// entries.
	Status types.KeyStatus
}

// Set holds the entries built from one keyset, indexed by output prefix.
// A set is immutable after construction and safe to share across goroutines
// without copying. It holds no reference back to the registry that built it.
type Set[P any] struct {
	primary *Entry[P]
	// entries maps output prefix to the entries sharing it, in keyset
	// order. Raw entries live under the empty prefix. Prefix collisions
	// are possible and all colliding entries are retained.
	entries map[string][]*Entry[P]
}

// New builds a set from the keyset, resolving each enabled key's material
// into a primitive through resolve. Disabled and destroyed keys are skipped.
// Construction is all-or-nothing: the first resolution failure aborts it,
// and a keyset whose designated primary key is absent or not enabled fails
// with BadParameter.
func New[P any](ks *types.Keyset, resolve func(*types.KeyData) (P, error)) (*Set[P], error) {
	if ks == nil {
		return nil, trace.BadParameter("missing keyset")
	}
	set := &Set[P]{
		entries: make(map[string][]*Entry[P]),
	}
	for _, key := range ks.Keys {
		if key == nil || key.Status != types.KeyStatusEnabled {
			continue
		}
		primitive, err := resolve(key.Data)
		if err != nil {
			return nil, trace.Wrap(err, "building primitive for key %d", key.ID)
		}
		prefix, err := cryptofmt.OutputPrefix(key)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		entry := &Entry[P]{
			Primitive: primitive,
			Prefix:    prefix,
			KeyID:     key.ID,
			Status:    key.Status,
		}
		set.entries[prefix] = append(set.entries[prefix], entry)
		if key.ID == ks.PrimaryKeyID {
			set.primary = entry
		}
	}
	if set.primary == nil {
		return nil, trace.BadParameter(
			"keyset has no enabled key with primary ID %d", ks.PrimaryKeyID)
	}
	return set, nil
}

// Primary returns the entry built from the keyset's primary key. It is
// always non-nil on a constructed set.
func (s *Set[P]) Primary() *Entry[P] {
	return s.primary
}

// RawEntries returns the entries of raw keys in keyset order. The returned
// slice is owned by the set and must not be modified.
func (s *Set[P]) RawEntries() []*Entry[P] {
	return s.entries[cryptofmt.RawPrefix]
}

// EntriesForPrefix returns all entries whose output prefix matches prefix
// exactly, in keyset order, or NotFound if there are none. The empty prefix
// selects raw entries. The returned slice is owned by the set and must not
// be modified.
func (s *Set[P]) EntriesForPrefix(prefix string) ([]*Entry[P], error) {
	entries, ok := s.entries[prefix]
	if !ok {
		return nil, trace.NotFound("no entries for prefix %q", prefix)
	}
	return entries, nil
}
