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

// Package keyset provides an in-memory handle over a validated keyset and a
// manager for evolving one: rotating in freshly minted keys, toggling key
// statuses and promoting primaries. Parsing and writing keyset encodings is
// a concern of the surrounding system, not of this package.
package keyset

import (
	"github.com/gravitational/trace"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/primitiveset"
	"github.com/keycove/keycove/lib/registry"
)

// Handle wraps a keyset that has passed validation. Code holding a Handle
// can rely on the keyset being non-empty with an enabled primary key.
type Handle struct {
	ks *types.Keyset
}

// NewHandle validates ks and wraps it. The keyset must not be mutated by the
// caller afterwards.
func NewHandle(ks *types.Keyset) (*Handle, error) {
	if err := types.ValidateKeyset(ks); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Handle{ks: ks}, nil
}

// Keyset returns the wrapped keyset. It is shared, not copied, and must be
// treated as read-only.
func (h *Handle) Keyset() *types.Keyset {
	return h.ks
}

// Primitives resolves the handle's keyset into a primitive set using the
// managers registered with r.
func Primitives[P any](h *Handle, r *registry.Registry) (*primitiveset.Set[P], error) {
	return registry.GetPrimitives[P](r, h.ks, nil)
}

// PrimitivesWithKeyManager resolves the handle's keyset into a primitive
// set, constructing every primitive through km instead of registered
// managers.
func PrimitivesWithKeyManager[P any](h *Handle, km registry.KeyManager) (*primitiveset.Set[P], error) {
	if km == nil {
		return nil, trace.BadParameter("missing key manager")
	}
	return registry.GetPrimitives[P](registry.Default(), h.ks, km)
}

func copyKeyset(ks *types.Keyset) *types.Keyset {
	out := &types.Keyset{
		PrimaryKeyID: ks.PrimaryKeyID,
		Keys:         make([]*types.Key, 0, len(ks.Keys)),
	}
	for _, key := range ks.Keys {
		keyCopy := *key
		if key.Data != nil {
			dataCopy := *key.Data
			dataCopy.Value = append([]byte(nil), key.Data.Value...)
			keyCopy.Data = &dataCopy
		}
		out.Keys = append(out.Keys, &keyCopy)
	}
	return out
}
