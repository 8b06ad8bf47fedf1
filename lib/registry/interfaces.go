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

package registry

import (
	"reflect"

	"github.com/keycove/keycove/api/types"
)

// KeyManager converts key material of one key type into usable primitive
// instances. Implementations live outside this package; the registry only
// calls them. A key manager must be safe for concurrent use and must outlive
// every registry operation referencing it.
type KeyManager interface {
	// Primitive constructs a primitive instance from serialized key
	// material of the supported key type.
	Primitive(keyData *types.KeyData) (any, error)

	// DoesSupport reports whether the manager handles the given key type.
	DoesSupport(typeURL string) bool

	// TypeURL returns the key type identifier the manager handles. The
	// value must be stable for the lifetime of the process.
	TypeURL() string

	// Version returns the manager's version. Keys generated by a manager
	// carry its version so newer managers can keep handling them.
	Version() uint32

	// PrimitiveType returns the type of the primitive interface the
	// manager produces, e.g. reflect.TypeFor[tink.AEAD](). The registry
	// records it at registration time and checks it on typed lookups, so
	// a signing manager can never be confused with an encryption manager
	// sharing a type URL.
	PrimitiveType() reflect.Type

	// KeyFactory returns the factory generating new keys of the
	// supported key type.
	KeyFactory() KeyFactory
}

// KeyFactory generates new key material from a serialized, type-specific key
// format. A factory that forbids generation need not check: the registry
// enforces the prohibition before the factory is ever called.
type KeyFactory interface {
	// NewKey generates a new key message from the serialized key format.
	NewKey(serializedFormat []byte) (any, error)

	// NewKeyData generates new serialized key material from the
	// serialized key format.
	NewKeyData(serializedFormat []byte) (*types.KeyData, error)
}

// Catalogue resolves version-appropriate key managers by (type URL,
// primitive name, minimum version). Catalogues are registered under a name,
// independently of the registry's own key manager table, and are consulted
// by configuration bootstrap code rather than by primitive construction.
type Catalogue interface {
	// GetKeyManager returns a key manager for the given key type with at
	// least the given version, producing the named primitive.
	GetKeyManager(typeURL, primitiveName string, minVersion uint32) (KeyManager, error)

	// PrimitiveType returns the type of the primitive interface the
	// catalogue's managers produce.
	PrimitiveType() reflect.Type
}
