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

// Package types defines the keyset data model consumed by the key-management
// core: key data, keys, keysets and key templates. The core treats all of it
// as immutable once read.
package types

import (
	"github.com/gravitational/trace"
)

// KeyStatus describes whether a key in a keyset may be used.
type KeyStatus string

const (
	// KeyStatusEnabled marks a key as usable.
	KeyStatusEnabled KeyStatus = "enabled"
	// KeyStatusDisabled marks a key as temporarily unusable. Its key
	// material is retained so the key can be enabled again.
	KeyStatusDisabled KeyStatus = "disabled"
	// KeyStatusDestroyed marks a key whose key material has been removed.
	KeyStatusDestroyed KeyStatus = "destroyed"
)

// KeyStatuses lists all key statuses.
var KeyStatuses = []KeyStatus{KeyStatusEnabled, KeyStatusDisabled, KeyStatusDestroyed}

// Check validates the key status value.
func (s KeyStatus) Check() error {
	for _, status := range KeyStatuses {
		if s == status {
			return nil
		}
	}
	return trace.BadParameter("%q is not a valid key status", s)
}

// OutputPrefixType selects the framing prepended to ciphertexts and
// signatures produced by a key, identifying which key produced them.
type OutputPrefixType string

const (
	// OutputPrefixTink prepends a 5-byte Tink-family prefix.
	OutputPrefixTink OutputPrefixType = "tink"
	// OutputPrefixLegacy prepends a 5-byte legacy-family prefix.
	OutputPrefixLegacy OutputPrefixType = "legacy"
	// OutputPrefixCrunchy prepends a 5-byte Crunchy-family prefix.
	OutputPrefixCrunchy OutputPrefixType = "crunchy"
	// OutputPrefixRaw prepends nothing; the output carries no key hint.
	OutputPrefixRaw OutputPrefixType = "raw"
)

// OutputPrefixTypes lists all output prefix types.
var OutputPrefixTypes = []OutputPrefixType{
	OutputPrefixTink,
	OutputPrefixLegacy,
	OutputPrefixCrunchy,
	OutputPrefixRaw,
}

// Check validates the output prefix type value.
func (t OutputPrefixType) Check() error {
	for _, prefixType := range OutputPrefixTypes {
		if t == prefixType {
			return nil
		}
	}
	return trace.BadParameter("%q is not a valid output prefix type", t)
}

// KeyMaterialType describes the sensitivity class of key material.
type KeyMaterialType string

const (
	// KeyMaterialSymmetric is secret symmetric key material.
	KeyMaterialSymmetric KeyMaterialType = "symmetric"
	// KeyMaterialAsymmetricPrivate is a secret private key.
	KeyMaterialAsymmetricPrivate KeyMaterialType = "asymmetric_private"
	// KeyMaterialAsymmetricPublic is a shareable public key.
	KeyMaterialAsymmetricPublic KeyMaterialType = "asymmetric_public"
	// KeyMaterialRemote is a reference to key material held elsewhere,
	// for example in an external KMS.
	KeyMaterialRemote KeyMaterialType = "remote"
)

// KeyData holds serialized key material together with the key type
// identifier naming its format. The core never parses Value; it hands it to
// the key manager registered for TypeURL.
type KeyData struct {
	// TypeURL is the key type identifier, an opaque string naming the key
	// format, e.g. "type.keycove.dev/ChaCha20Poly1305Key".
	TypeURL string
	// Value is the serialized key material.
	Value []byte
	// MaterialType classifies the key material.
	MaterialType KeyMaterialType
}

// Check validates the key data.
func (d *KeyData) Check() error {
	if d == nil {
		return trace.BadParameter("missing key data")
	}
	if d.TypeURL == "" {
		return trace.BadParameter("key data has empty type URL")
	}
	return nil
}

// KeyTemplate describes how to generate new key material: the key type to
// mint plus a serialized, type-specific key format understood by that key
// type's factory.
type KeyTemplate struct {
	// TypeURL is the key type identifier of the key to generate.
	TypeURL string
	// Value is the serialized key format passed to the key factory.
	Value []byte
	// PrefixType is the output prefix type assigned to generated keys.
	PrefixType OutputPrefixType
}

// Key is a single key within a keyset.
type Key struct {
	// ID identifies this key within its keyset.
	ID uint32
	// Status tells whether the key may be used.
	Status KeyStatus
	// PrefixType selects the output framing of this key.
	PrefixType OutputPrefixType
	// Data is the key material. Destroyed keys have no data.
	Data *KeyData
}

// Check validates the key.
func (k *Key) Check() error {
	if k == nil {
		return trace.BadParameter("missing key")
	}
	if err := k.Status.Check(); err != nil {
		return trace.Wrap(err)
	}
	if err := k.PrefixType.Check(); err != nil {
		return trace.Wrap(err)
	}
	if k.Status != KeyStatusDestroyed {
		if err := k.Data.Check(); err != nil {
			return trace.Wrap(err)
		}
	}
	return nil
}

// Keyset is an ordered collection of keys with one designated primary key.
// New encrypt/sign operations use the primary; the remaining enabled keys
// stay available to decrypt/verify older outputs.
type Keyset struct {
	// PrimaryKeyID is the ID of the designated primary key.
	PrimaryKeyID uint32
	// Keys are the member keys, in order.
	Keys []*Key
}

// Key returns the member key with the given ID, or nil if absent.
func (ks *Keyset) Key(id uint32) *Key {
	if ks == nil {
		return nil
	}
	for _, key := range ks.Keys {
		if key != nil && key.ID == id {
			return key
		}
	}
	return nil
}

// Primary returns the designated primary key, or nil if absent.
func (ks *Keyset) Primary() *Key {
	if ks == nil {
		return nil
	}
	return ks.Key(ks.PrimaryKeyID)
}

// ValidateKeyset checks that a keyset is well formed: non-empty, every key
// valid, and the designated primary key present and enabled.
func ValidateKeyset(ks *Keyset) error {
	if ks == nil || len(ks.Keys) == 0 {
		return trace.BadParameter("empty keyset")
	}
	for i, key := range ks.Keys {
		if err := key.Check(); err != nil {
			return trace.Wrap(err, "invalid key at index %d", i)
		}
	}
	primary := ks.Primary()
	if primary == nil {
		return trace.BadParameter("keyset has no key with primary ID %d", ks.PrimaryKeyID)
	}
	if primary.Status != KeyStatusEnabled {
		return trace.BadParameter("primary key %d is not enabled", ks.PrimaryKeyID)
	}
	return nil
}
