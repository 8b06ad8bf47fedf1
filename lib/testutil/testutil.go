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

// Package testutil provides key manager doubles and keyset builders shared
// by tests across the library.
package testutil

import (
	"bytes"
	"reflect"

	"github.com/gravitational/trace"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/registry"
)

// AEAD is the primitive interface produced by the test key managers.
type AEAD interface {
	// Encrypt encrypts plaintext binding associatedData to the ciphertext.
	Encrypt(plaintext, associatedData []byte) ([]byte, error)
	// Decrypt reverses Encrypt with the same associatedData.
	Decrypt(ciphertext, associatedData []byte) ([]byte, error)
}

// DummyAEAD "encrypts" by appending its name to the plaintext, making test
// assertions on which key produced an output trivial.
type DummyAEAD struct {
	Name string
}

// Encrypt appends the dummy's name to the plaintext.
func (d *DummyAEAD) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	return append(append([]byte(nil), plaintext...), []byte(d.Name)...), nil
}

// Decrypt strips the dummy's name off the ciphertext.
func (d *DummyAEAD) Decrypt(ciphertext, associatedData []byte) ([]byte, error) {
	if !bytes.HasSuffix(ciphertext, []byte(d.Name)) {
		return nil, trace.BadParameter("ciphertext was not produced by %q", d.Name)
	}
	return ciphertext[:len(ciphertext)-len(d.Name)], nil
}

// KeyFactory is a key factory double: NewKeyData echoes the serialized key
// format back as key material of the factory's key type, so round-trip
// fidelity can be asserted byte for byte.
type KeyFactory struct {
	keyType string
}

// NewKey is not supported by the double.
func (f *KeyFactory) NewKey(serializedFormat []byte) (any, error) {
	return nil, trace.NotImplemented("test key factory does not build key messages")
}

// NewKeyData returns key data of the factory's key type whose value is the
// serialized key format, unmodified.
func (f *KeyFactory) NewKeyData(serializedFormat []byte) (*types.KeyData, error) {
	return &types.KeyData{
		TypeURL:      f.keyType,
		Value:        append([]byte(nil), serializedFormat...),
		MaterialType: types.KeyMaterialSymmetric,
	}, nil
}

// KeyManager is a key manager double producing DummyAEAD primitives named
// after its key type.
type KeyManager struct {
	keyType string
	factory *KeyFactory
}

// NewKeyManager returns a key manager double for the given key type.
func NewKeyManager(keyType string) *KeyManager {
	return &KeyManager{
		keyType: keyType,
		factory: &KeyFactory{keyType: keyType},
	}
}

// Primitive returns a DummyAEAD named after the manager's key type.
func (m *KeyManager) Primitive(keyData *types.KeyData) (any, error) {
	if keyData == nil {
		return nil, trace.BadParameter("missing key data")
	}
	return &DummyAEAD{Name: m.keyType}, nil
}

// DoesSupport reports whether typeURL is the manager's key type.
func (m *KeyManager) DoesSupport(typeURL string) bool {
	return typeURL == m.keyType
}

// TypeURL returns the manager's key type.
func (m *KeyManager) TypeURL() string {
	return m.keyType
}

// Version returns 0.
func (m *KeyManager) Version() uint32 {
	return 0
}

// PrimitiveType returns the AEAD interface type.
func (m *KeyManager) PrimitiveType() reflect.Type {
	return reflect.TypeOf((*AEAD)(nil)).Elem()
}

// KeyFactory returns the manager's echo factory.
func (m *KeyManager) KeyFactory() registry.KeyFactory {
	return m.factory
}

// Catalogue is a catalogue double that declines every lookup.
type Catalogue struct{}

// GetKeyManager always fails with NotImplemented.
func (c *Catalogue) GetKeyManager(typeURL, primitiveName string, minVersion uint32) (registry.KeyManager, error) {
	return nil, trace.NotImplemented("this is a test catalogue")
}

// PrimitiveType returns the AEAD interface type.
func (c *Catalogue) PrimitiveType() reflect.Type {
	return reflect.TypeOf((*AEAD)(nil)).Elem()
}

// AddTinkKey appends an enabled-or-otherwise key with a Tink output prefix.
func AddTinkKey(ks *types.Keyset, typeURL string, keyID uint32, status types.KeyStatus, value []byte) {
	addKey(ks, typeURL, keyID, status, types.OutputPrefixTink, value)
}

// AddLegacyKey appends a key with a legacy output prefix.
func AddLegacyKey(ks *types.Keyset, typeURL string, keyID uint32, status types.KeyStatus, value []byte) {
	addKey(ks, typeURL, keyID, status, types.OutputPrefixLegacy, value)
}

// AddCrunchyKey appends a key with a Crunchy output prefix.
func AddCrunchyKey(ks *types.Keyset, typeURL string, keyID uint32, status types.KeyStatus, value []byte) {
	addKey(ks, typeURL, keyID, status, types.OutputPrefixCrunchy, value)
}

// AddRawKey appends a key with no output prefix.
func AddRawKey(ks *types.Keyset, typeURL string, keyID uint32, status types.KeyStatus, value []byte) {
	addKey(ks, typeURL, keyID, status, types.OutputPrefixRaw, value)
}

func addKey(ks *types.Keyset, typeURL string, keyID uint32, status types.KeyStatus, prefixType types.OutputPrefixType, value []byte) {
	ks.Keys = append(ks.Keys, &types.Key{
		ID:         keyID,
		Status:     status,
		PrefixType: prefixType,
		Data: &types.KeyData{
			TypeURL:      typeURL,
			Value:        value,
			MaterialType: types.KeyMaterialSymmetric,
		},
	})
}
