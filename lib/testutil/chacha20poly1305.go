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

package testutil

import (
	"crypto/cipher"
	"crypto/rand"
	"reflect"

	"github.com/gravitational/trace"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/registry"
)

// ChaCha20Poly1305TypeURL is the key type handled by
// ChaCha20Poly1305KeyManager.
const ChaCha20Poly1305TypeURL = "type.keycove.dev/ChaCha20Poly1305Key"

// ChaCha20Poly1305KeyManager is a real AEAD key manager used by end-to-end
// tests: key material is a raw 32-byte ChaCha20-Poly1305 key, and outputs
// are nonce-prefixed seals.
type ChaCha20Poly1305KeyManager struct{}

// Primitive builds an AEAD from a raw 32-byte key.
func (m *ChaCha20Poly1305KeyManager) Primitive(keyData *types.KeyData) (any, error) {
	if keyData == nil {
		return nil, trace.BadParameter("missing key data")
	}
	aead, err := chacha20poly1305.New(keyData.Value)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &noncePrefixedAEAD{aead: aead}, nil
}

// DoesSupport reports whether typeURL is the ChaCha20-Poly1305 key type.
func (m *ChaCha20Poly1305KeyManager) DoesSupport(typeURL string) bool {
	return typeURL == ChaCha20Poly1305TypeURL
}

// TypeURL returns the ChaCha20-Poly1305 key type.
func (m *ChaCha20Poly1305KeyManager) TypeURL() string {
	return ChaCha20Poly1305TypeURL
}

// Version returns 0.
func (m *ChaCha20Poly1305KeyManager) Version() uint32 {
	return 0
}

// PrimitiveType returns the AEAD interface type.
func (m *ChaCha20Poly1305KeyManager) PrimitiveType() reflect.Type {
	return reflect.TypeOf((*AEAD)(nil)).Elem()
}

// KeyFactory returns a factory minting fresh random 32-byte keys. The key
// format is ignored: the key type has no parameters.
func (m *ChaCha20Poly1305KeyManager) KeyFactory() registry.KeyFactory {
	return chaChaKeyFactory{}
}

type chaChaKeyFactory struct{}

func (chaChaKeyFactory) NewKey(serializedFormat []byte) (any, error) {
	return nil, trace.NotImplemented("ChaCha20-Poly1305 keys have no key message form")
}

func (chaChaKeyFactory) NewKeyData(serializedFormat []byte) (*types.KeyData, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, trace.Wrap(err)
	}
	return &types.KeyData{
		TypeURL:      ChaCha20Poly1305TypeURL,
		Value:        key,
		MaterialType: types.KeyMaterialSymmetric,
	}, nil
}

type noncePrefixedAEAD struct {
	aead cipher.AEAD
}

func (c *noncePrefixedAEAD) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, trace.Wrap(err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

func (c *noncePrefixedAEAD) Decrypt(ciphertext, associatedData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, trace.BadParameter("ciphertext too short")
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, associatedData)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return plaintext, nil
}
