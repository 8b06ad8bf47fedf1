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

// Package registry binds key type identifiers to the key managers that
// handle them. Collaborator packages register their managers and catalogues
// during initialization, from any goroutine and in any order; application
// code then resolves key material into primitive instances through the same
// registry.
//
// Registration is append-and-tighten only. A key type, once bound to an
// implementation, can never be rebound to a different one, and its
// new-key-allowed policy can be tightened but never relaxed. This holds for
// the whole process lifetime regardless of registration order.
package registry

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/gravitational/trace"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/primitiveset"
)

// ComponentKey is the slog attribute key identifying library components.
const ComponentKey = "component"

// Config holds registry configuration.
type Config struct {
	// Logger is the logger the registry emits debug events to.
	Logger *slog.Logger
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Logger == nil {
		c.Logger = slog.With(ComponentKey, "keycove:registry")
	}
	return nil
}

// managerEntry is one registered key manager. kind pins the concrete
// implementation type so a later registration under the same type URL can be
// told apart from an attempt to swap in different cryptographic logic.
type managerEntry struct {
	manager       KeyManager
	primitiveType reflect.Type
	kind          reflect.Type
	newKeyAllowed bool
}

type catalogueEntry struct {
	catalogue     Catalogue
	primitiveType reflect.Type
	kind          reflect.Type
}

// Registry is the process-wide table of key managers and catalogues. All
// methods are safe for concurrent use. The zero value is not usable; create
// instances with New or use Default.
type Registry struct {
	logger *slog.Logger

	// mu guards the two maps below. Critical sections are pure in-memory
	// map operations; collaborator code is never invoked under mu.
	mu         sync.RWMutex
	managers   map[string]managerEntry
	catalogues map[string]catalogueEntry
}

// New returns an empty registry.
func New(cfg Config) (*Registry, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Registry{
		logger:     cfg.Logger,
		managers:   make(map[string]managerEntry),
		catalogues: make(map[string]catalogueEntry),
	}, nil
}

var defaultRegistry = func() *Registry {
	r, err := New(Config{})
	if err != nil {
		panic(err)
	}
	return r
}()

// Default returns the process-wide registry shared by all packages that do
// not inject their own instance.
func Default() *Registry {
	return defaultRegistry
}

// RegisterKeyManager registers the given key manager with the process-wide
// registry, allowing new key generation for its key type.
func RegisterKeyManager(km KeyManager) error {
	return Default().RegisterKeyManager(km, true)
}

// AddCatalogue adds the given catalogue to the process-wide registry under
// the given name.
func AddCatalogue(name string, c Catalogue) error {
	return Default().AddCatalogue(name, c)
}

// RegisterKeyManager registers km for its key type. newKeyAllowed controls
// whether NewKeyData may mint keys of that type.
//
// Re-registering the same implementation kind is allowed as long as
// newKeyAllowed does not become more permissive: repeating the stored value
// is a no-op and tightening (true to false) sticks, but relaxing fails with
// an AlreadyExists error. Registering a different implementation kind under
// an already-bound type URL always fails with AlreadyExists.
func (r *Registry) RegisterKeyManager(km KeyManager, newKeyAllowed bool) error {
	if km == nil {
		return trace.BadParameter("missing key manager")
	}
	// Collaborator calls happen before the lock is taken.
	entry := managerEntry{
		manager:       km,
		primitiveType: km.PrimitiveType(),
		kind:          reflect.TypeOf(km),
		newKeyAllowed: newKeyAllowed,
	}
	typeURL := km.TypeURL()

	r.mu.Lock()
	existing, ok := r.managers[typeURL]
	if !ok {
		r.managers[typeURL] = entry
		r.mu.Unlock()
		r.logger.Debug("Registered key manager.",
			"type_url", typeURL, "new_key_allowed", newKeyAllowed)
		return nil
	}
	if existing.kind != entry.kind {
		r.mu.Unlock()
		return trace.AlreadyExists(
			"a different key manager is already registered for type %v", typeURL)
	}
	if !existing.newKeyAllowed && newKeyAllowed {
		r.mu.Unlock()
		return trace.AlreadyExists(
			"key manager for type %v is already registered with forbidden new key operation, which cannot be re-enabled", typeURL)
	}
	existing.newKeyAllowed = newKeyAllowed
	r.managers[typeURL] = existing
	r.mu.Unlock()
	return nil
}

// AddCatalogue adds c under the given name. Re-adding a catalogue of the
// same implementation kind is a no-op; adding a different kind under a taken
// name fails with AlreadyExists.
func (r *Registry) AddCatalogue(name string, c Catalogue) error {
	if c == nil {
		return trace.BadParameter("missing catalogue")
	}
	entry := catalogueEntry{
		catalogue:     c,
		primitiveType: c.PrimitiveType(),
		kind:          reflect.TypeOf(c),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.catalogues[name]
	if !ok {
		r.catalogues[name] = entry
		return nil
	}
	if existing.kind != entry.kind {
		return trace.AlreadyExists(
			"a different catalogue is already registered under name %v", name)
	}
	return nil
}

func (r *Registry) managerFor(typeURL string) (managerEntry, error) {
	r.mu.RLock()
	entry, ok := r.managers[typeURL]
	r.mu.RUnlock()
	if !ok {
		return managerEntry{}, trace.NotFound(
			"no key manager registered for type %v", typeURL)
	}
	return entry, nil
}

// NewKeyData mints new key material for the template's key type by
// delegating to the registered manager's key factory. It fails with NotFound
// for an unregistered type URL and with BadParameter when the type's
// new-key-allowed policy forbids generation.
func (r *Registry) NewKeyData(template *types.KeyTemplate) (*types.KeyData, error) {
	if template == nil {
		return nil, trace.BadParameter("missing key template")
	}
	entry, err := r.managerFor(template.TypeURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if !entry.newKeyAllowed {
		return nil, trace.BadParameter(
			"key type %v does not allow generation of new keys", template.TypeURL)
	}
	// The factory runs outside the registry lock.
	keyData, err := entry.manager.KeyFactory().NewKeyData(template.Value)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return keyData, nil
}

// PrimitiveFromKeyData constructs a primitive instance from the given key
// material using the manager registered for its type URL. Manager failures
// are propagated unchanged.
func (r *Registry) PrimitiveFromKeyData(keyData *types.KeyData) (any, error) {
	if keyData == nil {
		return nil, trace.BadParameter("missing key data")
	}
	entry, err := r.managerFor(keyData.TypeURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	primitive, err := entry.manager.Primitive(keyData)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return primitive, nil
}

// GetKeyManager returns the key manager registered for typeURL, checking
// that it produces primitives of type P. A type URL bound to a manager
// producing a different primitive fails with BadParameter rather than being
// handed to the caller for an unchecked assertion.
func GetKeyManager[P any](r *Registry, typeURL string) (KeyManager, error) {
	entry, err := r.managerFor(typeURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	want := reflect.TypeOf((*P)(nil)).Elem()
	if entry.primitiveType != want {
		return nil, trace.BadParameter(
			"key manager for type %v produces %v, not %v",
			typeURL, entry.primitiveType, want)
	}
	return entry.manager, nil
}

// GetCatalogue returns the catalogue registered under name, checking that
// its managers produce primitives of type P.
func GetCatalogue[P any](r *Registry, name string) (Catalogue, error) {
	r.mu.RLock()
	entry, ok := r.catalogues[name]
	r.mu.RUnlock()
	if !ok {
		return nil, trace.NotFound("no catalogue registered under name %v", name)
	}
	want := reflect.TypeOf((*P)(nil)).Elem()
	if entry.primitiveType != want {
		return nil, trace.BadParameter(
			"catalogue %v produces %v, not %v", name, entry.primitiveType, want)
	}
	return entry.catalogue, nil
}

// GetPrimitive constructs a primitive of type P from the given key material
// using the manager registered for its type URL.
func GetPrimitive[P any](r *Registry, keyData *types.KeyData) (P, error) {
	var zero P
	if keyData == nil {
		return zero, trace.BadParameter("missing key data")
	}
	km, err := GetKeyManager[P](r, keyData.TypeURL)
	if err != nil {
		return zero, trace.Wrap(err)
	}
	return primitiveAs[P](km, keyData)
}

func primitiveAs[P any](km KeyManager, keyData *types.KeyData) (P, error) {
	var zero P
	primitive, err := km.Primitive(keyData)
	if err != nil {
		return zero, trace.Wrap(err)
	}
	typed, ok := primitive.(P)
	if !ok {
		return zero, trace.BadParameter(
			"key manager for type %v produced %T, not %v",
			keyData.TypeURL, primitive, reflect.TypeOf((*P)(nil)).Elem())
	}
	return typed, nil
}

// GetPrimitives builds a primitive set over every enabled key in the
// keyset. When custom is non-nil every key resolves through it instead of
// the registry, letting a caller override registered behavior for one call
// without touching global state. Construction is all-or-nothing: any per-key
// failure fails the whole call and no partial set is returned.
func GetPrimitives[P any](r *Registry, ks *types.Keyset, custom KeyManager) (*primitiveset.Set[P], error) {
	if err := types.ValidateKeyset(ks); err != nil {
		return nil, trace.Wrap(err)
	}
	resolve := func(keyData *types.KeyData) (P, error) {
		if custom != nil {
			return primitiveAs[P](custom, keyData)
		}
		return GetPrimitive[P](r, keyData)
	}
	set, err := primitiveset.New(ks, resolve)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return set, nil
}
