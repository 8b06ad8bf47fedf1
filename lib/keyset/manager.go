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

package keyset

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"

	"github.com/gravitational/trace"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/registry"
)

// ManagerConfig holds keyset manager configuration.
type ManagerConfig struct {
	// Registry mints key material for rotation. Defaults to the
	// process-wide registry.
	Registry *registry.Registry
	// Logger is the logger rotation events are emitted to.
	Logger *slog.Logger
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *ManagerConfig) CheckAndSetDefaults() error {
	if c.Registry == nil {
		c.Registry = registry.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.With(registry.ComponentKey, "keycove:keyset")
	}
	return nil
}

// Manager evolves a private copy of a keyset: it rotates in newly minted
// keys, toggles statuses and promotes primaries, handing out validated
// snapshots through Handle. A Manager is not safe for concurrent use.
type Manager struct {
	cfg ManagerConfig
	ks  *types.Keyset
}

// NewManager returns a manager over an empty keyset. The first Rotate call
// installs the initial primary key.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Manager{cfg: cfg, ks: &types.Keyset{}}, nil
}

// NewManagerFromHandle returns a manager seeded with a copy of the handle's
// keyset. The handle's own keyset is never mutated.
func NewManagerFromHandle(h *Handle, cfg ManagerConfig) (*Manager, error) {
	if h == nil {
		return nil, trace.BadParameter("missing keyset handle")
	}
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Manager{cfg: cfg, ks: copyKeyset(h.Keyset())}, nil
}

// Rotate mints a new key from the template, adds it enabled, and makes it
// the primary. It returns the new key's ID.
func (m *Manager) Rotate(template *types.KeyTemplate) (uint32, error) {
	id, err := m.Add(template)
	if err != nil {
		return 0, trace.Wrap(err)
	}
	m.ks.PrimaryKeyID = id
	m.cfg.Logger.Debug("Rotated keyset.",
		"type_url", template.TypeURL, "primary_key_id", id)
	return id, nil
}

// Add mints a new key from the template and adds it enabled, without
// changing the primary. It returns the new key's ID.
func (m *Manager) Add(template *types.KeyTemplate) (uint32, error) {
	if template == nil {
		return 0, trace.BadParameter("missing key template")
	}
	if err := template.PrefixType.Check(); err != nil {
		return 0, trace.Wrap(err)
	}
	keyData, err := m.cfg.Registry.NewKeyData(template)
	if err != nil {
		return 0, trace.Wrap(err)
	}
	id, err := m.newKeyID()
	if err != nil {
		return 0, trace.Wrap(err)
	}
	m.ks.Keys = append(m.ks.Keys, &types.Key{
		ID:         id,
		Status:     types.KeyStatusEnabled,
		PrefixType: template.PrefixType,
		Data:       keyData,
	})
	return id, nil
}

// SetPrimary promotes the key with the given ID to primary. The key must
// exist and be enabled.
func (m *Manager) SetPrimary(id uint32) error {
	key := m.ks.Key(id)
	if key == nil {
		return trace.NotFound("keyset has no key with ID %d", id)
	}
	if key.Status != types.KeyStatusEnabled {
		return trace.BadParameter("cannot set key %d as primary: key is %v", id, key.Status)
	}
	m.ks.PrimaryKeyID = id
	return nil
}

// Enable re-enables a disabled key. Destroyed keys cannot be enabled: their
// key material is gone.
func (m *Manager) Enable(id uint32) error {
	key := m.ks.Key(id)
	if key == nil {
		return trace.NotFound("keyset has no key with ID %d", id)
	}
	if key.Status == types.KeyStatusDestroyed {
		return trace.BadParameter("cannot enable destroyed key %d", id)
	}
	key.Status = types.KeyStatusEnabled
	return nil
}

// Disable takes a key out of use while retaining its material. The primary
// key cannot be disabled; promote another key first.
func (m *Manager) Disable(id uint32) error {
	key := m.ks.Key(id)
	if key == nil {
		return trace.NotFound("keyset has no key with ID %d", id)
	}
	if id == m.ks.PrimaryKeyID {
		return trace.BadParameter("cannot disable primary key %d", id)
	}
	key.Status = types.KeyStatusDisabled
	return nil
}

// Destroy removes a key's material, leaving a tombstone entry. The primary
// key cannot be destroyed.
func (m *Manager) Destroy(id uint32) error {
	key := m.ks.Key(id)
	if key == nil {
		return trace.NotFound("keyset has no key with ID %d", id)
	}
	if id == m.ks.PrimaryKeyID {
		return trace.BadParameter("cannot destroy primary key %d", id)
	}
	key.Status = types.KeyStatusDestroyed
	key.Data = nil
	return nil
}

// Handle returns a validated snapshot of the managed keyset. Later Manager
// mutations do not affect snapshots already handed out.
func (m *Manager) Handle() (*Handle, error) {
	return NewHandle(copyKeyset(m.ks))
}

// newKeyID draws a random non-zero key ID not already used in the keyset.
func (m *Manager) newKeyID() (uint32, error) {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, trace.Wrap(err)
		}
		id := binary.BigEndian.Uint32(buf[:])
		if id != 0 && m.ks.Key(id) == nil {
			return id, nil
		}
	}
}
