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

package types

import (
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func validKey(id uint32, status KeyStatus) *Key {
	return &Key{
		ID:         id,
		Status:     status,
		PrefixType: OutputPrefixTink,
		Data: &KeyData{
			TypeURL:      "some.key.type/Key",
			Value:        []byte("material"),
			MaterialType: KeyMaterialSymmetric,
		},
	}
}

func TestValidateKeyset(t *testing.T) {
	tests := []struct {
		name      string
		ks        *Keyset
		assertErr require.ErrorAssertionFunc
	}{
		{
			name:      "nil keyset",
			ks:        nil,
			assertErr: requireBadParameter,
		},
		{
			name:      "empty keyset",
			ks:        &Keyset{PrimaryKeyID: 1},
			assertErr: requireBadParameter,
		},
		{
			name: "valid single key",
			ks: &Keyset{
				PrimaryKeyID: 1,
				Keys:         []*Key{validKey(1, KeyStatusEnabled)},
			},
			assertErr: require.NoError,
		},
		{
			name: "primary absent",
			ks: &Keyset{
				PrimaryKeyID: 2,
				Keys:         []*Key{validKey(1, KeyStatusEnabled)},
			},
			assertErr: requireBadParameter,
		},
		{
			name: "primary disabled",
			ks: &Keyset{
				PrimaryKeyID: 1,
				Keys: []*Key{
					validKey(1, KeyStatusDisabled),
					validKey(2, KeyStatusEnabled),
				},
			},
			assertErr: requireBadParameter,
		},
		{
			name: "destroyed member without data is fine",
			ks: &Keyset{
				PrimaryKeyID: 2,
				Keys: []*Key{
					{ID: 1, Status: KeyStatusDestroyed, PrefixType: OutputPrefixTink},
					validKey(2, KeyStatusEnabled),
				},
			},
			assertErr: require.NoError,
		},
		{
			name: "live member without data",
			ks: &Keyset{
				PrimaryKeyID: 1,
				Keys: []*Key{
					validKey(1, KeyStatusEnabled),
					{ID: 2, Status: KeyStatusDisabled, PrefixType: OutputPrefixTink},
				},
			},
			assertErr: requireBadParameter,
		},
		{
			name: "bad status",
			ks: &Keyset{
				PrimaryKeyID: 1,
				Keys: []*Key{
					{ID: 1, Status: "frozen", PrefixType: OutputPrefixTink, Data: &KeyData{TypeURL: "t"}},
				},
			},
			assertErr: requireBadParameter,
		},
		{
			name: "bad prefix type",
			ks: &Keyset{
				PrimaryKeyID: 1,
				Keys: []*Key{
					{ID: 1, Status: KeyStatusEnabled, PrefixType: "classic", Data: &KeyData{TypeURL: "t"}},
				},
			},
			assertErr: requireBadParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertErr(t, ValidateKeyset(tt.ks))
		})
	}
}

func TestKeysetLookup(t *testing.T) {
	ks := &Keyset{
		PrimaryKeyID: 2,
		Keys: []*Key{
			validKey(1, KeyStatusEnabled),
			validKey(2, KeyStatusEnabled),
		},
	}
	require.Equal(t, uint32(1), ks.Key(1).ID)
	require.Nil(t, ks.Key(3))
	require.Equal(t, uint32(2), ks.Primary().ID)

	var nilKS *Keyset
	require.Nil(t, nilKS.Key(1))
	require.Nil(t, nilKS.Primary())
}

func requireBadParameter(t require.TestingT, err error, msgAndArgs ...any) {
	require.True(t, trace.IsBadParameter(err), "expected BadParameter, got %v", err)
}
