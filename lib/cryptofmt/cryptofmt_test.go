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

package cryptofmt_test

import (
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/keycove/keycove/api/types"
	"github.com/keycove/keycove/lib/cryptofmt"
)

func TestOutputPrefix(t *testing.T) {
	tests := []struct {
		name       string
		prefixType types.OutputPrefixType
		keyID      uint32
		want       string
	}{
		{
			name:       "tink",
			prefixType: types.OutputPrefixTink,
			keyID:      0x01020304,
			want:       string([]byte{0x01, 0x01, 0x02, 0x03, 0x04}),
		},
		{
			name:       "legacy",
			prefixType: types.OutputPrefixLegacy,
			keyID:      0x01020304,
			want:       string([]byte{0x00, 0x01, 0x02, 0x03, 0x04}),
		},
		{
			name:       "crunchy",
			prefixType: types.OutputPrefixCrunchy,
			keyID:      0x01020304,
			want:       string([]byte{0x02, 0x01, 0x02, 0x03, 0x04}),
		},
		{
			name:       "raw",
			prefixType: types.OutputPrefixRaw,
			keyID:      0x01020304,
			want:       "",
		},
		{
			name:       "key id zero",
			prefixType: types.OutputPrefixTink,
			keyID:      0,
			want:       string([]byte{0x01, 0x00, 0x00, 0x00, 0x00}),
		},
		{
			name:       "max key id",
			prefixType: types.OutputPrefixCrunchy,
			keyID:      0xffffffff,
			want:       string([]byte{0x02, 0xff, 0xff, 0xff, 0xff}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cryptofmt.OutputPrefix(&types.Key{
				ID:         tt.keyID,
				Status:     types.KeyStatusEnabled,
				PrefixType: tt.prefixType,
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			if tt.prefixType != types.OutputPrefixRaw {
				require.Len(t, got, cryptofmt.NonRawPrefixSize)
			}
		})
	}
}

// Prefixes of different families never collide, even for equal key IDs.
func TestOutputPrefixFamiliesDisjoint(t *testing.T) {
	keyID := uint32(0xdeadbeef)
	seen := map[string]types.OutputPrefixType{}
	for _, prefixType := range []types.OutputPrefixType{
		types.OutputPrefixTink,
		types.OutputPrefixLegacy,
		types.OutputPrefixCrunchy,
	} {
		prefix, err := cryptofmt.OutputPrefix(&types.Key{ID: keyID, PrefixType: prefixType})
		require.NoError(t, err)
		other, ok := seen[prefix]
		require.False(t, ok, "prefix of %v collides with %v", prefixType, other)
		seen[prefix] = prefixType
	}
}

func TestOutputPrefixErrors(t *testing.T) {
	_, err := cryptofmt.OutputPrefix(nil)
	require.True(t, trace.IsBadParameter(err), "expected BadParameter, got %v", err)

	_, err = cryptofmt.OutputPrefix(&types.Key{ID: 1, PrefixType: "bogus"})
	require.True(t, trace.IsBadParameter(err), "expected BadParameter, got %v", err)
	require.ErrorContains(t, err, "bogus")
}
