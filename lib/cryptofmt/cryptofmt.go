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

// Package cryptofmt computes the output prefix that identifies which key in
// a keyset produced a ciphertext or signature. The prefix is prepended to
// every non-raw output and matched byte-for-byte during decrypt/verify, so
// the functions here are the single source of truth for its layout.
package cryptofmt

import (
	"encoding/binary"

	"github.com/gravitational/trace"

	"github.com/keycove/keycove/api/types"
)

const (
	// NonRawPrefixSize is the size in bytes of every non-raw output prefix.
	NonRawPrefixSize = 5
	// TinkPrefixSize is the size in bytes of a Tink-family prefix.
	TinkPrefixSize = NonRawPrefixSize
	// LegacyPrefixSize is the size in bytes of a legacy-family prefix.
	LegacyPrefixSize = NonRawPrefixSize
	// RawPrefixSize is the size in bytes of a raw "prefix".
	RawPrefixSize = 0

	// TinkStartByte is the first byte of a Tink-family prefix.
	TinkStartByte = byte(0x01)
	// LegacyStartByte is the first byte of a legacy-family prefix.
	LegacyStartByte = byte(0x00)
	// CrunchyStartByte is the first byte of a Crunchy-family prefix.
	// It differs from LegacyStartByte so a prefix is never ambiguous
	// across families, even when key IDs collide.
	CrunchyStartByte = byte(0x02)

	// RawPrefix is the empty prefix of raw keys.
	RawPrefix = ""
)

// OutputPrefix returns the output prefix of the given key: empty for raw
// keys, otherwise a family start byte followed by the big-endian 32-bit key
// ID.
func OutputPrefix(key *types.Key) (string, error) {
	if key == nil {
		return "", trace.BadParameter("missing key")
	}
	switch key.PrefixType {
	case types.OutputPrefixTink:
		return prefix(TinkStartByte, key.ID), nil
	case types.OutputPrefixLegacy:
		return prefix(LegacyStartByte, key.ID), nil
	case types.OutputPrefixCrunchy:
		return prefix(CrunchyStartByte, key.ID), nil
	case types.OutputPrefixRaw:
		return RawPrefix, nil
	default:
		return "", trace.BadParameter("unknown output prefix type %q", key.PrefixType)
	}
}

func prefix(startByte byte, keyID uint32) string {
	var buf [NonRawPrefixSize]byte
	buf[0] = startByte
	binary.BigEndian.PutUint32(buf[1:], keyID)
	return string(buf[:])
}
