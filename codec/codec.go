// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec encodes the rows the ledger persists. Each row is a
// two-byte big-endian version prefix followed by a JSON body, so the
// on-disk format can evolve without a table rewrite.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/luxfi/election/utils/wrappers"
)

// CodecVersion tags the wire layout of a persisted row.
type CodecVersion uint16

const (
	// CurrentVersion is the only version this codec writes.
	CurrentVersion CodecVersion = 0

	versionLen = 2
)

// Codec is the shared row codec.
var Codec = &RowCodec{}

// RowCodec implements version-prefixed JSON encoding.
type RowCodec struct{}

// Marshal encodes v under the given version.
func (c *RowCodec) Marshal(version CodecVersion, v interface{}) ([]byte, error) {
	if version != CurrentVersion {
		return nil, fmt.Errorf("codec: unsupported version: %d", version)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	p := wrappers.NewPacker(versionLen + len(body))
	p.PackShort(uint16(version))
	p.PackBytes(body)
	return p.Bytes, p.Err
}

// Unmarshal decodes a row into v and reports the version it was written
// under. A row too short to carry the version prefix, or carrying a
// version this codec does not know, is an error.
func (c *RowCodec) Unmarshal(data []byte, v interface{}) (CodecVersion, error) {
	if len(data) < versionLen {
		return 0, fmt.Errorf("codec: row too short: %d bytes", len(data))
	}
	version := CodecVersion(binary.BigEndian.Uint16(data))
	if version != CurrentVersion {
		return version, fmt.Errorf("codec: unsupported version: %d", version)
	}
	return version, json.Unmarshal(data[versionLen:], v)
}
