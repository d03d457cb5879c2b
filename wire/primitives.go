// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the on-disk bitcoin block-file serialization:
// little-endian primitives and varints (§4.B), block headers and
// transactions, legacy and segwit, with dual TXID/WTXID computation
// (§4.D). Unlike the teacher's btcd-derived wire package, which decodes
// from an io.Reader for the peer-to-peer wire protocol, every decoder
// here works directly against an in-memory byte slice with an advancing
// int cursor — the slice is the one the byte reader (blkfile.Reader)
// handed back, borrowed from an mmap when possible, per spec.md §4.A.
package wire

import (
	"encoding/binary"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
)

// need verifies that n bytes remain in b starting at off.
func need(b []byte, off int, n int) er.R {
	if off < 0 || n < 0 || off+n > len(b) {
		return ErrTruncated.New("", nil)
	}
	return nil
}

// PullUint32LE reads a little-endian uint32 at *off and advances it.
func PullUint32LE(b []byte, off *int) (uint32, er.R) {
	if err := need(b, *off, 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

// PullUint64LE reads a little-endian uint64 at *off and advances it.
func PullUint64LE(b []byte, off *int) (uint64, er.R) {
	if err := need(b, *off, 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

// PullHash reads 32 raw bytes (no endianness swap) at *off and advances
// it, returning them as a chainhash.Hash in their on-disk (internal)
// byte order.
func PullHash(b []byte, off *int) (chainhash.Hash, er.R) {
	var h chainhash.Hash
	if err := need(b, *off, chainhash.HashSize); err != nil {
		return h, err
	}
	copy(h[:], b[*off:*off+chainhash.HashSize])
	*off += chainhash.HashSize
	return h, nil
}

// PullBytes reads n raw bytes at *off and advances it.  The returned
// slice aliases b; callers that need to retain it past the enclosing
// scratch arena's lifetime (§5) must copy it.
func PullBytes(b []byte, off *int, n int) ([]byte, er.R) {
	if err := need(b, *off, n); err != nil {
		return nil, err
	}
	out := b[*off : *off+n]
	*off += n
	return out, nil
}

// PullVarInt reads a bitcoin varint at *off and advances it past however
// many bytes the prefix indicated (1, 3, 5 or 9 total).
func PullVarInt(b []byte, off *int) (uint64, er.R) {
	if err := need(b, *off, 1); err != nil {
		return 0, err
	}
	b0 := b[*off]
	*off++
	switch {
	case b0 < 0xfd:
		return uint64(b0), nil
	case b0 == 0xfd:
		v, err := pullUintN(b, off, 2)
		return v, err
	case b0 == 0xfe:
		v, err := pullUintN(b, off, 4)
		return v, err
	default: // 0xff
		v, err := pullUintN(b, off, 8)
		return v, err
	}
}

func pullUintN(b []byte, off *int, n int) (uint64, er.R) {
	if err := need(b, *off, n); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(b[*off+i]) << (8 * uint(i))
	}
	*off += n
	return v, nil
}

// VarIntSerializeSize returns the number of bytes the canonical
// encoding of v occupies.
func VarIntSerializeSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// PutVarInt encodes v into b (which must have at least
// VarIntSerializeSize(v) bytes) and returns the number of bytes written.
// It is exercised by the varint roundtrip test; the block/UTXO cache
// writers use fixed-width fields and do not call it.
func PutVarInt(b []byte, v uint64) int {
	switch {
	case v < 0xfd:
		b[0] = byte(v)
		return 1
	case v <= 0xffff:
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:3], uint16(v))
		return 3
	case v <= 0xffffffff:
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:5], uint32(v))
		return 5
	default:
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:9], v)
		return 9
	}
}
