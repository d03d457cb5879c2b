// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte hash type used throughout this
// repository for block ids, TXIDs and WTXIDs, following the btcsuite
// convention the teacher's (now-missing-from-the-retrieval-pack)
// chaincfg/chainhash package establishes: a hash is stored in internal
// (little-endian, as produced by SHA-256) byte order and displayed
// reversed, matching how block explorers print it.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/nelsontodd/bitcoin-iterate/er"
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// Hash is a 32-byte double-SHA256 digest, stored in internal byte order.
type Hash [HashSize]byte

var HashErrorType = er.NewErrorType("chainhash.HashErrorType")
var ErrHashStrSize = HashErrorType.CodeWithDetail("ErrHashStrSize", "max hash string length is "+itoa(HashSize*2))

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, matching the usual human-displayed block/tx id order.
func (h Hash) String() string {
	var reversed Hash
	for i := 0; i < HashSize/2; i++ {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a newly allocated copy of the raw (internal order)
// bytes of the hash.
func (h *Hash) CloneBytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// SetBytes sets the hash to the raw (internal order) bytes in b.
func (h *Hash) SetBytes(b []byte) er.R {
	if len(b) != HashSize {
		return er.Errorf("invalid hash length: got %d, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return nil
}

// IsEqual reports whether h and target are the same hash, treating a nil
// target as the zero hash (used for the genesis prev-hash check, §3).
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil {
		return target == nil
	}
	if target == nil {
		return *h == Hash{}
	}
	return *h == *target
}

// NewHash returns a Hash copied from the raw (internal order) bytes b.
func NewHash(b []byte) (*Hash, er.R) {
	var h Hash
	if err := h.SetBytes(b); err != nil {
		return nil, err
	}
	return &h, nil
}

// NewHashFromStr decodes a reversed-byte-order hex string (the form a
// user types or a block explorer displays) into internal-order bytes.
func NewHashFromStr(s string) (*Hash, er.R) {
	if len(s) > HashSize*2 {
		return nil, ErrHashStrSize.New("", nil)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, er.E(err)
	}
	var h Hash
	for i, b := range decoded {
		h[len(decoded)-1-i] = b
	}
	return &h, nil
}

// DoubleHashH computes double-SHA256(b) and returns it as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

// DoubleHashB computes double-SHA256(b) and returns the raw bytes.
func DoubleHashB(b []byte) []byte {
	h := DoubleHashH(b)
	return h[:]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
