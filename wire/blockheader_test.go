// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
)

func buildBlockRecord(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(u32le(MainNetMarker))
	buf.Write(u32le(uint32(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

func TestDecodeBlockHeader(t *testing.T) {
	var header bytes.Buffer
	header.Write(u32le(1))             // version
	header.Write(make([]byte, 32))     // prev block
	header.Write(make([]byte, 32))     // merkle root
	header.Write(u32le(1231006505))    // timestamp
	header.Write(u32le(0x1d00ffff))    // bits
	header.Write(u32le(2083236893))    // nonce

	var payload bytes.Buffer
	payload.Write(header.Bytes())
	payload.WriteByte(1) // tx count varint
	payload.Write([]byte{0xde, 0xad, 0xbe, 0xef}) // stand-in tx bytes, never parsed eagerly

	record := buildBlockRecord(payload.Bytes())
	wantID := chainhash.DoubleHashH(header.Bytes())

	off := 0
	dh, err := DecodeBlockHeader(record, &off)
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	if dh.ID != wantID {
		t.Fatalf("block id mismatch")
	}
	if dh.TransactionCount != 1 {
		t.Fatalf("TransactionCount = %d, want 1", dh.TransactionCount)
	}
	if dh.NextOffset != int64(len(record)) {
		t.Fatalf("NextOffset = %d, want %d (decoder must skip past transactions without parsing them)", dh.NextOffset, len(record))
	}
	if off != int64ToInt(dh.FirstTxOffset) {
		// FirstTxOffset should equal the cursor position right after the
		// tx-count varint, i.e. where DecodeBlockHeader stopped.
		t.Fatalf("off = %d, FirstTxOffset = %d", off, dh.FirstTxOffset)
	}
}

func int64ToInt(v int64) int { return int(v) }
