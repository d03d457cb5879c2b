// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
)

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildLegacyTx returns the original (pre-segwit) serialization of a
// single-input, single-output transaction: version | inputs | outputs |
// locktime, with empty scripts throughout.
func buildLegacyTx(amount uint64) []byte {
	var buf bytes.Buffer
	buf.Write(u32le(1))       // version
	buf.WriteByte(1)          // input count
	buf.Write(make([]byte, 32)) // prev txid, all zero
	buf.Write(u32le(0xffffffff)) // prev index
	buf.WriteByte(0)          // script length
	buf.Write(u32le(0xffffffff)) // sequence
	buf.WriteByte(1)          // output count
	buf.Write(u64le(amount))
	buf.WriteByte(0) // script length
	buf.Write(u32le(0))
	return buf.Bytes()
}

func TestDecodeTxNonSegwit(t *testing.T) {
	raw := buildLegacyTx(5000000000)
	want := chainhash.DoubleHashH(raw)

	off := 0
	tx, err := DecodeTx(raw, &off)
	if err != nil {
		t.Fatalf("DecodeTx: %v", err)
	}
	if tx.IsSegWit {
		t.Fatalf("expected non-segwit")
	}
	if tx.Txid != want {
		t.Fatalf("txid mismatch")
	}
	if tx.Wtxid != tx.Txid {
		t.Fatalf("wtxid must equal txid for a non-segwit tx")
	}
	if tx.TotalLen != len(raw) || tx.NonSegWitLen != len(raw) {
		t.Fatalf("total_len/non_segwit_len must both equal the full length for non-segwit")
	}
	if off != len(raw) {
		t.Fatalf("offset after decode = %d, want %d", off, len(raw))
	}
}

// buildSegwitTx returns a segwit on-disk serialization (with marker/flag
// and a two-item witness stack on its single input) plus the original
// (pre-segwit) serialization it should TXID-hash to.
func buildSegwitTx(amount uint64) (onDisk []byte, original []byte) {
	var orig bytes.Buffer
	orig.Write(u32le(1))
	orig.WriteByte(1)
	orig.Write(make([]byte, 32))
	orig.Write(u32le(0xffffffff))
	orig.WriteByte(0)
	orig.Write(u32le(0xffffffff))
	orig.WriteByte(1)
	orig.Write(u64le(amount))
	orig.WriteByte(0)
	orig.Write(u32le(0)) // locktime
	original = orig.Bytes()

	var disk bytes.Buffer
	disk.Write(u32le(1)) // version
	disk.WriteByte(0)    // marker
	disk.WriteByte(1)    // flag
	disk.WriteByte(1)    // input count
	disk.Write(make([]byte, 32))
	disk.Write(u32le(0xffffffff))
	disk.WriteByte(0)
	disk.Write(u32le(0xffffffff))
	disk.WriteByte(1) // output count
	disk.Write(u64le(amount))
	disk.WriteByte(0)
	// witness: 2 stack items for the single input
	disk.WriteByte(2)
	disk.WriteByte(3)
	disk.Write([]byte{0xaa, 0xbb, 0xcc})
	disk.WriteByte(2)
	disk.Write([]byte{0xdd, 0xee})
	disk.Write(u32le(0)) // locktime
	onDisk = disk.Bytes()
	return onDisk, original
}

func TestDecodeTxSegwit(t *testing.T) {
	onDisk, original := buildSegwitTx(123456789)
	wantTxid := chainhash.DoubleHashH(original)
	wantWtxid := chainhash.DoubleHashH(onDisk)

	off := 0
	tx, err := DecodeTx(onDisk, &off)
	if err != nil {
		t.Fatalf("DecodeTx: %v", err)
	}
	if !tx.IsSegWit {
		t.Fatalf("expected segwit")
	}
	if tx.Txid != wantTxid {
		t.Fatalf("txid must match the non-segwit serialization digest")
	}
	if tx.Wtxid != wantWtxid {
		t.Fatalf("wtxid must match the full on-disk digest")
	}
	if tx.Txid == tx.Wtxid {
		t.Fatalf("txid and wtxid must differ for a segwit tx with witness data")
	}
	if tx.TotalLen != len(onDisk) {
		t.Fatalf("total_len = %d, want %d", tx.TotalLen, len(onDisk))
	}
	if tx.NonSegWitLen != len(original) {
		t.Fatalf("non_segwit_len = %d, want %d", tx.NonSegWitLen, len(original))
	}
	if tx.NonSegWitLen >= tx.TotalLen {
		t.Fatalf("non_segwit_len must be strictly less than total_len when witness data is present")
	}
	if off != len(onDisk) {
		t.Fatalf("offset after decode = %d, want %d", off, len(onDisk))
	}

	if got := tx.Weight(); got != 3*tx.NonSegWitLen+tx.TotalLen {
		t.Fatalf("Weight() = %d", got)
	}
}

func TestDecodeTxBadSegwitFlag(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u32le(1))
	buf.WriteByte(0) // marker
	buf.WriteByte(2) // bad flag, must be 1
	off := 0
	if _, err := DecodeTx(buf.Bytes(), &off); err == nil {
		t.Fatalf("expected ErrBadSegwitFlag")
	}
}
