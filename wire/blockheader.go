// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
)

// Mainnet and testnet3 network markers (§4.C, §6). These are the
// 4-byte magic values that precede every record in a blk*.dat file.
const (
	MainNetMarker  uint32 = 0xd9b4bef9
	TestNet3Marker uint32 = 0x0709110b
)

// BlockHeaderLen is the fixed wire size of a block header, version
// through nonce (§3).
const BlockHeaderLen = 80

// BlockHeader is the 80-byte block header (§3).
type BlockHeader struct {
	Version    uint32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// DecodedHeader is the result of decoding the network-marker-prefixed
// on-disk block record header (marker, payload length, 80-byte header,
// and tx count varint), per §4.D.
type DecodedHeader struct {
	Marker          uint32
	PayloadLength   uint32
	Header          BlockHeader
	ID              chainhash.Hash
	TransactionCount uint64
	// FirstTxOffset is the offset of the first transaction within the
	// slice passed to DecodeBlockHeader, i.e. the offset immediately
	// after the tx-count varint.
	FirstTxOffset int64
	// NextOffset is blockStart + 8 + PayloadLength, the offset of the
	// next record's marker — computed without parsing any
	// transactions (§4.D: "the decoder skips straight past the
	// transactions").
	NextOffset int64
}

// DecodeBlockHeader decodes a block record's header at *off (which must
// point at the 4-byte network marker) and advances *off past the tx
// count varint. b is the backing slice returned by blkfile.Reader; off
// is relative to the start of b, not the file.
func DecodeBlockHeader(b []byte, off *int) (*DecodedHeader, er.R) {
	blockStart := *off

	marker, err := PullUint32LE(b, off)
	if err != nil {
		return nil, err
	}
	payloadLength, err := PullUint32LE(b, off)
	if err != nil {
		return nil, err
	}

	headerStart := *off
	var h BlockHeader
	if h.Version, err = PullUint32LE(b, off); err != nil {
		return nil, err
	}
	if h.PrevBlock, err = PullHash(b, off); err != nil {
		return nil, err
	}
	if h.MerkleRoot, err = PullHash(b, off); err != nil {
		return nil, err
	}
	if h.Timestamp, err = PullUint32LE(b, off); err != nil {
		return nil, err
	}
	if h.Bits, err = PullUint32LE(b, off); err != nil {
		return nil, err
	}
	if h.Nonce, err = PullUint32LE(b, off); err != nil {
		return nil, err
	}
	if err := need(b, headerStart, BlockHeaderLen); err != nil {
		return nil, err
	}
	id := chainhash.DoubleHashH(b[headerStart : headerStart+BlockHeaderLen])

	txCount, err := PullVarInt(b, off)
	if err != nil {
		return nil, err
	}

	return &DecodedHeader{
		Marker:           marker,
		PayloadLength:    payloadLength,
		Header:           h,
		ID:               id,
		TransactionCount: txCount,
		FirstTxOffset:    int64(*off),
		NextOffset:       int64(blockStart) + 8 + int64(payloadLength),
	}, nil
}
