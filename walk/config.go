// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walk implements the iterator/driver (§4.H): it orchestrates
// block-file discovery, chain assembly, UTXO maintenance and the
// two-tier cache into a single synchronous walk over `[start, end]`,
// invoking a caller-supplied Sink once per block/transaction/input/
// output and periodically once per UTXO snapshot.
package walk

import (
	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// Config holds every option named in spec.md §6's configuration table.
// It is a plain struct, populated directly by an embedding caller or by
// cmd/bitcoin-iterate's flag parser — the core never parses flags or
// format strings itself.
type Config struct {
	// BlockDir is the directory holding blk<N>.dat files. Empty selects
	// the platform default via blkfile.ResolveBlockDir.
	BlockDir string
	// CacheDir, if non-empty, enables both the block index cache and
	// the per-start-block UTXO snapshot cache.
	CacheDir string
	// UseTestnet switches the expected network marker.
	UseTestnet bool

	// BlockStart/StartHash give the inclusive lower bound of iteration.
	// StartHash, when set, takes priority over BlockStart.
	BlockStart int32
	StartHash  *chainhash.Hash
	// BlockEnd/EndHash give the inclusive upper bound; EndHash also pins
	// the chain tip used for fork resolution. A nil EndHash and a
	// negative BlockEnd both mean "no upper bound".
	BlockEnd int32
	EndHash  *chainhash.Hash

	// UtxoPeriod is how often (in blocks iterated since start) a UTXO
	// snapshot callback fires. Zero or a negative value is replaced with
	// the default of 144 by Walk.
	UtxoPeriod int32

	// UseMmap is a hint to blkfile.Reader; it silently falls back to
	// pread when unavailable.
	UseMmap bool
	// NeedsUTXO is the caller's declaration that it needs UTXO
	// maintenance (fee, BDD/BDC, UTXO-snapshot fields); see SPEC_FULL.md
	// §5 item 2 — this is never derived from a format string here.
	NeedsUTXO bool

	// Quiet suppresses Info-level progress text (§7); warnings and
	// errors still surface.
	Quiet bool
	// ProgressMarks, if >0 and BlockEnd is set, prints a '.' every
	// (BlockEnd-start)/ProgressMarks blocks (rounded down, at least 1),
	// so about ProgressMarks dots across the walk (§4 supplemented
	// feature 1). With a negative BlockEnd no dots are printed.
	ProgressMarks int
}

// DefaultUtxoPeriod matches the original tool's default snapshot cadence.
const DefaultUtxoPeriod = 144

// NewConfig returns a Config with BlockStart/BlockEnd set to the "unset"
// sentinel (-1, meaning genesis / unbounded) and UtxoPeriod at its
// default. The zero Config is not directly usable: its BlockEnd/
// BlockStart would read as "height 0" rather than "unset".
func NewConfig() Config {
	return Config{BlockStart: -1, BlockEnd: -1, UtxoPeriod: DefaultUtxoPeriod}
}

// Sink receives the walk's synchronous callbacks, in the canonical order
// of §5: blocks ascending by height; within a block, transactions in
// file order; within a transaction, inputs then outputs in order. Each
// method may retain nothing passed to it past its return — the
// underlying bytes live in a per-block scratch window (§5).
type Sink interface {
	Block(b *BlockView)
	Tx(b *BlockView, txNum int, tx *wire.MsgTx)
	Input(b *BlockView, txNum int, tx *wire.MsgTx, inputIndex int, in *wire.TxIn)
	Output(b *BlockView, txNum int, tx *wire.MsgTx, outputIndex int, out *wire.TxOut)
	UTXOSnapshot(snap *UTXOSnapshotView)
}
