// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/nelsontodd/bitcoin-iterate/walk"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// debugSink is a minimal walk.Sink: one fixed-format line per entity.
// A real deployment would plug in the external `%bh`/`%tF`/`%uC`
// format-string interpreter here instead; that interpreter is out of
// this module's scope (spec.md §1).
type debugSink struct {
	out io.Writer
}

func (s *debugSink) Block(b *walk.BlockView) {
	fmt.Fprintf(s.out, "block height=%d id=%s txcount=%d\n", b.Block.Height, b.Block.ID, b.Block.TxCount)
}

func (s *debugSink) Tx(b *walk.BlockView, txNum int, tx *wire.MsgTx) {
	fmt.Fprintf(s.out, "  tx n=%d txid=%s wtxid=%s segwit=%v\n", txNum, tx.Txid, tx.Wtxid, tx.IsSegWit)
}

func (s *debugSink) Input(b *walk.BlockView, txNum int, tx *wire.MsgTx, inputIndex int, in *wire.TxIn) {
	fmt.Fprintf(s.out, "    in  %d prev=%s:%d\n", inputIndex, in.PrevTxid, in.PrevIndex)
}

func (s *debugSink) Output(b *walk.BlockView, txNum int, tx *wire.MsgTx, outputIndex int, out *wire.TxOut) {
	fmt.Fprintf(s.out, "    out %d amount=%d\n", outputIndex, out.Amount)
}

func (s *debugSink) UTXOSnapshot(snap *walk.UTXOSnapshotView) {
	fmt.Fprintf(s.out, "utxo-snapshot height=%d groups=%d\n", snap.Block.Height, snap.UTXOs.Len())
}
