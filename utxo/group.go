// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo implements the unspent-output set (§4.F): admission of
// new outputs, release on spend, and the payment-vs-change output-type
// classifier.
package utxo

import (
	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// OutputType classifies an output of a 2-output transaction (§4.F); all
// other transactions are always Unknown.
type OutputType uint8

const (
	Unknown OutputType = iota
	Payment
	Change
)

// roundSats is the "round multiple of 1000 satoshis" threshold the
// classifier uses to tell a human-entered payment amount from
// wallet-generated change (§4.F).
const roundSats = 1000

// Group is every still-unspent output funded by a single transaction,
// keyed by that transaction's txid (§3). Outputs are tracked by index
// directly into the funding transaction's output list, so spent slots
// keep their amount and are flagged spent in place rather than
// compacted.
type Group struct {
	Txid      chainhash.Hash
	Timestamp uint32
	Height    int32
	TxNum     uint64 // position of the funding tx within its block; 0 => coinbase

	Amounts     []uint64
	OutputTypes []OutputType
	spent       []bool

	unspentCount int
	UnspentSum   uint64
	SpentSum     uint64
}

// ErrorType groups this package's fatal failures.
var ErrorType = er.NewErrorType("utxo.ErrorType")

var ErrGroupMissing = ErrorType.Code("ErrGroupMissing")

// NewGroup builds a Group from a decoded transaction's outputs, skipping
// unspendable (OP_RETURN) outputs, and runs the output-type classifier.
func NewGroup(txid chainhash.Hash, timestamp uint32, height int32, txnum uint64, tx *wire.MsgTx) *Group {
	g := &Group{
		Txid:        txid,
		Timestamp:   timestamp,
		Height:      height,
		TxNum:       txnum,
		Amounts:     make([]uint64, len(tx.TxOut)),
		OutputTypes: make([]OutputType, len(tx.TxOut)),
		spent:       make([]bool, len(tx.TxOut)),
	}
	for i, out := range tx.TxOut {
		g.Amounts[i] = out.Amount
		if out.IsUnspendable() {
			g.spent[i] = true
			continue
		}
		g.unspentCount++
		g.UnspentSum += out.Amount
	}
	g.classify()
	return g
}

// RestoreGroup rebuilds a Group from a UTXO cache record's raw fields
// (§4.G), recomputing the derived unspent count and sums rather than
// trusting them from disk.
func RestoreGroup(txid chainhash.Hash, timestamp uint32, height int32, txnum uint64, amounts []uint64, outputTypes []uint8, spent []bool) *Group {
	g := &Group{
		Txid:        txid,
		Timestamp:   timestamp,
		Height:      height,
		TxNum:       txnum,
		Amounts:     amounts,
		OutputTypes: make([]OutputType, len(outputTypes)),
		spent:       spent,
	}
	for i, t := range outputTypes {
		g.OutputTypes[i] = OutputType(t)
	}
	for i, s := range spent {
		if s {
			g.SpentSum += amounts[i]
		} else {
			g.unspentCount++
			g.UnspentSum += amounts[i]
		}
	}
	return g
}

// classify implements §4.F's payment-vs-change guess, matching
// original_source/utxo.c's guess_output_types exactly: it only ever
// fires for a transaction with exactly two outputs in total (raw
// output count, not the spendable count), evaluated positionally on
// outputs 0 and 1 regardless of whether either is unspendable. When
// exactly one of the two amounts is a round multiple of 1000 satoshis,
// that one is guessed Payment (a human-entered amount) and the other
// Change. Every other shape, including ties (both or neither round),
// stays Unknown.
func (g *Group) classify() {
	if len(g.Amounts) != 2 {
		return
	}
	aRound := g.Amounts[0]%roundSats == 0
	bRound := g.Amounts[1]%roundSats == 0
	if aRound == bRound {
		return
	}
	if aRound {
		g.OutputTypes[0] = Payment
		g.OutputTypes[1] = Change
	} else {
		g.OutputTypes[0] = Change
		g.OutputTypes[1] = Payment
	}
}

// NumUnspent returns how many of this group's outputs remain unspent.
func (g *Group) NumUnspent() int {
	return g.unspentCount
}

// release marks output index i as spent, updating the running sums and
// unspent count (§4.F). It is a programmer error to release an output
// twice or out of range; callers are expected to have checked
// Set.ReleaseUTXO's own bookkeeping first.
func (g *Group) release(i int) {
	if g.spent[i] {
		return
	}
	g.spent[i] = true
	g.unspentCount--
	g.UnspentSum -= g.Amounts[i]
	g.SpentSum += g.Amounts[i]
}

// IsSpent reports whether output index i has already been released.
func (g *Group) IsSpent(i int) bool {
	return g.spent[i]
}
