// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// Set is the full unspent-output set, hash-indexed by funding txid (§4.F).
type Set struct {
	groups map[chainhash.Hash]*Group
}

// NewSet creates an empty UTXO set.
func NewSet() *Set {
	return &Set{groups: make(map[chainhash.Hash]*Group)}
}

// Len returns the number of distinct funding transactions with at least
// one unspent output.
func (s *Set) Len() int {
	return len(s.groups)
}

// Lookup returns the group funded by txid, if any of its outputs remain
// unspent.
func (s *Set) Lookup(txid chainhash.Hash) (*Group, bool) {
	g, ok := s.groups[txid]
	return g, ok
}

// AddUTXOs admits every spendable output of tx into the set as a new
// Group (§4.F admission). A transaction whose every output is
// unspendable produces no group at all.
func (s *Set) AddUTXOs(txid chainhash.Hash, timestamp uint32, height int32, txnum uint64, tx *wire.MsgTx) {
	g := NewGroup(txid, timestamp, height, txnum, tx)
	if g.NumUnspent() == 0 {
		return
	}
	s.groups[txid] = g
}

// ReleaseUTXO marks outpoint (txid, index) as spent (§4.F release). A
// coinbase input (a null prevout — callers identify this by TxNum==0
// convention upstream and must never call ReleaseUTXO for it) is simply
// never passed here. Releasing an outpoint whose group is absent, or
// whose output was already released, is a fatal inconsistency —
// original_source/utxo.c's release_utxo deletes its map entry on
// release, so a second release of the same outpoint is exactly the same
// "unknown utxo" lookup failure as releasing one that was never
// admitted: every spend must reference an output this walk has already
// seen admitted and not yet spent, or the block file set is corrupt or
// was scanned out of order.
func (s *Set) ReleaseUTXO(prev wire.OutPoint) er.R {
	g, ok := s.groups[prev.Hash]
	if !ok {
		return ErrGroupMissing.New(prev.Hash.String(), nil)
	}
	if int(prev.Index) >= len(g.Amounts) {
		return ErrGroupMissing.New(prev.Hash.String(), nil)
	}
	if g.IsSpent(int(prev.Index)) {
		return ErrGroupMissing.New(prev.Hash.String(), nil)
	}
	g.release(int(prev.Index))
	if g.NumUnspent() == 0 {
		delete(s.groups, prev.Hash)
	}
	return nil
}

// Snapshot returns every group currently in the set, for the periodic
// cache writer (§4.G). Order is unspecified; callers that need a stable
// on-disk layout should sort by Txid.
func (s *Set) Snapshot() []*Group {
	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	return out
}

// Restore replaces the set's contents with groups, typically loaded from
// a UTXO cache snapshot (§4.G).
func (s *Set) Restore(groups []*Group) {
	s.groups = make(map[chainhash.Hash]*Group, len(groups))
	for _, g := range groups {
		s.groups[g.Txid] = g
	}
}
