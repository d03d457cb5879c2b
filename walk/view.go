// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walk

import (
	"github.com/nelsontodd/bitcoin-iterate/chainindex"
	"github.com/nelsontodd/bitcoin-iterate/utxo"
)

// BlockView is the snapshot of walk state a Sink sees for one block:
// the block record itself plus the live UTXO set, so a formatter can
// answer "what's still unspent right now" without the driver needing a
// wider, per-entity-kind signature (§6: "uniform... so the consumer can
// dispatch to a single format-string printer").
type BlockView struct {
	Block *chainindex.Block
	UTXOs *utxo.Set
}

// UTXOSnapshotView is passed to Sink.UTXOSnapshot once every
// Config.UtxoPeriod blocks (§4.H step 7).
type UTXOSnapshotView struct {
	Block *chainindex.Block
	UTXOs *utxo.Set
	// LastSnapshotBlock is the block at which the previous snapshot was
	// emitted, nil on the first emission, for elapsed-time calculations
	// in the external formatter.
	LastSnapshotBlock *chainindex.Block
}
