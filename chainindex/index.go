// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainindex implements the chain assembler (§4.E): a hash-keyed
// map of decoded block records, height resolution (eager, falling back
// to periodic backward-chasing), best-tip selection and linearization
// of a start→end forward chain.
//
// Following the teacher's convention in daglabs-btcd's blockdag package
// (map[daghash.Hash]*blockNode), blocks reference
// their parent by hash value, not by pointer: there is no parent/child
// pointer graph to keep consistent, just one flat map plus the forward
// Next pointer materialized at linearization time.
package chainindex

import (
	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/log"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// UnknownHeight is the sentinel height of a block whose position in the
// chain hasn't been resolved yet (§3).
const UnknownHeight int32 = -1

// heightChaseEvery controls how often an eager-height miss triggers a
// full opportunistic height-chasing pass over every unresolved block
// (§4.E).
const heightChaseEvery = 1000

// Block is an in-memory block record (§3). Height and Next are each
// mutated exactly once during normal operation — Height transitions
// from UnknownHeight to its resolved value, and Next is assigned during
// linearization — except that SetHeight also uses Next as scratch state
// while chasing a backward chain of unresolved parents (see SetHeight).
type Block struct {
	ID        chainhash.Hash
	Header    wire.BlockHeader
	Height    int32
	FileIndex int
	// FirstTxOffset is the absolute file offset of the first
	// transaction, for the driver to re-seek and decode on demand.
	FirstTxOffset int64
	TxCount       uint64

	Next *Block
}

// ErrorType groups this package's fatal failures.
var ErrorType = er.NewErrorType("chainindex.ErrorType")

var (
	ErrUnknownHash = ErrorType.Code("ErrUnknownHash")
	ErrNoGenesis   = ErrorType.Code("ErrNoGenesis")
)

// Index is the hash-keyed block map (§4.E).
type Index struct {
	blocks  map[chainhash.Hash]*Block
	genesis *Block
	misses  int
}

// NewIndex creates an empty block index.
func NewIndex() *Index {
	return &Index{blocks: make(map[chainhash.Hash]*Block)}
}

// Len returns the number of blocks currently indexed.
func (idx *Index) Len() int {
	return len(idx.blocks)
}

// Lookup returns the block with the given id, if indexed.
func (idx *Index) Lookup(id chainhash.Hash) (*Block, bool) {
	b, ok := idx.blocks[id]
	return b, ok
}

// All returns every indexed block, in unspecified order — used by the
// cache layer to snapshot the full index (§4.G).
func (idx *Index) All() []*Block {
	out := make([]*Block, 0, len(idx.blocks))
	for _, b := range idx.blocks {
		out = append(out, b)
	}
	return out
}

// Genesis returns the block marked as genesis (prev hash all-zero), if
// one has been inserted.
func (idx *Index) Genesis() (*Block, bool) {
	return idx.genesis, idx.genesis != nil
}

// Insert adds a newly decoded block to the index, per §4.E's insertion
// rules: a duplicate id replaces the prior occurrence (the later
// on-disk occurrence wins, tolerating node-level duplication between
// files), height is resolved eagerly when the parent is already known,
// and genesis is detected by an all-zero PrevBlock.
//
// Insert returns the replaced block's FileIndex and true if a duplicate
// was replaced, so the caller can log which file held the stale copy.
func (idx *Index) Insert(b *Block) (oldFileIndex int, replaced bool) {
	if old, ok := idx.blocks[b.ID]; ok {
		log.Warnf("duplicate block %s: replacing copy from file index %d with file index %d",
			b.ID, old.FileIndex, b.FileIndex)
		oldFileIndex, replaced = old.FileIndex, true
	}
	b.Height = UnknownHeight

	var zero chainhash.Hash
	if b.Header.PrevBlock == zero {
		b.Height = 0
		idx.blocks[b.ID] = b
		idx.genesis = b
		return oldFileIndex, replaced
	}

	idx.blocks[b.ID] = b
	if prev, ok := idx.blocks[b.Header.PrevBlock]; ok && prev.Height != UnknownHeight {
		b.Height = prev.Height + 1
	} else {
		idx.misses++
		if idx.misses%heightChaseEvery == 0 {
			idx.chaseAll()
		}
	}
	return oldFileIndex, replaced
}

// chaseAll opportunistically resolves every unresolved block's height,
// connecting islands that eager resolution missed because their parent
// hadn't been seen yet at insertion time.
func (idx *Index) chaseAll() {
	for _, b := range idx.blocks {
		if b.Height == UnknownHeight {
			idx.SetHeight(b)
		}
	}
}

// ResolveHeights runs a final, unconditional height-chasing pass over
// every block in the index. original_source/iterate.c's "Link up prevs"
// loop calls set_height on every block in the map before picking the
// best tip, regardless of how many eager misses occurred during
// scanning; the periodic chase triggered every heightChaseEvery misses
// during Insert is an optimization for long scans, not a substitute for
// this final pass, since a cold scan with fewer than heightChaseEvery
// out-of-order misses would otherwise leave real islands unresolved and
// invisible to bestTip. Callers must run this once after a scan (or
// after loading blocks into a fresh Index) and before Linearize.
func (idx *Index) ResolveHeights() {
	idx.chaseAll()
}

// SetHeight walks backward from b via PrevBlock lookups until it finds a
// block with a known height or reaches a dead end (a parent not present
// in the index), then walks forward assigning height = parent.Height+1
// to every block on that path, including b.
//
// On a dead end it returns false, assigns no height and deletes nothing
// (only the scratch Next pointers described below are left set): per SPEC_FULL.md
// §5 item 1, the original C code's cleanup on this path reads as a
// no-op bug (it walks the backward chain it just built rather than any
// forward children), so this implementation takes the conservative
// reading and leaves the unresolved island exactly as it was — it will
// simply never appear on the Next chain built by Linearize unless a
// later block connects it.
//
// While searching it temporarily repurposes each visited block's Next
// pointer as a backward-to-forward chain; Linearize unconditionally
// reassigns Next for every block on the winning chain afterward, so this
// scratch use never leaks into the final linearized chain.
func (idx *Index) SetHeight(b *Block) bool {
	if b.Height != UnknownHeight {
		return true
	}
	cur := b
	for cur.Height == UnknownHeight {
		prev, ok := idx.blocks[cur.Header.PrevBlock]
		if !ok {
			return false
		}
		prev.Next = cur
		cur = prev
	}
	for cur.Next != nil {
		next := cur.Next
		next.Height = cur.Height + 1
		cur = next
	}
	return true
}
