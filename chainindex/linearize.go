// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainindex

import (
	"bytes"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
)

// Bounds narrows a linearized chain to a sub-range (§4.E, §6): either
// endpoint may be given as a hash (takes priority) or a height, and an
// unset endpoint means "start at genesis" / "run to the best tip".
type Bounds struct {
	StartHash *chainhash.Hash
	StartErr  int32 // height, used when StartHash is nil; <0 means unset
	EndHash   *chainhash.Hash
	EndErr    int32 // height, used when EndHash is nil; <0 means unset
}

// Linearize selects the best (highest, tie-broken by lexicographically
// smallest id) known tip, walks backward from it assigning forward Next
// pointers all the way to genesis, then truncates the result to the
// requested [start, end] window. It returns the first block of the
// window; the caller iterates the windowed chain via repeated b.Next
// until nil.
func (idx *Index) Linearize(b Bounds) (*Block, er.R) {
	genesis, ok := idx.Genesis()
	if !ok {
		return nil, ErrNoGenesis.New("", nil)
	}

	tip := idx.bestTip(b.EndHash)
	if tip == nil {
		return nil, ErrUnknownHash.New("no resolvable chain tip", nil)
	}

	// Walk backward from tip to genesis, assigning the forward Next
	// pointer as we go. Every block actually on this path gets its Next
	// overwritten here, which is also what finally overwrites any stale
	// scratch pointer left behind by SetHeight.
	cur := tip
	cur.Next = nil
	for cur != genesis {
		prev, found := idx.blocks[cur.Header.PrevBlock]
		if !found {
			// The best tip's ancestry doesn't reach genesis: an
			// unresolved island masquerading as a tip. Treat as fatal,
			// since a complete chain cannot be produced.
			return nil, ErrUnknownHash.New("chain from tip does not connect to genesis", nil)
		}
		prev.Next = cur
		cur = prev
	}

	start := genesis
	if b.StartHash != nil {
		s, found := idx.blocks[*b.StartHash]
		if !found {
			return nil, ErrUnknownHash.New(b.StartHash.String(), nil)
		}
		start = s
	} else if b.StartErr >= 0 {
		for cur := genesis; cur != nil; cur = cur.Next {
			if cur.Height == b.StartErr {
				start = cur
				break
			}
		}
	}

	if b.EndHash == nil && b.EndErr >= 0 {
		for cur := start; cur != nil; cur = cur.Next {
			if cur.Height == b.EndErr {
				cur.Next = nil
				break
			}
		}
	}

	return start, nil
}

// bestTip returns endOverride if set, else the highest-height resolved
// block in the index, breaking ties by smallest id so the choice is
// deterministic across runs even when two tips share a height.
func (idx *Index) bestTip(endOverride *chainhash.Hash) *Block {
	if endOverride != nil {
		b, ok := idx.blocks[*endOverride]
		if !ok {
			return nil
		}
		return b
	}
	var best *Block
	for _, b := range idx.blocks {
		if b.Height == UnknownHeight {
			continue
		}
		if best == nil || b.Height > best.Height ||
			(b.Height == best.Height && bytes.Compare(b.ID[:], best.ID[:]) < 0) {
			best = b
		}
	}
	return best
}
