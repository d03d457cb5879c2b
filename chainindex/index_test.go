// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainindex

import (
	"testing"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

func mkID(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func mkBlock(id byte, prev byte, fileIndex int) *Block {
	var h chainhash.Hash
	h[0] = prev
	return &Block{
		ID:        mkID(id),
		Header:    wire.BlockHeader{PrevBlock: h},
		FileIndex: fileIndex,
	}
}

func TestInsertGenesisOnly(t *testing.T) {
	idx := NewIndex()
	g := mkBlock(1, 0, 0)
	var zero chainhash.Hash
	g.Header.PrevBlock = zero
	idx.Insert(g)

	got, ok := idx.Genesis()
	if !ok || got.ID != g.ID {
		t.Fatalf("expected genesis to be recorded")
	}
	if g.Height != 0 {
		t.Fatalf("genesis height = %d, want 0", g.Height)
	}

	start, err := idx.Linearize(Bounds{StartErr: -1, EndErr: -1})
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	if start.ID != g.ID || start.Next != nil {
		t.Fatalf("single-block chain should linearize to just genesis")
	}
}

func TestEagerHeightThenOutOfOrderChild(t *testing.T) {
	idx := NewIndex()
	var zero chainhash.Hash
	g := mkBlock(1, 0, 0)
	g.Header.PrevBlock = zero
	idx.Insert(g)

	b2 := mkBlock(2, 1, 0)
	idx.Insert(b2)
	if b2.Height != 1 {
		t.Fatalf("eager height = %d, want 1", b2.Height)
	}

	// b3 arrives (e.g. from a later file) referencing b2, and should
	// resolve eagerly since its parent is already known.
	b3 := mkBlock(3, 2, 1)
	idx.Insert(b3)
	if b3.Height != 2 {
		t.Fatalf("b3 height = %d, want 2", b3.Height)
	}

	start, err := idx.Linearize(Bounds{StartErr: -1, EndErr: -1})
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	var got []byte
	for cur := start; cur != nil; cur = cur.Next {
		got = append(got, cur.ID[0])
	}
	want := []byte{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain = %v, want %v", got, want)
		}
	}
}

func TestSetHeightChasesOrphanAncestry(t *testing.T) {
	idx := NewIndex()

	// Insert a child before its parent is known: eager resolution misses,
	// chaseAll via SetHeight must connect it once the parent shows up.
	b2 := mkBlock(2, 1, 0)
	idx.Insert(b2)
	if b2.Height != UnknownHeight {
		t.Fatalf("b2 should be unresolved before its parent arrives")
	}

	var zero chainhash.Hash
	g := mkBlock(1, 0, 0)
	g.Header.PrevBlock = zero
	idx.Insert(g)

	if !idx.SetHeight(b2) {
		t.Fatalf("SetHeight should now resolve b2")
	}
	if b2.Height != 1 {
		t.Fatalf("b2 height = %d, want 1", b2.Height)
	}
}

func TestSetHeightDeadEndLeavesIslandUntouched(t *testing.T) {
	idx := NewIndex()
	// b2's parent (id=1) is never inserted: a permanent dead end.
	b2 := mkBlock(2, 1, 0)
	idx.Insert(b2)

	if idx.SetHeight(b2) {
		t.Fatalf("SetHeight on a dead end should return false")
	}
	if b2.Height != UnknownHeight {
		t.Fatalf("dead-end block must not be mutated: height = %d", b2.Height)
	}
	if _, ok := idx.Lookup(b2.ID); !ok {
		t.Fatalf("dead-end block must not be deleted from the index")
	}
}

func TestDuplicateBlockAcrossFilesReplaces(t *testing.T) {
	idx := NewIndex()
	var zero chainhash.Hash
	g := mkBlock(1, 0, 0)
	g.Header.PrevBlock = zero
	idx.Insert(g)

	dup := mkBlock(1, 0, 5)
	dup.Header.PrevBlock = zero
	oldFileIndex, replaced := idx.Insert(dup)
	if !replaced || oldFileIndex != 0 {
		t.Fatalf("expected replace of file index 0, got replaced=%v old=%d", replaced, oldFileIndex)
	}
	got, _ := idx.Lookup(mkID(1))
	if got.FileIndex != 5 {
		t.Fatalf("later occurrence should win, file index = %d", got.FileIndex)
	}
}

func TestLinearizeEndHashPrunesFork(t *testing.T) {
	idx := NewIndex()
	var zero chainhash.Hash
	g := mkBlock(1, 0, 0)
	g.Header.PrevBlock = zero
	idx.Insert(g)
	b2 := mkBlock(2, 1, 0)
	idx.Insert(b2)
	// Two competing tips at height 2.
	fork1 := mkBlock(3, 2, 0)
	idx.Insert(fork1)
	fork2 := mkBlock(4, 2, 0)
	idx.Insert(fork2)

	endHash := mkID(3)
	start, err := idx.Linearize(Bounds{StartErr: -1, EndHash: &endHash})
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	var got []byte
	for cur := start; cur != nil; cur = cur.Next {
		got = append(got, cur.ID[0])
	}
	want := []byte{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain = %v, want %v", got, want)
		}
	}
}
