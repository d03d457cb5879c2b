// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/chainindex"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

func mkCachedBlock(n byte, height int32) *chainindex.Block {
	var id chainhash.Hash
	id[0] = n
	var prev chainhash.Hash
	prev[0] = n - 1
	return &chainindex.Block{
		ID: id,
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: prev,
			Timestamp: 1231006505,
			Bits:      0x1d00ffff,
			Nonce:     2083236893,
		},
		Height:        height,
		FileIndex:     3,
		FirstTxOffset: 123,
		TxCount:       7,
	}
}

func TestWriteReadBlockCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blk00003.dat")
	want := []*chainindex.Block{mkCachedBlock(1, 0), mkCachedBlock(2, 1), mkCachedBlock(3, 2)}

	if err := WriteBlockCache(path, want); err != nil {
		t.Fatalf("WriteBlockCache: %v", err)
	}
	got, found, err := ReadBlockCache(path)
	if err != nil {
		t.Fatalf("ReadBlockCache: %v", err)
	}
	if !found {
		t.Fatalf("expected found=true")
	}
	if len(got) != len(want) {
		t.Fatalf("got %d blocks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("block %d: id mismatch", i)
		}
		if got[i].Height != want[i].Height {
			t.Fatalf("block %d: height = %d, want %d", i, got[i].Height, want[i].Height)
		}
		if got[i].FileIndex != want[i].FileIndex {
			t.Fatalf("block %d: file index = %d, want %d", i, got[i].FileIndex, want[i].FileIndex)
		}
		if got[i].FirstTxOffset != want[i].FirstTxOffset {
			t.Fatalf("block %d: first tx offset mismatch", i)
		}
		if got[i].TxCount != want[i].TxCount {
			t.Fatalf("block %d: tx count mismatch", i)
		}
		if got[i].Header.PrevBlock != want[i].Header.PrevBlock {
			t.Fatalf("block %d: prev block mismatch", i)
		}
	}
}

func TestReadBlockCacheTruncatedDeletesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blk00003.dat")
	if err := WriteBlockCache(path, []*chainindex.Block{mkCachedBlock(1, 0)}); err != nil {
		t.Fatalf("WriteBlockCache: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-1], 0600); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	got, found, rErr := ReadBlockCache(path)
	if rErr != nil {
		t.Fatalf("ReadBlockCache: %v", rErr)
	}
	if found || got != nil {
		t.Fatalf("expected a truncated cache to report not-found with a nil slice")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected the truncated cache file to be deleted")
	}
}

func TestReadBlockCacheMissingIsNotFoundNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent")
	got, found, err := ReadBlockCache(path)
	if err != nil {
		t.Fatalf("ReadBlockCache: %v", err)
	}
	if found || got != nil {
		t.Fatalf("expected found=false, got nil for a missing cache file")
	}
}

func TestBlockCacheValidMtimeComparison(t *testing.T) {
	dir := t.TempDir()
	blockFile := filepath.Join(dir, "blk00003.dat")
	cachePath := filepath.Join(dir, "cache")

	if err := os.WriteFile(blockFile, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(cachePath, []byte("y"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	if err := os.Chtimes(blockFile, older, older); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.Chtimes(cachePath, newer, newer); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if !BlockCacheValid(cachePath, blockFile) {
		t.Fatalf("expected a cache newer than its block file to be valid")
	}

	if err := os.Chtimes(cachePath, older.Add(-time.Hour), older.Add(-time.Hour)); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if BlockCacheValid(cachePath, blockFile) {
		t.Fatalf("expected a cache older than its block file to be invalid")
	}
}

func TestBlockCacheValidMissingFilesAreInvalid(t *testing.T) {
	dir := t.TempDir()
	if BlockCacheValid(filepath.Join(dir, "cache"), filepath.Join(dir, "blk00000.dat")) {
		t.Fatalf("expected missing cache/block-file pair to be invalid")
	}
}
