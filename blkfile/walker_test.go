// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blkfile

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const testMarker = uint32(0xd9b4bef9)

func markerBytes() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, testMarker)
	return b
}

func TestScanForMarkerFindsOffsetAndPadding(t *testing.T) {
	dir := t.TempDir()
	var contents []byte
	contents = append(contents, []byte{0, 1, 2, 3, 4}...) // 5 bytes of padding
	contents = append(contents, markerBytes()...)
	contents = append(contents, []byte{9, 9, 9, 9}...) // trailing payload
	path := filepath.Join(dir, "blk00000.dat")
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := NewWalker(dir, testMarker, false)
	if err != nil {
		t.Fatalf("NewWalker: %v", err)
	}
	defer w.Close()

	r, err := w.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	res, err := w.ScanForMarker(r, 0)
	if err != nil {
		t.Fatalf("ScanForMarker: %v", err)
	}
	if !res.Found {
		t.Fatalf("expected to find the marker")
	}
	if res.Offset != 5 {
		t.Fatalf("Offset = %d, want 5", res.Offset)
	}
	if res.Padding != 5 {
		t.Fatalf("Padding = %d, want 5", res.Padding)
	}
}

func TestScanForMarkerNotFoundAtEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blk00000.dat")
	if err := os.WriteFile(path, []byte{0, 1, 2, 3, 4, 5}, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := NewWalker(dir, testMarker, false)
	if err != nil {
		t.Fatalf("NewWalker: %v", err)
	}
	defer w.Close()

	r, err := w.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	res, err := w.ScanForMarker(r, 0)
	if err != nil {
		t.Fatalf("ScanForMarker: %v", err)
	}
	if res.Found {
		t.Fatalf("expected Found=false, not an error, at a clean end-of-file")
	}
}

func TestWalkerGetEvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		name := blkFilePath(dir, i)
		if err := os.WriteFile(name, markerBytes(), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	w, err := NewWalker(dir, testMarker, false)
	if err != nil {
		t.Fatalf("NewWalker: %v", err)
	}
	defer w.Close()

	if _, err := w.Get(0); err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if _, err := w.Get(1); err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if len(w.open) != 2 {
		t.Fatalf("open file count = %d, want 2 (lruCap)", len(w.open))
	}
	// Touching 0 again should keep it resident when 2 is opened next,
	// evicting 1 instead.
	if _, err := w.Get(0); err != nil {
		t.Fatalf("Get(0) again: %v", err)
	}
	if _, err := w.Get(2); err != nil {
		t.Fatalf("Get(2): %v", err)
	}
	if len(w.open) != 2 {
		t.Fatalf("open file count after third file = %d, want 2", len(w.open))
	}
	if _, ok := w.open[1]; ok {
		t.Fatalf("expected file 1 to have been evicted as least-recently-used")
	}
	if _, ok := w.open[0]; !ok {
		t.Fatalf("expected file 0 to remain resident since it was touched last")
	}
}

func TestWalkerGetUnknownFileIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(blkFilePath(dir, 0), markerBytes(), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	w, err := NewWalker(dir, testMarker, false)
	if err != nil {
		t.Fatalf("NewWalker: %v", err)
	}
	defer w.Close()

	if _, err := w.Get(99); err == nil {
		t.Fatalf("expected ErrNoSuchFile for an undiscovered file index")
	}
}

func blkFilePath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("blk%05d.dat", n))
}
