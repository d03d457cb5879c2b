// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blkfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, contents []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blk00000.dat")
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func testReaderReadsBack(t *testing.T, useMmap bool) {
	contents := []byte("the quick brown fox jumps over the lazy dog")
	path := writeTempFile(t, contents)

	r, err := Open(path, useMmap)
	if err != nil {
		t.Fatalf("Open(useMmap=%v): %v", useMmap, err)
	}
	defer r.Close()

	if r.Size() != int64(len(contents)) {
		t.Fatalf("Size = %d, want %d", r.Size(), len(contents))
	}
	got, err := r.Read(4, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "quick" {
		t.Fatalf("Read(4,5) = %q, want %q", got, "quick")
	}
	if _, err := r.ModTime(); err != nil {
		t.Fatalf("ModTime: %v", err)
	}
}

func TestReaderReadsBackWithMmap(t *testing.T) {
	testReaderReadsBack(t, true)
}

func TestReaderReadsBackWithoutMmap(t *testing.T) {
	testReaderReadsBack(t, false)
}

func TestReaderReadOutOfRangeErrors(t *testing.T) {
	path := writeTempFile(t, []byte("short"))
	r, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.Read(0, 100); err == nil {
		t.Fatalf("expected ErrRange reading past end of file")
	}
	if _, err := r.Read(-1, 1); err == nil {
		t.Fatalf("expected ErrRange for a negative offset")
	}
}

func TestReaderMmapFallsBackOnEmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)
	r, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.Size() != 0 {
		t.Fatalf("Size = %d, want 0", r.Size())
	}
}
