// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build unix

package blkfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the whole file read-only, matching the teacher's go.mod
// dependency on golang.org/x/sys for the low-level syscalls the original
// C tool's mmap(2)/madvise(2) calls correspond to.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

func munmapFile(data []byte) {
	_ = unix.Munmap(data)
}

// madviseDontNeed advises the kernel that the byte range [from, to) of
// data is no longer needed, mirroring the original implementation's
// periodic MADV_DONTNEED chunk discard (§4.C). Best-effort: errors are
// intentionally ignored, matching the spec's "pure optimization" framing.
func madviseDontNeed(data []byte, from, to int64) {
	if to > int64(len(data)) {
		to = int64(len(data))
	}
	if from >= to {
		return
	}
	_ = unix.Madvise(data[from:to], unix.MADV_DONTNEED)
}
