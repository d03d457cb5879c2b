// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blkfile implements the byte reader (§4.A) and block-file
// walker (§4.C): discovery of blk*.dat files, a small open-file LRU, and
// the network-marker scan that finds each block record.
package blkfile

import (
	"os"

	"github.com/nelsontodd/bitcoin-iterate/er"
)

// ErrorType groups this package's fatal I/O failures.
var ErrorType = er.NewErrorType("blkfile.ErrorType")

var (
	ErrOpen  = ErrorType.Code("ErrOpen")
	ErrStat  = ErrorType.Code("ErrStat")
	ErrRead  = ErrorType.Code("ErrRead")
	ErrRange = ErrorType.Code("ErrRange")
)

// discardChunk is the ~128MiB granularity at which an mmap'd reader
// advises the OS to drop pages it has scanned past (§4.C).
const discardChunk = 128 << 20

// Reader is the byte-reader abstraction of §4.A: Read returns a
// zero-copy borrow of the file's mmap when one is active, or a freshly
// copied buffer read via pread otherwise. Returned slices are valid only
// as long as the Reader is open; callers that need to retain bytes past
// the current block's processing window must copy them (§5).
type Reader struct {
	f            *os.File
	size         int64
	mmapData     []byte // non-nil when backed by an active mmap
	lastDiscard  int64
}

// Open opens path for reading, memory-mapping it when useMmap is true
// and the platform supports it.
func Open(path string, useMmap bool) (*Reader, er.R) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrOpen.New(path, er.E(err))
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ErrStat.New(path, er.E(err))
	}
	r := &Reader{f: f, size: fi.Size()}
	if useMmap && fi.Size() > 0 {
		data, mmErr := mmapFile(f, fi.Size())
		if mmErr == nil {
			r.mmapData = data
		}
		// A failed mmap attempt (e.g. unsupported platform) silently
		// falls back to the pread path below — use_mmap is a hint,
		// not a hard requirement (§6 config table).
	}
	return r, nil
}

// Size returns the file's size in bytes, captured at Open time.
func (r *Reader) Size() int64 {
	return r.size
}

// ModTime returns the file's modification time, used by the cache
// layer's freshness check (§4.G).
func (r *Reader) ModTime() (int64, er.R) {
	fi, err := r.f.Stat()
	if err != nil {
		return 0, ErrStat.New("", er.E(err))
	}
	return fi.ModTime().UnixNano(), nil
}

// Read returns the n bytes at offset off. If the file is memory-mapped
// the result aliases the mapping (zero-copy); otherwise it is a freshly
// allocated, freshly read buffer.
func (r *Reader) Read(off int64, n int) ([]byte, er.R) {
	if off < 0 || n < 0 || off+int64(n) > r.size {
		return nil, ErrRange.New("", nil)
	}
	if r.mmapData != nil {
		return r.mmapData[off : off+int64(n)], nil
	}
	buf := make([]byte, n)
	if _, err := r.f.ReadAt(buf, off); err != nil {
		return nil, ErrRead.New("", er.E(err))
	}
	return buf, nil
}

// DiscardUpTo advises the OS that pages covering [lastDiscard, upTo) are
// no longer needed, once at least discardChunk bytes have accumulated
// since the last hint (§4.C). It is a pure optimization: a failure here
// is never fatal and is not reported.
func (r *Reader) DiscardUpTo(upTo int64) {
	if r.mmapData == nil {
		return
	}
	if upTo-r.lastDiscard < discardChunk {
		return
	}
	madviseDontNeed(r.mmapData, r.lastDiscard, upTo)
	r.lastDiscard = upTo
}

// Close releases the mmap (if any) and the underlying file handle.
func (r *Reader) Close() er.R {
	if r.mmapData != nil {
		munmapFile(r.mmapData)
		r.mmapData = nil
	}
	if err := r.f.Close(); err != nil {
		return ErrRead.New("", er.E(err))
	}
	return nil
}
