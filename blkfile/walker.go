// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blkfile

import (
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/log"
)

// lruCap is the open-file LRU's fixed capacity (§4.C).
const lruCap = 2

var ErrNoSuchFile = ErrorType.Code("ErrNoSuchFile")

// Walker enumerates a blocks directory's blk<N>.dat files in ascending
// numeric order and scans each for block records, keeping at most
// lruCap files open at once.
type Walker struct {
	dir     string
	files   *fileSet
	marker  uint32
	useMmap bool

	open  map[int]*Reader
	order []int // most-recently-used last
}

// NewWalker discovers dir's blk<N>.dat files. marker selects the network
// (wire.MainNetMarker or wire.TestNet3Marker).
func NewWalker(dir string, marker uint32, useMmap bool) (*Walker, er.R) {
	fs, err := discover(dir)
	if err != nil {
		return nil, err
	}
	if fs.size() == 0 {
		return nil, ErrNoBlockDir.New(dir, nil)
	}
	return &Walker{
		dir:     dir,
		files:   fs,
		marker:  marker,
		useMmap: useMmap,
		open:    make(map[int]*Reader),
	}, nil
}

// Indices returns every discovered file number in ascending order.
func (w *Walker) Indices() []int {
	return w.files.indices()
}

// NumFiles returns how many blk<N>.dat files were discovered.
func (w *Walker) NumFiles() int {
	return w.files.size()
}

// Path returns the filesystem path of file index n, if discovered.
func (w *Walker) Path(n int) (string, bool) {
	return w.files.get(n)
}

// Get returns an open Reader for file index n, opening it (and evicting
// the least-recently-used entry if the 2-slot cache is full) on a miss.
func (w *Walker) Get(n int) (*Reader, er.R) {
	if r, ok := w.open[n]; ok {
		w.touch(n)
		return r, nil
	}
	path, ok := w.files.get(n)
	if !ok {
		return nil, ErrNoSuchFile.New("", nil)
	}
	r, err := Open(path, w.useMmap)
	if err != nil {
		return nil, err
	}
	if len(w.order) >= lruCap {
		evict := w.order[0]
		w.order = w.order[1:]
		if old, ok := w.open[evict]; ok {
			_ = old.Close()
			delete(w.open, evict)
		}
	}
	w.open[n] = r
	w.order = append(w.order, n)
	return r, nil
}

func (w *Walker) touch(n int) {
	for i, v := range w.order {
		if v == n {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.order = append(w.order, n)
}

// Close closes every open file in the LRU.
func (w *Walker) Close() er.R {
	var first er.R
	for _, r := range w.open {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	w.open = make(map[int]*Reader)
	w.order = nil
	return first
}

// ScanResult describes the outcome of a single ScanForMarker call.
type ScanResult struct {
	// Offset is the location of the found marker, valid only if Found.
	Offset int64
	// Padding counts the bytes skipped before the marker was found.
	Padding int64
	Found   bool
}

// ScanForMarker advances byte-by-byte from "from" in r until the 4-byte
// little-endian network marker is found, returning its offset. It
// returns Found=false (not an error) at end-of-file — padding at the
// tail of the last block file is expected, not a fault (§4.C, §7).
func (w *Walker) ScanForMarker(r *Reader, from int64) (ScanResult, er.R) {
	const window = 1 << 20 // scan in 1MiB windows to bound a single Read
	pos := from
	size := r.Size()
	for pos+4 <= size {
		n := window
		if pos+int64(n) > size {
			n = int(size - pos)
		}
		if n < 4 {
			break
		}
		chunk, err := r.Read(pos, n)
		if err != nil {
			return ScanResult{}, err
		}
		for i := 0; i+4 <= len(chunk); i++ {
			if le32(chunk, i) == w.marker {
				found := pos + int64(i)
				if found > from {
					log.Debugf("skipped %d bytes of padding before marker at offset %d", found-from, found)
				}
				return ScanResult{Offset: found, Padding: found - from, Found: true}, nil
			}
		}
		// Advance leaving a 3-byte overlap so a marker straddling the
		// window boundary is not missed.
		pos += int64(len(chunk)) - 3
	}
	return ScanResult{Found: false, Padding: size - from}, nil
}

func le32(b []byte, i int) uint32 {
	return uint32(b[i]) | uint32(b[i+1])<<8 | uint32(b[i+2])<<16 | uint32(b[i+3])<<24
}
