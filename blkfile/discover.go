// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blkfile

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/nelsontodd/bitcoin-iterate/er"
)

var (
	ErrDuplicateFile = ErrorType.Code("ErrDuplicateFile")
	ErrNoBlockDir    = ErrorType.Code("ErrNoBlockDir")
	ErrReadDir       = ErrorType.Code("ErrReadDir")
)

var blkFileRegexp = regexp.MustCompile(`^blk([0-9]+)\.dat$`)

// fileSet is the sparse, numerically-ordered index over discovered
// blk<N>.dat files. It is a redblacktree-backed ordered map in the same
// style as the teacher's generic btcutil/util/tmap wrapper around
// github.com/emirpasic/gods — using an ordered tree here (rather than a
// plain Go map + sort) means indices() always enumerates ascending by file
// number for free, with no separate sort pass over what can be tens of
// thousands of entries on a mainnet snapshot.
type fileSet struct {
	tree *redblacktree.Tree
}

func newFileSet() *fileSet {
	return &fileSet{tree: redblacktree.NewWithIntComparator()}
}

func (s *fileSet) insert(n int, path string) er.R {
	if _, found := s.tree.Get(n); found {
		return ErrDuplicateFile.New(path, nil)
	}
	s.tree.Put(n, path)
	return nil
}

func (s *fileSet) get(n int) (string, bool) {
	v, found := s.tree.Get(n)
	if !found {
		return "", false
	}
	return v.(string), true
}

// indices returns every discovered file number in ascending order.
func (s *fileSet) indices() []int {
	keys := s.tree.Keys()
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k.(int)
	}
	return out
}

func (s *fileSet) size() int {
	return s.tree.Size()
}

// discover enumerates dir for blk<N>.dat entries. A duplicate file
// number (which should never happen on a real node's data directory) is
// a fatal configuration error, per §4.C.
func discover(dir string) (*fileSet, er.R) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ErrReadDir.New(dir, er.E(err))
	}
	fs := newFileSet()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := blkFileRegexp.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		if insErr := fs.insert(n, filepath.Join(dir, e.Name())); insErr != nil {
			return nil, insErr
		}
	}
	return fs, nil
}

// DefaultBlockDir returns the platform's standard Bitcoin Core data
// directory's blocks subdirectory (§4.C), honoring testnet3's extra path
// component.
func DefaultBlockDir(useTestnet bool) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".bitcoin")
	if useTestnet {
		base = filepath.Join(base, "testnet3")
	}
	return filepath.Join(base, "blocks")
}

// ResolveBlockDir picks the directory to scan: the caller-supplied dir,
// or DefaultBlockDir falling back to the legacy layout (the same
// directory without the trailing "blocks" component) if the default
// doesn't exist, per §4.C.
func ResolveBlockDir(configured string, useTestnet bool) string {
	if configured != "" {
		return configured
	}
	dir := DefaultBlockDir(useTestnet)
	if _, err := os.Stat(dir); err != nil {
		return filepath.Dir(dir)
	}
	return dir
}
