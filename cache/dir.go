// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cache implements the two on-disk caches of §4.G: a flat block
// index cache (named after the last-seen blk<N>.dat, so its staleness
// tracks that one file's mtime) and a per-start-block UTXO snapshot
// cache. Both are grounded on original_source/cache.c's read/write pair:
// raw, fixed-layout record concatenation, with a truncated tail treated
// as corruption (delete and report a miss) rather than a partial
// result.
package cache

import (
	"os"

	"github.com/nelsontodd/bitcoin-iterate/er"
)

// ErrorType groups this package's fatal I/O failures.
var ErrorType = er.NewErrorType("cache.ErrorType")

var (
	ErrMkdir = ErrorType.Code("ErrMkdir")
	ErrOpen  = ErrorType.Code("ErrOpen")
	ErrWrite = ErrorType.Code("ErrWrite")
	ErrRead  = ErrorType.Code("ErrRead")
)

// EnsureDir creates dir if it doesn't already exist, tolerating a
// concurrent creator (mirrors cache.c's open-ENOENT-then-mkdir dance,
// simplified since Go's MkdirAll is itself EEXIST-tolerant).
func EnsureDir(dir string) er.R {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return ErrMkdir.New(dir, er.E(err))
	}
	return nil
}
