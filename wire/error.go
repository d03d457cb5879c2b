// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/nelsontodd/bitcoin-iterate/er"

// ErrorType groups the parse failures this package can produce. Per
// SPEC_FULL.md §2.1 / spec.md §7, every one of these is fatal: the
// decoder refuses to guess at malformed consensus data.
var ErrorType = er.NewErrorType("wire.ErrorType")

var (
	// ErrTruncated is returned when a pull* function needs more bytes
	// than remain in the backing slice.
	ErrTruncated = ErrorType.Code("ErrTruncated")

	// ErrBadSegwitFlag is returned when a transaction's marker byte is
	// zero (signalling segwit) but the following flag byte isn't 1.
	ErrBadSegwitFlag = ErrorType.Code("ErrBadSegwitFlag")
)
