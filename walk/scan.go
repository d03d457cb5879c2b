// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walk

import (
	"github.com/nelsontodd/bitcoin-iterate/blkfile"
	"github.com/nelsontodd/bitcoin-iterate/chainindex"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/log"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// headerReadWindow bounds the single Read used to decode one block
// record's header: 4 (marker) + 4 (payload length) + 80 (header) + 9
// (a maximal 9-byte varint tx count) rounds up generously.
const headerReadWindow = 128

// earlyStopSlack is the height cushion past block_end at which the cold
// scan may stop reading further files (§4.E "early termination during
// scan"); it absorbs forks still resolving near the tip.
const earlyStopSlack = 100

// scanResult is the bookkeeping a cold scan returns to its caller.
type scanResult struct {
	blockCount       int
	lastBlockFilePath string
}

// scanAll performs a full cold scan of every block file in w, inserting
// every discovered block into idx. If blockEnd >= 0 it stops scanning
// once a block has been added whose height exceeds blockEnd+earlyStopSlack.
func scanAll(w *blkfile.Walker, idx *chainindex.Index, blockEnd int32) (scanResult, er.R) {
	var res scanResult
	indices := w.Indices()
	for _, n := range indices {
		path, _ := w.Path(n)
		res.lastBlockFilePath = path

		r, err := w.Get(n)
		if err != nil {
			return res, err
		}

		var pos int64
		for {
			scan, err := w.ScanForMarker(r, pos)
			if err != nil {
				return res, err
			}
			if !scan.Found {
				break
			}

			readLen := headerReadWindow
			if remaining := r.Size() - scan.Offset; remaining < int64(readLen) {
				readLen = int(remaining)
			}
			buf, err := r.Read(scan.Offset, readLen)
			if err != nil {
				return res, err
			}

			localOff := 0
			dh, err := wire.DecodeBlockHeader(buf, &localOff)
			if err != nil {
				return res, err
			}

			b := &chainindex.Block{
				ID:            dh.ID,
				Header:        dh.Header,
				FileIndex:     n,
				FirstTxOffset: scan.Offset + dh.FirstTxOffset,
				TxCount:       dh.TransactionCount,
			}
			if oldFile, replaced := idx.Insert(b); replaced {
				oldPath, _ := w.Path(oldFile)
				log.Warnf("duplicate block %s: stale copy was in %s", b.ID, oldPath)
			}
			res.blockCount++

			nextAbsolute := scan.Offset + dh.NextOffset
			r.DiscardUpTo(nextAbsolute)
			pos = nextAbsolute

			if blockEnd >= 0 && b.Height != chainindex.UnknownHeight && b.Height > blockEnd+earlyStopSlack {
				log.Infof("stopping scan early: block at height %d exceeds block_end+%d", b.Height, earlyStopSlack)
				return res, nil
			}
		}
	}
	return res, nil
}
