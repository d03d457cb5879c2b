// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walk

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/nelsontodd/bitcoin-iterate/blkfile"
	"github.com/nelsontodd/bitcoin-iterate/cache"
	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/chainindex"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/log"
	"github.com/nelsontodd/bitcoin-iterate/utxo"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// ErrorType groups this package's fatal failures.
var ErrorType = er.NewErrorType("walk.ErrorType")

var (
	ErrNoGenesis    = ErrorType.Code("ErrNoGenesis")
	ErrUnknownBound = ErrorType.Code("ErrUnknownBound")
)

// Walk is the driver of §4.H: it discovers block files, assembles the
// chain (cache or cold scan), maintains the UTXO set across the
// requested range, and invokes sink once per block/tx/input/output in
// canonical order, plus once per utxo_period blocks for a UTXO
// snapshot.
//
// When the caller needs UTXO maintenance and no valid UTXO cache exists
// at the start block, the walk silently replays from genesis to build
// the correct set before the start block is reached — sink is not
// invoked for that replayed prefix, matching §4.H step 4's "write it if
// just computed" cache-population rule.
func Walk(cfg Config, sink Sink) er.R {
	if cfg.UtxoPeriod <= 0 {
		cfg.UtxoPeriod = DefaultUtxoPeriod
	}
	marker := wire.MainNetMarker
	if cfg.UseTestnet {
		marker = wire.TestNet3Marker
	}
	blockDir := blkfile.ResolveBlockDir(cfg.BlockDir, cfg.UseTestnet)

	w, err := blkfile.NewWalker(blockDir, marker, cfg.UseMmap)
	if err != nil {
		return err
	}
	defer w.Close()

	idx, builtFromCache, lastBlockFilePath, err := assembleChain(w, cfg)
	if err != nil {
		return err
	}

	genesis, ok := idx.Genesis()
	if !ok {
		return ErrNoGenesis.New(blockDir, nil)
	}

	idx.ResolveHeights()

	if _, err := idx.Linearize(chainindex.Bounds{
		EndHash: cfg.EndHash,
		EndErr:  cfg.BlockEnd,
	}); err != nil {
		return err
	}

	startBlock, err := resolveBound(genesis, cfg.StartHash, cfg.BlockStart)
	if err != nil {
		return err
	}

	if !builtFromCache && cfg.CacheDir != "" && cfg.BlockEnd < 0 && cfg.EndHash == nil {
		if mkErr := cache.EnsureDir(cfg.CacheDir); mkErr != nil {
			return mkErr
		}
		blockCachePath := cache.BlockCachePath(cfg.CacheDir, lastBlockFilePath)
		if wErr := cache.WriteBlockCache(blockCachePath, idx.All()); wErr != nil {
			return wErr
		}
	}

	utxoSet := utxo.NewSet()
	var utxoCachePath string
	skipPrefix := true
	if cfg.NeedsUTXO {
		skipPrefix = false
		if cfg.CacheDir != "" {
			if mkErr := cache.EnsureDir(cfg.CacheDir); mkErr != nil {
				return mkErr
			}
			utxoCachePath = cache.UTXOCachePath(cfg.CacheDir, startBlock.ID)
			groups, found, readErr := cache.ReadUTXOCache(utxoCachePath)
			if readErr != nil {
				return readErr
			}
			if found {
				utxoSet.Restore(groups)
				skipPrefix = true
			}
		}
	}

	progress := newProgressReporter(cfg, startBlock)

	var lastSnapshotBlock *chainindex.Block
	blocksSinceStart := int32(0)

	cur := genesis
	if skipPrefix {
		cur = startBlock
	}
	reachedStart := false
	for cur != nil {
		atStart := cur == startBlock
		maintainUTXO := !skipPrefix || (cfg.NeedsUTXO && reachedStart)
		if atStart {
			if !skipPrefix && utxoCachePath != "" {
				if wErr := cache.WriteUTXOCache(utxoCachePath, utxoSet.Snapshot()); wErr != nil {
					return wErr
				}
			}
			reachedStart = true
			maintainUTXO = cfg.NeedsUTXO
		}
		emit := reachedStart

		var decoded []*wire.MsgTx
		if (emit || maintainUTXO) && cur.TxCount > 0 {
			decoded, err = decodeBlockTxs(w, cur)
			if err != nil {
				return err
			}
		}

		if emit {
			sink.Block(&BlockView{Block: cur, UTXOs: utxoSet})
		}

		for txNum, tx := range decoded {
			if emit {
				sink.Tx(&BlockView{Block: cur, UTXOs: utxoSet}, txNum, tx)
			}
			isCoinbase := txNum == 0
			for i := range tx.TxIn {
				if emit {
					sink.Input(&BlockView{Block: cur, UTXOs: utxoSet}, txNum, tx, i, &tx.TxIn[i])
				}
				if maintainUTXO && !isCoinbase {
					in := &tx.TxIn[i]
					if rErr := utxoSet.ReleaseUTXO(wire.OutPoint{Hash: in.PrevTxid, Index: in.PrevIndex}); rErr != nil {
						return rErr
					}
				}
			}
			if emit {
				for i := range tx.TxOut {
					sink.Output(&BlockView{Block: cur, UTXOs: utxoSet}, txNum, tx, i, &tx.TxOut[i])
				}
			}
			if maintainUTXO {
				utxoSet.AddUTXOs(tx.Txid, cur.Header.Timestamp, cur.Height, uint64(txNum), tx)
			}
		}

		if reachedStart {
			blocksSinceStart++
			progress.tick(cur)
			if cfg.NeedsUTXO && blocksSinceStart%cfg.UtxoPeriod == 0 {
				sink.UTXOSnapshot(&UTXOSnapshotView{
					Block:             cur,
					UTXOs:             utxoSet,
					LastSnapshotBlock: lastSnapshotBlock,
				})
				lastSnapshotBlock = cur
			}
		}

		cur = cur.Next
	}
	progress.finish()

	return nil
}

// resolveBound looks up the requested start bound: hash takes priority
// over height; height <= 0 (including the NewConfig sentinel of -1)
// means genesis.
func resolveBound(genesis *chainindex.Block, hash *chainhash.Hash, height int32) (*chainindex.Block, er.R) {
	if hash != nil {
		for cur := genesis; cur != nil; cur = cur.Next {
			if cur.ID == *hash {
				return cur, nil
			}
		}
		return nil, ErrUnknownBound.New(hash.String(), nil)
	}
	if height <= 0 {
		return genesis, nil
	}
	for cur := genesis; cur != nil; cur = cur.Next {
		if cur.Height == height {
			return cur, nil
		}
	}
	return nil, ErrUnknownBound.New(fmt.Sprintf("height %d", height), nil)
}

// assembleChain builds the block index, preferring a valid block cache
// over a cold scan (§4.G, §4.H step 1).
func assembleChain(w *blkfile.Walker, cfg Config) (idx *chainindex.Index, builtFromCache bool, lastBlockFilePath string, err er.R) {
	indices := w.Indices()
	if len(indices) > 0 {
		lastBlockFilePath, _ = w.Path(indices[len(indices)-1])
	}

	idx = chainindex.NewIndex()

	if cfg.CacheDir != "" && lastBlockFilePath != "" {
		blockCachePath := cache.BlockCachePath(cfg.CacheDir, lastBlockFilePath)
		if cache.BlockCacheValid(blockCachePath, lastBlockFilePath) {
			blocks, found, rErr := cache.ReadBlockCache(blockCachePath)
			if rErr != nil {
				return nil, false, lastBlockFilePath, rErr
			}
			if found {
				for _, b := range blocks {
					idx.Insert(b)
				}
				return idx, true, lastBlockFilePath, nil
			}
		}
	}

	if _, sErr := scanAll(w, idx, cfg.BlockEnd); sErr != nil {
		return nil, false, lastBlockFilePath, sErr
	}
	return idx, false, lastBlockFilePath, nil
}

// decodeBlockTxs re-seeks to a block's first transaction and decodes
// exactly TxCount transactions, relying on each transaction's own
// encoding to be self-delimiting — the block record carries no payload
// length, matching §3's in-memory data model exactly.
func decodeBlockTxs(w *blkfile.Walker, b *chainindex.Block) ([]*wire.MsgTx, er.R) {
	r, err := w.Get(b.FileIndex)
	if err != nil {
		return nil, err
	}
	remaining := r.Size() - b.FirstTxOffset
	buf, err := r.Read(b.FirstTxOffset, int(remaining))
	if err != nil {
		return nil, err
	}
	off := 0
	txs := make([]*wire.MsgTx, b.TxCount)
	for i := range txs {
		tx, dErr := wire.DecodeTx(buf, &off)
		if dErr != nil {
			return nil, dErr
		}
		txs[i] = tx
	}
	return txs, nil
}

// progressReporter prints progress dots across [start, end] (§4
// supplemented feature 1) unless Quiet.
type progressReporter struct {
	enabled    bool
	nextMarkAt int32
	markStep   int32
}

func newProgressReporter(cfg Config, startBlock *chainindex.Block) *progressReporter {
	p := &progressReporter{}
	if cfg.Quiet || cfg.ProgressMarks <= 0 || cfg.BlockEnd < 0 {
		return p
	}
	span := cfg.BlockEnd - startBlock.Height
	if span <= 0 {
		return p
	}
	p.enabled = true
	p.markStep = span / int32(cfg.ProgressMarks)
	if p.markStep <= 0 {
		p.markStep = 1
	}
	p.nextMarkAt = startBlock.Height + p.markStep
	log.Infof("iterating %s blocks from height %d", humanize.Comma(int64(span)), startBlock.Height)
	return p
}

func (p *progressReporter) tick(b *chainindex.Block) {
	if !p.enabled {
		return
	}
	for b.Height >= p.nextMarkAt {
		fmt.Fprint(os.Stderr, ".")
		p.nextMarkAt += p.markStep
	}
}

func (p *progressReporter) finish() {
	if !p.enabled {
		return
	}
	fmt.Fprintln(os.Stderr)
}
