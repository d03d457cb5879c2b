// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/chainindex"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/log"
	"github.com/nelsontodd/bitcoin-iterate/wire"
)

// blockRecordLen is the fixed on-disk size of one cached block record:
// id(32) + header(80) + height(4) + fileIndex(4) + firstTxOffset(8) +
// txCount(8).
const blockRecordLen = chainhash.HashSize + wire.BlockHeaderLen + 4 + 4 + 8 + 8

// BlockCachePath returns the cache file name for a run whose last
// discovered block file is lastBlockFilePath: the cache is named after
// that file's basename so its own mtime tracks it (§4.G).
func BlockCachePath(cacheDir, lastBlockFilePath string) string {
	return filepath.Join(cacheDir, filepath.Base(lastBlockFilePath))
}

// BlockCacheValid reports whether the cache at cachePath is strictly
// newer than lastBlockFilePath, i.e. safe to trust without rescanning
// (§4.G). Any stat failure on either path is treated as "not valid".
// Only the last block file's mtime is compared, so an in-place edit of
// an earlier blk*.dat file goes undetected.
func BlockCacheValid(cachePath, lastBlockFilePath string) bool {
	blockInfo, err := os.Stat(lastBlockFilePath)
	if err != nil {
		return false
	}
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	return cacheInfo.ModTime().After(blockInfo.ModTime())
}

// WriteBlockCache writes every block in blocks to cachePath as a flat
// concatenation of fixed-size records (§4.G), overwriting any prior
// cache at that path.
func WriteBlockCache(cachePath string, blocks []*chainindex.Block) er.R {
	log.Debugf("writing %d blocks to cache at %s", len(blocks), cachePath)
	f, err := os.OpenFile(cachePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return ErrOpen.New(cachePath, er.E(err))
	}
	defer f.Close()

	buf := make([]byte, blockRecordLen)
	for _, b := range blocks {
		encodeBlockRecord(buf, b)
		if _, werr := f.Write(buf); werr != nil {
			return ErrWrite.New(cachePath, er.E(werr))
		}
	}
	return nil
}

// ReadBlockCache reads every record from cachePath. A truncated tail
// record (one that doesn't fill a full blockRecordLen) is treated as
// corruption: the file is deleted and a zero count, not-found result is
// returned so the caller falls back to a full rescan (§4.G).
func ReadBlockCache(cachePath string) ([]*chainindex.Block, bool, er.R) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, ErrRead.New(cachePath, er.E(err))
	}
	if len(data)%blockRecordLen != 0 {
		log.Warnf("truncated block cache %s: deleting", cachePath)
		_ = os.Remove(cachePath)
		return nil, false, nil
	}
	num := len(data) / blockRecordLen
	log.Debugf("adding %d blocks from cache at %s", num, cachePath)
	out := make([]*chainindex.Block, num)
	for i := 0; i < num; i++ {
		out[i] = decodeBlockRecord(data[i*blockRecordLen : (i+1)*blockRecordLen])
	}
	return out, true, nil
}

func encodeBlockRecord(buf []byte, b *chainindex.Block) {
	off := 0
	copy(buf[off:], b.ID[:])
	off += chainhash.HashSize
	binary.LittleEndian.PutUint32(buf[off:], b.Header.Version)
	off += 4
	copy(buf[off:], b.Header.PrevBlock[:])
	off += chainhash.HashSize
	copy(buf[off:], b.Header.MerkleRoot[:])
	off += chainhash.HashSize
	binary.LittleEndian.PutUint32(buf[off:], b.Header.Timestamp)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], b.Header.Bits)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], b.Header.Nonce)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(b.Height))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(b.FileIndex))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], uint64(b.FirstTxOffset))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], b.TxCount)
}

func decodeBlockRecord(buf []byte) *chainindex.Block {
	b := &chainindex.Block{}
	off := 0
	copy(b.ID[:], buf[off:off+chainhash.HashSize])
	off += chainhash.HashSize
	b.Header.Version = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	copy(b.Header.PrevBlock[:], buf[off:off+chainhash.HashSize])
	off += chainhash.HashSize
	copy(b.Header.MerkleRoot[:], buf[off:off+chainhash.HashSize])
	off += chainhash.HashSize
	b.Header.Timestamp = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	b.Header.Bits = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	b.Header.Nonce = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	b.Height = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	b.FileIndex = int(int32(binary.LittleEndian.Uint32(buf[off:])))
	off += 4
	b.FirstTxOffset = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	b.TxCount = binary.LittleEndian.Uint64(buf[off:])
	return b
}
