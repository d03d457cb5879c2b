// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
	"github.com/nelsontodd/bitcoin-iterate/log"
	"github.com/nelsontodd/bitcoin-iterate/utxo"
)

// utxoHeaderLen is the fixed portion of a variable-length UTXO group
// record: txid(32) + timestamp(4) + height(4) + txnum(8) + numOutputs(4).
const utxoHeaderLen = chainhash.HashSize + 4 + 4 + 8 + 4

// utxoOutputLen is the per-output portion: amount(8) + outputType(1) +
// spent(1).
const utxoOutputLen = 8 + 1 + 1

// UTXOCachePath returns the cache file name for a UTXO snapshot taken at
// blockID: a plain hex encoding of the block hash, matching
// original_source/cache.c's hex_encode of blockid (§4.G).
func UTXOCachePath(cacheDir string, blockID chainhash.Hash) string {
	return filepath.Join(cacheDir, hex.EncodeToString(blockID[:]))
}

// WriteUTXOCache writes groups to cachePath as a flat concatenation of
// variable-length records. It refuses to overwrite an existing file
// (§4.G: the original only ever creates a fresh snapshot file per start
// block and silently skips if one is already there).
func WriteUTXOCache(cachePath string, groups []*utxo.Group) er.R {
	f, err := os.OpenFile(cachePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return ErrOpen.New(cachePath, er.E(err))
	}
	defer f.Close()

	log.Debugf("writing %d UTXOs to cache at %s", len(groups), cachePath)
	for _, g := range groups {
		rec := encodeUTXORecord(g)
		if _, werr := f.Write(rec); werr != nil {
			return ErrWrite.New(cachePath, er.E(werr))
		}
	}
	return nil
}

// ReadUTXOCache reads every group from cachePath. A record whose
// declared output count would run past the end of the file is treated
// as corruption: the file is deleted and a not-found result returned
// (§4.G), exactly as original_source/cache.c's read_utxo_cache does on
// a truncated tail.
func ReadUTXOCache(cachePath string) ([]*utxo.Group, bool, er.R) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, ErrRead.New(cachePath, er.E(err))
	}

	var groups []*utxo.Group
	off := 0
	for off < len(data) {
		if off+utxoHeaderLen > len(data) {
			log.Warnf("truncated UTXO cache %s: deleting", cachePath)
			_ = os.Remove(cachePath)
			return nil, false, nil
		}
		g, next, ok := decodeUTXORecord(data, off)
		if !ok {
			log.Warnf("truncated UTXO cache %s: deleting", cachePath)
			_ = os.Remove(cachePath)
			return nil, false, nil
		}
		groups = append(groups, g)
		off = next
	}
	log.Debugf("read %d UTXOs from cache at %s", len(groups), cachePath)
	return groups, true, nil
}

func encodeUTXORecord(g *utxo.Group) []byte {
	n := len(g.Amounts)
	buf := make([]byte, utxoHeaderLen+n*utxoOutputLen)
	off := 0
	copy(buf[off:], g.Txid[:])
	off += chainhash.HashSize
	binary.LittleEndian.PutUint32(buf[off:], g.Timestamp)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(g.Height))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], g.TxNum)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(n))
	off += 4
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[off:], g.Amounts[i])
		off += 8
		buf[off] = byte(g.OutputTypes[i])
		off++
		if g.IsSpent(i) {
			buf[off] = 1
		}
		off++
	}
	return buf
}

func decodeUTXORecord(data []byte, start int) (*utxo.Group, int, bool) {
	off := start
	var txid chainhash.Hash
	copy(txid[:], data[off:off+chainhash.HashSize])
	off += chainhash.HashSize
	timestamp := binary.LittleEndian.Uint32(data[off:])
	off += 4
	height := int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	txnum := binary.LittleEndian.Uint64(data[off:])
	off += 8
	n := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4

	if off+n*utxoOutputLen > len(data) {
		return nil, 0, false
	}
	amounts := make([]uint64, n)
	types := make([]uint8, n)
	spent := make([]bool, n)
	for i := 0; i < n; i++ {
		amounts[i] = binary.LittleEndian.Uint64(data[off:])
		off += 8
		types[i] = data[off]
		off++
		spent[i] = data[off] != 0
		off++
	}
	return utxo.RestoreGroup(txid, timestamp, height, txnum, amounts, types, spent), off, true
}
