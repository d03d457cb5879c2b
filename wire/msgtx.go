// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"crypto/sha256"
	"hash"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/er"
)

// OutPoint identifies a previous transaction output.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn is a transaction input (§3).
type TxIn struct {
	PrevTxid chainhash.Hash
	PrevIndex uint32
	Script    []byte
	// Witness holds the per-item witness stack; nil for non-segwit
	// transactions and for every input of a non-segwit transaction.
	Witness [][]byte
	Sequence uint32
}

// TxOut is a transaction output (§3).
type TxOut struct {
	Amount uint64
	Script []byte
}

// MsgTx is a fully decoded transaction (§3), with both hash variants
// and the length bookkeeping §4.D's invariants depend on.
type MsgTx struct {
	Version  uint32
	TxIn     []TxIn
	TxOut    []TxOut
	LockTime uint32

	IsSegWit bool
	Txid     chainhash.Hash
	Wtxid    chainhash.Hash

	// TotalLen is the full on-disk length of the transaction.
	TotalLen int
	// NonSegWitLen is the length of the original (pre-segwit)
	// serialization: version + inputs + outputs + locktime, excluding
	// the segwit marker/flag and witness data.
	NonSegWitLen int
}

// VirtualLen returns ceil((3*NonSegWitLen + TotalLen) / 4), the SegWit
// virtual size used for fee-rate style calculations. It equals TotalLen
// for non-segwit transactions.
func (tx *MsgTx) VirtualLen() int {
	weight := tx.Weight()
	return (weight + 3) / 4
}

// Weight returns 3*NonSegWitLen + TotalLen.
func (tx *MsgTx) Weight() int {
	return 3*tx.NonSegWitLen + tx.TotalLen
}

// txHasher accumulates only the byte ranges that belong to a
// transaction's original (pre-segwit) serialization, incrementally, so
// the TXID digest never needs those bytes assembled into a fresh
// buffer — marker/flag and witness ranges are simply never fed in.
type txHasher struct {
	sha    hash.Hash
	ctxOff int
	nsLen  int
}

func newTxHasher(start int) *txHasher {
	return &txHasher{sha: sha256.New(), ctxOff: start}
}

// flush appends b[ctxOff:upTo) to the running digest and to the
// non-segwit length counter, then advances ctxOff to upTo.
func (th *txHasher) flush(b []byte, upTo int) {
	if upTo > th.ctxOff {
		th.sha.Write(b[th.ctxOff:upTo])
		th.nsLen += upTo - th.ctxOff
	}
	th.ctxOff = upTo
}

// reset discards [ctxOff, upTo) from the digest without counting it —
// used to drop the segwit marker+flag and the witness region (§4.D
// steps 2 and 6).
func (th *txHasher) reset(upTo int) {
	th.ctxOff = upTo
}

func (th *txHasher) sum() chainhash.Hash {
	first := th.sha.Sum(nil)
	return chainhash.Hash(sha256.Sum256(first))
}

// DecodeTx decodes a transaction at *off following §4.D's exact
// algorithm: a single forward pass that simultaneously builds the input
// list, the output list, the TXID digest (skipping the segwit
// marker/flag and witness bytes) and the NonSegWitLen counter, then
// computes the WTXID as a fresh double-SHA256 over the whole on-disk
// range when segwit.
func DecodeTx(b []byte, off *int) (*MsgTx, er.R) {
	start := *off
	tx := &MsgTx{}

	th := newTxHasher(start)

	// Step 1: version.
	version, err := PullUint32LE(b, off)
	if err != nil {
		return nil, err
	}
	tx.Version = version
	th.flush(b, *off)

	// Step 2: input count, with segwit marker/flag detection.
	count0, err := PullVarInt(b, off)
	if err != nil {
		return nil, err
	}
	var inputCount uint64
	if count0 == 0 {
		tx.IsSegWit = true
		flag, err := PullVarInt(b, off)
		if err != nil {
			return nil, err
		}
		if flag != 1 {
			return nil, ErrBadSegwitFlag.New("", nil)
		}
		// Discard the marker+flag bytes from both the digest and the
		// non-segwit length count.
		th.reset(*off)
		inputCount, err = PullVarInt(b, off)
		if err != nil {
			return nil, err
		}
	} else {
		inputCount = count0
	}

	// Step 3: inputs.
	tx.TxIn = make([]TxIn, inputCount)
	for i := range tx.TxIn {
		in := &tx.TxIn[i]
		if in.PrevTxid, err = PullHash(b, off); err != nil {
			return nil, err
		}
		if in.PrevIndex, err = PullUint32LE(b, off); err != nil {
			return nil, err
		}
		scriptLen, err := PullVarInt(b, off)
		if err != nil {
			return nil, err
		}
		if in.Script, err = PullBytes(b, off, int(scriptLen)); err != nil {
			return nil, err
		}
		if in.Sequence, err = PullUint32LE(b, off); err != nil {
			return nil, err
		}
	}

	// Step 4: outputs.
	outputCount, err := PullVarInt(b, off)
	if err != nil {
		return nil, err
	}
	tx.TxOut = make([]TxOut, outputCount)
	for i := range tx.TxOut {
		out := &tx.TxOut[i]
		if out.Amount, err = PullUint64LE(b, off); err != nil {
			return nil, err
		}
		scriptLen, err := PullVarInt(b, off)
		if err != nil {
			return nil, err
		}
		if out.Script, err = PullBytes(b, off, int(scriptLen)); err != nil {
			return nil, err
		}
	}

	// Step 5: flush inputs+outputs into the digest.
	th.flush(b, *off)

	// Step 6: witnesses, segwit only.
	if tx.IsSegWit {
		for i := range tx.TxIn {
			stackCount, err := PullVarInt(b, off)
			if err != nil {
				return nil, err
			}
			witness := make([][]byte, stackCount)
			for j := range witness {
				itemLen, err := PullVarInt(b, off)
				if err != nil {
					return nil, err
				}
				if witness[j], err = PullBytes(b, off, int(itemLen)); err != nil {
					return nil, err
				}
			}
			tx.TxIn[i].Witness = witness
		}
		// Discard witness bytes from the digest and the length count.
		th.reset(*off)
	}

	// Step 7: lock time.
	if tx.LockTime, err = PullUint32LE(b, off); err != nil {
		return nil, err
	}
	th.flush(b, *off)

	// Step 8.
	tx.TotalLen = *off - start
	tx.NonSegWitLen = th.nsLen

	// Step 9: TXID.
	tx.Txid = th.sum()

	// Step 10: WTXID.
	if tx.IsSegWit {
		if err := need(b, start, *off-start); err != nil {
			return nil, err
		}
		tx.Wtxid = chainhash.DoubleHashH(b[start:*off])
	} else {
		tx.Wtxid = tx.Txid
	}

	return tx, nil
}

// OpReturn is the opcode that marks an output as provably unspendable
// (§4.F admission step 1).
const OpReturn = 0x6a

// IsUnspendable reports whether an output's script begins with OP_RETURN.
func (o *TxOut) IsUnspendable() bool {
	return len(o.Script) > 0 && o.Script[0] == OpReturn
}
