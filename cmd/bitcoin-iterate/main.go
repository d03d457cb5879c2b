// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command bitcoin-iterate is a thin demonstration driver for the walk
// package: it parses flags into a walk.Config and registers a Sink that
// writes one fixed-format debug line per entity. It intentionally does
// not implement the `%bh`/`%tF`/`%uC` format-string language — per
// spec.md §1 that interpreter is an external collaborator, not part of
// this module's core.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
	"github.com/jrick/logrotate/rotator"

	"github.com/nelsontodd/bitcoin-iterate/chainhash"
	"github.com/nelsontodd/bitcoin-iterate/log"
	"github.com/nelsontodd/bitcoin-iterate/walk"
)

type options struct {
	BlockDir      string `long:"blockdir" description:"Directory containing blk*.dat files (default: platform standard Bitcoin data directory)"`
	CacheDir      string `long:"cachedir" description:"Directory for block-index and UTXO caches"`
	LogDir        string `long:"logdir" description:"Directory to write rotated log output (default: stderr only)"`
	UseTestnet    bool   `long:"testnet" description:"Use the testnet3 network marker"`
	BlockStart    int32  `long:"blockstart" default:"-1" description:"Inclusive lower height bound"`
	StartHash     string `long:"starthash" description:"Inclusive lower bound, as a reversed-hex block id"`
	BlockEnd      int32  `long:"blockend" default:"-1" description:"Inclusive upper height bound"`
	EndHash       string `long:"endhash" description:"Inclusive upper bound and chain-tip pin, as a reversed-hex block id"`
	UtxoPeriod    int32  `long:"utxoperiod" default:"144" description:"Emit a UTXO snapshot every N blocks iterated"`
	UseMmap       bool   `long:"mmap" description:"Memory-map block files for zero-copy reads"`
	NeedsUTXO     bool   `long:"utxo" description:"Maintain the UTXO set and emit snapshots"`
	Quiet         bool   `short:"q" long:"quiet" description:"Suppress progress text on standard error"`
	ProgressMarks int    `long:"progress" default:"0" description:"Print this many '.' progress marks across the walk"`
	DebugLevel    string `short:"d" long:"debuglevel" default:"info" description:"Logging level: trace, debug, info, warn, error, critical"`
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := options{}
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}

	if lvl, ok := log.LevelFromString(opts.DebugLevel); ok {
		log.SetLevel(lvl)
	} else {
		fmt.Fprintf(os.Stderr, "bitcoin-iterate: unrecognized debug level %q, using info\n", opts.DebugLevel)
	}

	if opts.LogDir != "" {
		closer, err := wireLogRotator(opts.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bitcoin-iterate: %v\n", err)
			return 1
		}
		defer closer.Close()
	}

	cfg := walk.NewConfig()
	cfg.BlockDir = opts.BlockDir
	cfg.CacheDir = opts.CacheDir
	cfg.UseTestnet = opts.UseTestnet
	cfg.BlockStart = opts.BlockStart
	cfg.BlockEnd = opts.BlockEnd
	cfg.UtxoPeriod = opts.UtxoPeriod
	cfg.UseMmap = opts.UseMmap
	cfg.NeedsUTXO = opts.NeedsUTXO
	cfg.Quiet = opts.Quiet
	cfg.ProgressMarks = opts.ProgressMarks

	if opts.StartHash != "" {
		h, err := chainhash.NewHashFromStr(opts.StartHash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bitcoin-iterate: bad --starthash: %v\n", err)
			return 1
		}
		cfg.StartHash = h
	}
	if opts.EndHash != "" {
		h, err := chainhash.NewHashFromStr(opts.EndHash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bitcoin-iterate: bad --endhash: %v\n", err)
			return 1
		}
		cfg.EndHash = h
	}

	sink := &debugSink{out: os.Stdout}
	if err := walk.Walk(cfg, sink); err != nil {
		fmt.Fprintf(os.Stderr, "bitcoin-iterate: %v\n", err)
		return 1
	}
	return 0
}

// wireLogRotator redirects package log's output through a
// github.com/jrick/logrotate/rotator writer (the same rotation library
// the teacher's full daemon uses for its own log file), in addition to
// stderr.
func wireLogRotator(logDir string) (io.Closer, error) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, err
	}
	r, err := rotator.New(filepath.Join(logDir, "bitcoin-iterate.log"), 10*1024, false, 3)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, r))
	return r, nil
}
