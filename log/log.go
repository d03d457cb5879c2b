// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log implements the small leveled logger every core package in
// this repository writes progress and warning lines through, adapted
// from the teacher's pktlog/log. Unlike that original it is not wired to
// a background channel: batch runs are already single-threaded, so a
// direct, synchronous write keeps ordering obvious
// between log lines and the progress dots in walk.Walk.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the level at which a logger is configured.
type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelStrs = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT"}

func (l Level) String() string {
	if l >= LevelOff {
		return "OFF"
	}
	return levelStrs[l]
}

// LevelFromString parses a level name, defaulting to Info on failure.
func LevelFromString(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "trace", "trc":
		return LevelTrace, true
	case "debug", "dbg":
		return LevelDebug, true
	case "info", "inf":
		return LevelInfo, true
	case "warn", "wrn":
		return LevelWarn, true
	case "error", "err":
		return LevelError, true
	case "critical", "crt":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	default:
		return LevelInfo, false
	}
}

type backend struct {
	mu  sync.Mutex
	w   io.Writer
	lvl Level
}

var b = &backend{w: os.Stderr, lvl: LevelInfo}

// SetOutput redirects all log output to w. cmd/bitcoin-iterate wires this
// to stderr plus a github.com/jrick/logrotate rotating writer when
// --logdir is given.
func SetOutput(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.w = w
}

// SetLevel sets the minimum level that will be written.
func SetLevel(lvl Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lvl = lvl
}

func doLog(lvl Level, format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lvl < b.lvl {
		return
	}
	now := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(b.w, "%s [%s] %s\n", now, lvl, msg)
}

func Tracef(format string, args ...interface{})    { doLog(LevelTrace, format, args...) }
func Debugf(format string, args ...interface{})    { doLog(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})     { doLog(LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})     { doLog(LevelWarn, format, args...) }
func Errorf(format string, args ...interface{})    { doLog(LevelError, format, args...) }
func Criticalf(format string, args ...interface{}) { doLog(LevelCritical, format, args...) }
