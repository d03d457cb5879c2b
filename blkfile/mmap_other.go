// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !unix

package blkfile

import (
	"fmt"
	"os"
)

// mmapFile is unsupported outside unix-family platforms; Reader falls
// back to the buffered pread path transparently (see Open).
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return nil, fmt.Errorf("mmap not supported on this platform")
}

func munmapFile(data []byte) {}

func madviseDontNeed(data []byte, from, to int64) {}
