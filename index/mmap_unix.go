// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package index

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the size bytes of the local file at path read-only.
// It returns the mapping and a function that unmaps it.
func mmapFile(path string, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	p, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	// Lookups are random.
	_ = unix.Madvise(p, unix.MADV_RANDOM)
	return p, func() error { return unix.Munmap(p) }, nil
}
