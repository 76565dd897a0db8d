// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pairio

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/grailbio/flixdb/internal/defaultsize"
)

// A Spiller manages a set of local, temporary pair files. Spill files
// are read back in the order in which they were spilled.
type Spiller struct {
	dir string
	n   int
}

// NewSpiller creates and returns a new spiller backed by a
// temporary directory.
func NewSpiller(name string) (*Spiller, error) {
	dir, err := ioutil.TempDir("", fmt.Sprintf("spiller-%s-", name))
	if err != nil {
		return nil, err
	}
	return &Spiller{dir: dir}, nil
}

// Spill spills the provided pairs to a new file in the spiller.
// Spill returns the file's encoded size, or an error.
func (s *Spiller) Spill(pairs []Pair) (int, error) {
	f, err := os.Create(filepath.Join(s.dir, fmt.Sprintf("%08d", s.n)))
	if err != nil {
		return 0, err
	}
	s.n++
	w := bufio.NewWriterSize(f, defaultsize.WriteBuffer)
	var buf [PairSize]byte
	for _, p := range pairs {
		p.put(buf[:])
		if _, err := w.Write(buf[:]); err != nil {
			f.Close()
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return len(pairs) * PairSize, nil
}

// Len returns the number of spill files.
func (s *Spiller) Len() int { return s.n }

// A ReadCloser is a pair Reader that owns its underlying stream.
type ReadCloser struct {
	*Reader
	io.Closer
}

// Readers returns a reader for each spill file, in spill order. The
// caller must close the readers.
func (s *Spiller) Readers() ([]*ReadCloser, error) {
	f, err := os.Open(s.dir)
	if err != nil {
		return nil, err
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	readers := make([]*ReadCloser, len(names))
	for i := range names {
		f, err := os.Open(filepath.Join(s.dir, names[i]))
		if err != nil {
			for j := 0; j < i; j++ {
				readers[j].Close()
			}
			return nil, err
		}
		readers[i] = &ReadCloser{NewReader(f), f}
	}
	return readers, nil
}

// Cleanup removes the spiller's temporary files. It is safe to call
// Cleanup after Readers(), but before reading is done.
func (s *Spiller) Cleanup() error {
	return os.RemoveAll(s.dir)
}
