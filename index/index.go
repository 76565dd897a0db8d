// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/flixdb/record"
	"github.com/grailbio/flixdb/recordio"
	"github.com/spaolacci/murmur3"
)

// An Index provides random access to the records of a data file by
// key. Indices are safe for concurrent use.
type Index struct {
	typ     record.Type
	path    string
	keys    []uint32
	offsets []int64 // len(keys)+1; the last is the data size
	data    data
}

// Open opens the index stored in the index file idxPath and data file
// datPath. The whole offset table is loaded into memory. Open returns
// an error of kind errors.NotExist if either file is missing, and of
// kind errors.Integrity if the index file is corrupt or does not
// match the data file.
func Open(ctx context.Context, idxPath, datPath string) (*Index, error) {
	p, err := readFile(ctx, idxPath)
	if err != nil {
		return nil, err
	}
	x := &Index{path: idxPath}
	if err := x.decodeTable(p); err != nil {
		return nil, err
	}
	info, err := file.Stat(ctx, datPath)
	if err != nil {
		return nil, notExist(err)
	}
	if size := x.offsets[len(x.keys)]; info.Size() != size {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("index %s: data file %s has size %d, expected %d", idxPath, datPath, info.Size(), size))
	}
	if x.data, err = openData(ctx, datPath, info.Size()); err != nil {
		return nil, err
	}
	log.Debug.Printf("index %s: opened %d %s records", idxPath, len(x.keys), x.typ)
	return x, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, notExist(err)
	}
	p, err := ioutil.ReadAll(f.Reader(ctx))
	if cerr := f.Close(ctx); err == nil {
		err = cerr
	}
	return p, err
}

// notExist normalizes missing-file errors to errors.NotExist.
func notExist(err error) error {
	if errors.Is(errors.NotExist, err) {
		return err
	}
	return errors.E(errors.NotExist, err)
}

func (x *Index) corrupt(msg string) error {
	return errors.E(errors.Integrity, fmt.Sprintf("index %s: %s", x.path, msg))
}

func (x *Index) decodeTable(p []byte) error {
	if len(p) < 18 {
		return x.corrupt("short index file")
	}
	body, sum := p[:len(p)-8], order.Uint64(p[len(p)-8:])
	if got := murmur3.Sum64(body); got != sum {
		return x.corrupt(fmt.Sprintf("checksum mismatch: got %x, want %x", got, sum))
	}
	if order.Uint64(body) != magic {
		return x.corrupt("bad magic")
	}
	if body[8] > byte(record.Users) || body[9] > 1 {
		return x.corrupt(fmt.Sprintf("bad record type %d/%d", body[8], body[9]))
	}
	x.typ = record.Type{Kind: record.Kind(body[8]), Rated: body[9] == 1}
	body = body[10:]
	uvarint := func() (uint64, bool) {
		v, n := binary.Uvarint(body)
		if n <= 0 {
			return 0, false
		}
		body = body[n:]
		return v, true
	}
	count, ok := uvarint()
	if !ok || count > uint64(len(body)) {
		return x.corrupt("bad entry count")
	}
	size, ok := uvarint()
	if !ok {
		return x.corrupt("bad data size")
	}
	x.keys = make([]uint32, count)
	x.offsets = make([]int64, count+1)
	var (
		key uint64
		off uint64
	)
	for i := range x.keys {
		dkey, ok1 := uvarint()
		doff, ok2 := uvarint()
		if !ok1 || !ok2 {
			return x.corrupt(fmt.Sprintf("truncated entry %d", i))
		}
		if i > 0 && dkey == 0 {
			return x.corrupt(fmt.Sprintf("entry %d: keys not strictly ascending", i))
		}
		key += dkey
		off += doff
		if key > uint64(x.typ.Kind.MaxKey()) || off > size {
			return x.corrupt(fmt.Sprintf("entry %d: key %d offset %d out of range", i, key, off))
		}
		x.keys[i], x.offsets[i] = uint32(key), int64(off)
	}
	if len(body) != 0 {
		return x.corrupt(fmt.Sprintf("%d trailing bytes", len(body)))
	}
	if count == 0 && size != 0 || count > 0 && x.offsets[0] != 0 {
		return x.corrupt("table does not begin at offset 0")
	}
	x.offsets[count] = int64(size)
	return nil
}

// Type returns the type of the index's records.
func (x *Index) Type() record.Type { return x.typ }

// Len returns the number of records in the index.
func (x *Index) Len() int { return len(x.keys) }

// Size returns the size of the index's data file, in bytes.
func (x *Index) Size() int64 { return x.offsets[len(x.keys)] }

// Keys returns the index's keys in ascending order. The returned
// slice must not be modified.
func (x *Index) Keys() []uint32 { return x.keys }

// Has tells whether the index contains a record with the provided key.
func (x *Index) Has(key uint32) bool {
	_, ok := x.find(key)
	return ok
}

func (x *Index) find(key uint32) (int, bool) {
	i := sort.Search(len(x.keys), func(i int) bool { return x.keys[i] >= key })
	return i, i < len(x.keys) && x.keys[i] == key
}

// Get returns the record with the provided key. Get returns an error
// of kind errors.NotExist if there is no such record, and of kind
// errors.Integrity if the stored record does not match the table.
func (x *Index) Get(key uint32) (*record.Record, error) {
	i, ok := x.find(key)
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("index %s: no record for %s %d", x.path, x.typ.Kind, key))
	}
	beg, end := x.offsets[i], x.offsets[i+1]
	p, err := x.data.read(beg, int(end-beg))
	if err != nil {
		return nil, err
	}
	rec, n, err := record.DecodeBytes(p, x.typ)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("index %s: key %d", x.path, key))
	}
	if n != len(p) || rec.Key() != key {
		return nil, x.corrupt(fmt.Sprintf("record at offset %d: got key %d (%d bytes), want key %d (%d bytes)", beg, rec.Key(), n, key, len(p)))
	}
	return rec, nil
}

// Scan returns a scanner of all of the index's records, in key order.
// The scanner verifies that the data file is consistent with the
// offset table.
func (x *Index) Scan(ctx context.Context, opts ...recordio.Option) *Scanner {
	r, closer, err := x.data.reader(ctx)
	if err != nil {
		return &Scanner{err: err}
	}
	return &Scanner{
		index:   x,
		scanner: recordio.NewScanner(recordio.NewReader(r, x.typ, opts...)),
		closer:  closer,
	}
}

// Close releases the index's resources.
func (x *Index) Close() error {
	return x.data.close()
}

// A Scanner scans the records of an index sequentially.
type Scanner struct {
	index   *Index
	scanner *recordio.Scanner
	closer  func() error
	i       int
	err     error
}

// Scan advances to the next record, returning false at the end of the
// index or after an error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if !s.scanner.Scan() {
		s.err = s.scanner.Err()
		if s.err == nil && s.i != len(s.index.keys) {
			s.err = s.index.corrupt(fmt.Sprintf("data file ends after %d of %d records", s.i, len(s.index.keys)))
		}
		if s.err == nil {
			s.err = io.EOF
		}
		return false
	}
	if s.i >= len(s.index.keys) {
		s.err = s.index.corrupt(fmt.Sprintf("data file holds more than %d records", len(s.index.keys)))
		return false
	}
	if key, off := s.scanner.Record().Key(), s.scanner.Offset(); key != s.index.keys[s.i] || off != s.index.offsets[s.i] {
		s.err = s.index.corrupt(fmt.Sprintf("record %d: got key %d at offset %d, want key %d at offset %d",
			s.i, key, off, s.index.keys[s.i], s.index.offsets[s.i]))
		return false
	}
	s.i++
	return true
}

// Record returns the last scanned record.
func (s *Scanner) Record() *record.Record { return s.scanner.Record() }

// Err returns the error, if any, that stopped scanning.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Close releases the scanner's resources.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Data provides access to the bytes of a data file.
type data interface {
	// Read returns the n bytes at offset off.
	read(off int64, n int) ([]byte, error)
	// Reader returns a sequential reader of the whole file and a function
	// that releases it.
	reader(ctx context.Context) (io.Reader, func() error, error)
	close() error
}

func openData(ctx context.Context, path string, size int64) (data, error) {
	if scheme, _, err := file.ParsePath(path); err == nil && scheme == "" {
		p, unmap, err := mmapFile(path, size)
		if err == nil {
			return &mappedData{p, unmap}, nil
		}
		log.Debug.Printf("index: mmap %s: %v; falling back to reads", path, err)
	}
	return openFileData(ctx, path)
}

func openFileData(ctx context.Context, path string) (data, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, notExist(err)
	}
	return &fileData{ctx: ctx, path: path, file: f, r: f.Reader(ctx)}, nil
}

type mappedData struct {
	p     []byte
	unmap func() error
}

func (m *mappedData) read(off int64, n int) ([]byte, error) {
	return m.p[off : off+int64(n)], nil
}

func (m *mappedData) reader(context.Context) (io.Reader, func() error, error) {
	return bytes.NewReader(m.p), nil, nil
}

func (m *mappedData) close() error {
	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.p, m.unmap = nil, nil
	return err
}

type fileData struct {
	ctx  context.Context
	path string

	mu   sync.Mutex
	file file.File
	r    io.ReadSeeker
}

func (f *fileData) read(off int64, n int) ([]byte, error) {
	p := make([]byte, n)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(f.r, p); err != nil {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("data file %s: read %d bytes at offset %d", f.path, n, off), err)
	}
	return p, nil
}

func (f *fileData) reader(ctx context.Context) (io.Reader, func() error, error) {
	g, err := file.Open(ctx, f.path)
	if err != nil {
		return nil, nil, notExist(err)
	}
	return g.Reader(ctx), func() error { return g.Close(ctx) }, nil
}

func (f *fileData) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close(f.ctx)
}
