// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package index

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/flixdb/record"
	"github.com/grailbio/flixdb/recordio"
	"github.com/spaolacci/murmur3"
)

const magic = 0x7a1df11e5ca1ab1e

var order = binary.LittleEndian

// A Writer writes an index: records are appended to the data file as
// they are added, and the index file is written when the Writer is
// closed.
type Writer struct {
	ctx     context.Context
	idxPath string
	typ     record.Type
	dat     file.File
	w       *recordio.Writer

	keys    []uint32
	offsets []int64
	err     error
}

// Create returns a Writer of an index of records of type typ, stored
// in the data file datPath and the index file idxPath.
func Create(ctx context.Context, idxPath, datPath string, typ record.Type) (*Writer, error) {
	dat, err := file.Create(ctx, datPath)
	if err != nil {
		return nil, err
	}
	return &Writer{
		ctx:     ctx,
		idxPath: idxPath,
		typ:     typ,
		dat:     dat,
		w:       recordio.NewWriter(dat.Writer(ctx), typ),
	}, nil
}

// Append appends rec to the index. Records must be appended in
// strictly ascending key order; Append returns an error of kind
// errors.Invalid otherwise.
func (w *Writer) Append(rec *record.Record) error {
	if w.err != nil {
		return w.err
	}
	if n := len(w.keys); n > 0 && rec.Key() <= w.keys[n-1] {
		return errors.E(errors.Invalid, fmt.Sprintf("index %s: key %d appended after key %d", w.idxPath, rec.Key(), w.keys[n-1]))
	}
	off, err := w.w.Write(rec)
	if err != nil {
		if !errors.Is(errors.Invalid, err) {
			w.err = err
		}
		return err
	}
	w.keys = append(w.keys, rec.Key())
	w.offsets = append(w.offsets, off)
	return nil
}

// Len returns the number of records appended.
func (w *Writer) Len() int { return len(w.keys) }

// Size returns the number of data bytes appended.
func (w *Writer) Size() int64 { return w.w.Offset() }

// Close completes the data file and then writes the index file. The
// index is valid only if Close returns nil.
func (w *Writer) Close() error {
	err := w.err
	if err == nil {
		err = w.w.Flush()
	}
	if cerr := w.dat.Close(w.ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	idx, err := file.Create(w.ctx, w.idxPath)
	if err != nil {
		return err
	}
	_, err = idx.Writer(w.ctx).Write(encodeTable(w.typ, w.keys, w.offsets, w.w.Offset()))
	if cerr := idx.Close(w.ctx); err == nil {
		err = cerr
	}
	return err
}

// Discard abandons the index: the data file is closed and removed, and
// no index file is written.
func (w *Writer) Discard() error {
	err := w.dat.Close(w.ctx)
	if rerr := file.Remove(w.ctx, w.dat.Name()); err == nil {
		err = rerr
	}
	return err
}

func encodeTable(typ record.Type, keys []uint32, offsets []int64, size int64) []byte {
	buf := make([]byte, 10, 10+2*binary.MaxVarintLen64+len(keys)*4+8)
	order.PutUint64(buf, magic)
	buf[8] = byte(typ.Kind)
	if typ.Rated {
		buf[9] = 1
	}
	buf = appendUvarint(buf, uint64(len(keys)))
	buf = appendUvarint(buf, uint64(size))
	var (
		lastKey uint32
		lastOff int64
	)
	for i := range keys {
		buf = appendUvarint(buf, uint64(keys[i]-lastKey))
		buf = appendUvarint(buf, uint64(offsets[i]-lastOff))
		lastKey, lastOff = keys[i], offsets[i]
	}
	var sum [8]byte
	order.PutUint64(sum[:], murmur3.Sum64(buf))
	return append(buf, sum[:]...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Paths returns the index and data file paths of the index with the
// provided name in directory dir.
func Paths(dir, name string) (idxPath, datPath string) {
	return file.Join(dir, name+".idx"), file.Join(dir, name+".dat")
}
