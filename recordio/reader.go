// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package recordio provides sequential readers and writers of record
// streams: contiguous concatenations of encoded records of a single
// type, as stored in data files.
package recordio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/flixdb/internal/defaultsize"
	"github.com/grailbio/flixdb/internal/progress"
	"github.com/grailbio/flixdb/record"
)

// EOF is the error returned by Reader.Read when the stream ends
// cleanly at a record boundary. A stream that ends inside a record
// returns an error of kind errors.Integrity instead.
var EOF = errors.New("EOF")

// An Option configures a Reader.
type Option func(*Reader)

// WithProgress reports the number of bytes consumed by the Reader to
// the provided sink.
func WithProgress(sink progress.Sink) Option {
	return func(r *Reader) {
		r.progress = sink
	}
}

// WithBufferSize sets the size of the Reader's read buffer.
func WithBufferSize(n int) Option {
	return func(r *Reader) {
		r.bufsize = n
	}
}

// A Reader decodes records from a record stream.
type Reader struct {
	r        *bufio.Reader
	typ      record.Type
	offset   int64
	bufsize  int
	progress progress.Sink
	err      error
}

// NewReader returns a Reader that decodes records of type typ from r.
func NewReader(r io.Reader, typ record.Type, opts ...Option) *Reader {
	rd := &Reader{
		typ:      typ,
		bufsize:  defaultsize.ReadBuffer,
		progress: progress.Nop,
	}
	for _, opt := range opts {
		opt(rd)
	}
	rd.r = bufio.NewReaderSize(r, rd.bufsize)
	return rd
}

// Type returns the type of records decoded by the reader.
func (r *Reader) Type() record.Type { return r.typ }

// Read decodes the next record. Read returns EOF when no records
// remain. Errors are sticky.
func (r *Reader) Read() (*record.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	rec, err := record.Decode(r.r, r.typ)
	if err == io.EOF {
		r.err = EOF
		return nil, EOF
	}
	if err != nil {
		r.err = errors.E(err, fmt.Sprintf("record stream offset %d", r.offset))
		return nil, r.err
	}
	n := int64(rec.EncodedSize())
	r.offset += n
	r.progress.Add(n)
	return rec, nil
}

// Offset returns the byte offset, relative to the beginning of the
// stream, of the next record to be read.
func (r *Reader) Offset() int64 { return r.offset }
