// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recordio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/flixdb/internal/defaultsize"
	"github.com/grailbio/flixdb/record"
)

// A Writer appends encoded records to a record stream. Writes are
// buffered; Flush must be called to complete writing.
type Writer struct {
	w      *bufio.Writer
	typ    record.Type
	offset int64
	buf    []byte
}

// NewWriter returns a Writer of records of type typ to w.
func NewWriter(w io.Writer, typ record.Type) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, defaultsize.WriteBuffer), typ: typ}
}

// Write appends rec to the stream and returns the offset at which it
// was written. Records of a type other than the writer's are
// rejected with an error of kind errors.Invalid.
func (w *Writer) Write(rec *record.Record) (int64, error) {
	if rec.Type() != w.typ {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("record %d: type %s does not match stream type %s", rec.Key(), rec.Type(), w.typ))
	}
	w.buf = rec.AppendBinary(w.buf[:0])
	if _, err := w.w.Write(w.buf); err != nil {
		return 0, err
	}
	off := w.offset
	w.offset += int64(len(w.buf))
	return off, nil
}

// Offset returns the offset at which the next record will be written.
func (w *Writer) Offset() int64 { return w.offset }

// Flush writes buffered records to the underlying stream.
func (w *Writer) Flush() error { return w.w.Flush() }
