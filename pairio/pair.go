// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pairio reads and writes pair files: flat sequences of
// (movie, user) pairs, each encoded as a little-endian uint16 movie ID
// followed by a little-endian uint32 user ID. A rated set is stored as
// one pair file per rating.
package pairio

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/flixdb/internal/defaultsize"
	"github.com/grailbio/flixdb/record"
)

// PairSize is the encoded size of a pair.
const PairSize = 6

var order = binary.LittleEndian

// A Pair associates a movie with a user.
type Pair struct {
	Movie uint16
	User  uint32
}

// Key returns the pair's key in records of the provided kind: its
// movie for record.Movies, and its user for record.Users.
func (p Pair) Key(kind record.Kind) uint32 {
	if kind == record.Movies {
		return uint32(p.Movie)
	}
	return p.User
}

// Value returns the pair's value in records of the provided kind, the
// counterpart of Key.
func (p Pair) Value(kind record.Kind) uint32 {
	return p.Key(kind.Other())
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.Movie, p.User)
}

func (p Pair) put(b []byte) {
	order.PutUint16(b, p.Movie)
	order.PutUint32(b[2:], p.User)
}

func getPair(b []byte) Pair {
	return Pair{Movie: order.Uint16(b), User: order.Uint32(b[2:])}
}

// A Triple is a rated pair.
type Triple struct {
	Pair
	Rating record.Rating
}

// A Scanner is a stream of pairs.
type Scanner interface {
	// Scan advances to the next pair, returning false when the stream
	// is exhausted or an error occurred.
	Scan() bool
	// Pair returns the last scanned pair.
	Pair() Pair
	// Err returns the error, if any, that stopped scanning.
	Err() error
}

// A Reader decodes pairs from an underlying stream.
type Reader struct {
	r    *bufio.Reader
	buf  [PairSize]byte
	pair Pair
	err  error
	n    int64
}

// NewReader returns a Reader that decodes pairs from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, defaultsize.ReadBuffer)}
}

// Scan decodes the next pair, returning false when the stream is
// exhausted or an error occurred. A stream that ends in the middle of a
// pair yields an error of kind errors.Integrity.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		if err == io.EOF {
			r.err = io.EOF
		} else if err == io.ErrUnexpectedEOF {
			r.err = errors.E(errors.Integrity, fmt.Sprintf("truncated pair after %d pairs", r.n))
		} else {
			r.err = err
		}
		return false
	}
	r.pair = getPair(r.buf[:])
	r.n++
	return true
}

// Pair returns the last scanned pair.
func (r *Reader) Pair() Pair { return r.pair }

// N returns the number of pairs scanned so far.
func (r *Reader) N() int64 { return r.n }

// Err returns the error, if any, that stopped scanning.
func (r *Reader) Err() error {
	if r.err == io.EOF {
		return nil
	}
	return r.err
}

// A Writer encodes pairs into an underlying stream. Writes are
// buffered; Flush must be called to complete writing.
type Writer struct {
	w   *bufio.Writer
	buf [PairSize]byte
	n   int64
}

// NewWriter returns a Writer that encodes pairs into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, defaultsize.WriteBuffer)}
}

// Write encodes a single pair.
func (w *Writer) Write(p Pair) error {
	p.put(w.buf[:])
	_, err := w.w.Write(w.buf[:])
	if err == nil {
		w.n++
	}
	return err
}

// N returns the number of pairs written.
func (w *Writer) N() int64 { return w.n }

// Flush writes any buffered pairs to the underlying stream.
func (w *Writer) Flush() error { return w.w.Flush() }

// A FileReader is a Reader of a pair file. It must be closed after use.
type FileReader struct {
	*Reader
	ctx  context.Context
	file file.File
}

// Open opens the pair file at path for reading.
func Open(ctx context.Context, path string) (*FileReader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &FileReader{Reader: NewReader(f.Reader(ctx)), ctx: ctx, file: f}, nil
}

// Close closes the underlying file.
func (r *FileReader) Close() error {
	return r.file.Close(r.ctx)
}

// A FileWriter is a Writer of a pair file. The file is complete only
// after a successful Close.
type FileWriter struct {
	*Writer
	ctx  context.Context
	file file.File
}

// Create creates a pair file at path.
func Create(ctx context.Context, path string) (*FileWriter, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{Writer: NewWriter(f.Writer(ctx)), ctx: ctx, file: f}, nil
}

// Close flushes the writer and closes the underlying file.
func (w *FileWriter) Close() error {
	err := w.Flush()
	if cerr := w.file.Close(w.ctx); err == nil {
		err = cerr
	}
	return err
}

// Count returns the number of pairs in the pair file at path, as
// determined by its size.
func Count(ctx context.Context, path string) (int64, error) {
	info, err := file.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.Size()%PairSize != 0 {
		return 0, errors.E(errors.Integrity, fmt.Sprintf("pair file %s: size %d is not a multiple of %d", path, info.Size(), PairSize))
	}
	return info.Size() / PairSize, nil
}

// ReadFile reads all the pairs of the pair file at path.
func ReadFile(ctx context.Context, path string) ([]Pair, error) {
	r, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var pairs []Pair
	for r.Scan() {
		pairs = append(pairs, r.Pair())
	}
	return pairs, r.Err()
}

// WriteFile writes the provided pairs to a new pair file at path.
func WriteFile(ctx context.Context, path string, pairs []Pair) error {
	w, err := Create(ctx, path)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := w.Write(p); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// MakePair returns the pair whose key and value in records of the
// provided kind are key and value.
func MakePair(kind record.Kind, key, value uint32) Pair {
	if kind == record.Movies {
		return Pair{Movie: uint16(key), User: value}
	}
	return Pair{Movie: uint16(value), User: key}
}
