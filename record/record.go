// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/base/errors"
)

var order = binary.LittleEndian

// A Record holds the values associated with a single key, e.g., the
// IDs of the users that rated a movie. Values are stored partition
// major: all values rated 1 first, then all values rated 2, and so
// on; values are sorted ascending within each partition. Records are
// immutable.
type Record struct {
	typ    Type
	key    uint32
	counts []uint32
	values []uint32
}

// New returns a record of the given type from its key, per-partition
// counts, and partition-major values. New returns an error of kind
// errors.Invalid if the counts do not match the values, if a partition
// is not sorted, or if any field overflows its encoded width. The
// record takes ownership of the provided slices.
func New(typ Type, key uint32, counts, values []uint32) (*Record, error) {
	if len(counts) != typ.NumPartitions() {
		return nil, errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("record %d: %s record needs %d partition counts, got %d", key, typ, typ.NumPartitions(), len(counts)))
	}
	var total uint64
	for _, c := range counts {
		total += uint64(c)
	}
	if total != uint64(len(values)) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("record %d: counts sum to %d, but there are %d values", key, total, len(values)))
	}
	r := &Record{typ: typ, key: key, counts: counts, values: values}
	if err := r.check(); err != nil {
		return nil, err
	}
	var off uint32
	for i, c := range counts {
		p := values[off : off+c]
		if !sort.SliceIsSorted(p, func(i, j int) bool { return p[i] < p[j] }) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("record %d: partition %d is not sorted", key, i))
		}
		off += c
	}
	return r, nil
}

// FromValues builds a record from a key and one sequence of values per
// partition: NumRatings sequences for rated types, indexed by rating-1,
// and a single sequence for unrated types. Each partition is sorted in
// place. A mismatch between the number of partitions and the record
// type is a programming error and returns an error of kind
// errors.Invalid with severity errors.Fatal.
func FromValues(typ Type, key uint32, partitions [][]uint32) (*Record, error) {
	if len(partitions) != typ.NumPartitions() {
		return nil, errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("record %d: %s record needs %d partitions, got %d", key, typ, typ.NumPartitions(), len(partitions)))
	}
	var n int
	for _, p := range partitions {
		n += len(p)
	}
	r := &Record{
		typ:    typ,
		key:    key,
		counts: make([]uint32, len(partitions)),
		values: make([]uint32, 0, n),
	}
	for i, p := range partitions {
		sort.Slice(p, func(i, j int) bool { return p[i] < p[j] })
		r.counts[i] = uint32(len(p))
		r.values = append(r.values, p...)
	}
	if err := r.check(); err != nil {
		return nil, err
	}
	return r, nil
}

// Check verifies that the record's fields fit their encoded widths.
func (r *Record) check() error {
	l := r.typ.Kind.Layout()
	if r.key > r.typ.Kind.MaxKey() {
		return errors.E(errors.Invalid, fmt.Sprintf("%s key %d overflows %d bytes", r.typ.Kind, r.key, l.KeySize))
	}
	for i, c := range r.counts {
		if c > l.maxCount() {
			return errors.E(errors.Invalid, fmt.Sprintf("record %d: partition %d count %d overflows %d bytes", r.key, i, c, l.CountSize))
		}
	}
	max := l.maxValue()
	for _, v := range r.values {
		if v > max {
			return errors.E(errors.Invalid, fmt.Sprintf("record %d: value %d overflows %d bytes", r.key, v, l.ValueSize))
		}
	}
	return nil
}

// Key returns the record's key.
func (r *Record) Key() uint32 { return r.key }

// Type returns the record's type.
func (r *Record) Type() Type { return r.typ }

// Len returns the total number of values in the record.
func (r *Record) Len() int { return len(r.values) }

// Counts returns the number of values in each partition. The returned
// slice must not be modified.
func (r *Record) Counts() []uint32 { return r.counts }

// Partition returns the values rated by the provided rating. For
// unrated records, Partition returns all values for any rating.
func (r *Record) Partition(rating Rating) []uint32 {
	if !r.typ.Rated {
		return r.values
	}
	return r.Values(Between(rating, rating))
}

// Values returns the concatenation of the value partitions whose
// rating falls within the provided range. Unrated records ignore the
// range and return all values. The returned slice must not be
// modified.
func (r *Record) Values(rng Range) []uint32 {
	if !r.typ.Rated || rng.IsAll() {
		return r.values
	}
	beg, end := r.span(rng)
	return r.values[beg:end]
}

// Ratings returns a slice of the same length as Values(rng) whose ith
// entry is the rating of the ith value. Ratings are reconstructed from
// the partition counts. Every value of an unrated record has rating
// Unrated.
func (r *Record) Ratings(rng Range) []Rating {
	if !r.typ.Rated {
		return make([]Rating, len(r.values))
	}
	pbeg, pend := rng.partitions()
	beg, end := r.span(rng)
	ratings := make([]Rating, 0, end-beg)
	for p := pbeg; p < pend; p++ {
		for i := uint32(0); i < r.counts[p]; i++ {
			ratings = append(ratings, Rating(p+1))
		}
	}
	return ratings
}

// ValueRatings returns an iterator over (value, rating) pairs for the
// values in the provided range, in the order of Values(rng). Each call
// returns a fresh iterator.
func (r *Record) ValueRatings(rng Range) *ValueRatingIter {
	if !r.typ.Rated {
		return &ValueRatingIter{values: r.values, unrated: true}
	}
	pbeg, pend := rng.partitions()
	beg, end := r.span(rng)
	return &ValueRatingIter{
		values: r.values[beg:end],
		counts: r.counts[pbeg:pend],
		rating: Rating(pbeg),
	}
}

// span returns the value interval covered by the rating range.
func (r *Record) span(rng Range) (beg, end uint32) {
	pbeg, pend := rng.partitions()
	for p := 0; p < pend; p++ {
		if p < pbeg {
			beg += r.counts[p]
		}
		end += r.counts[p]
	}
	return
}

// Equal tells whether records r and s have the same type, key, counts,
// and values.
func (r *Record) Equal(s *Record) bool {
	if r.typ != s.typ || r.key != s.key || len(r.counts) != len(s.counts) || len(r.values) != len(s.values) {
		return false
	}
	for i := range r.counts {
		if r.counts[i] != s.counts[i] {
			return false
		}
	}
	for i := range r.values {
		if r.values[i] != s.values[i] {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	if r.typ.Rated {
		return fmt.Sprintf("(%d, %v, %v)", r.key, r.counts, r.values)
	}
	return fmt.Sprintf("(%d, %v)", r.key, r.values)
}

// EncodedSize returns the number of bytes in the record's encoding.
func (r *Record) EncodedSize() int {
	return r.typ.HeaderSize() + len(r.values)*r.typ.Kind.Layout().ValueSize
}

// AppendBinary appends the record's binary encoding to buf:
//
//	key:    uint[KeySize]
//	counts: uint[CountSize] * NumPartitions
//	values: uint[ValueSize] * sum(counts)
//
// All integers are little-endian.
func (r *Record) AppendBinary(buf []byte) []byte {
	l := r.typ.Kind.Layout()
	off := len(buf)
	n := r.EncodedSize()
	if cap(buf)-off < n {
		grown := make([]byte, off, off+n)
		copy(grown, buf)
		buf = grown
	}
	buf = buf[:off+n]
	p := buf[off:]
	putUint(p, l.KeySize, r.key)
	p = p[l.KeySize:]
	for _, c := range r.counts {
		putUint(p, l.CountSize, c)
		p = p[l.CountSize:]
	}
	for _, v := range r.values {
		putUint(p, l.ValueSize, v)
		p = p[l.ValueSize:]
	}
	return buf
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(nil), nil
}

// Decode reads a single record of the provided type from r. Decode
// returns io.EOF if r is exhausted before any byte of the record is
// read. If the stream ends after that, the record is truncated and
// Decode returns an error of kind errors.Integrity.
func Decode(r io.Reader, typ Type) (*Record, error) {
	l := typ.Kind.Layout()
	hdr := make([]byte, typ.HeaderSize())
	if _, err := io.ReadFull(r, hdr[:l.KeySize]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, corrupt(err, "truncated key")
	}
	if _, err := io.ReadFull(r, hdr[l.KeySize:]); err != nil {
		return nil, corrupt(err, fmt.Sprintf("record %d: truncated counts", getUint(hdr, l.KeySize)))
	}
	rec, n, err := decodeHeader(hdr, typ)
	if err != nil {
		return nil, err
	}
	p := make([]byte, n*l.ValueSize)
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, corrupt(err, fmt.Sprintf("record %d: truncated values", rec.key))
	}
	rec.values = decodeValues(p, n, l.ValueSize)
	return rec, nil
}

// DecodeBytes decodes the record at the beginning of p, returning the
// record and its encoded size. DecodeBytes returns io.EOF if p is
// empty and an error of kind errors.Integrity if p holds a truncated
// record. The record does not retain p.
func DecodeBytes(p []byte, typ Type) (*Record, int, error) {
	if len(p) == 0 {
		return nil, 0, io.EOF
	}
	l := typ.Kind.Layout()
	hsize := typ.HeaderSize()
	if len(p) < hsize {
		return nil, 0, corrupt(nil, fmt.Sprintf("truncated header: %d bytes, need %d", len(p), hsize))
	}
	rec, n, err := decodeHeader(p[:hsize], typ)
	if err != nil {
		return nil, 0, err
	}
	size := hsize + n*l.ValueSize
	if len(p) < size {
		return nil, 0, corrupt(nil, fmt.Sprintf("record %d: truncated values: %d bytes, need %d", rec.key, len(p), size))
	}
	rec.values = decodeValues(p[hsize:size], n, l.ValueSize)
	return rec, size, nil
}

// DecodeHeader decodes the key and partition counts from hdr, returning
// a record without values and the number of values that follow.
func decodeHeader(hdr []byte, typ Type) (*Record, int, error) {
	l := typ.Kind.Layout()
	rec := &Record{
		typ:    typ,
		key:    getUint(hdr, l.KeySize),
		counts: make([]uint32, typ.NumPartitions()),
	}
	p := hdr[l.KeySize:]
	var total uint64
	for i := range rec.counts {
		c := getUint(p, l.CountSize)
		if l.SignedCount && int32(c) < 0 {
			return nil, 0, corrupt(nil, fmt.Sprintf("record %d: negative count %d", rec.key, int32(c)))
		}
		rec.counts[i] = c
		total += uint64(c)
		p = p[l.CountSize:]
	}
	return rec, int(total), nil
}

func decodeValues(p []byte, n, size int) []uint32 {
	values := make([]uint32, n)
	for i := range values {
		values[i] = getUint(p[i*size:], size)
	}
	return values
}

func corrupt(err error, msg string) error {
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.E(errors.Integrity, "corrupt record stream: "+msg)
	}
	return errors.E(errors.Integrity, "corrupt record stream: "+msg, err)
}

func getUint(p []byte, size int) uint32 {
	switch size {
	case 2:
		return uint32(order.Uint16(p))
	case 4:
		return order.Uint32(p)
	default:
		panic(fmt.Sprintf("invalid integer size %d", size))
	}
}

func putUint(p []byte, size int, v uint32) {
	switch size {
	case 2:
		order.PutUint16(p, uint16(v))
	case 4:
		order.PutUint32(p, v)
	default:
		panic(fmt.Sprintf("invalid integer size %d", size))
	}
}

// Encode writes the binary encoding of each record to w.
func Encode(w io.Writer, records ...*Record) error {
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r.AppendBinary(nil))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// A ValueRatingIter iterates over (value, rating) pairs of a record in
// partition-major order.
type ValueRatingIter struct {
	values  []uint32
	counts  []uint32
	unrated bool

	pos    int
	left   uint32
	rating Rating
	value  uint32
}

// Next advances the iterator, returning false when no more pairs
// remain.
func (it *ValueRatingIter) Next() bool {
	if it.pos >= len(it.values) {
		return false
	}
	if !it.unrated {
		for it.left == 0 {
			it.rating++
			it.left = it.counts[0]
			it.counts = it.counts[1:]
		}
		it.left--
	}
	it.value = it.values[it.pos]
	it.pos++
	return true
}

// Value returns the current value.
func (it *ValueRatingIter) Value() uint32 { return it.value }

// Rating returns the rating of the current value.
func (it *ValueRatingIter) Rating() Rating { return it.rating }
