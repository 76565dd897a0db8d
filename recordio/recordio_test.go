// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recordio

import (
	"bytes"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/flixdb/flixtest"
	"github.com/grailbio/flixdb/internal/progress"
	"github.com/grailbio/flixdb/record"
)

func TestReadWrite(t *testing.T) {
	fz := fuzz.NewWithSeed(31415)
	for _, typ := range []record.Type{record.RatedMovie, record.RatedUser, record.UnratedMovie, record.UnratedUser} {
		records := flixtest.RandomRecords(fz, typ, 500)
		var (
			buf     bytes.Buffer
			w       = NewWriter(&buf, typ)
			offsets []int64
		)
		for _, rec := range records {
			off, err := w.Write(rec)
			if err != nil {
				t.Fatal(err)
			}
			offsets = append(offsets, off)
		}
		if err := w.Flush(); err != nil {
			t.Fatal(err)
		}
		if got, want := w.Offset(), int64(buf.Len()); got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		var counter progress.Counter
		s := NewScanner(NewReader(&buf, typ, WithProgress(&counter), WithBufferSize(64)))
		var i int
		for ; s.Scan(); i++ {
			if !s.Record().Equal(records[i]) {
				t.Errorf("%s: record %d: got %v, want %v", typ, i, s.Record(), records[i])
			}
			if got, want := s.Offset(), offsets[i]; got != want {
				t.Errorf("%s: record %d: got offset %v, want %v", typ, i, got, want)
			}
		}
		if err := s.Err(); err != nil {
			t.Fatal(err)
		}
		if got, want := i, len(records); got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := counter.N(), w.Offset(); got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), record.RatedMovie)
	if _, err := r.Read(); err != EOF {
		t.Errorf("got %v, want EOF", err)
	}
	if _, err := r.Read(); err != EOF {
		t.Errorf("got %v, want EOF", err)
	}
}

func TestTruncated(t *testing.T) {
	fz := fuzz.NewWithSeed(1)
	records := flixtest.RandomRecords(fz, record.RatedUser, 10)
	var buf bytes.Buffer
	if err := record.Encode(&buf, records...); err != nil {
		t.Fatal(err)
	}
	p := buf.Bytes()[:buf.Len()-1]
	s := NewScanner(NewReader(bytes.NewReader(p), record.RatedUser))
	var n int
	for s.Scan() {
		n++
	}
	if got, want := n, len(records)-1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := s.Err(); !errors.Is(errors.Integrity, err) {
		t.Errorf("expected integrity error, got %v", err)
	}
}

func TestWriteWrongType(t *testing.T) {
	rec, err := record.FromValues(record.UnratedMovie, 1, [][]uint32{{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := NewWriter(&buf, record.RatedMovie).Write(rec); !errors.Is(errors.Invalid, err) {
		t.Errorf("expected invalid error, got %v", err)
	}
}
