// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"bytes"
	"io"
	"reflect"
	"sort"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
)

var allTypes = []Type{RatedMovie, RatedUser, UnratedMovie, UnratedUser}

// fuzzRecord returns a random, valid record of the provided type.
func fuzzRecord(fz *fuzz.Fuzzer, typ Type) *Record {
	l := typ.Kind.Layout()
	var key uint32
	fz.Fuzz(&key)
	key &= typ.Kind.MaxKey()
	partitions := make([][]uint32, typ.NumPartitions())
	seen := make(map[uint32]bool)
	for i := range partitions {
		var raw []uint32
		fz.Fuzz(&raw)
		for _, v := range raw {
			v &= l.maxValue()
			if seen[v] {
				continue
			}
			seen[v] = true
			partitions[i] = append(partitions[i], v)
		}
	}
	r, err := FromValues(typ, key, partitions)
	if err != nil {
		panic(err)
	}
	return r
}

func TestRoundTrip(t *testing.T) {
	fz := fuzz.NewWithSeed(12345)
	fz.NilChance(0.1).NumElements(0, 50)
	for _, typ := range allTypes {
		var (
			buf     bytes.Buffer
			records []*Record
		)
		for i := 0; i < 100; i++ {
			r := fuzzRecord(fz, typ)
			records = append(records, r)
			p, err := r.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}
			if got, want := len(p), r.EncodedSize(); got != want {
				t.Errorf("%s: got %v, want %v", typ, got, want)
			}
			buf.Write(p)
		}
		p := buf.Bytes()
		for i, want := range records {
			got, err := Decode(&buf, typ)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("%s: record %d: got %v, want %v", typ, i, got, want)
			}
		}
		if _, err := Decode(&buf, typ); err != io.EOF {
			t.Errorf("%s: got %v, want EOF", typ, err)
		}
		for i, want := range records {
			got, n, err := DecodeBytes(p, typ)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("%s: record %d: got %v, want %v", typ, i, got, want)
			}
			p = p[n:]
		}
		if len(p) != 0 {
			t.Errorf("%s: %d trailing bytes", typ, len(p))
		}
	}
}

func TestEncoding(t *testing.T) {
	r, err := FromValues(RatedMovie, 0x0102, [][]uint32{nil, {7}, {9, 3}, nil, nil})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x02, 0x01, // key
		0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // counts
		7, 0, 0, 0, 3, 0, 0, 0, 9, 0, 0, 0, // values
	}
	if got := r.AppendBinary(nil); !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}

	r, err = FromValues(UnratedUser, 0x01020304, [][]uint32{{5, 1}})
	if err != nil {
		t.Fatal(err)
	}
	want = []byte{0x04, 0x03, 0x02, 0x01, 2, 0, 1, 0, 5, 0}
	if got := r.AppendBinary([]byte{}); !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
	prefix := []byte("x")
	if got := r.AppendBinary(prefix); !bytes.Equal(got, append([]byte("x"), want...)) {
		t.Errorf("got %x", got)
	}
}

func TestPartitionInvariant(t *testing.T) {
	fz := fuzz.NewWithSeed(999)
	fz.NumElements(0, 100)
	for i := 0; i < 200; i++ {
		r := fuzzRecord(fz, RatedUser)
		var sum uint32
		for _, c := range r.Counts() {
			sum += c
		}
		if got, want := int(sum), r.Len(); got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
		for rating := Rating(1); rating <= NumRatings; rating++ {
			p := r.Partition(rating)
			if !sort.SliceIsSorted(p, func(i, j int) bool { return p[i] < p[j] }) {
				t.Errorf("partition %d not sorted: %v", rating, p)
			}
			if got, want := uint32(len(p)), r.Counts()[rating-1]; got != want {
				t.Errorf("got %v, want %v", got, want)
			}
		}
	}
}

func TestRatingRange(t *testing.T) {
	r, err := New(RatedMovie, 1, []uint32{0, 1, 2, 1, 0}, []uint32{40, 10, 30, 20})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		rng     Range
		values  []uint32
		ratings []Rating
	}{
		{All, []uint32{40, 10, 30, 20}, []Rating{2, 3, 3, 4}},
		{Between(3, 4), []uint32{10, 30, 20}, []Rating{3, 3, 4}},
		{AtLeast(4), []uint32{20}, []Rating{4}},
		{AtMost(2), []uint32{40}, []Rating{2}},
		{Between(5, 5), []uint32{}, []Rating{}},
		{Between(4, 2), []uint32{}, []Rating{}},
		{Between(1, 5), []uint32{40, 10, 30, 20}, []Rating{2, 3, 3, 4}},
	} {
		if got, want := r.Values(c.rng), c.values; !equalValues(got, want) {
			t.Errorf("%v: got %v, want %v", c.rng, got, want)
		}
		if got, want := r.Ratings(c.rng), c.ratings; !reflect.DeepEqual(got, want) {
			t.Errorf("%v: got %v, want %v", c.rng, got, want)
		}
		var (
			values  []uint32
			ratings []Rating
		)
		it := r.ValueRatings(c.rng)
		for it.Next() {
			values = append(values, it.Value())
			ratings = append(ratings, it.Rating())
		}
		if !equalValues(values, c.values) {
			t.Errorf("%v: got %v, want %v", c.rng, values, c.values)
		}
		if len(ratings) != 0 || len(c.ratings) != 0 {
			if !reflect.DeepEqual(ratings, c.ratings) {
				t.Errorf("%v: got %v, want %v", c.rng, ratings, c.ratings)
			}
		}
	}
}

func TestUnratedIgnoresRange(t *testing.T) {
	r, err := FromValues(UnratedMovie, 3, [][]uint32{{9, 2, 5}})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.Values(Between(4, 5)), []uint32{2, 5, 9}; !equalValues(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	it := r.ValueRatings(AtLeast(3))
	var n int
	for it.Next() {
		if got, want := it.Rating(), Unrated; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		n++
	}
	if got, want := n, 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestInvalid(t *testing.T) {
	_, err := FromValues(RatedUser, 1, [][]uint32{{1}, {2}})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want Invalid", err)
	}
	_, err = FromValues(RatedUser, 1, [][]uint32{{1 << 16}, nil, nil, nil, nil})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want Invalid", err)
	}
	_, err = FromValues(RatedMovie, 1<<16, [][]uint32{nil, nil, nil, nil, nil})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want Invalid", err)
	}
	_, err = New(UnratedMovie, 1, []uint32{3}, []uint32{1, 2})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want Invalid", err)
	}
	_, err = New(UnratedMovie, 1, []uint32{2}, []uint32{2, 1})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want Invalid", err)
	}
}

func TestTruncated(t *testing.T) {
	r, err := FromValues(RatedMovie, 17, [][]uint32{{1, 2}, {3}, nil, {4}, {5}})
	if err != nil {
		t.Fatal(err)
	}
	p := r.AppendBinary(nil)
	for n := 1; n < len(p); n++ {
		if _, err := Decode(bytes.NewReader(p[:n]), RatedMovie); !errors.Is(errors.Integrity, err) {
			t.Errorf("%d bytes: got %v, want Integrity", n, err)
		}
		if _, _, err := DecodeBytes(p[:n], RatedMovie); !errors.Is(errors.Integrity, err) {
			t.Errorf("%d bytes: got %v, want Integrity", n, err)
		}
	}
	if _, err := Decode(bytes.NewReader(nil), RatedMovie); err != io.EOF {
		t.Errorf("got %v, want EOF", err)
	}
}

func TestNegativeCount(t *testing.T) {
	p := []byte{1, 0, 0xff, 0xff, 0xff, 0xff}
	if _, err := Decode(bytes.NewReader(p), UnratedMovie); !errors.Is(errors.Integrity, err) {
		t.Errorf("got %v, want Integrity", err)
	}
}

func equalValues(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
