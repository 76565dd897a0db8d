// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pairio

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/flixdb/record"
	"github.com/grailbio/testutil"
)

func TestReadWrite(t *testing.T) {
	var pairs []Pair
	fz := fuzz.NewWithSeed(1)
	fz.NilChance(0).NumElements(1000, 1000)
	fz.Fuzz(&pairs)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, p := range pairs {
		if err := w.Write(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Len(), len(pairs)*PairSize; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	r := NewReader(&buf)
	var got []Pair
	for r.Scan() {
		got = append(got, r.Pair())
	}
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, pairs) {
		t.Error("pairs do not match")
	}
}

func TestEncoding(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(Pair{0x0102, 0x03040506}); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	if got, want := buf.Bytes(), []byte{2, 1, 6, 5, 4, 3}; !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestTruncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 0, 2, 0, 0, 0, 9, 9}))
	if !r.Scan() {
		t.Fatal(r.Err())
	}
	if got, want := r.Pair(), (Pair{1, 2}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if r.Scan() {
		t.Fatal("expected truncation")
	}
	if err := r.Err(); !errors.Is(errors.Integrity, err) {
		t.Errorf("got %v, want Integrity", err)
	}
}

func TestKeyValue(t *testing.T) {
	p := Pair{Movie: 7, User: 1000}
	if got, want := p.Key(record.Movies), uint32(7); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := p.Value(record.Movies), uint32(1000); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := p.Key(record.Users), uint32(1000); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "1.tmp")
	pairs := []Pair{{3, 1}, {1, 9}, {2, 4}}
	if err := WriteFile(ctx, path, pairs); err != nil {
		t.Fatal(err)
	}
	n, err := Count(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n, int64(3); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	got, err := ReadFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, pairs) {
		t.Errorf("got %v, want %v", got, pairs)
	}
}

func TestSpiller(t *testing.T) {
	spill, err := NewSpiller("test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err = spill.Cleanup(); err != nil {
			t.Fatal(err)
		}
	}()
	chunks := [][]Pair{{{1, 1}, {2, 2}}, {{3, 3}}, {{0, 7}, {9, 9}, {4, 4}}}
	for _, c := range chunks {
		size, err := spill.Spill(c)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := size, len(c)*PairSize; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	readers, err := spill.Readers()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(readers), len(chunks); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, r := range readers {
		var got []Pair
		for r.Scan() {
			got = append(got, r.Pair())
		}
		if err := r.Err(); err != nil {
			t.Fatal(err)
		}
		r.Close()
		if !reflect.DeepEqual(got, chunks[i]) {
			t.Errorf("spill %d: got %v, want %v", i, got, chunks[i])
		}
	}
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	paths := make([]string, record.NumRatings)
	holdPaths := make([]string, record.NumRatings)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("t%d.tmp", i+1))
		holdPaths[i] = filepath.Join(dir, fmt.Sprintf("p%d.tmp", i+1))
	}
	triples := []Triple{
		{Pair{1, 10}, 4},
		{Pair{1, 11}, 2},
		{Pair{2, 10}, 4},
		{Pair{3, 12}, 5},
	}
	holdout := map[Pair]bool{{2, 10}: true}
	main, held, err := Split(ctx, TripleSlice(triples), paths, holdout, holdPaths, true)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := main.Total(), int64(3); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := held.Ratings[4], int64(1); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	got, err := ReadFile(ctx, paths[3])
	if err != nil {
		t.Fatal(err)
	}
	if want := []Pair{{1, 10}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	got, err = ReadFile(ctx, holdPaths[3])
	if err != nil {
		t.Fatal(err)
	}
	if want := []Pair{{2, 10}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	// Without scrubbing, held out triples stay in the main set.
	main, _, err = Split(ctx, TripleSlice(triples), paths, holdout, holdPaths, false)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := main.Total(), int64(4); got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	_, _, err = Split(ctx, TripleSlice([]Triple{{Pair{1, 1}, 6}}), paths, nil, nil, false)
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v, want Invalid", err)
	}
}
