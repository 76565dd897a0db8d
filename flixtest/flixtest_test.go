// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flixtest

import (
	"reflect"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/flixdb/pairio"
	"github.com/grailbio/flixdb/record"
)

func TestRecords(t *testing.T) {
	triples := []pairio.Triple{
		Triple(1, 1, 4),
		Triple(1, 2, 2),
		Triple(2, 1, 5),
	}
	movies := Records(record.RatedMovie, triples)
	if got, want := len(movies), 2; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := movies[0].Partition(4), []uint32{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	users := Records(record.UnratedUser, triples)
	if got, want := users[0].Values(record.All), []uint32{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRandomTriples(t *testing.T) {
	fz := fuzz.NewWithSeed(1)
	triples := RandomTriples(fz, 100, 10, 20)
	if got, want := len(triples), 100; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	seen := make(map[pairio.Pair]bool)
	for _, tr := range triples {
		if seen[tr.Pair] {
			t.Fatalf("duplicate pair %v", tr.Pair)
		}
		seen[tr.Pair] = true
		if !tr.Rating.Valid() {
			t.Errorf("invalid rating %v", tr.Rating)
		}
	}
}
