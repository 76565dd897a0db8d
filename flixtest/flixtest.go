// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package flixtest provides fixtures for testing record files,
// indices, and datasets.
package flixtest

import (
	"log"
	"sort"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/flixdb/pairio"
	"github.com/grailbio/flixdb/record"
)

// Triple is a convenience constructor for a rating triple.
func Triple(movie uint16, user uint32, rating record.Rating) pairio.Triple {
	return pairio.Triple{Pair: pairio.Pair{Movie: movie, User: user}, Rating: rating}
}

// RandomTriples returns n random rating triples with distinct
// (movie, user) pairs, drawing movies from [1, nmovie] and users from
// [1, nuser]. Ratings are in [1, record.NumRatings].
func RandomTriples(fz *fuzz.Fuzzer, n, nmovie, nuser int) []pairio.Triple {
	if n > nmovie*nuser {
		log.Panicf("flixtest: cannot draw %d distinct pairs from %dx%d", n, nmovie, nuser)
	}
	var (
		seen    = make(map[pairio.Pair]bool)
		triples = make([]pairio.Triple, 0, n)
	)
	for len(triples) < n {
		var m, u uint32
		var r uint8
		fz.Fuzz(&m)
		fz.Fuzz(&u)
		fz.Fuzz(&r)
		p := pairio.Pair{Movie: uint16(1 + m%uint32(nmovie)), User: 1 + u%uint32(nuser)}
		if seen[p] {
			continue
		}
		seen[p] = true
		triples = append(triples, pairio.Triple{Pair: p, Rating: record.Rating(1 + r%record.NumRatings)})
	}
	return triples
}

// Records returns the records of the provided type that are implied
// by the provided triples, in ascending key order. Ratings are ignored
// for unrated types.
func Records(typ record.Type, triples []pairio.Triple) []*record.Record {
	groups := make(map[uint32][][]uint32)
	for _, t := range triples {
		key := t.Key(typ.Kind)
		if groups[key] == nil {
			groups[key] = make([][]uint32, typ.NumPartitions())
		}
		part := 0
		if typ.Rated {
			part = int(t.Rating) - 1
		}
		groups[key][part] = append(groups[key][part], t.Value(typ.Kind))
	}
	keys := make([]uint32, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	records := make([]*record.Record, len(keys))
	for i, key := range keys {
		rec, err := record.FromValues(typ, key, groups[key])
		if err != nil {
			log.Panicf("flixtest: %v", err)
		}
		records[i] = rec
	}
	return records
}

// RandomRecords returns records of the provided type with keys in
// ascending order, implied by n random triples.
func RandomRecords(fz *fuzz.Fuzzer, typ record.Type, n int) []*record.Record {
	return Records(typ, RandomTriples(fz, n, 50, 200))
}

// Equal tells whether the two lists of records are equal.
func Equal(a, b []*record.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
