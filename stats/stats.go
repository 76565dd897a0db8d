// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stats provides counters for the rating triples and records
// produced while splitting and indexing a rating set. Counters can be
// updated concurrently and snapshotted.
package stats

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/grailbio/flixdb/record"
)

// An Int is a integer counter. Ints can be atomically
// incremented and read. A nil Int ignores updates and reads as 0.
type Int struct {
	val int64
}

// Add increments v by delta.
func (v *Int) Add(delta int64) {
	if v == nil {
		return
	}
	atomic.AddInt64(&v.val, delta)
}

// Get returns the current value of a counter.
func (v *Int) Get() int64 {
	if v == nil {
		return 0
	}
	return atomic.LoadInt64(&v.val)
}

// Ratings counts triples by rating. Index 0 counts unrated triples.
type Ratings struct {
	counts [record.NumRatings + 1]Int
}

// Add counts n triples with the provided rating.
func (r *Ratings) Add(rating record.Rating, n int64) {
	if r == nil || int(rating) >= len(r.counts) {
		return
	}
	r.counts[rating].Add(n)
}

// Get returns the number of triples with the provided rating.
func (r *Ratings) Get(rating record.Rating) int64 {
	if r == nil || int(rating) >= len(r.counts) {
		return 0
	}
	return r.counts[rating].Get()
}

// Snapshot returns the current counts.
func (r *Ratings) Snapshot() Values {
	var v Values
	for i := range v.Ratings {
		v.Ratings[i] = r.Get(record.Rating(i))
	}
	return v
}

// Values is a snapshot of build counters.
type Values struct {
	// Ratings holds triple counts indexed by rating; index 0 holds the
	// count of unrated triples.
	Ratings [record.NumRatings + 1]int64
	// Records is the number of records written.
	Records int64
	// Bytes is the number of data bytes written.
	Bytes int64
}

// Total returns the total number of triples counted.
func (v Values) Total() int64 {
	var n int64
	for _, c := range v.Ratings {
		n += c
	}
	return n
}

// Add returns the sum of snapshots v and w.
func (v Values) Add(w Values) Values {
	for i := range v.Ratings {
		v.Ratings[i] += w.Ratings[i]
	}
	v.Records += w.Records
	v.Bytes += w.Bytes
	return v
}

// String returns an abbreviated string of the nonzero counters,
// with rating counts in rating order.
func (v Values) String() string {
	var parts []string
	for i, c := range v.Ratings {
		if c == 0 {
			continue
		}
		if i == 0 {
			parts = append(parts, fmt.Sprintf("unrated:%d", c))
		} else {
			parts = append(parts, fmt.Sprintf("rated%d:%d", i, c))
		}
	}
	if v.Records > 0 {
		parts = append(parts, fmt.Sprintf("records:%d", v.Records))
	}
	if v.Bytes > 0 {
		parts = append(parts, fmt.Sprintf("bytes:%d", v.Bytes))
	}
	return strings.Join(parts, " ")
}
