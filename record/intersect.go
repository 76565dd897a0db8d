// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"fmt"
	"sort"
)

// A Valuer provides the values of a record, and their ratings, for a
// rating range. *Record implements Valuer.
type Valuer interface {
	Values(rng Range) []uint32
	Ratings(rng Range) []Rating
}

// Intersect returns, in ascending order, the values present in every
// one of the provided arrays. The elements of each array must be
// unique; Intersect panics otherwise. The arrays need not be sorted:
// Intersect sorts a copy of any unsorted input. Intersect of a single
// array returns a sorted copy of it; Intersect of no arrays returns
// nil.
func Intersect(arrays ...[]uint32) []uint32 {
	if len(arrays) == 0 {
		return nil
	}
	current := sortedUnique(arrays[0])
	for _, a := range arrays[1:] {
		if len(current) == 0 {
			break
		}
		current = intersect2(current, sortedUnique(a))
	}
	return current
}

// intersect2 performs a two-way merge of sorted arrays a and b,
// keeping the elements present in both. Intersections never grow, so
// the result is written into a fresh slice sized by the smaller input.
func intersect2(a, b []uint32) []uint32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]uint32, 0, n)
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// sortedUnique returns a sorted copy of a, panicking if a contains
// duplicate elements.
func sortedUnique(a []uint32) []uint32 {
	s := make([]uint32, len(a))
	copy(s, a)
	if !sort.SliceIsSorted(s, func(i, j int) bool { return s[i] < s[j] }) {
		sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	}
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			panic(fmt.Sprintf("record.Intersect: duplicate element %d", s[i]))
		}
	}
	return s
}

// CommonValues returns the values shared by all of the provided
// records within the rating range.
func CommonValues(rng Range, records ...Valuer) []uint32 {
	arrays := make([][]uint32, len(records))
	for i, r := range records {
		arrays[i] = r.Values(rng)
	}
	return Intersect(arrays...)
}
