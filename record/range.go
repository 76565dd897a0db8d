// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"fmt"

	"github.com/grailbio/base/must"
)

// A Rating is a rating bucket: 1 through 5 stars. The zero Rating
// (Unrated) is reported for values of unrated records.
type Rating uint8

// Unrated is the rating reported for values of unrated records.
const Unrated Rating = 0

// Valid tells whether r is one of the NumRatings rating buckets.
func (r Rating) Valid() bool {
	return r >= 1 && r <= NumRatings
}

// A Range selects the rating partitions in [Min, Max]. A zero bound is
// open: Min defaults to the lowest rating and Max to the highest.
type Range struct {
	Min, Max Rating
}

// All is the range covering every rating.
var All = Range{}

// Between returns the range [min, max].
func Between(min, max Rating) Range { return Range{min, max} }

// AtLeast returns the range of ratings >= min.
func AtLeast(min Rating) Range { return Range{Min: min} }

// AtMost returns the range of ratings <= max.
func AtMost(max Rating) Range { return Range{Max: max} }

// IsAll tells whether the range spans all ratings.
func (r Range) IsAll() bool {
	return (r.Min == 0 || r.Min == 1) && (r.Max == 0 || r.Max == NumRatings)
}

// Check returns an error if either bound of the range is not a valid
// rating.
func (r Range) Check() error {
	if r.Min != 0 && !r.Min.Valid() {
		return fmt.Errorf("invalid minimum rating %d", r.Min)
	}
	if r.Max != 0 && !r.Max.Valid() {
		return fmt.Errorf("invalid maximum rating %d", r.Max)
	}
	return nil
}

// partitions returns the half-open partition interval [beg, end)
// selected by the range. The interval is empty if Min > Max.
func (r Range) partitions() (beg, end int) {
	must.Nil(r.Check())
	beg, end = 0, NumRatings
	if r.Min != 0 {
		beg = int(r.Min) - 1
	}
	if r.Max != 0 {
		end = int(r.Max)
	}
	if beg > end {
		beg = end
	}
	return
}

func (r Range) String() string {
	if r.IsAll() {
		return "[*]"
	}
	lo, hi := "1", "5"
	if r.Min != 0 {
		lo = fmt.Sprint(r.Min)
	}
	if r.Max != 0 {
		hi = fmt.Sprint(r.Max)
	}
	return "[" + lo + "," + hi + "]"
}
