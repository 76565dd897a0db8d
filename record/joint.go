// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import "sort"

// A Matrix is a dense, row-major matrix of ratings.
type Matrix struct {
	Rows, Cols int
	Data       []Rating
}

// NewMatrix returns a zero matrix with the given dimensions.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]Rating, rows*cols)}
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) Rating { return m.Data[i*m.Cols+j] }

// Set sets the element at row i, column j.
func (m *Matrix) Set(i, j int, r Rating) { m.Data[i*m.Cols+j] = r }

// Row returns row i. The returned slice aliases the matrix.
func (m *Matrix) Row(i int) []Rating { return m.Data[i*m.Cols : (i+1)*m.Cols] }

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []Rating {
	col := make([]Rating, m.Rows)
	for i := range col {
		col[i] = m.At(i, j)
	}
	return col
}

// JointRatings returns the common values of the provided records
// within the rating range (as CommonValues), together with a matrix
// whose element (i, j) is the rating given by records[i] to the jth
// common value.
func JointRatings(rng Range, records ...Valuer) ([]uint32, *Matrix) {
	valuesList := make([][]uint32, len(records))
	for i, r := range records {
		valuesList[i] = r.Values(rng)
	}
	common := Intersect(valuesList...)
	m := NewMatrix(len(records), len(common))
	if len(common) == 0 {
		return common, m
	}
	for i, values := range valuesList {
		// Values are sorted only within each partition, so we argsort
		// them (stably) before searching, and gather the ratings through
		// the same permutation.
		perm := make([]int, len(values))
		for k := range perm {
			perm[k] = k
		}
		sort.SliceStable(perm, func(a, b int) bool { return values[perm[a]] < values[perm[b]] })
		ratings := records[i].Ratings(rng)
		row := m.Row(i)
		for j, c := range common {
			k := sort.Search(len(perm), func(k int) bool { return values[perm[k]] >= c })
			row[j] = ratings[perm[k]]
		}
	}
	return common, m
}

// A JointIter iterates over the common values of a set of records,
// together with the vector of ratings that each record gives it.
type JointIter struct {
	common []uint32
	m      *Matrix
	j      int
	value  uint32
	scr    []Rating
}

// CommonValueRatings returns an iterator over (value, ratings) pairs
// for each value returned by CommonValues(rng, records...). The ith
// entry of the ratings vector is the rating of records[i].
func CommonValueRatings(rng Range, records ...Valuer) *JointIter {
	common, m := JointRatings(rng, records...)
	return &JointIter{common: common, m: m, scr: make([]Rating, m.Rows)}
}

// Len returns the total number of common values.
func (it *JointIter) Len() int { return len(it.common) }

// Next advances the iterator, returning false when exhausted.
func (it *JointIter) Next() bool {
	if it.j >= len(it.common) {
		return false
	}
	it.value = it.common[it.j]
	for i := range it.scr {
		it.scr[i] = it.m.At(i, it.j)
	}
	it.j++
	return true
}

// Value returns the current common value.
func (it *JointIter) Value() uint32 { return it.value }

// Ratings returns the ratings given to the current value by each
// record. The slice is overwritten by the next call to Next.
func (it *JointIter) Ratings() []Rating { return it.scr }
