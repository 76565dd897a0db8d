// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func TestIntersect(t *testing.T) {
	for _, c := range []struct {
		arrays [][]uint32
		want   []uint32
	}{
		{[][]uint32{{1, 2, 3}, {2, 3, 4}, {3, 5}}, []uint32{3}},
		{[][]uint32{{1, 2}, {3, 4}}, []uint32{}},
		{[][]uint32{{4, 1, 2}, {4, 1, 2}}, []uint32{1, 2, 4}},
		{[][]uint32{{3, 1, 2}}, []uint32{1, 2, 3}},
		{[][]uint32{{}, {1}}, []uint32{}},
		{[][]uint32{{9, 5, 7}, {7, 9}}, []uint32{7, 9}},
	} {
		if got := Intersect(c.arrays...); !equalValues(got, c.want) {
			t.Errorf("Intersect(%v): got %v, want %v", c.arrays, got, c.want)
		}
	}
	if got := Intersect(); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestIntersectRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 50; iter++ {
		var arrays [][]uint32
		for i := 0; i < 1+r.Intn(5); i++ {
			var a []uint32
			for _, v := range r.Perm(200)[:r.Intn(200)] {
				a = append(a, uint32(v))
			}
			arrays = append(arrays, a)
		}
		counts := make(map[uint32]int)
		for _, a := range arrays {
			for _, v := range a {
				counts[v]++
			}
		}
		want := []uint32{}
		for v, n := range counts {
			if n == len(arrays) {
				want = append(want, v)
			}
		}
		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
		if got := Intersect(arrays...); !equalValues(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestIntersectDoesNotModify(t *testing.T) {
	a := []uint32{3, 2, 1}
	Intersect(a, []uint32{1})
	if got, want := a, []uint32{3, 2, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIntersectDuplicates(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Intersect([]uint32{1, 1}, []uint32{1})
}

func mustFromValues(t *testing.T, typ Type, key uint32, partitions ...[]uint32) *Record {
	t.Helper()
	r, err := FromValues(typ, key, partitions)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCommonValues(t *testing.T) {
	var (
		m5 = mustFromValues(t, UnratedMovie, 5, []uint32{1, 2, 3})
		m9 = mustFromValues(t, UnratedMovie, 9, []uint32{2, 3, 4})
	)
	if got, want := CommonValues(All, m5, m9), []uint32{2, 3}; !equalValues(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	var (
		a = mustFromValues(t, RatedMovie, 1, []uint32{1}, []uint32{2}, []uint32{9, 3}, nil, []uint32{4})
		b = mustFromValues(t, RatedMovie, 2, nil, []uint32{3}, []uint32{1, 4}, []uint32{9}, nil)
	)
	if got, want := CommonValues(All, a, b), []uint32{1, 3, 4, 9}; !equalValues(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := CommonValues(AtLeast(3), a, b), []uint32{4, 9}; !equalValues(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestJointRatings(t *testing.T) {
	var (
		a = mustFromValues(t, RatedMovie, 1, []uint32{1}, []uint32{2}, []uint32{9, 3}, nil, []uint32{4})
		b = mustFromValues(t, RatedMovie, 2, nil, []uint32{3}, []uint32{1, 4}, []uint32{9}, nil)
	)
	common, m := JointRatings(All, a, b)
	if got, want := common, []uint32{1, 3, 4, 9}; !equalValues(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := m.Rows, 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := m.Row(0), []Rating{1, 3, 5, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := m.Row(1), []Rating{3, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := m.Col(2), []Rating{5, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	it := CommonValueRatings(All, a, b)
	if got, want := it.Len(), 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	var j int
	for it.Next() {
		if got, want := it.Value(), common[j]; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := it.Ratings(), m.Col(j); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		j++
	}
	if got, want := j, len(common); got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	common, m = JointRatings(AtMost(1), a, b)
	if len(common) != 0 || m.Cols != 0 {
		t.Errorf("got %v, %v", common, m)
	}
}
