// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import "fmt"

// A Kind identifies the entity a record is keyed by. Movie-keyed
// records hold user IDs as values, and vice versa.
type Kind uint8

const (
	// Movies is the kind of records sorted and keyed by movie ID.
	Movies Kind = iota
	// Users is the kind of records sorted and keyed by user ID.
	Users
)

// String returns the kind's name, which is also the file prefix used
// for its index and data files.
func (k Kind) String() string {
	switch k {
	case Movies:
		return "movies"
	case Users:
		return "users"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Other returns the kind of the values held by records of kind k.
func (k Kind) Other() Kind {
	if k == Movies {
		return Users
	}
	return Movies
}

// Layout describes the fixed byte widths of the fields of an encoded
// record. Count is signed for movie-keyed records: the number of users
// rating a single movie is encoded as an int32.
type Layout struct {
	KeySize, CountSize, ValueSize int
	SignedCount                   bool
}

// There are fewer distinct movies than users, so movie IDs are
// encoded in 16 bits and user IDs in 32 bits.
var layouts = [...]Layout{
	Movies: {KeySize: 2, CountSize: 4, ValueSize: 4, SignedCount: true},
	Users:  {KeySize: 4, CountSize: 2, ValueSize: 2},
}

// Layout returns the encoding layout of records of kind k.
func (k Kind) Layout() Layout {
	return layouts[k]
}

// MaxKey returns the largest key representable by kind k.
func (k Kind) MaxKey() uint32 {
	return maxUint(layouts[k].KeySize)
}

func (l Layout) maxValue() uint32 { return maxUint(l.ValueSize) }

func (l Layout) maxCount() uint32 {
	if l.SignedCount {
		return maxUint(l.CountSize) >> 1
	}
	return maxUint(l.CountSize)
}

func maxUint(size int) uint32 {
	if size >= 4 {
		return 1<<32 - 1
	}
	return 1<<(8*uint(size)) - 1
}

// NumRatings is the number of rating partitions of a rated record.
const NumRatings = 5

// Type describes the shape of a record: its kind, and whether it is
// rated. Rated records partition their values into NumRatings rating
// buckets; unrated records have a single implicit partition.
type Type struct {
	Kind  Kind
	Rated bool
}

// The four record types.
var (
	RatedMovie   = Type{Movies, true}
	RatedUser    = Type{Users, true}
	UnratedMovie = Type{Movies, false}
	UnratedUser  = Type{Users, false}
)

// NumPartitions returns the number of value partitions, and thus
// counts, in a record of this type.
func (t Type) NumPartitions() int {
	if t.Rated {
		return NumRatings
	}
	return 1
}

// HeaderSize returns the encoded size of a record's key and
// partition counts.
func (t Type) HeaderSize() int {
	l := t.Kind.Layout()
	return l.KeySize + t.NumPartitions()*l.CountSize
}

// Transpose returns the type of records keyed by the values of
// records of type t.
func (t Type) Transpose() Type {
	return Type{t.Kind.Other(), t.Rated}
}

func (t Type) String() string {
	if t.Rated {
		return "rated " + t.Kind.String()
	}
	return "unrated " + t.Kind.String()
}
