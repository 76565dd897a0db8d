// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sortio provides facilities for sorting pair files and
// merging sorted streams of (key, value) entries into a single stream
// grouped by key.
package sortio

import (
	"github.com/grailbio/flixdb/pairio"
	"github.com/grailbio/flixdb/record"
)

// A Source is a stream of (key, value) entries in non-decreasing key
// order.
type Source interface {
	// Scan advances to the next entry, returning false when the stream
	// is exhausted or an error occurred.
	Scan() bool
	// Key returns the key of the last scanned entry.
	Key() uint32
	// Value returns the value of the last scanned entry.
	Value() uint32
	// Err returns the error, if any, that stopped scanning.
	Err() error
}

// An Entry is a single (key, value) entry.
type Entry struct {
	Key, Value uint32
}

type entrySource struct {
	entries []Entry
	cur     Entry
}

// Entries returns a Source of the provided entries, which must be
// sorted by key.
func Entries(entries ...Entry) Source {
	return &entrySource{entries: entries}
}

func (s *entrySource) Scan() bool {
	if len(s.entries) == 0 {
		return false
	}
	s.cur, s.entries = s.entries[0], s.entries[1:]
	return true
}

func (s *entrySource) Key() uint32   { return s.cur.Key }
func (s *entrySource) Value() uint32 { return s.cur.Value }
func (s *entrySource) Err() error    { return nil }

type pairSource struct {
	pairio.Scanner
	kind record.Kind
}

// Pairs returns a Source of the pairs scanned by s, keyed as in
// records of the provided kind. The pairs must be sorted by that key.
func Pairs(s pairio.Scanner, kind record.Kind) Source {
	return &pairSource{s, kind}
}

func (p *pairSource) Key() uint32   { return p.Pair().Key(p.kind) }
func (p *pairSource) Value() uint32 { return p.Pair().Value(p.kind) }
