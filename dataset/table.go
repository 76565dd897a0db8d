// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/flixdb/index"
	"github.com/grailbio/flixdb/record"
)

// A table is a keyed collection of records of a single type.
type table interface {
	Type() record.Type
	Keys() []uint32
	Get(key uint32) (*record.Record, error)
	scan(ctx context.Context) scanner
	Close() error
}

type scanner interface {
	Scan() bool
	Record() *record.Record
	Err() error
	Close() error
}

type indexTable struct {
	*index.Index
}

func (t indexTable) scan(ctx context.Context) scanner {
	return t.Scan(ctx)
}

// A memTable is a table held in memory, with records in key order.
type memTable struct {
	typ     record.Type
	keys    []uint32
	records []*record.Record
}

func (t *memTable) Type() record.Type { return t.typ }
func (t *memTable) Keys() []uint32    { return t.keys }
func (t *memTable) Close() error      { return nil }

func (t *memTable) Get(key uint32) (*record.Record, error) {
	i := sort.Search(len(t.keys), func(i int) bool { return t.keys[i] >= key })
	if i == len(t.keys) || t.keys[i] != key {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("no record for %s %d", t.typ.Kind, key))
	}
	return t.records[i], nil
}

func (t *memTable) scan(context.Context) scanner {
	return &memScanner{records: t.records}
}

type memScanner struct {
	records []*record.Record
	cur     *record.Record
}

func (s *memScanner) Scan() bool {
	if len(s.records) == 0 {
		return false
	}
	s.cur, s.records = s.records[0], s.records[1:]
	return true
}

func (s *memScanner) Record() *record.Record { return s.cur }
func (s *memScanner) Err() error             { return nil }
func (s *memScanner) Close() error           { return nil }

// Transpose derives, by a full scan of t, the table of the other kind
// of records: for each value v of each record with key k, the derived
// record of key v holds the value k, in the same rating partition.
func transpose(ctx context.Context, t table) (*memTable, error) {
	var (
		typ        = t.Type().Transpose()
		partitions = make(map[uint32][][]uint32)
		s          = t.scan(ctx)
	)
	defer s.Close()
	for s.Scan() {
		rec := s.Record()
		for it := rec.ValueRatings(record.All); it.Next(); {
			v := it.Value()
			p := partitions[v]
			if p == nil {
				p = make([][]uint32, typ.NumPartitions())
				partitions[v] = p
			}
			part := 0
			if typ.Rated {
				part = int(it.Rating()) - 1
			}
			p[part] = append(p[part], rec.Key())
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	m := &memTable{typ: typ, keys: make([]uint32, 0, len(partitions))}
	for key := range partitions {
		m.keys = append(m.keys, key)
	}
	sort.Slice(m.keys, func(i, j int) bool { return m.keys[i] < m.keys[j] })
	m.records = make([]*record.Record, len(m.keys))
	for i, key := range m.keys {
		rec, err := record.FromValues(typ, key, partitions[key])
		if err != nil {
			return nil, err
		}
		m.records[i] = rec
		delete(partitions, key)
	}
	log.Printf("dataset: derived %d %s records from %d %s records", len(m.keys), typ, len(t.Keys()), t.Type())
	return m, nil
}
