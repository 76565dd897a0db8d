// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sortio

import (
	"container/heap"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/flixdb/internal/progress"
)

// A head is the current entry of an open source.
type head struct {
	src   Source
	index int
	key   uint32
}

// headHeap implements a heap of source heads, ordered by key and
// then by source index.
type headHeap []*head

func (h headHeap) Len() int { return len(h) }
func (h headHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].index < h[j].index
}
func (h headHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes a head onto the heap.
func (h *headHeap) Push(x interface{}) {
	*h = append(*h, x.(*head))
}

// Pop removes the head with the smallest key from the heap.
func (h *headHeap) Pop() interface{} {
	n := len(*h)
	elem := (*h)[n-1]
	*h = (*h)[:n-1]
	return elem
}

// A MergeOption configures a Merger.
type MergeOption func(*Merger)

// Progress reports the number of values consumed by the merger to
// the provided sink after each emitted key.
func Progress(sink progress.Sink) MergeOption {
	return func(m *Merger) {
		m.progress = sink
	}
}

// A Merger merges a set of sources, each sorted by key, into a
// single stream of keys in strictly ascending order. For each key,
// the merger collects the values of every source's entries with that
// key, keeping them separated by source. The merger holds in memory
// only the current run of equal-key entries of each source.
type Merger struct {
	sources  []Source
	heap     headHeap
	started  bool
	progress progress.Sink

	key    uint32
	values [][]uint32
	err    error
}

// NewMerger returns a Merger of the provided sources.
func NewMerger(sources []Source, opts ...MergeOption) *Merger {
	m := &Merger{
		sources:  sources,
		values:   make([][]uint32, len(sources)),
		progress: progress.Nop,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Merger) init() {
	m.started = true
	m.heap = make(headHeap, 0, len(m.sources))
	for i, src := range m.sources {
		if !src.Scan() {
			if err := src.Err(); err != nil {
				m.err = err
				return
			}
			continue
		}
		m.heap = append(m.heap, &head{src: src, index: i, key: src.Key()})
	}
	heap.Init(&m.heap)
}

// Scan advances the merger to the next key, returning false when
// every source is exhausted or when an error occurred. A source whose
// keys decrease fails the merge with an error of kind errors.Invalid.
func (m *Merger) Scan() bool {
	if !m.started {
		m.init()
	}
	if m.err != nil || len(m.heap) == 0 {
		return false
	}
	for i := range m.values {
		m.values[i] = m.values[i][:0]
	}
	m.key = m.heap[0].key
	var n int64
	for len(m.heap) > 0 && m.heap[0].key == m.key {
		h := m.heap[0]
		values := append(m.values[h.index], h.src.Value())
		open := false
		for h.src.Scan() {
			key := h.src.Key()
			if key == m.key {
				values = append(values, h.src.Value())
				continue
			}
			if key < m.key {
				m.err = errors.E(errors.Invalid,
					fmt.Sprintf("merge: source %d is not sorted: key %d follows key %d", h.index, key, m.key))
				return false
			}
			h.key = key
			open = true
			break
		}
		m.values[h.index] = values
		n += int64(len(values))
		if open {
			heap.Fix(&m.heap, 0)
			continue
		}
		if err := h.src.Err(); err != nil {
			m.err = err
			return false
		}
		heap.Remove(&m.heap, 0)
	}
	m.progress.Add(n)
	return true
}

// Key returns the current key.
func (m *Merger) Key() uint32 { return m.key }

// Values returns the values of the current key. Values()[i] holds,
// in stream order, the values of the ith source's entries with the
// current key; it is empty if that source has no such entries. The
// returned slices are reused by the next call to Scan.
func (m *Merger) Values() [][]uint32 { return m.values }

// Err returns the error, if any, that stopped the merge.
func (m *Merger) Err() error { return m.err }
