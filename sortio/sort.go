// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sortio

import (
	"context"
	"sort"

	"github.com/grailbio/base/data"
	"github.com/grailbio/base/log"
	"github.com/grailbio/flixdb/internal/defaultsize"
	"github.com/grailbio/flixdb/pairio"
	"github.com/grailbio/flixdb/record"
)

// SortOptions configures SortFile.
type SortOptions struct {
	// ChunkSize is the number of pairs sorted in memory before they are
	// spilled to disk. If zero, defaultsize.SortChunk is used.
	ChunkSize int
}

// SortPairs sorts pairs in place by their key in records of the
// provided kind. Pairs with equal keys retain their relative order.
func SortPairs(pairs []pairio.Pair, kind record.Kind) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key(kind) < pairs[j].Key(kind)
	})
}

// SortFile stably sorts the pair file at path in by key for records of
// the provided kind, writing the result to a new pair file at path
// out. Inputs larger than the chunk size are sorted externally: each
// chunk is sorted and spilled to a temporary file, and the spilled
// chunks are then merged.
func SortFile(ctx context.Context, in, out string, kind record.Kind, opts SortOptions) (err error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultsize.SortChunk
	}
	r, err := pairio.Open(ctx, in)
	if err != nil {
		return err
	}
	defer r.Close()
	var (
		chunk   = make([]pairio.Pair, 0, minInt(chunkSize, 1<<16))
		spiller *pairio.Spiller
	)
	for r.Scan() {
		chunk = append(chunk, r.Pair())
		if len(chunk) < chunkSize {
			continue
		}
		if spiller == nil {
			spiller, err = pairio.NewSpiller("sort")
			if err != nil {
				return err
			}
			defer func() {
				if cerr := spiller.Cleanup(); err == nil {
					err = cerr
				}
			}()
		}
		SortPairs(chunk, kind)
		size, err := spiller.Spill(chunk)
		if err != nil {
			return err
		}
		log.Debug.Printf("sortio: %s: spilled %s", in, data.Size(size))
		chunk = chunk[:0]
	}
	if err := r.Err(); err != nil {
		return err
	}
	SortPairs(chunk, kind)
	w, err := pairio.Create(ctx, out)
	if err != nil {
		return err
	}
	if spiller == nil {
		for _, p := range chunk {
			if err := w.Write(p); err != nil {
				w.Close()
				return err
			}
		}
		return w.Close()
	}
	if len(chunk) > 0 {
		if _, err := spiller.Spill(chunk); err != nil {
			w.Close()
			return err
		}
	}
	chunk = nil
	if err := mergeSpills(spiller, w, kind); err != nil {
		w.Close()
		return err
	}
	log.Printf("sortio: %s: sorted %d pairs (%d spills) by %s", in, w.N(), spiller.Len(), kind)
	return w.Close()
}

// mergeSpills merges the sorted spill files of spiller into w. Values
// of equal keys are written in spill order, so that the merge is
// stable.
func mergeSpills(spiller *pairio.Spiller, w *pairio.FileWriter, kind record.Kind) error {
	readers, err := spiller.Readers()
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	sources := make([]Source, len(readers))
	for i, r := range readers {
		sources[i] = Pairs(r, kind)
	}
	m := NewMerger(sources)
	for m.Scan() {
		key := m.Key()
		for _, values := range m.Values() {
			for _, v := range values {
				if err := w.Write(pairio.MakePair(kind, key, v)); err != nil {
					return err
				}
			}
		}
	}
	return m.Err()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
