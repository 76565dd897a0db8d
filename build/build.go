// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package build implements the offline pipeline that turns pair files
// into indices: pair files are sorted by key, merged, and written as
// records to an index's data and index files.
package build

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/grailbio/base/data"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/flixdb/index"
	"github.com/grailbio/flixdb/internal/progress"
	"github.com/grailbio/flixdb/pairio"
	"github.com/grailbio/flixdb/record"
	"github.com/grailbio/flixdb/sortio"
	"github.com/grailbio/flixdb/stats"
	"golang.org/x/sync/errgroup"
)

// Options configures builds.
type Options struct {
	// Status, if non-nil, receives build progress.
	Status *status.Status
	// SortChunk is the number of pairs sorted in memory by sorts. If
	// zero, a default is used.
	SortChunk int
	// Force rebuilds indices that already exist.
	Force bool
}

// Index builds the index of records of type typ at idxPath and datPath
// from the pair files inputs, each sorted by record key. Rated types
// require one input per rating, with inputs[i] holding the pairs rated
// i+1; the values of unrated records are the union of all inputs.
//
// An index whose index and data files both exist is left as is unless
// opts.Force is set. Any other output is removed before building.
func Index(ctx context.Context, idxPath, datPath string, typ record.Type, inputs []string, opts Options) (stats.Values, error) {
	var counts stats.Values
	if typ.Rated && len(inputs) != record.NumRatings {
		return counts, errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("build %s: %s index needs %d inputs, got %d", idxPath, typ, record.NumRatings, len(inputs)))
	}
	if !opts.Force && exists(ctx, idxPath) && exists(ctx, datPath) {
		log.Printf("build %s: index exists; skipping", idxPath)
		return counts, nil
	}
	for _, path := range []string{idxPath, datPath} {
		if err := remove(ctx, path); err != nil {
			return counts, err
		}
	}
	var total int64
	readers := make([]*pairio.FileReader, 0, len(inputs))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	sources := make([]sortio.Source, len(inputs))
	for i, path := range inputs {
		n, err := pairio.Count(ctx, path)
		if err != nil {
			return counts, err
		}
		total += n
		r, err := pairio.Open(ctx, path)
		if err != nil {
			return counts, err
		}
		readers = append(readers, r)
		sources[i] = sortio.Pairs(r, typ.Kind)
	}
	var task *status.Task
	if opts.Status != nil {
		task = opts.Status.Group(fmt.Sprintf("build %s", typ)).Start(idxPath)
		defer task.Done()
	}
	w, err := index.Create(ctx, idxPath, datPath, typ)
	if err != nil {
		return counts, err
	}
	m := sortio.NewMerger(sources, sortio.Progress(progress.Status(task, total, "pairs")))
	for m.Scan() {
		values := m.Values()
		var partitions [][]uint32
		if typ.Rated {
			partitions = values
			for i := range values {
				counts.Ratings[i+1] += int64(len(values[i]))
			}
		} else {
			var all []uint32
			for _, v := range values {
				all = append(all, v...)
			}
			partitions = [][]uint32{all}
			counts.Ratings[record.Unrated] += int64(len(all))
		}
		rec, err := record.FromValues(typ, m.Key(), partitions)
		if err == nil {
			err = w.Append(rec)
		}
		if err != nil {
			w.Discard()
			return counts, err
		}
	}
	if err := m.Err(); err != nil {
		w.Discard()
		return counts, err
	}
	counts.Records, counts.Bytes = int64(w.Len()), w.Size()
	if err := w.Close(); err != nil {
		return counts, err
	}
	log.Printf("build %s: %d records (%s) from %d pairs", idxPath, counts.Records, data.Size(counts.Bytes), counts.Total())
	return counts, nil
}

// Dataset builds the movie and user indices of a dataset in directory
// dir from the unsorted pair files ratings: record.NumRatings files
// (one per rating, as written by a pairio.Splitter) for a rated
// dataset, or a single file for an unrated dataset. The two indices
// are built concurrently.
func Dataset(ctx context.Context, dir string, ratings []string, opts Options) error {
	var rated bool
	switch len(ratings) {
	case 1:
	case record.NumRatings:
		rated = true
	default:
		return errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("build %s: need 1 or %d rating files, got %d", dir, record.NumRatings, len(ratings)))
	}
	tmp, err := ioutil.TempDir("", "flixdb-build-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range []record.Kind{record.Movies, record.Users} {
		kind := kind
		g.Go(func() error {
			idxPath, datPath := index.Paths(dir, kind.String())
			if !opts.Force && exists(ctx, idxPath) && exists(ctx, datPath) {
				log.Printf("build %s: index exists; skipping", idxPath)
				return nil
			}
			sorted := make([]string, len(ratings))
			for i, path := range ratings {
				sorted[i] = filepath.Join(tmp, fmt.Sprintf("%s-%d.bin", kind, i))
				if err := sortio.SortFile(ctx, path, sorted[i], kind, sortio.SortOptions{ChunkSize: opts.SortChunk}); err != nil {
					return err
				}
			}
			counts, err := Index(ctx, idxPath, datPath, record.Type{Kind: kind, Rated: rated}, sorted, opts)
			if err != nil {
				return err
			}
			log.Printf("build %s: %s %s", dir, kind, counts)
			return nil
		})
	}
	return g.Wait()
}

// Triples builds a dataset in directory dir from the provided rating
// triples. If rated is false, the triples' ratings are ignored.
func Triples(ctx context.Context, dir string, r pairio.TripleReader, rated bool, opts Options) error {
	tmp, err := ioutil.TempDir("", "flixdb-triples-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	var paths []string
	if rated {
		for i := 0; i < record.NumRatings; i++ {
			paths = append(paths, filepath.Join(tmp, fmt.Sprintf("rating%d.bin", i+1)))
		}
		counts, _, err := pairio.Split(ctx, r, paths, nil, nil, false)
		if err != nil {
			return err
		}
		log.Debug.Printf("build %s: split %s", dir, counts)
	} else {
		paths = []string{filepath.Join(tmp, "pairs.bin")}
		w, err := pairio.Create(ctx, paths[0])
		if err != nil {
			return err
		}
		for r.Scan() {
			if err := w.Write(r.Triple().Pair); err != nil {
				w.Close()
				return err
			}
		}
		if err := r.Err(); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return Dataset(ctx, dir, paths, opts)
}

func exists(ctx context.Context, path string) bool {
	_, err := file.Stat(ctx, path)
	return err == nil
}

func remove(ctx context.Context, path string) error {
	if !exists(ctx, path) {
		return nil
	}
	log.Printf("build: removing stale output %s", path)
	return file.Remove(ctx, path)
}
