// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pairio

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/flixdb/record"
	"github.com/grailbio/flixdb/stats"
)

// A TripleReader is a stream of rating triples.
type TripleReader interface {
	// Scan advances to the next triple, returning false when the stream
	// is exhausted or an error occurred.
	Scan() bool
	// Triple returns the last scanned triple.
	Triple() Triple
	// Err returns the error, if any, that stopped scanning.
	Err() error
}

type sliceTriples struct {
	triples []Triple
	cur     Triple
}

// TripleSlice returns a TripleReader over the provided triples.
func TripleSlice(triples []Triple) TripleReader {
	return &sliceTriples{triples: triples}
}

func (s *sliceTriples) Scan() bool {
	if len(s.triples) == 0 {
		return false
	}
	s.cur, s.triples = s.triples[0], s.triples[1:]
	return true
}

func (s *sliceTriples) Triple() Triple { return s.cur }
func (s *sliceTriples) Err() error     { return nil }

// A Splitter routes rating triples into one pair file per rating.
type Splitter struct {
	paths   []string
	writers []*FileWriter
	counts  stats.Ratings
}

// NewSplitter creates the record.NumRatings pair files, one per
// rating, at the provided paths: paths[i] receives the pairs rated
// i+1.
func NewSplitter(ctx context.Context, paths []string) (*Splitter, error) {
	if len(paths) != record.NumRatings {
		return nil, errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("splitter needs %d paths, got %d", record.NumRatings, len(paths)))
	}
	s := &Splitter{paths: paths, writers: make([]*FileWriter, len(paths))}
	for i, path := range paths {
		w, err := Create(ctx, path)
		if err != nil {
			for _, w := range s.writers[:i] {
				w.Close()
			}
			return nil, err
		}
		s.writers[i] = w
	}
	return s, nil
}

// Add writes the triple's pair to the file of its rating.
func (s *Splitter) Add(t Triple) error {
	if !t.Rating.Valid() {
		return errors.E(errors.Invalid, fmt.Sprintf("triple %v: invalid rating %d", t.Pair, t.Rating))
	}
	if err := s.writers[t.Rating-1].Write(t.Pair); err != nil {
		return err
	}
	s.counts.Add(t.Rating, 1)
	return nil
}

// Counts returns the number of triples added, by rating.
func (s *Splitter) Counts() stats.Values {
	return s.counts.Snapshot()
}

// Close completes and closes all of the splitter's pair files.
func (s *Splitter) Close() error {
	var err error
	for _, w := range s.writers {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Split reads every triple from r and splits it by rating into the
// pair files at paths. Triples whose pairs are in holdout are also
// written, split by rating, to holdoutPaths; if scrub is true they are
// then omitted from paths. Split returns the counts of triples written
// to each set of files. If holdout is empty, holdoutPaths may be nil.
func Split(ctx context.Context, r TripleReader, paths []string, holdout map[Pair]bool, holdoutPaths []string, scrub bool) (main, held stats.Values, err error) {
	s, err := NewSplitter(ctx, paths)
	if err != nil {
		return
	}
	var h *Splitter
	if len(holdout) > 0 {
		if h, err = NewSplitter(ctx, holdoutPaths); err != nil {
			s.Close()
			return
		}
	}
	for r.Scan() {
		t := r.Triple()
		if h != nil && holdout[t.Pair] {
			if err = h.Add(t); err != nil {
				break
			}
			if scrub {
				continue
			}
		}
		if err = s.Add(t); err != nil {
			break
		}
	}
	if err == nil {
		err = r.Err()
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	main = s.Counts()
	if h != nil {
		if cerr := h.Close(); err == nil {
			err = cerr
		}
		held = h.Counts()
	}
	if err == nil {
		log.Printf("split %d triples: %s", main.Total(), main)
		if h != nil {
			log.Printf("held out %d triples: %s", held.Total(), held)
		}
	}
	return
}
