// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/flixdb/pairio"
	"github.com/grailbio/flixdb/record"
)

// A TripleScanner scans the (movie, user, rating) triples of a
// dataset in movie order, holding one movie record in memory at a
// time. Triples of unrated datasets carry the rating record.Unrated.
// TripleScanner implements pairio.TripleReader.
type TripleScanner struct {
	rng     record.Range
	scanner scanner
	movie   uint16
	it      *record.ValueRatingIter
	triple  pairio.Triple
	err     error
}

// Triples returns a scanner of the dataset's triples with ratings
// within rng. The scanner must be closed after use.
func (d *Dataset) Triples(ctx context.Context, rng record.Range) *TripleScanner {
	if err := checkRange(rng); err != nil {
		return &TripleScanner{err: err}
	}
	return &TripleScanner{rng: rng, scanner: d.movies.scan(ctx)}
}

// Scan advances to the next triple, returning false when no triples
// remain or an error occurred.
func (s *TripleScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.it == nil || !s.it.Next() {
		if !s.scanner.Scan() {
			s.err = s.scanner.Err()
			if s.err == nil {
				s.err = io.EOF
			}
			return false
		}
		rec := s.scanner.Record()
		s.movie = uint16(rec.Key())
		s.it = rec.ValueRatings(s.rng)
	}
	s.triple = pairio.Triple{
		Pair:   pairio.Pair{Movie: s.movie, User: s.it.Value()},
		Rating: s.it.Rating(),
	}
	return true
}

// Triple returns the last scanned triple.
func (s *TripleScanner) Triple() pairio.Triple { return s.triple }

// Err returns the error, if any, that stopped scanning.
func (s *TripleScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Close releases the scanner's resources.
func (s *TripleScanner) Close() error {
	if s.scanner == nil {
		return nil
	}
	return s.scanner.Close()
}

// A Predictor predicts the rating that a user gives to a movie.
type Predictor interface {
	Predict(movie uint16, user uint32) float64
}

// PredictorFunc adapts a function to a Predictor.
type PredictorFunc func(movie uint16, user uint32) float64

// Predict implements Predictor.
func (f PredictorFunc) Predict(movie uint16, user uint32) float64 {
	return f(movie, user)
}

// RMSE returns the root mean square error of the predictor's
// predictions of every rating in the dataset. RMSE returns an error
// of kind errors.NotSupported for unrated datasets, and of kind
// errors.Invalid for empty datasets.
func (d *Dataset) RMSE(ctx context.Context, p Predictor) (float64, error) {
	if err := d.checkRated(); err != nil {
		return 0, err
	}
	s := d.Triples(ctx, record.All)
	defer s.Close()
	var (
		sum float64
		n   int64
	)
	for s.Scan() {
		t := s.Triple()
		e := p.Predict(t.Movie, t.User) - float64(t.Rating)
		sum += e * e
		n++
	}
	if err := s.Err(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("dataset %s: no ratings", d.dir))
	}
	rmse := math.Sqrt(sum / float64(n))
	log.Debug.Printf("dataset %s: rmse %.4f over %d ratings", d.dir, rmse, n)
	return rmse, nil
}

// WritePredictions writes the predictor's predictions for each pair
// scanned from pairs to w. Each run of pairs for the same movie is
// introduced by a line "movie:"; each prediction is then written on
// its own line using format (e.g., "%.3f").
func WritePredictions(w io.Writer, pairs pairio.Scanner, p Predictor, format string) error {
	bw := bufio.NewWriter(w)
	var (
		last  uint16
		first = true
	)
	for pairs.Scan() {
		pair := pairs.Pair()
		if first || pair.Movie != last {
			if _, err := fmt.Fprintf(bw, "%d:\n", pair.Movie); err != nil {
				return err
			}
			last, first = pair.Movie, false
		}
		if _, err := fmt.Fprintf(bw, format+"\n", p.Predict(pair.Movie, pair.User)); err != nil {
			return err
		}
	}
	if err := pairs.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
