// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset implements queries over a dataset of movie ratings.
// A dataset is a directory holding a movie index (movies.idx and
// movies.dat) and a user index (users.idx and users.dat), as written
// by package build. Datasets are either rated, in which case every
// (movie, user) pair carries a rating, or unrated.
//
// Queries that accept a record.Range consider only the values whose
// ratings fall within the range. Unrated datasets ignore ranges.
package dataset

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/flixdb/index"
	"github.com/grailbio/flixdb/record"
)

// A Dataset provides queries over the movie and user records of a
// dataset. Datasets are safe for concurrent use.
type Dataset struct {
	dir    string
	rated  bool
	movies table
	users  table
}

// Open opens the dataset in directory dir. If only one of the two
// indices is present, the records of the other are derived from it
// and held in memory. Open returns an error of kind errors.NotExist
// if neither index is present.
func Open(ctx context.Context, dir string) (*Dataset, error) {
	movies, merr := openTable(ctx, dir, record.Movies)
	if merr != nil && !errors.Is(errors.NotExist, merr) {
		return nil, merr
	}
	users, uerr := openTable(ctx, dir, record.Users)
	if uerr != nil && !errors.Is(errors.NotExist, uerr) {
		if movies != nil {
			movies.Close()
		}
		return nil, uerr
	}
	d := &Dataset{dir: dir, movies: movies, users: users}
	var err error
	switch {
	case movies == nil && users == nil:
		return nil, errors.E(errors.NotExist, fmt.Sprintf("dataset %s: no movie or user index", dir), merr)
	case movies == nil:
		log.Printf("dataset %s: movie index missing; deriving it from users", dir)
		d.movies, err = transpose(ctx, users)
	case users == nil:
		log.Printf("dataset %s: user index missing; deriving it from movies", dir)
		d.users, err = transpose(ctx, movies)
	}
	if err != nil {
		d.Close()
		return nil, err
	}
	if d.movies.Type().Rated != d.users.Type().Rated {
		d.Close()
		return nil, errors.E(errors.Integrity, fmt.Sprintf("dataset %s: movie index is %s but user index is %s", dir, d.movies.Type(), d.users.Type()))
	}
	d.rated = d.movies.Type().Rated
	return d, nil
}

func openTable(ctx context.Context, dir string, kind record.Kind) (table, error) {
	idxPath, datPath := index.Paths(dir, kind.String())
	x, err := index.Open(ctx, idxPath, datPath)
	if err != nil {
		return nil, err
	}
	if got := x.Type().Kind; got != kind {
		x.Close()
		return nil, errors.E(errors.Integrity, fmt.Sprintf("index %s holds %s records", idxPath, got))
	}
	return indexTable{x}, nil
}

// Close releases the dataset's resources.
func (d *Dataset) Close() error {
	var err error
	for _, t := range []table{d.movies, d.users} {
		if t == nil {
			continue
		}
		if cerr := t.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Dir returns the dataset's directory.
func (d *Dataset) Dir() string { return d.dir }

// Rated tells whether the dataset is rated.
func (d *Dataset) Rated() bool { return d.rated }

// NumMovies returns the number of movies in the dataset.
func (d *Dataset) NumMovies() int { return len(d.movies.Keys()) }

// NumUsers returns the number of users in the dataset.
func (d *Dataset) NumUsers() int { return len(d.users.Keys()) }

// Movie returns the record of the provided movie.
func (d *Dataset) Movie(movie uint16) (*record.Record, error) {
	return d.movies.Get(uint32(movie))
}

// User returns the record of the provided user.
func (d *Dataset) User(user uint32) (*record.Record, error) {
	return d.users.Get(user)
}

// Movies returns, in ascending order, the movies rated within rng by
// every one of the provided users. If no users are provided, Movies
// returns every movie in the dataset.
func (d *Dataset) Movies(rng record.Range, users ...uint32) ([]uint32, error) {
	return d.common(d.users, d.movies, rng, users)
}

// Users returns, in ascending order, the users that rated within rng
// every one of the provided movies. If no movies are provided, Users
// returns every user in the dataset.
func (d *Dataset) Users(rng record.Range, movies ...uint16) ([]uint32, error) {
	return d.common(d.movies, d.users, rng, widen(movies))
}

func (d *Dataset) common(from, universe table, rng record.Range, keys []uint32) ([]uint32, error) {
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return append([]uint32(nil), universe.Keys()...), nil
	}
	records, err := get(from, keys)
	if err != nil {
		return nil, err
	}
	return record.CommonValues(rng, records...), nil
}

// RatingsTo returns the ratings within rng given to the provided
// movie, ordered by rating.
func (d *Dataset) RatingsTo(movie uint16, rng record.Range) ([]record.Rating, error) {
	rec, err := d.rating(d.movies, uint32(movie), rng)
	if err != nil {
		return nil, err
	}
	return rec.Ratings(rng), nil
}

// RatingsBy returns the ratings within rng given by the provided
// user, ordered by rating.
func (d *Dataset) RatingsBy(user uint32, rng record.Range) ([]record.Rating, error) {
	rec, err := d.rating(d.users, user, rng)
	if err != nil {
		return nil, err
	}
	return rec.Ratings(rng), nil
}

// RatedUsers returns an iterator over the (user, rating) pairs of the
// provided movie's ratings within rng.
func (d *Dataset) RatedUsers(movie uint16, rng record.Range) (*record.ValueRatingIter, error) {
	rec, err := d.rating(d.movies, uint32(movie), rng)
	if err != nil {
		return nil, err
	}
	return rec.ValueRatings(rng), nil
}

// RatedMovies returns an iterator over the (movie, rating) pairs of
// the provided user's ratings within rng.
func (d *Dataset) RatedMovies(user uint32, rng record.Range) (*record.ValueRatingIter, error) {
	rec, err := d.rating(d.users, user, rng)
	if err != nil {
		return nil, err
	}
	return rec.ValueRatings(rng), nil
}

func (d *Dataset) rating(t table, key uint32, rng record.Range) (*record.Record, error) {
	if err := d.checkRated(); err != nil {
		return nil, err
	}
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	return t.Get(key)
}

// JointRatingsTo returns the users that rated every one of the
// provided movies within rng, and the matrix of their ratings: the
// element (i, j) is the rating of the ith movie by the jth user.
func (d *Dataset) JointRatingsTo(rng record.Range, movies ...uint16) ([]uint32, *record.Matrix, error) {
	records, err := d.joint(d.movies, rng, widen(movies))
	if err != nil {
		return nil, nil, err
	}
	users, m := record.JointRatings(rng, records...)
	return users, m, nil
}

// JointRatingsBy returns the movies rated within rng by every one of
// the provided users, and the matrix of their ratings: the element
// (i, j) is the rating of the jth movie by the ith user.
func (d *Dataset) JointRatingsBy(rng record.Range, users ...uint32) ([]uint32, *record.Matrix, error) {
	records, err := d.joint(d.users, rng, users)
	if err != nil {
		return nil, nil, err
	}
	movies, m := record.JointRatings(rng, records...)
	return movies, m, nil
}

// JointUsers returns an iterator over the users that rated every one
// of the provided movies within rng, together with their ratings of
// each movie.
func (d *Dataset) JointUsers(rng record.Range, movies ...uint16) (*record.JointIter, error) {
	records, err := d.joint(d.movies, rng, widen(movies))
	if err != nil {
		return nil, err
	}
	return record.CommonValueRatings(rng, records...), nil
}

// JointMovies returns an iterator over the movies rated within rng by
// every one of the provided users, together with each user's rating.
func (d *Dataset) JointMovies(rng record.Range, users ...uint32) (*record.JointIter, error) {
	records, err := d.joint(d.users, rng, users)
	if err != nil {
		return nil, err
	}
	return record.CommonValueRatings(rng, records...), nil
}

func (d *Dataset) joint(t table, rng record.Range, keys []uint32) ([]record.Valuer, error) {
	if err := d.checkRated(); err != nil {
		return nil, err
	}
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.E(errors.Invalid, "joint ratings need at least one key")
	}
	return get(t, keys)
}

func (d *Dataset) checkRated() error {
	if d.rated {
		return nil
	}
	return errors.E(errors.NotSupported, fmt.Sprintf("dataset %s is unrated", d.dir))
}

func checkRange(rng record.Range) error {
	if err := rng.Check(); err != nil {
		return errors.E(errors.Invalid, err)
	}
	return nil
}

func get(t table, keys []uint32) ([]record.Valuer, error) {
	records := make([]record.Valuer, len(keys))
	for i, key := range keys {
		rec, err := t.Get(key)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func widen(movies []uint16) []uint32 {
	keys := make([]uint32, len(movies))
	for i, m := range movies {
		keys[i] = uint32(m)
	}
	return keys
}
