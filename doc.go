// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package flixdb is the root of a set of packages that store and query
	sparse movie ratings: the (movie, user, rating) triples of a
	collaborative filtering dataset.

	Ratings are stored twice, once keyed by movie and once keyed by
	user, as compact binary records ordered by key (package record).
	Records are built offline from unsorted pair files (package pairio)
	by sorting them by key and merging the sorted streams (package
	sortio), and are written to random access indices (package index)
	by the pipeline in package build. Package dataset answers queries
	over a directory holding a movie index and a user index: the users
	that rated a set of movies, the joint ratings of those users, or
	the root mean square error of a rating predictor.

	Files are accessed through github.com/grailbio/base/file, so that
	inputs and datasets may live on any registered file system;
	importing package s3store registers S3.
*/
package flixdb
