// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package record implements the compact binary encoding of rating
	records. A record holds all of the values (the IDs of the other
	entity) associated with a single key (a movie or a user ID),
	optionally partitioned into five rating buckets.

	Records are encoded with fixed-width, little-endian integers whose
	sizes depend on the record kind:

		record := key counts values
		key:    uint16 (movies) | uint32 (users)
		counts: int32 (movies) | uint16 (users), one per partition
		values: uint32 (movies) | uint16 (users), sum(counts) of them

	Rated records have NumRatings partitions: the values with rating 1
	come first, then those with rating 2, and so on. Values are sorted
	ascending within each partition. Unrated records have a single
	partition.

	A sequence of records in key order forms a record data file. See
	package index for random access into such files.
*/
package record
