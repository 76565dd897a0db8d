// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package defaultsize holds internal tuning parameters, configured by
// flag, that determine buffer sizes used when building and reading
// record files.
package defaultsize

import "flag"

var (
	// ReadBuffer is the default read buffer size (in bytes) used for
	// sequential reads of pair and record files.
	ReadBuffer int
	// WriteBuffer is the default write buffer size (in bytes) used for
	// record data files.
	WriteBuffer int
	// SortChunk is the default number of pairs sorted in memory before
	// being spilled to disk by an external sort.
	SortChunk int
)

func init() {
	flag.IntVar(&ReadBuffer, "flixdb-internal-read-buffer", 1<<20,
		"Default read buffer size, in bytes, for pair and record files.")
	flag.IntVar(&WriteBuffer, "flixdb-internal-write-buffer", 4<<20,
		"Default write buffer size, in bytes, for record data files.")
	flag.IntVar(&SortChunk, "flixdb-internal-sort-chunk-pairs", 16<<20,
		"Default number of pairs sorted in memory before spilling.")
}
