// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package index implements read-only, random access record files. An
	index comprises a pair of files: a data file (.dat) that holds a
	record stream with records in strictly ascending key order, and an
	index file (.idx) that maps each key to the offset of its record in
	the data file.

	Indices are produced by a Writer, which expects records to be
	appended in key order. The data file is complete before the index
	file is written, so that an index file is present only if its data
	file is whole.

	The index file is laid out as follows; integers are little-endian:

		index := header entry* trailer
		header :=
			magic:    uint64   // magic (0x7a1df11e5ca1ab1e)
			kind:     uint8    // record kind (0: movies, 1: users)
			rated:    uint8    // 1 if records are rated; 0 otherwise
			count:    uvarint  // number of entries
			datasize: uvarint  // size of the data file, in bytes
		entry :=
			key:      uvarint  // key, less the previous entry's key
			offset:   uvarint  // offset, less the previous entry's offset
		trailer :=
			checksum: uint64   // murmur3 64-bit hash of header and entries

	The first entry's key and offset are stored as is. Each entry's
	record spans the data file from its offset to the next entry's
	offset (or datasize, for the last entry).

	An Index loads the whole table into memory when opened. Data files
	on local file systems are memory mapped; other data files (e.g., on
	S3) are read through package github.com/grailbio/base/file.
*/
package index
