// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recordio

import "github.com/grailbio/flixdb/record"

// A Scanner provides a convenient interface for reading records from
// a Reader. Successive calls to Scan return the next record. Scanning
// stops at the end of the stream or on the first error; the user
// should then inspect Err to determine whether scanning completed.
type Scanner struct {
	reader *Reader
	rec    *record.Record
	offset int64
	err    error
}

// NewScanner returns a Scanner of the records read by r.
func NewScanner(r *Reader) *Scanner {
	return &Scanner{reader: r}
}

// Scan advances the scanner to the next record. It returns false
// when no records remain or an error occurred.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	s.offset = s.reader.Offset()
	s.rec, s.err = s.reader.Read()
	return s.err == nil
}

// Record returns the last scanned record.
func (s *Scanner) Record() *record.Record { return s.rec }

// Offset returns the stream offset of the last scanned record.
func (s *Scanner) Offset() int64 { return s.offset }

// Err returns the error, if any, that stopped scanning.
func (s *Scanner) Err() error {
	if s.err == EOF {
		return nil
	}
	return s.err
}
