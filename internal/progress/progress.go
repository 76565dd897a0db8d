// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package progress provides sinks for reporting the progress of long
// sequential passes, such as scans of record files and merges of
// sorted pair files.
package progress

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/status"
)

// A Sink receives progress updates. Add reports that n more units
// (bytes, pairs, values) have been consumed.
type Sink interface {
	Add(n int64)
}

// Nop is a Sink that discards all updates.
var Nop Sink = nop{}

type nop struct{}

func (nop) Add(int64) {}

// Counter is a Sink that accumulates the number of units consumed.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// Add implements Sink.
func (c *Counter) Add(n int64) {
	c.mu.Lock()
	c.n += n
	c.mu.Unlock()
}

// N returns the number of units consumed so far.
func (c *Counter) N() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// statusSink prints progress to a status task. Updates are printed
// whenever progress advances by at least a tenth of a percent.
type statusSink struct {
	mu          sync.Mutex
	task        *status.Task
	unit        string
	done, total int64
	printed     int64
}

// Status returns a Sink that reports progress towards total units to
// the provided status task. If total is not positive, only the count
// of consumed units is printed. A nil task yields Nop.
func Status(task *status.Task, total int64, unit string) Sink {
	if task == nil {
		return Nop
	}
	s := &statusSink{task: task, unit: unit, total: total}
	s.print()
	return s
}

func (s *statusSink) Add(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done += n
	step := s.total / 1000
	if step < 1 {
		step = 1
	}
	if s.done-s.printed >= step || s.done == s.total {
		s.print()
	}
}

func (s *statusSink) print() {
	s.printed = s.done
	if s.total <= 0 {
		s.task.Print(fmt.Sprintf("%d %s", s.done, s.unit))
		return
	}
	s.task.Printf("%d/%d %s (%.1f%%)", s.done, s.total, s.unit, 100*float64(s.done)/float64(s.total))
}
