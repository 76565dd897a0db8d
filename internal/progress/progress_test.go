// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package progress

import (
	"testing"

	"github.com/grailbio/base/status"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Add(3)
	c.Add(4)
	if got, want := c.N(), int64(7); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStatus(t *testing.T) {
	if got := Status(nil, 10, "pairs"); got != Nop {
		t.Errorf("got %v, want Nop", got)
	}
	var st status.Status
	task := st.Group("test").Start("merge")
	sink := Status(task, 100, "pairs")
	for i := 0; i < 100; i++ {
		sink.Add(1)
	}
	if got, want := sink.(*statusSink).printed, int64(100); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	task.Done()
}
