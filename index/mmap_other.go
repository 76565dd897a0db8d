// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

//go:build !linux && !darwin && !freebsd
// +build !linux,!darwin,!freebsd

package index

import "github.com/grailbio/base/errors"

func mmapFile(path string, size int64) ([]byte, func() error, error) {
	return nil, nil, errors.E(errors.NotSupported, "mmap "+path)
}
