// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package s3store registers the "s3" file scheme with package
// github.com/grailbio/base/file, so that pair files and datasets may
// be read from and written to S3 paths (s3://bucket/key). Importing
// the package registers the scheme:
//
//	import _ "github.com/grailbio/flixdb/s3store"
//
// Credentials are resolved by the AWS SDK's default chain.
package s3store

import (
	"sync"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
)

var once sync.Once

func init() {
	Register()
}

// Register registers the "s3" scheme. It is safe to call Register
// multiple times.
func Register() {
	once.Do(func() {
		file.RegisterImplementation("s3", func() file.Implementation {
			return s3file.NewImplementation(
				s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
		})
	})
}

// SetBucketRegion sets the AWS region of the provided bucket, avoiding
// a region lookup on first access.
func SetBucketRegion(bucket, region string) {
	s3file.SetBucketRegion(bucket, region)
}
