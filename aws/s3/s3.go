// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 provides a medal.RawSource reading the objects under an S3
// bucket prefix, one reader per object.
package s3

import (
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/medallion-data/medal"
	"github.com/pkg/errors"
)

// Config carries everything a RawSource needs. Credentials are passed here
// explicitly (usually from aws/secrets) rather than placed in any
// process-global AWS state, so nothing leaks across runs.
type Config struct {
	Region string
	Bucket string
	Prefix string
	Creds  *credentials.Credentials
}

// API is the part of the S3 client a RawSource calls. The real client
// satisfies it; tests substitute a fake.
type API interface {
	ListObjectsPages(*s3.ListObjectsInput, func(*s3.ListObjectsOutput, bool) bool) error
	GetObject(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

// RawSource lists the objects under a prefix at construction time and hands
// out a reader per object. It satisfies medal.RawSource.
type RawSource struct {
	cfg Config

	api     API
	objects []*s3.Object
	objIdx  *uint64
}

// NewRawSource builds a client from the config and returns a source over the
// matching objects.
func NewRawSource(cfg Config) (*RawSource, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Creds != nil {
		awsCfg.Credentials = cfg.Creds
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting session")
	}
	return NewRawSourceFrom(s3.New(sess), cfg)
}

// NewRawSourceFrom lists the matching objects through an existing client. The
// listing is paginated, so a prefix holding more than one page of objects is
// read in full. An empty listing is a medal.ErrMissingInput since every
// channel prefix is expected to hold data.
func NewRawSourceFrom(api API, cfg Config) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		cfg:    cfg,
		api:    api,
		objIdx: &idx,
	}
	err := rs.api.ListObjectsPages(&s3.ListObjectsInput{
		Bucket: aws.String(cfg.Bucket),
		Prefix: aws.String(cfg.Prefix),
	}, func(page *s3.ListObjectsOutput, lastPage bool) bool {
		rs.objects = append(rs.objects, page.Contents...)
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(medal.ErrMissingInput, "listing s3://%s/%s: %v", cfg.Bucket, cfg.Prefix, err)
	}
	if len(rs.objects) == 0 {
		return nil, errors.Wrapf(medal.ErrMissingInput, "no objects under s3://%s/%s", cfg.Bucket, cfg.Prefix)
	}
	return rs, nil
}

// NextReader returns a reader for the next object, or io.EOF when the listing
// is exhausted.
func (rs *RawSource) NextReader() (medal.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	obj := rs.objects[idx]

	result, err := rs.api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.cfg.Bucket),
		Key:    obj.Key,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", *obj.Key)
	}
	return &objReader{name: *obj.Key, body: result.Body}, nil
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}
