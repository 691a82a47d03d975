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

// Package csv reads headered delimited files into medal records. The source
// of the raw bytes can be local files, every file in a directory, an S3
// prefix (via aws/s3.RawSource), or anything implementing OpenStringer.
package csv

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/medallion-data/medal"
	"github.com/pkg/errors"
)

// Source satisfies medal.Source for delimited data. Each data line of each
// file becomes a medal.Row keyed by the file's header; empty fields are
// skipped. Source is safe for concurrent use.
type Source struct {
	files     []OpenStringer
	rawSource medal.RawSource
	delimiter string

	mu      sync.Mutex
	columns []string

	records   chan record
	done      chan struct{}
	closeOnce sync.Once
}

// Option is a functional option to pass to NewSource.
type Option func(*Source) error

// WithFiles returns an Option which adds the named local files to the set of
// inputs a Source will read.
func WithFiles(names []string) Option {
	return func(s *Source) error {
		for _, name := range names {
			s.files = append(s.files, fileOpener(name))
		}
		return nil
	}
}

// WithDir returns an Option which adds every file in a local directory, in
// lexical order. A missing or unreadable directory is a medal.ErrMissingInput.
func WithDir(dir string) Option {
	return func(s *Source) error {
		info, err := os.Stat(dir)
		if err != nil {
			return errors.Wrapf(medal.ErrMissingInput, "statting %q: %v", dir, err)
		}
		if !info.IsDir() {
			return errors.Wrapf(medal.ErrMissingInput, "%q is not a directory", dir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return errors.Wrapf(medal.ErrMissingInput, "reading directory %q: %v", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, path.Join(dir, e.Name()))
			}
		}
		sort.Strings(names)
		if len(names) == 0 {
			return errors.Wrapf(medal.ErrMissingInput, "directory %q holds no files", dir)
		}
		return WithFiles(names)(s)
	}
}

// WithOpenStringers returns an Option which adds the given OpenStringers to
// the set of inputs a Source will read.
func WithOpenStringers(os []OpenStringer) Option {
	return func(s *Source) error {
		s.files = append(s.files, os...)
		return nil
	}
}

// WithRawSource returns an Option which makes the Source read every reader
// the raw source hands out, e.g. objects under an S3 prefix.
func WithRawSource(rs medal.RawSource) Option {
	return func(s *Source) error {
		s.rawSource = rs
		return nil
	}
}

// WithDelimiter returns an Option which sets the field delimiter. The default
// is a comma.
func WithDelimiter(d string) Option {
	return func(s *Source) error {
		if d == "" {
			return errors.New("delimiter must not be empty")
		}
		s.delimiter = d
		return nil
	}
}

// NewSource creates a medal.Source for delimited data, e.g.
//
//	src, err := csv.NewSource(csv.WithDir("raw/transactions/web"))
func NewSource(options ...Option) (*Source, error) {
	s := &Source{
		records:   make(chan record, 100),
		done:      make(chan struct{}),
		delimiter: ",",
	}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if len(s.files) == 0 && s.rawSource == nil {
		return nil, errors.Wrap(medal.ErrMissingInput, "no inputs configured")
	}
	go s.getRecords()
	return s, nil
}

// Record returns the next medal.Row, or io.EOF once every input is drained.
func (s *Source) Record() (medal.Row, error) {
	rec, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return rec.row, rec.err
}

// Columns returns the header columns seen so far, in first-seen order across
// files. It is complete once Record has returned io.EOF.
func (s *Source) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.columns...)
}

// Close stops the producing goroutine. A consumer which abandons the source
// before io.EOF must call Close or the producer blocks forever once the
// record buffer fills; medal.ReadAll does this automatically.
func (s *Source) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

type record struct {
	row medal.Row
	err error
}

// send delivers one record to the consumer. It reports false once the source
// has been closed, at which point the caller should stop producing.
func (s *Source) send(rec record) bool {
	select {
	case s.records <- rec:
		return true
	case <-s.done:
		return false
	}
}

func (s *Source) getRecords() {
	defer close(s.records)
	for _, f := range s.files {
		if !s.getRows(f) {
			return
		}
	}
	if s.rawSource != nil {
		var rdr medal.NamedReadCloser
		var err error
		for rdr, err = s.rawSource.NextReader(); err == nil; rdr, err = s.rawSource.NextReader() {
			ok := s.scanReader(rdr, rdr.Name())
			rdr.Close()
			if !ok {
				return
			}
		}
		if err != io.EOF {
			s.send(record{err: errors.Wrap(err, "getting next reader")})
		}
	}
}

func (s *Source) getRows(f OpenStringer) bool {
	content, err := f.Open()
	if err != nil {
		return s.send(record{err: errors.Wrapf(medal.ErrMissingInput, "opening %q: %v", f, err)})
	}
	defer content.Close()
	return s.scanReader(content, f.String())
}

func (s *Source) scanReader(content io.Reader, name string) bool {
	scan := bufio.NewScanner(content)

	var header []string
	if scan.Scan() && scan.Err() == nil {
		header = strings.Split(scan.Text(), s.delimiter)
		if err := validateHeader(header); err != nil {
			return s.send(record{err: errors.Wrapf(err, "validating header of %s", name)})
		}
		s.addColumns(header)
	}

	line := 1
	for scan.Scan() && scan.Err() == nil {
		line++
		txt := scan.Text()
		if strings.TrimSpace(txt) == "" {
			continue // skip empty lines
		}
		row := strings.Split(txt, s.delimiter)
		rec, err := parseRecord(header, row)
		if err != nil {
			if !s.send(record{err: errors.Wrapf(err, "%s: parsing line %d", name, line)}) {
				return false
			}
			continue
		}
		if !s.send(record{row: rec}) {
			return false
		}
	}
	if err := scan.Err(); err != nil {
		return s.send(record{err: errors.Wrapf(err, "scanning %s, line %d", name, line)})
	}
	return true
}

func (s *Source) addColumns(header []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range header {
		found := false
		for _, c := range s.columns {
			if c == h {
				found = true
				break
			}
		}
		if !found {
			s.columns = append(s.columns, h)
		}
	}
}

// Opener is an interface to a resource which can be Opened, and the returned
// ReadCloser subsequently read from the beginning of the resource.
type Opener interface {
	Open() (io.ReadCloser, error)
}

// OpenStringer is an Opener which also has a String method returning the name
// of the resource being opened (e.g. a file path).
type OpenStringer interface {
	fmt.Stringer
	Opener
}

// fileOpener turns a local path into an OpenStringer.
type fileOpener string

func (f fileOpener) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f fileOpener) String() string {
	return string(f)
}

func parseRecord(header []string, row []string) (medal.Row, error) {
	if len(header) > len(row) {
		return nil, errors.Errorf("header/row len mismatch: %dvs%d, %v and %v", len(header), len(row), header, row)
	} else if len(row) > len(header) {
		for i := len(header); i < len(row); i++ {
			if strings.TrimSpace(row[i]) != "" {
				log.Printf("data in non headered field: %v, %d", row, i)
			}
		}
	}
	ret := make(medal.Row, len(header))
	for i := 0; i < len(header); i++ {
		if row[i] == "" {
			continue
		}
		ret[header[i]] = row[i]
	}
	return ret, nil
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}

// ReadDir reads every delimited file in a directory into a Dataset.
func ReadDir(dir, delimiter string) (*medal.Dataset, error) {
	src, err := NewSource(WithDir(dir), WithDelimiter(delimiter))
	if err != nil {
		return nil, err
	}
	return medal.ReadAll(src)
}

// ReadFile reads a single delimited file into a Dataset.
func ReadFile(name, delimiter string) (*medal.Dataset, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, errors.Wrapf(medal.ErrMissingInput, "statting %q: %v", name, err)
	}
	src, err := NewSource(WithFiles([]string{name}), WithDelimiter(delimiter))
	if err != nil {
		return nil, err
	}
	return medal.ReadAll(src)
}
