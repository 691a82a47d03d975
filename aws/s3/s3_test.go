package s3

import (
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/medallion-data/medal"
	"github.com/pkg/errors"
)

// fakeAPI serves a canned listing, split into pages the way the real client
// pages large prefixes, and canned object bodies.
type fakeAPI struct {
	pages   [][]string
	objects map[string]string
}

func (f *fakeAPI) ListObjectsPages(in *s3.ListObjectsInput, fn func(*s3.ListObjectsOutput, bool) bool) error {
	for i, page := range f.pages {
		contents := make([]*s3.Object, len(page))
		for j, key := range page {
			contents[j] = &s3.Object{Key: aws.String(key)}
		}
		if !fn(&s3.ListObjectsOutput{Contents: contents}, i == len(f.pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeAPI) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.Errorf("no such key %q", aws.StringValue(in.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func mustReadAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading object body: %v", err)
	}
	return string(b)
}

func TestRawSourcePagedListing(t *testing.T) {
	api := &fakeAPI{
		pages: [][]string{
			{"transactions/web/day1.csv", "transactions/web/day2.csv"},
			{"transactions/web/day3.csv"},
		},
		objects: map[string]string{
			"transactions/web/day1.csv": "transaction_id,amount\nT1,10\n",
			"transactions/web/day2.csv": "transaction_id,amount\nT2,20\n",
			"transactions/web/day3.csv": "transaction_id,amount\nT3,30\n",
		},
	}
	rs, err := NewRawSourceFrom(api, Config{Bucket: "retail", Prefix: "transactions/web/"})
	if err != nil {
		t.Fatalf("creating raw source: %v", err)
	}

	// every object from every page comes through, in listing order
	for _, want := range []string{"transactions/web/day1.csv", "transactions/web/day2.csv", "transactions/web/day3.csv"} {
		rdr, err := rs.NextReader()
		if err != nil {
			t.Fatalf("getting reader for %s: %v", want, err)
		}
		if rdr.Name() != want {
			t.Fatalf("expected %s, got %s", want, rdr.Name())
		}
		if got := mustReadAll(t, rdr); got != api.objects[want] {
			t.Fatalf("body of %s: %q", want, got)
		}
	}
	if _, err := rs.NextReader(); err != io.EOF {
		t.Fatalf("expected io.EOF after last object, got %v", err)
	}
}

func TestRawSourceEmptyPrefix(t *testing.T) {
	api := &fakeAPI{pages: [][]string{{}}}
	_, err := NewRawSourceFrom(api, Config{Bucket: "retail", Prefix: "transactions/fax/"})
	if errors.Cause(err) != medal.ErrMissingInput {
		t.Fatalf("expected missing input for empty prefix, got %v", err)
	}
}

func TestRawSourceGetObjectError(t *testing.T) {
	api := &fakeAPI{
		pages:   [][]string{{"transactions/web/gone.csv"}},
		objects: map[string]string{},
	}
	rs, err := NewRawSourceFrom(api, Config{Bucket: "retail", Prefix: "transactions/web/"})
	if err != nil {
		t.Fatalf("creating raw source: %v", err)
	}
	if _, err := rs.NextReader(); err == nil {
		t.Fatal("expected error fetching a vanished object")
	}
}
