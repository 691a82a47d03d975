// Package ingest builds the bronze table: it reads each channel's raw
// transaction files, tags every record with its channel, and commits the
// union of all channels as one snapshot.
package ingest

import (
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/medallion-data/medal"
	"github.com/medallion-data/medal/aws/s3"
	"github.com/medallion-data/medal/aws/secrets"
	"github.com/medallion-data/medal/csv"
	"github.com/medallion-data/medal/lake"
	"github.com/pkg/errors"
)

// Main contains the configuration for the ingest stage.
type Main struct {
	Base            string   `help:"Base data path holding transactions/<channel>/ directories, or an s3://bucket/prefix URL."`
	Output          string   `help:"Local root for table output. Defaults to <base>/output; required when the base is s3."`
	Channels        []string `help:"Sales channels to ingest, one directory (or S3 prefix) per channel."`
	Delimiter       string   `help:"Field delimiter in the raw files."`
	Region          string   `help:"AWS region, for an s3 base."`
	AccessKeySecret string   `help:"Secrets Manager name holding the object-store access key, for an s3 base."`
	SecretKeySecret string   `help:"Secrets Manager name holding the object-store secret key, for an s3 base."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Base:            "data",
		Channels:        []string{"web", "mobile", "instore"},
		Delimiter:       ",",
		Region:          "us-east-1",
		AccessKeySecret: "retail-lake-access-key",
		SecretKeySecret: "retail-lake-secret-key",
	}
}

// Run reads every channel, unions them, and commits bronze. A missing or
// unreadable channel aborts the whole ingest; nothing is committed partially.
func (m *Main) Run() error {
	start := time.Now()
	if len(m.Channels) == 0 {
		return errors.New("at least one channel is required")
	}
	remote := strings.HasPrefix(m.Base, "s3://")
	if remote && m.Output == "" {
		return errors.New("output path is required when the base is s3")
	}

	var creds *credentials.Credentials
	if remote {
		var err error
		creds, err = secrets.Fetch(m.Region, m.AccessKeySecret, m.SecretKeySecret)
		if err != nil {
			return errors.Wrap(err, "fetching object-store credentials")
		}
	}

	var union *medal.Dataset
	for _, channel := range m.Channels {
		ds, err := m.readChannel(channel, creds)
		if err != nil {
			return errors.Wrapf(err, "reading channel %q", channel)
		}
		ds.WithConstant("channel", channel)
		log.Printf("channel %s: %d records", channel, ds.NumRows())
		if union == nil {
			union = ds
			continue
		}
		if err := union.UnionByName(ds); err != nil {
			return errors.Wrapf(err, "unioning channel %q", channel)
		}
	}

	layout := medal.Layout{Base: m.Base, Output: m.Output}
	tbl, err := lake.Open(layout.Bronze())
	if err != nil {
		return errors.Wrap(err, "opening bronze table")
	}
	version, err := tbl.Commit(union, "ingest")
	if err != nil {
		return errors.Wrap(err, "committing bronze")
	}
	log.Printf("bronze v%d: %d records from %d channels in %s", version, union.NumRows(), len(m.Channels), time.Since(start))
	return nil
}

func (m *Main) readChannel(channel string, creds *credentials.Credentials) (*medal.Dataset, error) {
	if !strings.HasPrefix(m.Base, "s3://") {
		layout := medal.Layout{Base: m.Base}
		return csv.ReadDir(layout.ChannelDir(channel), m.Delimiter)
	}

	bucket, prefix, err := splitS3URL(m.Base)
	if err != nil {
		return nil, err
	}
	rs, err := s3.NewRawSource(s3.Config{
		Region: m.Region,
		Bucket: bucket,
		Prefix: path.Join(prefix, "transactions", channel) + "/",
		Creds:  creds,
	})
	if err != nil {
		return nil, err
	}
	src, err := csv.NewSource(csv.WithRawSource(rs), csv.WithDelimiter(m.Delimiter))
	if err != nil {
		return nil, err
	}
	return medal.ReadAll(src)
}

func splitS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.Errorf("malformed s3 url %q", raw)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
