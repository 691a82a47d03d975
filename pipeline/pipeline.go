// Package pipeline runs every stage in order: ingest, enrich, quality,
// aggregate, maintain. The stages still talk to each other only through
// committed table snapshots; this package just sequences them and stops at
// the first error.
package pipeline

import (
	"log"
	"time"

	"github.com/medallion-data/medal/aggregate"
	"github.com/medallion-data/medal/enrich"
	"github.com/medallion-data/medal/ingest"
	"github.com/medallion-data/medal/maintain"
	"github.com/medallion-data/medal/quality"
	"github.com/pkg/errors"
)

// Main contains the configuration for a full pipeline run.
type Main struct {
	Base            string   `help:"Base data path holding transactions/<channel>/ and products/, or an s3://bucket/prefix URL."`
	Output          string   `help:"Local root for table output. Defaults to <base>/output; required when the base is s3."`
	Channels        []string `help:"Sales channels to ingest."`
	Delimiter       string   `help:"Field delimiter in the raw files."`
	Catalog         string   `help:"Product catalog file. Overrides the path derived from the base."`
	TableName       string   `help:"Logical name the gold table is registered under."`
	RetentionHours  float64  `help:"Vacuum retention window in hours."`
	Strict          bool     `help:"Fail the run on any quality finding."`
	Region          string   `help:"AWS region, for an s3 base."`
	AccessKeySecret string   `help:"Secrets Manager name holding the object-store access key, for an s3 base."`
	SecretKeySecret string   `help:"Secrets Manager name holding the object-store secret key, for an s3 base."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	ing := ingest.NewMain()
	return &Main{
		Base:            ing.Base,
		Channels:        ing.Channels,
		Delimiter:       ing.Delimiter,
		TableName:       aggregate.NewMain().TableName,
		RetentionHours:  maintain.NewMain().RetentionHours,
		Region:          ing.Region,
		AccessKeySecret: ing.AccessKeySecret,
		SecretKeySecret: ing.SecretKeySecret,
	}
}

// Run executes the stages in order. There is no branching: quality findings
// only stop the run in strict mode, and nothing is retried.
func (m *Main) Run() error {
	start := time.Now()

	ing := ingest.NewMain()
	ing.Base, ing.Output, ing.Channels, ing.Delimiter = m.Base, m.Output, m.Channels, m.Delimiter
	ing.Region, ing.AccessKeySecret, ing.SecretKeySecret = m.Region, m.AccessKeySecret, m.SecretKeySecret
	if err := ing.Run(); err != nil {
		return errors.Wrap(err, "ingest")
	}

	enr := enrich.NewMain()
	enr.Base, enr.Output, enr.Catalog, enr.Delimiter = m.Base, m.Output, m.Catalog, m.Delimiter
	if err := enr.Run(); err != nil {
		return errors.Wrap(err, "enrich")
	}

	qual := quality.NewMain()
	qual.Base, qual.Output, qual.Strict = m.Base, m.Output, m.Strict
	if err := qual.Run(); err != nil {
		return errors.Wrap(err, "quality")
	}

	agg := aggregate.NewMain()
	agg.Base, agg.Output, agg.TableName = m.Base, m.Output, m.TableName
	if err := agg.Run(); err != nil {
		return errors.Wrap(err, "aggregate")
	}

	mnt := maintain.NewMain()
	mnt.Base, mnt.Output, mnt.RetentionHours = m.Base, m.Output, m.RetentionHours
	if err := mnt.Run(); err != nil {
		return errors.Wrap(err, "maintain")
	}

	log.Printf("pipeline done in %s", time.Since(start))
	return nil
}
