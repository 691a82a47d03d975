// Package quality scans the committed silver snapshot and reports four data
// quality metrics: null counts on key fields, amount range violations,
// product id format violations, and duplicate transaction ids. It reads from
// storage rather than taking a dataset from the enrich stage, so it always
// judges committed state. By default it only reports; strict mode turns any
// finding into a run failure.
package quality

import (
	"log"
	"regexp"
	"strconv"

	"github.com/medallion-data/medal"
	"github.com/medallion-data/medal/lake"
	"github.com/pkg/errors"
)

// Main contains the configuration for the quality stage.
type Main struct {
	Base       string   `help:"Base data path."`
	Output     string   `help:"Local root for table output. Defaults to <base>/output."`
	NullFields []string `help:"Fields whose null counts are reported."`
	Amount     string   `help:"Numeric field checked against the range."`
	AmountMin  float64  `help:"Lowest acceptable amount, inclusive."`
	AmountMax  float64  `help:"Highest acceptable amount, inclusive."`
	IDField    string   `help:"Field checked against the id pattern."`
	IDPattern  string   `help:"Anchored regular expression valid ids must match."`
	Key        string   `help:"Primary key field checked for duplicates."`
	Strict     bool     `help:"Fail the run if any metric is nonzero."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Base:       "data",
		NullFields: []string{"transaction_id", "product_id", "amount"},
		Amount:     "amount",
		AmountMin:  0,
		AmountMax:  10000,
		IDField:    "product_id",
		IDPattern:  `^PRD\d{5}$`,
		Key:        "transaction_id",
	}
}

// Report holds the computed metrics.
type Report struct {
	Rows       int
	NullCounts map[string]int
	OutOfRange int
	BadFormat  int
	// DuplicateKeys is the number of distinct key values appearing more than
	// once; DuplicateRows is the number of surplus rows those keys account
	// for.
	DuplicateKeys int
	DuplicateRows int
}

// Clean reports whether every metric is zero.
func (r Report) Clean() bool {
	for _, n := range r.NullCounts {
		if n > 0 {
			return false
		}
	}
	return r.OutOfRange == 0 && r.BadFormat == 0 && r.DuplicateKeys == 0
}

// Run reads silver from storage, computes the metrics, and logs them.
func (m *Main) Run() error {
	if m.AmountMin > m.AmountMax {
		return errors.Errorf("amount range inverted: min %v > max %v", m.AmountMin, m.AmountMax)
	}
	pattern, err := regexp.Compile(m.IDPattern)
	if err != nil {
		return errors.Wrapf(err, "compiling id pattern %q", m.IDPattern)
	}

	layout := medal.Layout{Base: m.Base, Output: m.Output}
	tbl, err := lake.Open(layout.Silver())
	if err != nil {
		return errors.Wrap(err, "opening silver table")
	}
	ds, err := tbl.Read()
	if err != nil {
		return errors.Wrap(err, "reading silver")
	}

	rep := Check(ds, m.NullFields, m.Amount, m.AmountMin, m.AmountMax, m.IDField, pattern, m.Key)

	log.Printf("quality: %d rows scanned", rep.Rows)
	for _, f := range m.NullFields {
		log.Printf("quality: null %-16s %d", f, rep.NullCounts[f])
	}
	log.Printf("quality: %s outside [%v,%v]  %d", m.Amount, m.AmountMin, m.AmountMax, rep.OutOfRange)
	log.Printf("quality: %s not matching %s  %d", m.IDField, m.IDPattern, rep.BadFormat)
	log.Printf("quality: duplicate %s  %d keys, %d surplus rows", m.Key, rep.DuplicateKeys, rep.DuplicateRows)

	if m.Strict && !rep.Clean() {
		return errors.Wrap(medal.ErrQuality, "strict mode")
	}
	return nil
}

// Check computes the four metrics over a dataset. Each metric is an
// independent scan; none mutates the data.
func Check(ds *medal.Dataset, nullFields []string, amount string, min, max float64, idField string, idPattern *regexp.Regexp, key string) Report {
	rep := Report{
		Rows:       ds.NumRows(),
		NullCounts: map[string]int{},
	}

	for _, f := range nullFields {
		n := 0
		for _, row := range ds.Rows {
			if row[f] == "" {
				n++
			}
		}
		rep.NullCounts[f] = n
	}

	for _, row := range ds.Rows {
		v, err := strconv.ParseFloat(row[amount], 64)
		if err != nil || v < min || v > max {
			rep.OutOfRange++
		}
	}

	for _, row := range ds.Rows {
		if !idPattern.MatchString(row[idField]) {
			rep.BadFormat++
		}
	}

	seen := map[string]int{}
	for _, row := range ds.Rows {
		seen[row[key]]++
	}
	for _, n := range seen {
		if n > 1 {
			rep.DuplicateKeys++
			rep.DuplicateRows += n - 1
		}
	}
	return rep
}
