// Package enrich builds the silver table: the latest bronze snapshot left
// joined against the product catalog, keeping only rows with a catalog match.
package enrich

import (
	"log"
	"time"

	"github.com/medallion-data/medal"
	"github.com/medallion-data/medal/csv"
	"github.com/medallion-data/medal/lake"
	"github.com/pkg/errors"
)

// Main contains the configuration for the enrich stage.
type Main struct {
	Base      string `help:"Base data path. The catalog is read from <base>/products/product_catalog.csv unless overridden."`
	Output    string `help:"Local root for table output. Defaults to <base>/output."`
	Catalog   string `help:"Product catalog file. Overrides the path derived from the base."`
	Delimiter string `help:"Field delimiter in the catalog file."`
	JoinKey   string `help:"Column joining transactions to the catalog."`
	NameField string `help:"Catalog column that must be present for a row to survive."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Base:      "data",
		Delimiter: ",",
		JoinKey:   "product_id",
		NameField: "product_name",
	}
}

// Run joins bronze against the catalog and commits the matched rows as
// silver. Orphans (transactions whose product id is not in the catalog) are
// dropped.
func (m *Main) Run() error {
	start := time.Now()
	layout := medal.Layout{Base: m.Base, Output: m.Output}

	bronzeTbl, err := lake.Open(layout.Bronze())
	if err != nil {
		return errors.Wrap(err, "opening bronze table")
	}
	bronze, err := bronzeTbl.Read()
	if err != nil {
		return errors.Wrap(err, "reading bronze")
	}

	catalogFile := m.Catalog
	if catalogFile == "" {
		catalogFile = layout.CatalogFile()
	}
	catalog, err := csv.ReadFile(catalogFile, m.Delimiter)
	if err != nil {
		return errors.Wrapf(err, "reading catalog %q", catalogFile)
	}

	joined, err := bronze.LeftJoin(catalog, m.JoinKey)
	if err != nil {
		return errors.Wrap(err, "joining catalog")
	}
	// Orphans are dropped silently here; the quality stage is where the
	// committed data gets inspected.
	matched := joined.Filter(func(r medal.Row) bool {
		return r[m.NameField] != ""
	})

	silverTbl, err := lake.Open(layout.Silver())
	if err != nil {
		return errors.Wrap(err, "opening silver table")
	}
	version, err := silverTbl.Commit(matched, "enrich")
	if err != nil {
		return errors.Wrap(err, "committing silver")
	}
	log.Printf("silver v%d: %d records in %s", version, matched.NumRows(), time.Since(start))
	return nil
}
