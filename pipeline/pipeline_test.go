package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/medallion-data/medal"
	"github.com/medallion-data/medal/lake"
	"github.com/medallion-data/medal/metastore"
	"github.com/pkg/errors"
)

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("making dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func fixtureBase(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	mustWrite(t, filepath.Join(base, "transactions", "web", "day1.csv"),
		`transaction_id,product_id,customer_id,amount,timestamp
T001,PRD00001,C001,100.50,2024-01-01T10:00:00
T002,PRD00002,C002,50.25,2024-01-01T11:00:00`)
	mustWrite(t, filepath.Join(base, "transactions", "mobile", "day1.csv"),
		`transaction_id,product_id,customer_id,amount,timestamp
T003,PRD00001,C001,200.00,2024-01-01T12:00:00
T004,PRD99999,C003,75.00,2024-01-01T13:00:00`)
	mustWrite(t, filepath.Join(base, "transactions", "instore", "day1.csv"),
		`transaction_id,product_id,customer_id,amount,timestamp
T005,PRD00002,C004,10.00,2024-01-01T14:00:00`)
	mustWrite(t, filepath.Join(base, "products", "product_catalog.csv"),
		`product_id,product_name,category
PRD00001,Desk Lamp,home
PRD00002,Coffee Mug,kitchen`)
	return base
}

func TestRunEndToEnd(t *testing.T) {
	m := NewMain()
	m.Base = fixtureBase(t)
	if err := m.Run(); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}
	layout := medal.Layout{Base: m.Base}

	bronzeTbl, err := lake.Open(layout.Bronze())
	if err != nil {
		t.Fatalf("opening bronze: %v", err)
	}
	bronze, err := bronzeTbl.Read()
	if err != nil {
		t.Fatalf("reading bronze: %v", err)
	}
	if bronze.NumRows() != 5 {
		t.Fatalf("bronze rows: %d", bronze.NumRows())
	}

	silverTbl, err := lake.Open(layout.Silver())
	if err != nil {
		t.Fatalf("opening silver: %v", err)
	}
	silver, err := silverTbl.Read()
	if err != nil {
		t.Fatalf("reading silver: %v", err)
	}
	// the PRD99999 orphan is gone
	if silver.NumRows() != 4 {
		t.Fatalf("silver rows: %d", silver.NumRows())
	}
	for _, row := range silver.Rows {
		if row["product_name"] == "" {
			t.Fatalf("silver row with empty product_name: %v", row)
		}
	}

	goldTbl, err := lake.Open(layout.Gold())
	if err != nil {
		t.Fatalf("opening gold: %v", err)
	}
	gold, err := goldTbl.Read()
	if err != nil {
		t.Fatalf("reading gold: %v", err)
	}
	if gold.NumRows() != 4 {
		t.Fatalf("gold groups: %d", gold.NumRows())
	}
	byGroup := map[string]medal.Row{}
	for _, row := range gold.Rows {
		byGroup[row["channel"]+"/"+row["category"]] = row
	}
	if byGroup["web/home"]["total_revenue"] != "100.50" {
		t.Fatalf("web/home revenue: %v", byGroup["web/home"])
	}
	if byGroup["mobile/home"]["total_revenue"] != "200.00" || byGroup["mobile/home"]["transaction_count"] != "1" {
		t.Fatalf("mobile/home group: %v", byGroup["mobile/home"])
	}

	// maintain ran: history shows the compact commit and the registration exists
	history, err := goldTbl.History()
	if err != nil {
		t.Fatalf("listing history: %v", err)
	}
	if history[0].Operation != "compact" {
		t.Fatalf("expected compact on top of gold history: %+v", history)
	}
	store, err := metastore.Open(layout.Metastore())
	if err != nil {
		t.Fatalf("opening metastore: %v", err)
	}
	defer store.Close()
	if _, err := store.Lookup(m.TableName); err != nil {
		t.Fatalf("gold not registered: %v", err)
	}
}

func TestRunTwiceSameContent(t *testing.T) {
	m := NewMain()
	m.Base = fixtureBase(t)
	if err := m.Run(); err != nil {
		t.Fatalf("first run: %v", err)
	}
	layout := medal.Layout{Base: m.Base}
	goldTbl, err := lake.Open(layout.Gold())
	if err != nil {
		t.Fatalf("opening gold: %v", err)
	}
	v1, err := goldTbl.Version()
	if err != nil {
		t.Fatalf("getting version: %v", err)
	}
	first, err := goldTbl.Read()
	if err != nil {
		t.Fatalf("reading gold: %v", err)
	}

	if err := m.Run(); err != nil {
		t.Fatalf("second run: %v", err)
	}
	v2, err := goldTbl.Version()
	if err != nil {
		t.Fatalf("getting version: %v", err)
	}
	if v2 <= v1 {
		t.Fatalf("re-run must record new versions: %d then %d", v1, v2)
	}
	second, err := goldTbl.Read()
	if err != nil {
		t.Fatalf("reading gold: %v", err)
	}
	if first.NumRows() != second.NumRows() {
		t.Fatalf("re-run changed gold content: %d vs %d rows", first.NumRows(), second.NumRows())
	}
	for i := range first.Rows {
		for _, col := range first.Columns {
			if first.Rows[i][col] != second.Rows[i][col] {
				t.Fatalf("re-run changed row %d at %s", i, col)
			}
		}
	}
}

func TestRunStrictFailsOnFindings(t *testing.T) {
	base := fixtureBase(t)
	// poison one channel with an out-of-range amount
	mustWrite(t, filepath.Join(base, "transactions", "web", "day2.csv"),
		`transaction_id,product_id,customer_id,amount,timestamp
T006,PRD00001,C005,99999,2024-01-02T10:00:00`)
	m := NewMain()
	m.Base = base
	m.Strict = true
	if err := m.Run(); errors.Cause(err) != medal.ErrQuality {
		t.Fatalf("expected quality failure, got %v", err)
	}
	// aggregate never ran, so gold has no commits
	goldTbl, err := lake.Open(medal.Layout{Base: base}.Gold())
	if err != nil {
		t.Fatalf("opening gold: %v", err)
	}
	if v, err := goldTbl.Version(); err != nil || v != -1 {
		t.Fatalf("gold should be empty after strict failure: %d, %v", v, err)
	}
}

func TestRunMissingChannelStopsPipeline(t *testing.T) {
	base := fixtureBase(t)
	if err := os.RemoveAll(filepath.Join(base, "transactions", "instore")); err != nil {
		t.Fatalf("removing channel: %v", err)
	}
	m := NewMain()
	m.Base = base
	if err := m.Run(); errors.Cause(err) != medal.ErrMissingInput {
		t.Fatalf("expected missing input, got %v", err)
	}
}
