package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/medallion-data/medal"
	"github.com/medallion-data/medal/lake"
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
	return base
}

func TestIngest(t *testing.T) {
	m := NewMain()
	m.Base = fixtureBase(t)
	if err := m.Run(); err != nil {
		t.Fatalf("running ingest: %v", err)
	}

	tbl, err := lake.Open(medal.Layout{Base: m.Base}.Bronze())
	if err != nil {
		t.Fatalf("opening bronze: %v", err)
	}
	bronze, err := tbl.Read()
	if err != nil {
		t.Fatalf("reading bronze: %v", err)
	}
	if bronze.NumRows() != 5 {
		t.Fatalf("union must keep every input row once: got %d", bronze.NumRows())
	}
	channels := map[string]int{}
	for _, row := range bronze.Rows {
		channels[row["channel"]]++
	}
	if channels["web"] != 2 || channels["mobile"] != 2 || channels["instore"] != 1 {
		t.Fatalf("channel tags wrong: %v", channels)
	}
	if !bronze.HasColumn("channel") || !bronze.HasColumn("transaction_id") {
		t.Fatalf("bronze schema wrong: %v", bronze.Columns)
	}
}

func TestIngestMissingChannelAbortsAll(t *testing.T) {
	base := fixtureBase(t)
	if err := os.RemoveAll(filepath.Join(base, "transactions", "mobile")); err != nil {
		t.Fatalf("removing channel dir: %v", err)
	}
	m := NewMain()
	m.Base = base
	err := m.Run()
	if errors.Cause(err) != medal.ErrMissingInput {
		t.Fatalf("expected missing input, got %v", err)
	}
	// nothing may have been committed
	if _, err := os.Stat(medal.Layout{Base: base}.Bronze()); !os.IsNotExist(err) {
		t.Fatalf("bronze should not exist after failed ingest: %v", err)
	}
}

func TestIngestNoChannels(t *testing.T) {
	m := NewMain()
	m.Base = fixtureBase(t)
	m.Channels = nil
	if err := m.Run(); err == nil {
		t.Fatal("expected error with no channels")
	}
}

func TestIngestRemoteBaseNeedsOutput(t *testing.T) {
	m := NewMain()
	m.Base = "s3://bucket/raw"
	if err := m.Run(); err == nil {
		t.Fatal("expected error for s3 base without output")
	}
}

func TestSplitS3URL(t *testing.T) {
	bucket, prefix, err := splitS3URL("s3://retail-lake/raw/2024")
	if err != nil {
		t.Fatalf("splitting: %v", err)
	}
	if bucket != "retail-lake" || prefix != "raw/2024" {
		t.Fatalf("got %q %q", bucket, prefix)
	}
	if _, _, err := splitS3URL("http://nope"); err == nil {
		t.Fatal("expected error for non-s3 url")
	}
}
