package medal

import (
	"testing"

	"github.com/pkg/errors"
)

func TestUnionByName(t *testing.T) {
	web := NewDataset("transaction_id", "amount")
	web.Append(Row{"transaction_id": "T1", "amount": "10"})
	web.Append(Row{"transaction_id": "T2", "amount": "20"})
	web.WithConstant("channel", "web")

	// same columns, different order
	mobile := NewDataset("amount", "channel", "transaction_id")
	mobile.Append(Row{"transaction_id": "T3", "amount": "30", "channel": "mobile"})

	if err := web.UnionByName(mobile); err != nil {
		t.Fatalf("unioning: %v", err)
	}
	if web.NumRows() != 3 {
		t.Fatalf("expected 3 rows after union, got %d", web.NumRows())
	}
	channels := map[string]int{}
	for _, row := range web.Rows {
		channels[row["channel"]]++
	}
	if channels["web"] != 2 || channels["mobile"] != 1 {
		t.Fatalf("channel tags wrong after union: %v", channels)
	}
}

func TestUnionByNameSchemaMismatch(t *testing.T) {
	a := NewDataset("x", "y")
	b := NewDataset("x", "z")
	err := a.UnionByName(b)
	if errors.Cause(err) != ErrSchemaMismatch {
		t.Fatalf("expected schema mismatch, got %v", err)
	}

	c := NewDataset("x")
	if err := a.UnionByName(c); errors.Cause(err) != ErrSchemaMismatch {
		t.Fatalf("expected schema mismatch on differing counts, got %v", err)
	}
}

func TestWithConstantOverwrites(t *testing.T) {
	ds := NewDataset("a")
	ds.Append(Row{"a": "1"})
	ds.WithConstant("tag", "first").WithConstant("tag", "second")
	if !ds.HasColumn("tag") {
		t.Fatal("tag column missing")
	}
	if got := ds.Rows[0]["tag"]; got != "second" {
		t.Fatalf("expected overwritten tag, got %q", got)
	}
	if len(ds.Columns) != 2 {
		t.Fatalf("column added twice: %v", ds.Columns)
	}
}

func TestLeftJoin(t *testing.T) {
	txns := NewDataset("transaction_id", "product_id", "amount")
	txns.Append(Row{"transaction_id": "T1", "product_id": "PRD00001", "amount": "10"})
	txns.Append(Row{"transaction_id": "T2", "product_id": "PRD00002", "amount": "20"})
	txns.Append(Row{"transaction_id": "T3", "product_id": "PRD99999", "amount": "30"}) // orphan

	catalog := NewDataset("product_id", "product_name", "category")
	catalog.Append(Row{"product_id": "PRD00001", "product_name": "Lamp", "category": "home"})
	catalog.Append(Row{"product_id": "PRD00002", "product_name": "Mug", "category": "kitchen"})

	joined, err := txns.LeftJoin(catalog, "product_id")
	if err != nil {
		t.Fatalf("joining: %v", err)
	}
	if joined.NumRows() != 3 {
		t.Fatalf("left join must keep every left row, got %d", joined.NumRows())
	}
	for _, col := range []string{"product_name", "category"} {
		if !joined.HasColumn(col) {
			t.Fatalf("joined missing column %q: %v", col, joined.Columns)
		}
	}

	byID := map[string]Row{}
	for _, row := range joined.Rows {
		byID[row["transaction_id"]] = row
	}
	if byID["T1"]["product_name"] != "Lamp" || byID["T2"]["category"] != "kitchen" {
		t.Fatalf("join values wrong: %v", byID)
	}
	if byID["T3"]["product_name"] != "" {
		t.Fatalf("orphan should have empty product_name, got %q", byID["T3"]["product_name"])
	}

	// source rows must not be mutated by the join
	if _, ok := txns.Rows[0]["product_name"]; ok {
		t.Fatal("join mutated its input")
	}
}

func TestLeftJoinMissingKey(t *testing.T) {
	left := NewDataset("a")
	right := NewDataset("b")
	if _, err := left.LeftJoin(right, "b"); errors.Cause(err) != ErrSchemaMismatch {
		t.Fatalf("expected schema mismatch for key missing on left, got %v", err)
	}
	if _, err := left.LeftJoin(right, "a"); errors.Cause(err) != ErrSchemaMismatch {
		t.Fatalf("expected schema mismatch for key missing on right, got %v", err)
	}
}

func TestFilterNeverFabricates(t *testing.T) {
	ds := NewDataset("n")
	for _, v := range []string{"1", "2", "3", "4"} {
		ds.Append(Row{"n": v})
	}
	even := ds.Filter(func(r Row) bool { return r["n"] == "2" || r["n"] == "4" })
	if even.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", even.NumRows())
	}
	none := ds.Filter(func(r Row) bool { return false })
	if none.NumRows() != 0 {
		t.Fatalf("expected empty filter result, got %d rows", none.NumRows())
	}
	if len(none.Columns) != 1 || none.Columns[0] != "n" {
		t.Fatalf("filter must keep columns: %v", none.Columns)
	}
}
