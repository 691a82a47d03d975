package medal

import (
	"sort"

	"github.com/pkg/errors"
)

// Row is one record, keyed by column name. A missing key and an empty string
// both mean "no value" - lookups on a Row return "" either way.
type Row map[string]string

// Dataset is an in-memory record set with a stable column order. It is the
// unit every pipeline stage consumes and produces: the csv source accumulates
// into one, the lake stores and reloads one per snapshot, and the relational
// operations below transform one into another.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// NewDataset returns an empty Dataset with the given column order.
func NewDataset(columns ...string) *Dataset {
	return &Dataset{Columns: append([]string{}, columns...)}
}

// Append adds a row. It does not alter the column list; callers are expected
// to have set up columns via NewDataset, ReadAll, or mergeColumns.
func (d *Dataset) Append(r Row) {
	d.Rows = append(d.Rows, r)
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	return len(d.Rows)
}

// HasColumn reports whether the named column is part of the schema.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// mergeColumns appends any columns not already present, preserving order.
func (d *Dataset) mergeColumns(columns []string) {
	for _, c := range columns {
		if !d.HasColumn(c) {
			d.Columns = append(d.Columns, c)
		}
	}
}

// WithConstant adds a column holding the same value on every row. If the
// column already exists its values are overwritten. Returns d for chaining.
func (d *Dataset) WithConstant(column, value string) *Dataset {
	d.mergeColumns([]string{column})
	for _, row := range d.Rows {
		row[column] = value
	}
	return d
}

// UnionByName appends other's rows to d, matching columns by name rather than
// position. The two column sets must be equal (order may differ); anything
// else is a schema mismatch.
func (d *Dataset) UnionByName(other *Dataset) error {
	if err := sameColumns(d.Columns, other.Columns); err != nil {
		return err
	}
	d.Rows = append(d.Rows, other.Rows...)
	return nil
}

func sameColumns(a, b []string) error {
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	if len(as) != len(bs) {
		return errors.Wrapf(ErrSchemaMismatch, "column counts differ: %v vs %v", a, b)
	}
	for i := range as {
		if as[i] != bs[i] {
			return errors.Wrapf(ErrSchemaMismatch, "columns differ: %v vs %v", a, b)
		}
	}
	return nil
}

// LeftJoin joins d against right on the named key column. Every left row
// appears at least once; rows with no match keep empty values for the right
// side's columns, and rows with several matches appear once per match. The
// key column must exist on both sides.
func (d *Dataset) LeftJoin(right *Dataset, key string) (*Dataset, error) {
	if !d.HasColumn(key) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "join key %q not in left columns %v", key, d.Columns)
	}
	if !right.HasColumn(key) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "join key %q not in right columns %v", key, right.Columns)
	}

	byKey := make(map[string][]Row, right.NumRows())
	for _, row := range right.Rows {
		k := row[key]
		byKey[k] = append(byKey[k], row)
	}

	out := NewDataset(d.Columns...)
	for _, c := range right.Columns {
		if c != key {
			out.mergeColumns([]string{c})
		}
	}
	for _, lrow := range d.Rows {
		matches := byKey[lrow[key]]
		if len(matches) == 0 {
			out.Append(copyRow(lrow))
			continue
		}
		for _, rrow := range matches {
			joined := copyRow(lrow)
			for _, c := range right.Columns {
				if c == key {
					continue
				}
				if v, ok := rrow[c]; ok {
					joined[c] = v
				}
			}
			out.Append(joined)
		}
	}
	return out, nil
}

// Filter returns a new Dataset holding the rows for which pred is true. Rows
// are shared, not copied; Filter never adds rows.
func (d *Dataset) Filter(pred func(Row) bool) *Dataset {
	out := NewDataset(d.Columns...)
	for _, row := range d.Rows {
		if pred(row) {
			out.Append(row)
		}
	}
	return out
}

func copyRow(r Row) Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
