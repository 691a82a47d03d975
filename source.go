package medal

import (
	"io"
	"sort"
)

// Source is the interface for getting raw records one at a time. Each record
// maps column names to string values; absent columns are simply missing from
// the map. Record returns io.EOF when the source is exhausted.
type Source interface {
	Record() (Row, error)
}

// NamedReadCloser is a reader which knows the name of the file or object it
// reads from, so errors and record provenance can refer to it.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource hands out readers for a sequence of files or objects.
// Implementations should be safe for concurrent use.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// Columner is implemented by sources which know the column order of the data
// they have read (e.g. from CSV headers).
type Columner interface {
	Columns() []string
}

// ReadAll drains a Source into a Dataset. Column order follows the source's
// header when it implements Columner; any record key not covered by a header
// is appended in sorted order so the result is deterministic. Sources which
// implement io.Closer are closed, so an early error return does not strand
// a producing goroutine.
func ReadAll(src Source) (*Dataset, error) {
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	ds := NewDataset()
	for {
		row, err := src.Record()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ds.Append(row)
	}
	if c, ok := src.(Columner); ok {
		ds.mergeColumns(c.Columns())
	}
	stragglers := map[string]struct{}{}
	for _, row := range ds.Rows {
		for col := range row {
			if !ds.HasColumn(col) {
				stragglers[col] = struct{}{}
			}
		}
	}
	rest := make([]string, 0, len(stragglers))
	for col := range stragglers {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	ds.mergeColumns(rest)
	return ds, nil
}
