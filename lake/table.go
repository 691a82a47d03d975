// Package lake stores datasets as versioned tables. A table is a directory of
// CSV part files plus a _log directory holding one JSON commit per version.
// Every write is a full-overwrite commit: it adds new part files and removes
// all previously active ones from the snapshot, while leaving them on disk so
// earlier versions stay readable until Vacuum retires them.
package lake

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/medallion-data/medal"
	"github.com/pkg/errors"
)

const logDir = "_log"

// Table is a versioned table rooted at a directory.
type Table struct {
	path string
}

// Commit describes one entry of a table's log.
type Commit struct {
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Schema    []string  `json:"schema"`
	Added     []string  `json:"added"`
	Removed   []string  `json:"removed"`
}

// Open opens the table at path, creating the directory layout if needed.
func Open(path string) (*Table, error) {
	if err := os.MkdirAll(filepath.Join(path, logDir), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating table at %q", path)
	}
	return &Table{path: path}, nil
}

// Path returns the table's root directory.
func (t *Table) Path() string {
	return t.path
}

// Version returns the latest committed version, or -1 for an empty log.
func (t *Table) Version() (int64, error) {
	commits, err := t.readLog()
	if err != nil {
		return -1, err
	}
	return int64(len(commits)) - 1, nil
}

// Commit writes the dataset as a new snapshot, fully replacing the previous
// one. The part file and the log entry are staged to temp names and renamed
// into place, so a failed commit leaves the table at its prior version.
func (t *Table) Commit(ds *medal.Dataset, operation string) (int64, error) {
	commits, err := t.readLog()
	if err != nil {
		return -1, err
	}
	version := int64(len(commits))

	part := fmt.Sprintf("part-%010d-%04d.csv", version, 0)
	if err := t.writePart(part, ds); err != nil {
		return -1, err
	}

	c := Commit{
		Version:   version,
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Schema:    append([]string{}, ds.Columns...),
		Added:     []string{part},
		Removed:   activeFiles(commits, version-1),
	}
	if err := t.writeCommit(c); err != nil {
		return -1, err
	}
	return version, nil
}

// Read loads the latest snapshot.
func (t *Table) Read() (*medal.Dataset, error) {
	v, err := t.Version()
	if err != nil {
		return nil, err
	}
	return t.ReadVersion(v)
}

// ReadVersion loads the snapshot at an explicit version. A version outside
// the log, or one whose part files Vacuum has deleted, fails with
// medal.ErrSnapshotUnavailable.
func (t *Table) ReadVersion(version int64) (*medal.Dataset, error) {
	commits, err := t.readLog()
	if err != nil {
		return nil, err
	}
	if version < 0 || version >= int64(len(commits)) {
		return nil, errors.Wrapf(medal.ErrSnapshotUnavailable, "version %d not in log of %q (latest %d)", version, t.path, len(commits)-1)
	}
	ds := medal.NewDataset(commits[version].Schema...)
	for _, part := range activeFiles(commits, version) {
		if err := t.readPart(part, ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// History returns the commit log, newest first.
func (t *Table) History() ([]Commit, error) {
	commits, err := t.readLog()
	if err != nil {
		return nil, err
	}
	out := make([]Commit, len(commits))
	for i, c := range commits {
		out[len(commits)-1-i] = c
	}
	return out, nil
}

// Compact rewrites the current snapshot as a single part file in a new
// commit. Content is unchanged; only the file layout is.
func (t *Table) Compact() (int64, error) {
	ds, err := t.Read()
	if err != nil {
		return -1, err
	}
	return t.Commit(ds, "compact")
}

// Vacuum permanently deletes part files that are not active in the current
// snapshot and were removed by a commit older than the retention window.
// Returns the number of files deleted.
func (t *Table) Vacuum(retention time.Duration) (int, error) {
	if retention < 0 {
		return 0, errors.Errorf("retention must not be negative: %s", retention)
	}
	commits, err := t.readLog()
	if err != nil {
		return 0, err
	}
	active := map[string]bool{}
	for _, f := range activeFiles(commits, int64(len(commits))-1) {
		active[f] = true
	}
	// Latest removal time per file. Overwrite commits can't re-add an old
	// part name, so one pass in log order suffices.
	removedAt := map[string]time.Time{}
	for _, c := range commits {
		for _, f := range c.Removed {
			removedAt[f] = c.Timestamp
		}
	}
	cutoff := time.Now().UTC().Add(-retention)
	deleted := 0
	for f, at := range removedAt {
		if active[f] || !at.Before(cutoff) {
			continue
		}
		err := os.Remove(filepath.Join(t.path, f))
		if os.IsNotExist(err) {
			continue // already vacuumed
		}
		if err != nil {
			return deleted, errors.Wrapf(err, "vacuuming %q", f)
		}
		deleted++
	}
	return deleted, nil
}

// activeFiles replays the log through version and returns the files the
// snapshot consists of, in stable order. A negative version yields none.
func activeFiles(commits []Commit, version int64) []string {
	active := map[string]bool{}
	for i := int64(0); i <= version && i < int64(len(commits)); i++ {
		for _, f := range commits[i].Added {
			active[f] = true
		}
		for _, f := range commits[i].Removed {
			delete(active, f)
		}
	}
	files := make([]string, 0, len(active))
	for f := range active {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func (t *Table) readLog() ([]Commit, error) {
	entries, err := os.ReadDir(filepath.Join(t.path, logDir))
	if err != nil {
		return nil, errors.Wrapf(err, "reading log of %q", t.path)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	commits := make([]Commit, 0, len(names))
	for i, name := range names {
		raw, err := os.ReadFile(filepath.Join(t.path, logDir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "reading commit %q", name)
		}
		var c Commit
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, errors.Wrapf(err, "decoding commit %q", name)
		}
		if c.Version != int64(i) {
			return nil, errors.Errorf("log of %q corrupt: commit %q has version %d", t.path, name, c.Version)
		}
		commits = append(commits, c)
	}
	return commits, nil
}

func (t *Table) writeCommit(c Commit) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding commit")
	}
	name := filepath.Join(t.path, logDir, fmt.Sprintf("%010d.json", c.Version))
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return errors.Wrap(err, "staging commit")
	}
	return errors.Wrap(os.Rename(tmp, name), "committing")
}

func (t *Table) writePart(name string, ds *medal.Dataset) error {
	tmp := filepath.Join(t.path, "."+name+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "staging part %q", name)
	}
	w := csv.NewWriter(f)
	if err := w.Write(ds.Columns); err != nil {
		f.Close()
		return errors.Wrap(err, "writing header")
	}
	vals := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			vals[i] = row[col]
		}
		if err := w.Write(vals); err != nil {
			f.Close()
			return errors.Wrap(err, "writing row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, "flushing part")
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing part %q", name)
	}
	return errors.Wrapf(os.Rename(tmp, filepath.Join(t.path, name)), "placing part %q", name)
}

func (t *Table) readPart(name string, ds *medal.Dataset) error {
	f, err := os.Open(filepath.Join(t.path, name))
	if os.IsNotExist(err) {
		return errors.Wrapf(medal.ErrSnapshotUnavailable, "part %q of %q has been vacuumed", name, t.path)
	}
	if err != nil {
		return errors.Wrapf(err, "opening part %q", name)
	}
	defer f.Close()
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return errors.Wrapf(err, "reading header of %q", name)
	}
	for {
		vals, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading %q", name)
		}
		row := make(medal.Row, len(header))
		for i, col := range header {
			if i < len(vals) && vals[i] != "" {
				row[col] = vals[i]
			}
		}
		ds.Append(row)
	}
}
