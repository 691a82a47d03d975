// Package maintain runs housekeeping against the gold table: it lists the
// commit history, demonstrates a point-in-time read, compacts part files, and
// vacuums data files outside the retention window.
package maintain

import (
	"log"
	"time"

	"github.com/medallion-data/medal"
	"github.com/medallion-data/medal/lake"
	"github.com/pkg/errors"
)

// Main contains the configuration for the maintain stage.
type Main struct {
	Base           string  `help:"Base data path."`
	Output         string  `help:"Local root for table output. Defaults to <base>/output."`
	RetentionHours float64 `help:"Age in hours past which vacuum may delete unreferenced data files."`
	SkipVacuum     bool    `help:"List history and compact, but delete nothing."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Base:           "data",
		RetentionHours: 168,
	}
}

// Run performs each maintenance operation independently against gold.
func (m *Main) Run() error {
	if m.RetentionHours <= 0 {
		return errors.Errorf("retention must be positive, got %v hours", m.RetentionHours)
	}
	layout := medal.Layout{Base: m.Base, Output: m.Output}
	tbl, err := lake.Open(layout.Gold())
	if err != nil {
		return errors.Wrap(err, "opening gold table")
	}

	history, err := tbl.History()
	if err != nil {
		return errors.Wrap(err, "listing history")
	}
	log.Printf("gold history (%d commits):", len(history))
	for _, c := range history {
		log.Printf("  v%d  %s  %s", c.Version, c.Timestamp.Format(time.RFC3339), c.Operation)
	}
	if len(history) == 0 {
		return errors.Wrap(medal.ErrSnapshotUnavailable, "gold table has no commits")
	}

	current, err := tbl.Read()
	if err != nil {
		return errors.Wrap(err, "reading current gold")
	}
	log.Printf("gold current: %d rows", current.NumRows())

	// Point-in-time read. The oldest versions may already have been
	// vacuumed, so walk forward until one is still reconstructable.
	for v := int64(0); v <= history[0].Version; v++ {
		old, err := tbl.ReadVersion(v)
		if err == nil {
			log.Printf("gold v%d (time travel): %d rows", v, old.NumRows())
			break
		}
		if errors.Cause(err) != medal.ErrSnapshotUnavailable {
			return errors.Wrapf(err, "reading gold v%d", v)
		}
	}

	version, err := tbl.Compact()
	if err != nil {
		return errors.Wrap(err, "compacting gold")
	}
	log.Printf("gold compacted into v%d", version)

	if m.SkipVacuum {
		log.Printf("vacuum skipped")
		return nil
	}
	retention := time.Duration(m.RetentionHours * float64(time.Hour))
	deleted, err := tbl.Vacuum(retention)
	if err != nil {
		return errors.Wrap(err, "vacuuming gold")
	}
	log.Printf("vacuum: %d files deleted (retention %s)", deleted, retention)
	return nil
}
