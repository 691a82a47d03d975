package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/medallion-data/medal/maintain"
	"github.com/spf13/cobra"
)

// MaintainMain is wrapped by NewMaintainCommand and only exported for testing purposes.
var MaintainMain *maintain.Main

// NewMaintainCommand returns a new cobra command wrapping MaintainMain.
func NewMaintainCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	MaintainMain = maintain.NewMain()
	maintainCommand := &cobra.Command{
		Use:   "maintain",
		Short: "maintain - history, time travel, compaction, and vacuum on the gold table",
		Long: `Lists the gold table's commit history, reads a historical version, compacts
its part files, and vacuums data files older than the retention window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := MaintainMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := maintainCommand.Flags()
	if err := commandeer.Flags(flags, MaintainMain); err != nil {
		panic(err)
	}
	return maintainCommand
}

func init() {
	subcommandFns["maintain"] = NewMaintainCommand
}
