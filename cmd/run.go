package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/medallion-data/medal/pipeline"
	"github.com/spf13/cobra"
)

// RunMain is wrapped by NewRunCommand and only exported for testing purposes.
var RunMain *pipeline.Main

// NewRunCommand returns a new cobra command wrapping RunMain.
func NewRunCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	RunMain = pipeline.NewMain()
	runCommand := &cobra.Command{
		Use:   "run",
		Short: "run - execute the full pipeline: ingest, enrich, quality, aggregate, maintain",
		Long: `Runs every stage in order against the configured base path, stopping at the
first error. Each stage reads its input from the previous stage's committed
snapshot, never from memory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := RunMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := runCommand.Flags()
	if err := commandeer.Flags(flags, RunMain); err != nil {
		panic(err)
	}
	return runCommand
}

func init() {
	subcommandFns["run"] = NewRunCommand
}
