package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/medallion-data/medal/ingest"
	"github.com/spf13/cobra"
)

// IngestMain is wrapped by NewIngestCommand and only exported for testing purposes.
var IngestMain *ingest.Main

// NewIngestCommand returns a new cobra command wrapping IngestMain.
func NewIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	IngestMain = ingest.NewMain()
	ingestCommand := &cobra.Command{
		Use:   "ingest",
		Short: "ingest - union channel transaction files into the bronze table",
		Long: `Reads the raw delimited files of every configured sales channel, tags each
record with its channel, and commits the union as a new bronze snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := IngestMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := ingestCommand.Flags()
	if err := commandeer.Flags(flags, IngestMain); err != nil {
		panic(err)
	}
	return ingestCommand
}

func init() {
	subcommandFns["ingest"] = NewIngestCommand
}
