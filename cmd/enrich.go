package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/medallion-data/medal/enrich"
	"github.com/spf13/cobra"
)

// EnrichMain is wrapped by NewEnrichCommand and only exported for testing purposes.
var EnrichMain *enrich.Main

// NewEnrichCommand returns a new cobra command wrapping EnrichMain.
func NewEnrichCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	EnrichMain = enrich.NewMain()
	enrichCommand := &cobra.Command{
		Use:   "enrich",
		Short: "enrich - join bronze against the product catalog into the silver table",
		Long: `Left joins the latest bronze snapshot against the product catalog on the
join key and commits the rows that found a match as a new silver snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := EnrichMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := enrichCommand.Flags()
	if err := commandeer.Flags(flags, EnrichMain); err != nil {
		panic(err)
	}
	return enrichCommand
}

func init() {
	subcommandFns["enrich"] = NewEnrichCommand
}
