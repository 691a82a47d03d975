package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/medallion-data/medal/quality"
	"github.com/spf13/cobra"
)

// QualityMain is wrapped by NewQualityCommand and only exported for testing purposes.
var QualityMain *quality.Main

// NewQualityCommand returns a new cobra command wrapping QualityMain.
func NewQualityCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	QualityMain = quality.NewMain()
	qualityCommand := &cobra.Command{
		Use:   "quality",
		Short: "quality - scan the silver table and report data quality metrics",
		Long: `Reads the committed silver snapshot and reports null counts, amount range
violations, id format violations, and duplicate keys. Observational unless
--strict is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := QualityMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := qualityCommand.Flags()
	if err := commandeer.Flags(flags, QualityMain); err != nil {
		panic(err)
	}
	return qualityCommand
}

func init() {
	subcommandFns["quality"] = NewQualityCommand
}
