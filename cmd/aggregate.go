package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/medallion-data/medal/aggregate"
	"github.com/spf13/cobra"
)

// AggregateMain is wrapped by NewAggregateCommand and only exported for testing purposes.
var AggregateMain *aggregate.Main

// NewAggregateCommand returns a new cobra command wrapping AggregateMain.
func NewAggregateCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	AggregateMain = aggregate.NewMain()
	aggregateCommand := &cobra.Command{
		Use:   "aggregate",
		Short: "aggregate - roll silver up by channel and category into the gold table",
		Long: `Groups the latest silver snapshot by (channel, category), computes revenue,
distinct customers, and row counts, commits the result as a new gold
snapshot, and registers the table name in the metastore.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := AggregateMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := aggregateCommand.Flags()
	if err := commandeer.Flags(flags, AggregateMain); err != nil {
		panic(err)
	}
	return aggregateCommand
}

func init() {
	subcommandFns["aggregate"] = NewAggregateCommand
}
