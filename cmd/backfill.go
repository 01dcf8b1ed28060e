package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/trendlake/trendlake/pipeline"
)

// BackfillMain is wrapped by NewBackfillCommand and only exported for testing
// purposes.
var BackfillMain *pipeline.Main

// NewBackfillCommand returns a new cobra command wrapping BackfillMain.
func NewBackfillCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	BackfillMain = pipeline.NewMain()
	backfillCommand := &cobra.Command{
		Use:   "backfill",
		Short: "backfill - replay every landing object through the pipeline",
		Long: `Lists every object under the landing prefix and conforms them as one
batch. Idempotent: objects whose rows are already in the conformed tier
contribute nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = BackfillMain.Backfill()
			if err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := backfillCommand.Flags()
	err = commandeer.Flags(flags, BackfillMain)
	if err != nil {
		panic(err)
	}
	return backfillCommand
}

func init() {
	subcommandFns["backfill"] = NewBackfillCommand
}
