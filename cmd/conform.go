package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/trendlake/trendlake/pipeline"
)

// ConformMain is wrapped by NewConformCommand and only exported for testing
// purposes.
var ConformMain *pipeline.Main

// NewConformCommand returns a new cobra command wrapping ConformMain.
func NewConformCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	ConformMain = pipeline.NewMain()
	conformCommand := &cobra.Command{
		Use:   "conform <object-key>...",
		Short: "conform - run one ingestion event over the given landing objects",
		Long: `Processes the given landing-tier object keys as a single batch. This is
the command the object-arrival trigger invokes, passing the arriving key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = ConformMain.Run(args...)
			if err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := conformCommand.Flags()
	err = commandeer.Flags(flags, ConformMain)
	if err != nil {
		panic(err)
	}
	return conformCommand
}

func init() {
	subcommandFns["conform"] = NewConformCommand
}
