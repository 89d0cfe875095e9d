package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	dir string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "station",
		Short:         "Autonomous language model station with a public chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.dir, "dir", "d", defaultDir(), "station base directory (holds general/, accumulated/ and workspace/)")

	root.AddCommand(
		newRunCommand(opts),
		newPromptCommand(opts),
		newParseCommand(),
		newVersionCommand(),
	)
	return root
}

func defaultDir() string {
	if dir, ok := os.LookupEnv("STATION_DIR"); ok && dir != "" {
		return dir
	}
	return "."
}
