package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"station/internal/app"
)

func newPromptCommand(root *rootOptions) *cobra.Command {
	var statsOnly bool
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Assemble the prompt the model would receive now and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Build(root.dir, app.Options{Console: os.Stderr})
			if err != nil {
				return err
			}
			defer a.Close()

			prompt, err := a.Assembler.Assemble()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !statsOnly {
				fmt.Fprintln(out, prompt.Text)
				fmt.Fprintln(out)
			}
			status := fmt.Sprintf("%d tokens of %d", prompt.Tokens, a.Settings.PromptLimits.TotalTokens)
			if prompt.Truncated {
				status = styleWarning(status + ", truncated")
			} else {
				status = styleSuccess(status)
			}
			fmt.Fprintf(out, "%s %s\n", styleLabel("Prompt:"), status)
			fmt.Fprintf(out, "%s %s\n", styleLabel("Sections:"), styleMuted(strings.Join(prompt.Sections, ", ")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print only the token count and sections")
	return cmd
}
