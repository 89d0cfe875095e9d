package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"station/internal/parser"
)

func newParseCommand() *cobra.Command {
	var canonical bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Scan a model response and list its commands in dispatch order",
		Long:  "Scan a model response read from file, or from stdin when no file is given, and list the recognized commands in the order they would be executed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			writeInvocations(cmd.OutOrStdout(), parser.Scan(string(data)), canonical)
			return nil
		},
	}
	cmd.Flags().BoolVar(&canonical, "canonical", false, "print each command in canonical wire syntax")
	return cmd
}

func writeInvocations(w io.Writer, invocations []parser.Invocation, canonical bool) {
	if len(invocations) == 0 {
		fmt.Fprintln(w, styleMuted("No control command was recognized."))
		return
	}
	for i, inv := range invocations {
		if canonical {
			fmt.Fprintln(w, parser.Render(inv))
			continue
		}
		spec := inv.Spec()
		flags := []string{spec.Order.String()}
		if spec.OneShot {
			flags = append(flags, "one-shot")
		}
		fmt.Fprintf(w, "%d. %s %s\n", i+1, styleLabel(string(inv.Name)), styleMuted("("+strings.Join(flags, ", ")+")"))
		for j, a := range inv.Args {
			fmt.Fprintf(w, "   [%d] %q\n", j+1, a)
		}
	}
}
