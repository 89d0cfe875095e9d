package main

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// isTTY checks if stdout is a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	if !isTTY() {
		color.NoColor = true
	}
}

var (
	styleLabel   = color.New(color.FgCyan, color.Bold).SprintFunc()
	styleSuccess = color.New(color.FgGreen).SprintFunc()
	styleWarning = color.New(color.FgYellow).SprintFunc()
	styleMuted   = color.New(color.FgHiBlack).SprintFunc()
)

func styleError(msg string) string {
	return color.New(color.FgRed).Sprint(msg)
}
