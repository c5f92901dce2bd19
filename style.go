package main

import (
	"strings"

	"github.com/muesli/termenv"
)

var colorProfile = termenv.EnvColorProfile()

// keyword colors a word in help output.
func keyword(s string) string {
	return termenv.String(s).
		Foreground(colorProfile.Color("#04B575")).
		Bold().
		String()
}

// paragraph pads help text the way the rest of the command output is
// laid out.
func paragraph(s string) string {
	return "\n  " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ") + "\n"
}
