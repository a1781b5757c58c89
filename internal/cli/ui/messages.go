package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Failure writes a red error line
func Failure(w io.Writer, noColor bool, format string, args ...interface{}) {
	mark(w, noColor, color.FgRed, "✗ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Success writes a green confirmation line
func Success(w io.Writer, noColor bool, format string, args ...interface{}) {
	mark(w, noColor, color.FgGreen, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func mark(w io.Writer, noColor bool, fg color.Attribute, symbol string) {
	c := color.New(fg, color.Bold)
	if noColor {
		c.DisableColor()
	}
	c.Fprint(w, symbol)
}
