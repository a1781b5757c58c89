package ui

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns with a colored header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table. The first column is colored by HTTP method.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header := t.color(color.Bold, color.FgCyan)
	t.line(widths, t.headers, func(int, string) *color.Color { return header })

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	gray := t.color(color.FgHiBlack)
	t.line(widths, sep, func(int, string) *color.Color { return gray })

	plain := t.color()
	for _, row := range t.rows {
		t.line(widths, row, func(i int, cell string) *color.Color {
			if i == 0 {
				return t.methodColor(cell)
			}
			return plain
		})
	}
}

func (t *Table) line(widths []int, cells []string, pick func(int, string) *color.Color) {
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i < len(cells)-1 {
			cell = padRight(cell, widths[i])
		}
		pick(i, cell).Fprint(t.writer, cell)
		if i < len(cells)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)
}

func (t *Table) methodColor(method string) *color.Color {
	switch strings.TrimSpace(method) {
	case http.MethodGet:
		return t.color(color.FgGreen)
	case http.MethodPost:
		return t.color(color.FgYellow)
	case http.MethodPut, http.MethodPatch:
		return t.color(color.FgBlue)
	case http.MethodDelete:
		return t.color(color.FgRed)
	default:
		return t.color(color.FgMagenta)
	}
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
