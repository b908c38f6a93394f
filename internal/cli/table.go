package cli

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Table renders rows as aligned plain-text columns under a dashed header.
type Table struct {
	headers    []string
	rows       [][]string
	padding    int
	maxWidths  map[int]int // 0 = no limit
	rightAlign map[int]bool
}

// NewTable creates a new table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers:    headers,
		rows:       make([][]string, 0),
		padding:    2,
		maxWidths:  make(map[int]int),
		rightAlign: make(map[int]bool),
	}
}

// SetColumnMaxWidth wraps cells in a column that are wider than maxWidth.
func (t *Table) SetColumnMaxWidth(colIndex int, maxWidth int) {
	t.maxWidths[colIndex] = maxWidth
}

// AlignRight right-aligns a column, for counts and percentages.
func (t *Table) AlignRight(colIndex int) {
	t.rightAlign[colIndex] = true
}

// AddRow adds a row, padding or truncating it to the header count.
func (t *Table) AddRow(row []string) {
	cells := make([]string, len(t.headers))
	copy(cells, row)
	t.rows = append(t.rows, cells)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// WriteTo writes the rendered table to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Render())
	return int64(n), err
}

// Render formats and returns the table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	wrapped := make([][][]string, len(t.rows))
	for r, row := range t.rows {
		wrapped[r] = make([][]string, len(row))
		for c, cell := range row {
			wrapped[r][c] = wrapText(cell, t.maxWidths[c])
		}
	}

	widths := make([]int, len(t.headers))
	for c, h := range t.headers {
		widths[c] = textWidth(h)
	}
	for _, row := range wrapped {
		for c, lines := range row {
			for _, line := range lines {
				widths[c] = max(widths[c], textWidth(line))
			}
		}
	}

	var b strings.Builder
	sep := strings.Repeat(" ", t.padding)

	writeLine := func(cells []string) {
		parts := make([]string, len(cells))
		for c, cell := range cells {
			if t.rightAlign[c] {
				parts[c] = padLeft(cell, widths[c])
			} else {
				parts[c] = padRight(cell, widths[c])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, sep), " "))
		b.WriteByte('\n')
	}

	writeLine(t.headers)
	dashes := make([]string, len(widths))
	for c, w := range widths {
		dashes[c] = strings.Repeat("-", w)
	}
	writeLine(dashes)

	for _, row := range wrapped {
		height := 1
		for _, lines := range row {
			height = max(height, len(lines))
		}
		for i := range height {
			cells := make([]string, len(row))
			for c, lines := range row {
				if i < len(lines) {
					cells[c] = lines[i]
				}
			}
			writeLine(cells)
		}
	}

	return b.String()
}

func textWidth(s string) int {
	return utf8.RuneCountInString(s)
}

func padRight(s string, width int) string {
	if n := textWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := textWidth(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

// wrapText breaks text at word boundaries so no line exceeds width runes.
// Words longer than width are split.
func wrapText(text string, width int) []string {
	if width <= 0 || textWidth(text) <= width {
		return []string{text}
	}

	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		for textWidth(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		switch {
		case line == "":
			line = word
		case textWidth(line)+1+textWidth(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return []string{text}
	}
	return lines
}
