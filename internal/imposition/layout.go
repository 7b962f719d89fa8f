package imposition

import (
	"io"
	"strconv"
	"strings"
)

// Blank is the layout cell text for a pad slot.
const Blank = "blank"

// Header holds the layout column titles, in order.
var Header = [5]string{"sheet", "front L", "front R", "back L", "back R"}

const columnSep = "  "

// Sheet is one physical sheet: four consecutive entries of a booklet order.
type Sheet struct {
	Number int // 1-based
	FrontL int
	FrontR int
	BackL  int
	BackR  int
}

// Faces returns the sheet's indices in print order.
func (s Sheet) Faces() [4]int { return [4]int{s.FrontL, s.FrontR, s.BackL, s.BackR} }

// Sheets splits order into sheets. A trailing partial group is dropped.
func Sheets(order []int) []Sheet {
	sheets := make([]Sheet, 0, len(order)/PagesPerSheet)
	for i := 0; i+PagesPerSheet <= len(order); i += PagesPerSheet {
		sheets = append(sheets, Sheet{
			Number: i/PagesPerSheet + 1,
			FrontL: order[i],
			FrontR: order[i+1],
			BackL:  order[i+2],
			BackR:  order[i+3],
		})
	}
	return sheets
}

// Cell renders a 0-based index as its 1-based page number, or Blank when
// idx is past the last real page.
func Cell(idx, pageCount int) string {
	if idx >= pageCount {
		return Blank
	}
	return strconv.Itoa(idx + 1)
}

// Render returns the aligned sheet table for order.
func Render(order []int, pageCount int) string {
	rows := [][5]string{Header}
	for _, s := range Sheets(order) {
		row := [5]string{strconv.Itoa(s.Number)}
		for j, idx := range s.Faces() {
			row[j+1] = Cell(idx, pageCount)
		}
		rows = append(rows, row)
	}

	var widths [5]int
	for _, row := range rows {
		for j, c := range row {
			if len(c) > widths[j] {
				widths[j] = len(c)
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for j, c := range row {
			if j > 0 {
				b.WriteString(columnSep)
			}
			b.WriteString(c)
			b.WriteString(strings.Repeat(" ", widths[j]-len(c)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteLayout writes Render(order, pageCount) to w.
func WriteLayout(w io.Writer, order []int, pageCount int) error {
	_, err := io.WriteString(w, Render(order, pageCount))
	return err
}
