// Package render turns a decoded 608 or 708 screen into styled UTF-8 text:
// one line per used row, SRT-style <font color>/<i>/<u> tags opened and
// closed around runs of matching style, trailing blanks trimmed.
package render

import (
	"fmt"
	"strings"

	"github.com/zsiec/cea/cea608"
	"github.com/zsiec/cea/cea708"
)

// Caption is one screen rendered to text, with BaseRow giving the
// bottom-most row the text occupied (-1 for an empty screen, which is
// never rendered). Mode is the 608 display-strategy tag ("POP", "RU2", ...)
// and is empty for 708 captions, which have no mode concept.
type Caption struct {
	Text    string
	BaseRow int
	Mode    string
}

type styledCell struct {
	char      rune
	color     string // "" means white, no <font> tag
	italic    bool
	underline bool
}

var color608Names = map[cea608.Color]string{
	cea608.Green:   "green",
	cea608.Blue:    "blue",
	cea608.Cyan:    "cyan",
	cea608.Red:     "red",
	cea608.Yellow:  "yellow",
	cea608.Magenta: "magenta",
	cea608.Black:   "black",
}

// Screen608 renders a cea608.Screen.
func Screen608(s *cea608.Screen) Caption {
	if s == nil || s.Empty {
		return Caption{BaseRow: -1}
	}
	last := s.BottomRow()
	if last == -1 {
		return Caption{BaseRow: -1}
	}
	first := -1
	for r := 0; r <= last; r++ {
		if s.RowUsed[r] {
			first = r
			break
		}
	}
	var lines []string
	for r := first; r <= last; r++ {
		if !s.RowUsed[r] {
			continue
		}
		cells := make([]styledCell, len(s.Grid[r]))
		for c, cell := range s.Grid[r] {
			italic := cell.Font == cea608.Italics || cell.Font == cea608.UnderlinedItalics
			underline := cell.Font == cea608.Underlined || cell.Font == cea608.UnderlinedItalics
			cells[c] = styledCell{char: cell.Char, color: color608Names[cell.Color], italic: italic, underline: underline}
		}
		lines = append(lines, renderRow(cells))
	}
	return Caption{Text: strings.Join(lines, "\n"), BaseRow: last, Mode: s.Mode.Tag()}
}

// quantized708 maps a 2-bit CEA-708 color component to its nearest 8-bit
// value from the standard's 4-level palette.
var quantized708 = [4]byte{0x00, 0x55, 0xAA, 0xFF}

func color708Name(pen byte) string {
	if pen == 0x3F {
		return ""
	}
	r := quantized708[(pen>>4)&0x03]
	g := quantized708[(pen>>2)&0x03]
	b := quantized708[pen&0x03]
	if r == 0xFF && g == 0xFF && b == 0xFF {
		return ""
	}
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// Screen708 renders a cea708.TVScreen.
func Screen708(s *cea708.TVScreen) Caption {
	if s == nil || s.Empty {
		return Caption{BaseRow: -1}
	}
	last := s.BottomRow()
	if last == -1 {
		return Caption{BaseRow: -1}
	}
	first := -1
	for r := 0; r <= last; r++ {
		if s.RowUsed[r] {
			first = r
			break
		}
	}
	var lines []string
	for r := first; r <= last; r++ {
		if !s.RowUsed[r] {
			continue
		}
		cells := make([]styledCell, len(s.Grid[r]))
		for c, cell := range s.Grid[r] {
			cells[c] = styledCell{char: cell.Symbol, color: color708Name(cell.PenColor), italic: cell.Italic, underline: cell.Underline}
		}
		lines = append(lines, renderRow(cells))
	}
	return Caption{Text: strings.Join(lines, "\n"), BaseRow: last}
}

// renderRow walks one row's cells, opening and closing tags on every style
// change and trimming trailing spaces. Tags nest font color outermost,
// underline, then italic innermost; they close in the reverse order.
func renderRow(cells []styledCell) string {
	lastIdx := -1
	for i, c := range cells {
		if c.char != ' ' {
			lastIdx = i
		}
	}
	if lastIdx == -1 {
		return ""
	}

	var b strings.Builder
	var curColor string
	var curItalic, curUnderline bool

	closeAll := func() {
		if curItalic {
			b.WriteString("</i>")
		}
		if curUnderline {
			b.WriteString("</u>")
		}
		if curColor != "" {
			b.WriteString("</font>")
		}
		curColor, curItalic, curUnderline = "", false, false
	}

	for i := 0; i <= lastIdx; i++ {
		c := cells[i]
		if c.color != curColor || c.italic != curItalic || c.underline != curUnderline {
			closeAll()
			if c.color != "" {
				b.WriteString(`<font color="` + c.color + `">`)
			}
			if c.underline {
				b.WriteString("<u>")
			}
			if c.italic {
				b.WriteString("<i>")
			}
			curColor, curItalic, curUnderline = c.color, c.italic, c.underline
		}
		b.WriteRune(c.char)
	}
	closeAll()
	return b.String()
}
