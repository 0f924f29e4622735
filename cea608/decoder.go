// Package cea608 implements the EIA-608 ("line 21") closed-caption decoder:
// a two-buffer virtual text screen driven by the command/PAC/character
// stream carried in cc_type 0/1 triplets.
package cea608

// Mode is the active EIA-608 caption display strategy.
type Mode int

const (
	ModePOP Mode = iota
	ModeRU2
	ModeRU3
	ModeRU4
	ModePAI
	ModeTXT
)

var modeTags = map[Mode]string{
	ModePOP: "POP",
	ModeRU2: "RU2",
	ModeRU3: "RU3",
	ModeRU4: "RU4",
	ModePAI: "PAI",
	ModeTXT: "TXT",
}

// Tag returns the public mode_tag string for m ("POP", "RU2", ...).
func (m Mode) Tag() string {
	return modeTags[m]
}

// visibleTimer supplies the monotonic presentation clock a decoder stamps
// its screens with. Satisfied by *timing.Engine.
type visibleTimer interface {
	VisibleStart() int64
	VisibleEnd() int64
}

// Decoder holds the state of one EIA-608 channel (CC1..CC4, selected at
// construction by field and channel) and its double-buffered screen.
type Decoder struct {
	field   int
	channel int
	timer   visibleTimer

	mode     Mode
	rollRows int
	noRollup bool // write one line at a time instead of shifting rows up on CR

	visible    *Screen
	nonVisible *Screen

	currentChannel int // channel implied by the most recent control code seen on this field
	cursorRow      int
	cursorCol      int
	lastRow        int
	lastCol        int
	pendingColor   Color
	pendingFont    Font

	completed []*Screen
}

// NewDecoder returns a decoder for the given field (1 or 2) and channel
// (1 or 2, i.e. CC1/CC3 vs CC2/CC4 within that field).
func NewDecoder(field, channel int, timer visibleTimer) *Decoder {
	return &Decoder{
		field:          field,
		channel:        channel,
		timer:          timer,
		mode:           ModePOP,
		rollRows:       2,
		visible:        newScreen(field),
		nonVisible:     newScreen(field),
		currentChannel: 1,
		cursorRow:      rows - 1,
		pendingColor:   White,
		pendingFont:    Regular,
	}
}

// SetNoRollup disables roll-up's multi-row shifting: in RU2/RU3/RU4 mode,
// each carriage return completes and clears the current line instead of
// scrolling it up to make room for the next, so only one line is ever
// shown at a time.
func (d *Decoder) SetNoRollup(v bool) { d.noRollup = v }

// VisibleScreen returns the decoder's currently displayed screen, for live
// callers polling the in-progress caption between completed events.
func (d *Decoder) VisibleScreen() *Screen { return d.visible }

// DrainCompleted returns and clears every screen finished since the last
// call (via EOC, EDM, a roll-up CR, or Flush).
func (d *Decoder) DrainCompleted() []*Screen {
	out := d.completed
	d.completed = nil
	return out
}

// Flush finalizes any still-visible, non-empty screen as if an EDM had just
// arrived, so end-of-stream content is not lost.
func (d *Decoder) Flush() {
	if d.visible != nil && !d.visible.Empty {
		d.visible.EndMS = d.timer.VisibleEnd()
		snap := *d.visible
		d.completed = append(d.completed, &snap)
		d.visible.clear()
	}
}

// ProcessPair consumes one already-demultiplexed 608 byte pair (the bytes
// following the triplet marker). Parity is validated here; bad pairs are
// dropped silently per the standard's error-tolerance rules.
func (d *Decoder) ProcessPair(rawB1, rawB2 byte) {
	b1, b2, ok := validatePair(rawB1, rawB2)
	if !ok {
		return
	}
	if b1 == 0 && b2 == 0 {
		return // null padding
	}

	switch b1 {
	case 0x11, 0x19:
		if b2 >= 0x30 && b2 <= 0x3F {
			d.handleSpecial(b1, b2)
			return
		}
	case 0x12, 0x1A:
		if b2 >= 0x20 && b2 <= 0x3F {
			d.handleExtended(b1, b2, extendedCharMapWestern)
			return
		}
	case 0x13, 0x1B:
		if b2 >= 0x20 && b2 <= 0x3F {
			d.handleExtended(b1, b2, extendedCharMapPortugueseGerman)
			return
		}
	case 0x14, 0x1C:
		if b2 >= 0x20 && b2 <= 0x2F {
			d.handleMisc(b1, b2)
			return
		}
	case 0x17, 0x1F:
		if b2 >= 0x21 && b2 <= 0x23 {
			d.handleTab(b1, b2)
			return
		}
	}
	if b1 >= 0x10 && b1 <= 0x1F && b2 >= 0x40 && b2 <= 0x7F {
		d.handlePAC(b1, b2)
		return
	}
	if b1 >= 0x20 && b1 <= 0x7F {
		d.handleBasic(b1, b2)
	}
}

// writeTarget returns the screen that incoming characters are currently
// written to: the non-visible buffer while building a pop-on caption, the
// visible buffer for every other mode.
func (d *Decoder) writeTarget() *Screen {
	if d.mode == ModePOP {
		return d.nonVisible
	}
	return d.visible
}

// putChar writes ch at the cursor and advances it, stamping a show time if
// this is the first character of a freshly-visible screen.
func (d *Decoder) putChar(ch rune) {
	target := d.writeTarget()
	wasEmpty := target.Empty
	target.Mode = d.mode
	target.writeChar(d.cursorRow, d.cursorCol, ch, d.pendingColor, d.pendingFont)
	d.lastRow, d.lastCol = d.cursorRow, d.cursorCol
	if d.cursorCol < cols-1 {
		d.cursorCol++
	}
	if target == d.visible && wasEmpty && !target.Empty {
		target.StartMS = d.timer.VisibleStart()
	}
}

func (d *Decoder) replaceLastChar(ch rune) {
	target := d.writeTarget()
	target.writeChar(d.lastRow, d.lastCol, ch, d.pendingColor, d.pendingFont)
}

func (d *Decoder) handleBasic(b1, b2 byte) {
	if d.currentChannel != d.channel {
		return
	}
	if b1 != 0 {
		d.putChar(mapChar(b1))
	}
	if b2 != 0 {
		d.putChar(mapChar(b2))
	}
}

func (d *Decoder) handleSpecial(b1, b2 byte) {
	group := 1
	if b1 == 0x19 {
		group = 2
	}
	d.currentChannel = group
	if group != d.channel {
		return
	}
	ch, ok := specialCharMap[b2]
	if !ok {
		ch = ' '
	}
	d.putChar(ch)
}

func (d *Decoder) handleExtended(b1, b2 byte, table map[byte]rune) {
	group := 1
	if b1 == 0x1A || b1 == 0x1B {
		group = 2
	}
	d.currentChannel = group
	if group != d.channel {
		return
	}
	ch, ok := table[b2]
	if !ok {
		return
	}
	d.replaceLastChar(ch)
}

func (d *Decoder) handleTab(b1, b2 byte) {
	group := 1
	if b1 == 0x1F {
		group = 2
	}
	d.currentChannel = group
	if group != d.channel {
		return
	}
	offset := int(b2 - 0x20)
	d.cursorCol += offset
	if d.cursorCol >= cols {
		d.cursorCol = cols - 1
	}
}

func (d *Decoder) handlePAC(b1, b2 byte) {
	group := 1
	if b1 >= 0x18 {
		group = 2
	}
	d.currentChannel = group
	if group != d.channel {
		return
	}

	// Row pairs of the EIA-608 PAC assignment, indexed by b1's low three
	// bits; b2 >= 0x60 selects the second row of the pair (0x10 has one row).
	pacRows := [8][2]int{{10, 10}, {0, 1}, {2, 3}, {11, 12}, {13, 14}, {4, 5}, {6, 7}, {8, 9}}
	high := 0
	if b2 >= 0x60 {
		high = 1
	}
	d.cursorRow = pacRows[b1&0x07][high]

	low := (b2 >> 1) & 0x0F
	underline := b2&0x01 != 0
	color := White
	font := Regular
	if b2&0x10 != 0 {
		indentLevel := low & 0x07
		d.cursorCol = int(indentLevel) * 4
	} else {
		colorIdx := low & 0x07
		if colorIdx == 7 {
			font = Italics
		} else {
			color = Color(colorIdx)
		}
		d.cursorCol = 0
	}
	if underline {
		if font == Italics {
			font = UnderlinedItalics
		} else {
			font = Underlined
		}
	}
	d.pendingColor = color
	d.pendingFont = font
}

func (d *Decoder) handleMisc(b1, b2 byte) {
	group := 1
	if b1 == 0x1C {
		group = 2
	}
	d.currentChannel = group
	if group != d.channel {
		return
	}

	switch b2 {
	case 0x20: // RCL
		d.mode = ModePOP
	case 0x25: // RU2
		d.mode, d.rollRows = ModeRU2, 2
	case 0x26: // RU3
		d.mode, d.rollRows = ModeRU3, 3
	case 0x27: // RU4
		d.mode, d.rollRows = ModeRU4, 4
	case 0x29: // RDC
		d.mode = ModePAI
	case 0x2F: // EOC
		d.doEOC()
	case 0x2C: // EDM
		d.doEDM()
	case 0x2E: // ENM
		d.nonVisible.clear()
	case 0x2A, 0x2B: // TR, RTD
		d.mode = ModeTXT
	case 0x2D: // CR
		d.doCR()
	case 0x24: // delete to end of row
		d.writeTarget().eraseRowFrom(d.cursorRow, d.cursorCol)
	case 0x21: // backspace
		d.doBackspace()
	}
}

// doEOC swaps the visible and non-visible buffers (pop-on's "end of
// caption"): the outgoing screen is stamped with an end time and queued if
// it held anything, and the incoming screen is stamped with a start time.
func (d *Decoder) doEOC() {
	if d.visible != nil && !d.visible.Empty {
		d.visible.EndMS = d.timer.VisibleEnd()
		snap := *d.visible
		d.completed = append(d.completed, &snap)
	}
	d.visible, d.nonVisible = d.nonVisible, d.visible
	if d.visible != nil && !d.visible.Empty {
		d.visible.StartMS = d.timer.VisibleStart()
	}
	if d.nonVisible != nil {
		d.nonVisible.clear()
	}
	d.cursorRow, d.cursorCol = rows-1, 0
}

// doEDM erases displayed memory: whatever is currently on screen ends now.
func (d *Decoder) doEDM() {
	if d.visible == nil || d.visible.Empty {
		return
	}
	d.visible.EndMS = d.timer.VisibleEnd()
	snap := *d.visible
	d.completed = append(d.completed, &snap)
	d.visible.clear()
}

func (d *Decoder) doCR() {
	switch d.mode {
	case ModeRU2, ModeRU3, ModeRU4:
		if d.visible != nil && !d.visible.Empty {
			d.visible.EndMS = d.timer.VisibleEnd()
			snap := *d.visible
			d.completed = append(d.completed, &snap)
		}
		if d.visible != nil {
			if d.noRollup {
				d.visible.clear()
			} else {
				d.visible.rollUp(d.rollRows - 1)
			}
		}
		d.cursorCol = 0
	default:
		d.cursorRow++
		if d.cursorRow >= rows {
			d.cursorRow = rows - 1
		}
		d.cursorCol = 0
	}
}

func (d *Decoder) doBackspace() {
	if d.cursorCol > 0 {
		d.cursorCol--
	}
	d.writeTarget().writeChar(d.cursorRow, d.cursorCol, ' ', White, Regular)
}
