package cea708

const (
	screenRows = 15
	screenCols = 42
	maxWindows = 8
)

// Cell is one character position on a 708 TV screen. PenColor packs a 6-bit
// RGB foreground color (2 bits per channel); 0x3F is white and carries no
// styling tag.
type Cell struct {
	Symbol    rune
	PenColor  byte
	Italic    bool
	Underline bool
}

// TVScreen is the shared on-screen canvas one service's windows composite
// onto. Unlike 608, a 708 caption is captured once per completed packet
// rather than tracked through a separate show/clear lifecycle.
type TVScreen struct {
	Grid      [screenRows][screenCols]Cell
	RowUsed   [screenRows]bool
	Empty     bool
	Service   int
	ShowMS    int64
	HideMS    int64
}

// BottomRow returns the greatest row index with any content, or -1 if the
// screen is empty.
func (s *TVScreen) BottomRow() int {
	for r := screenRows - 1; r >= 0; r-- {
		if s.RowUsed[r] {
			return r
		}
	}
	return -1
}

func newTVScreen(service int) *TVScreen {
	s := &TVScreen{Service: service}
	s.clear()
	return s
}

func (s *TVScreen) clear() {
	for r := 0; r < screenRows; r++ {
		for c := 0; c < screenCols; c++ {
			s.Grid[r][c] = Cell{Symbol: ' ', PenColor: 0x3F}
		}
		s.RowUsed[r] = false
	}
	s.Empty = true
}

func (s *TVScreen) writeChar(row, col int, ch rune, pen byte, italic, underline bool) {
	if row < 0 || row >= screenRows || col < 0 || col >= screenCols {
		return
	}
	s.Grid[row][col] = Cell{Symbol: ch, PenColor: pen, Italic: italic, Underline: underline}
	used := false
	for c := 0; c < screenCols; c++ {
		if s.Grid[row][c].Symbol != ' ' {
			used = true
			break
		}
	}
	s.RowUsed[row] = used
	s.Empty = true
	for r := 0; r < screenRows; r++ {
		if s.RowUsed[r] {
			s.Empty = false
			break
		}
	}
}

// Window is one of a service's up to 8 addressable caption windows. Only the
// subset of CEA-708 window state that feeds the TV screen's cell grid is
// modeled: geometry, visibility, cursor, and current pen styling.
type Window struct {
	defined   bool
	visible   bool
	rows      int
	cols      int
	anchorRow int
	anchorCol int
	cursorRow int
	cursorCol int
	penColor  byte
	italic    bool
	underline bool
}

// anchorRowColIdx decodes CEA-708's 9-point anchor grid (0 upper-left ..
// 8 lower-right) into independent row/col alignment indices (0 start,
// 1 middle, 2 end).
func anchorRowColIdx(point int) (rowIdx, colIdx int) {
	return point / 3, point % 3
}

func placeWindow(w *Window, anchorPoint, anchorV, anchorH int, relative bool) {
	targetRow, targetCol := anchorV, anchorH
	if relative {
		targetRow = anchorV * (screenRows - 1) / 99
		targetCol = anchorH * (screenCols - 1) / 99
	}
	rowIdx, colIdx := anchorRowColIdx(anchorPoint)
	top := targetRow
	switch rowIdx {
	case 1:
		top = targetRow - w.rows/2
	case 2:
		top = targetRow - (w.rows - 1)
	}
	left := targetCol
	switch colIdx {
	case 1:
		left = targetCol - w.cols/2
	case 2:
		left = targetCol - (w.cols - 1)
	}
	if top < 0 {
		top = 0
	}
	if top+w.rows > screenRows {
		top = screenRows - w.rows
	}
	if left < 0 {
		left = 0
	}
	if left+w.cols > screenCols {
		left = screenCols - w.cols
	}
	w.anchorRow, w.anchorCol = top, left
}

// Service is one CEA-708 caption service (1 through 63), decoding its own
// command stream into its windows and compositing the result onto a shared
// TVScreen.
type Service struct {
	number        int
	timer         visibleTimer
	windows       [maxWindows]*Window
	currentWindow int
	screen        *TVScreen
	completed     []*TVScreen
}

// visibleTimer supplies the presentation clock a service stamps its emitted
// screens with. Satisfied by *timing.Engine.
type visibleTimer interface {
	VisibleStart() int64
	VisibleEnd() int64
}

func newService(number int, timer visibleTimer) *Service {
	return &Service{number: number, timer: timer, screen: newTVScreen(number)}
}

func (svc *Service) reset() {
	for i := range svc.windows {
		svc.windows[i] = nil
	}
	svc.currentWindow = 0
	svc.screen.clear()
}

func (svc *Service) deleteWindows(mask byte) {
	for i := 0; i < maxWindows; i++ {
		if mask&(1<<uint(i)) != 0 {
			svc.windows[i] = nil
		}
	}
}

func (svc *Service) defineWindow(id int, params []byte) {
	if id < 0 || id >= maxWindows || len(params) < 6 {
		return
	}
	b1, b2, b3, b4, b5 := params[0], params[1], params[2], params[3], params[4]
	visible := b1&0x80 != 0
	relativePos := b1&0x02 != 0
	anchorVHi := int(b1 & 0x01)
	anchorV := anchorVHi<<8 | int(b2)
	anchorH := int(b3)
	anchorPoint := int(b4>>4) & 0x0F
	rowCount := int(b4&0x0F) + 1
	colCount := int((b5>>2)&0x3F) + 1

	w := &Window{defined: true, visible: visible, rows: rowCount, cols: colCount, penColor: 0x3F}
	placeWindow(w, anchorPoint, anchorV, anchorH, relativePos)
	svc.windows[id] = w
	svc.currentWindow = id
}

func (svc *Service) toggleVisibility(op byte, mask byte) {
	for i := 0; i < maxWindows; i++ {
		if mask&(1<<uint(i)) == 0 || svc.windows[i] == nil {
			continue
		}
		switch op {
		case 0x89:
			svc.windows[i].visible = true
		case 0x88:
			svc.windows[i].visible = false
		case 0x8A:
			svc.windows[i].visible = !svc.windows[i].visible
		}
	}
}

func (svc *Service) setWindowAttributes([]byte) {
	// Fill/border/justify are not part of the TV screen's cell model; the
	// bytes are consumed by the caller and otherwise ignored.
}

func (svc *Service) activeWindow() *Window {
	w := svc.windows[svc.currentWindow]
	if w == nil || !w.defined {
		return nil
	}
	return w
}

func (svc *Service) setPenAttributes(params []byte) {
	w := svc.activeWindow()
	if w == nil || len(params) < 2 {
		return
	}
	w.italic = params[1]&0x01 != 0
	w.underline = params[1]&0x02 != 0
}

func (svc *Service) setPenColor(params []byte) {
	w := svc.activeWindow()
	if w == nil || len(params) < 1 {
		return
	}
	w.penColor = params[0] & 0x3F
}

func (svc *Service) setPenLocation(params []byte) {
	w := svc.activeWindow()
	if w == nil || len(params) < 2 {
		return
	}
	w.cursorRow = int(params[0] & 0x0F)
	w.cursorCol = int(params[1] & 0x3F)
}

func (svc *Service) writeChar(ch rune) {
	w := svc.activeWindow()
	if w == nil {
		return
	}
	row := w.anchorRow + w.cursorRow
	col := w.anchorCol + w.cursorCol
	svc.screen.writeChar(row, col, ch, w.penColor, w.italic, w.underline)
	if w.cursorCol < w.cols-1 {
		w.cursorCol++
	}
}

func (svc *Service) carriageReturn() {
	w := svc.activeWindow()
	if w == nil {
		return
	}
	w.cursorCol = 0
	if w.cursorRow < w.rows-1 {
		w.cursorRow++
	}
}

// emitIfNonEmpty captures the service's current screen as a completed
// caption when it carries any content, then clears it so the next packet
// starts fresh. Called once per fully-assembled channel packet.
func (svc *Service) emitIfNonEmpty() {
	if svc.screen.Empty {
		return
	}
	svc.screen.ShowMS = svc.timer.VisibleStart()
	svc.screen.HideMS = svc.timer.VisibleEnd()
	snap := *svc.screen
	svc.completed = append(svc.completed, &snap)
	svc.screen.clear()
}

func (svc *Service) drainCompleted() []*TVScreen {
	out := svc.completed
	svc.completed = nil
	return out
}
