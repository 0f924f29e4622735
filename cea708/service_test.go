package cea708

import "testing"

func TestPlaceWindowClampsToScreen(t *testing.T) {
	t.Parallel()
	w := &Window{rows: 2, cols: 10}
	// Upper-left anchor point with a 0,0 relative position should pin the
	// window to the screen's top-left corner.
	placeWindow(w, 0, 0, 0, true)
	if w.anchorRow != 0 || w.anchorCol != 0 {
		t.Errorf("anchor: got (%d,%d), want (0,0)", w.anchorRow, w.anchorCol)
	}

	w2 := &Window{rows: 3, cols: 40}
	// Lower-right anchor at the extreme corner must clamp so the window
	// stays fully on screen.
	placeWindow(w2, 8, 99, 99, true)
	if w2.anchorRow+w2.rows > screenRows {
		t.Errorf("window overruns screen rows: anchorRow=%d rows=%d", w2.anchorRow, w2.rows)
	}
	if w2.anchorCol+w2.cols > screenCols {
		t.Errorf("window overruns screen cols: anchorCol=%d cols=%d", w2.anchorCol, w2.cols)
	}
}

func TestServiceDefineAndDeleteWindow(t *testing.T) {
	t.Parallel()
	ft := &fakeTimer{}
	svc := newService(1, ft)
	svc.defineWindow(0, []byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00})
	if svc.windows[0] == nil {
		t.Fatal("expected window 0 to be defined")
	}
	svc.deleteWindows(0x01)
	if svc.windows[0] != nil {
		t.Error("expected window 0 to be deleted")
	}
	if w := svc.activeWindow(); w != nil {
		t.Error("activeWindow should be nil once the current window is deleted")
	}
}

func TestServicePenColorAndAttributes(t *testing.T) {
	t.Parallel()
	ft := &fakeTimer{}
	svc := newService(1, ft)
	svc.defineWindow(0, []byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00})
	svc.setPenColor([]byte{0x2A})
	svc.setPenAttributes([]byte{0x00, 0x03}) // italic + underline
	w := svc.activeWindow()
	if w.penColor != 0x2A {
		t.Errorf("penColor: got 0x%02X, want 0x2A", w.penColor)
	}
	if !w.italic || !w.underline {
		t.Errorf("expected italic and underline both set, got italic=%v underline=%v", w.italic, w.underline)
	}
}

func TestServiceCarriageReturnResetsColumn(t *testing.T) {
	t.Parallel()
	ft := &fakeTimer{}
	svc := newService(1, ft)
	svc.defineWindow(0, []byte{0x80, 0x00, 0x00, 0x00, 0x20, 0x00}) // rowCount=1, colCount=9
	svc.writeChar('A')
	svc.carriageReturn()
	w := svc.activeWindow()
	if w.cursorCol != 0 {
		t.Errorf("cursorCol after CR: got %d, want 0", w.cursorCol)
	}
}
