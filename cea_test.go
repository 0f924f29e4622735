package cea

import (
	"testing"

	"github.com/zsiec/cea/internal/fixture"
)

// buildTriplets packs cc_type/b1/b2 triples into raw cc_data bytes, setting
// cc_valid and the reserved marker bits the way a real SEI/user-data
// payload would.
func buildTriplets(triples [][3]byte) []byte {
	var out []byte
	for _, t := range triples {
		ccType := t[0]
		marker := byte(0xF8) | 0x04 | ccType
		out = append(out, marker, t[1], t[2])
	}
	return out
}

// TestServiceOneGreetingEndToEnd mirrors the seed scenario: a synthetic 708
// packet on service 1 defines window 0, positions the pen at (0,0), and
// writes "Hi". After Flush, exactly one caption should result with
// field=3, info="701", text="Hi".
func TestServiceOneGreetingEndToEnd(t *testing.T) {
	t.Parallel()
	c := InitDefault()

	ccData := buildTriplets([][3]byte{
		{2, 0x07, 0x2C},
		{3, 0x98, 0x82},
		{3, 0x55, 0x32},
		{3, 0x80, 0x7C},
		{3, 0x00, 0x92},
		{3, 0x00, 0x00},
		{3, 0x48, 0x69},
		{3, 0x00, 0x00},
	})

	if err := c.Feed(ccData, 0); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	captions := c.GetCaptions()
	if len(captions) != 1 {
		t.Fatalf("expected exactly 1 caption, got %d", len(captions))
	}
	got := captions[0]
	if got.Field != 3 {
		t.Errorf("Field: got %d, want 3", got.Field)
	}
	if got.Info != "701" {
		t.Errorf("Info: got %q, want %q", got.Info, "701")
	}
	if got.Text != "Hi" {
		t.Errorf("Text: got %q, want %q", got.Text, "Hi")
	}
}

// TestPopOn608EndToEnd feeds an entire pop-on caption (RCL, "Test", EOC,
// padding, EDM, padding) as one batch and checks pull-mode delivery.
func TestPopOn608EndToEnd(t *testing.T) {
	t.Parallel()
	c := InitDefault()

	var triples [][3]byte
	triples = append(triples,
		[3]byte{0, 0x94, 0x20}, // RCL
		[3]byte{0, 0x54, 0xE5}, // "Te"
		[3]byte{0, 0x73, 0xF4}, // "st"
		[3]byte{0, 0x94, 0x2F}, // EOC
	)
	for i := 0; i < 10; i++ {
		triples = append(triples, [3]byte{0, 0x80, 0x80})
	}
	triples = append(triples, [3]byte{0, 0x94, 0x2C}) // EDM
	for i := 0; i < 10; i++ {
		triples = append(triples, [3]byte{0, 0x80, 0x80})
	}

	if err := c.Feed(buildTriplets(triples), 0); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	captions := c.GetCaptions()
	if len(captions) != 1 {
		t.Fatalf("expected exactly 1 caption, got %d", len(captions))
	}
	got := captions[0]
	if got.Field != 1 || got.Info != "608" {
		t.Errorf("channel: got field=%d info=%q, want field=1 info=608", got.Field, got.Info)
	}
	if got.Mode != "POP" {
		t.Errorf("Mode: got %q, want POP", got.Mode)
	}
	if got.Text != "Test" {
		t.Errorf("Text: got %q, want %q", got.Text, "Test")
	}
}

// TestLiveCallbackTwoPhase runs a pop-on caption through two Feed/Flush
// cycles. In the first, EOC makes "Test" visible (PhaseShow) and Flush then
// finalizes the still-visible screen (PhaseComplete); the second cycle's EDM
// finds nothing left on screen and adds no event.
func TestLiveCallbackTwoPhase(t *testing.T) {
	t.Parallel()
	c := InitDefault()

	type event struct {
		cap   Caption
		phase Phase
	}
	var events []event
	c.SetCaptionCallback(func(cap Caption, phase Phase) {
		events = append(events, event{cap, phase})
	})

	first := buildTriplets([][3]byte{
		{0, 0x94, 0x20}, // RCL
		{0, 0x54, 0xE5}, // "Te"
		{0, 0x73, 0xF4}, // "st"
		{0, 0x94, 0x2F}, // EOC
	})
	if err := c.Feed(first, 0); err != nil {
		t.Fatalf("Feed 1: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush 1: %v", err)
	}

	second := buildTriplets([][3]byte{
		{0, 0x94, 0x2C}, // EDM
	})
	if err := c.Feed(second, 1000); err != nil {
		t.Fatalf("Feed 2: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush 2: %v", err)
	}

	var sawShow, sawComplete bool
	for _, e := range events {
		if e.cap.Text != "Test" {
			continue
		}
		switch e.phase {
		case PhaseShow:
			sawShow = true
		case PhaseComplete:
			sawComplete = true
		}
	}
	if !sawShow {
		t.Error("expected a PhaseShow event for the visible \"Test\" screen")
	}
	if !sawComplete {
		t.Error("expected a PhaseComplete event once Flush finished the caption")
	}
}

func TestFeedAfterCloseReturnsError(t *testing.T) {
	t.Parallel()
	c := InitDefault()
	c.Close()
	if err := c.Feed([]byte{0xFC, 0x80, 0x80}, 0); err != ErrClosed {
		t.Errorf("Feed after Close: got %v, want ErrClosed", err)
	}
	if err := c.Flush(); err != ErrClosed {
		t.Errorf("Flush after Close: got %v, want ErrClosed", err)
	}
}

// rollUpCaption builds one self-contained roll-up caption (RU2, a single
// character, CR) as raw 608 cc_data: RU2 and CR alone are enough to open
// and finish a caption within a single reorder-buffer batch, unlike
// pop-on's RCL/EOC/EDM dance.
func rollUpCaption(ch byte) []byte {
	return fixture.CCData([]fixture.Triplet{
		fixture.CC608Pair(0x14, 0x25), // RU2
		fixture.CC608Pair(ch, 0x00),
		fixture.CC608Pair(0x14, 0x2D), // CR
	})
}

// TestMPEG2BFrameReorderDeliversInPresentationOrder mirrors the seed
// scenario: three MPEG-2 packets carrying distinct captions arrive in
// decode order (A@3000, B@2000, C@2500); a B-frame picture header sets the
// reorder window to 2. After Flush, captions must come out in ascending
// PTS order: B, then C, then A. WithNoRollup makes each CR complete and
// clear its line, so every packet yields exactly one one-character caption.
func TestMPEG2BFrameReorderDeliversInPresentationOrder(t *testing.T) {
	t.Parallel()
	c := Init(WithCodec(CodecMPEG2), WithNoRollup(true))

	// picture_coding_type=3 (B-frame) at the usual offset, per the demuxer's
	// own B-frame detection test.
	bFramePicture := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x18}

	pktA := append(append([]byte{}, bFramePicture...), fixture.MPEG2UserData(rollUpCaption('A'))...)
	pktB := fixture.MPEG2UserData(rollUpCaption('B'))
	pktC := fixture.MPEG2UserData(rollUpCaption('C'))

	if err := c.FeedPacket(pktA, 3000); err != nil {
		t.Fatalf("FeedPacket A: %v", err)
	}
	if c.reorderBuf.Window() != 2 {
		t.Fatalf("reorder window after B-frame sighting: got %d, want 2", c.reorderBuf.Window())
	}
	if err := c.FeedPacket(pktB, 2000); err != nil {
		t.Fatalf("FeedPacket B: %v", err)
	}
	if err := c.FeedPacket(pktC, 2500); err != nil {
		t.Fatalf("FeedPacket C: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	captions := c.GetCaptions()
	if len(captions) != 3 {
		t.Fatalf("expected 3 captions, got %d", len(captions))
	}
	wantOrder := []string{"B", "C", "A"}
	for i, want := range wantOrder {
		if captions[i].Text != want {
			t.Errorf("caption %d: got %q, want %q", i, captions[i].Text, want)
		}
	}
}

// TestH264AVCCNALLengthSizeAutoDetect mirrors the seed scenario: a 4-byte
// length-prefixed AVCC packet detects nal_length_size=4, and a 1-byte
// length-prefixed packet detects nal_length_size=1.
func TestH264AVCCNALLengthSizeAutoDetect(t *testing.T) {
	t.Parallel()

	c4 := Init(WithCodec(CodecH264), WithH264AVCC(true))
	nal4 := []byte{0x06, 0x00, 0x80, 0x80} // SEI header + harmless payload
	pkt4 := append([]byte{0x00, 0x00, 0x00, byte(len(nal4))}, nal4...)
	if err := c4.FeedPacket(pkt4, 0); err != nil {
		t.Fatalf("FeedPacket (4-byte length): %v", err)
	}
	if c4.h264.NALLengthSize() != 4 {
		t.Errorf("NALLengthSize: got %d, want 4", c4.h264.NALLengthSize())
	}

	c1 := Init(WithCodec(CodecH264), WithH264AVCC(true))
	nal1 := []byte{0x06, 0x00, 0x80, 0x80}
	pkt1 := append([]byte{byte(len(nal1))}, nal1...)
	if err := c1.FeedPacket(pkt1, 0); err != nil {
		t.Fatalf("FeedPacket (1-byte length): %v", err)
	}
	if c1.h264.NALLengthSize() != 1 {
		t.Errorf("NALLengthSize: got %d, want 1", c1.h264.NALLengthSize())
	}
}

// TestSetDemuxerRejectsMPEG2AVCC checks that the MPEG-2/AVCC combination,
// which the source format has no concept of, is rejected at configuration
// time instead of silently misbehaving on the first FeedPacket.
func TestSetDemuxerRejectsMPEG2AVCC(t *testing.T) {
	t.Parallel()
	c := InitDefault()
	if err := c.SetDemuxer(CodecMPEG2, PackagingAVCC, nil); err != ErrUnsupportedPackaging {
		t.Errorf("SetDemuxer(MPEG2, AVCC): got %v, want ErrUnsupportedPackaging", err)
	}
	if err := c.SetDemuxer(CodecMPEG2, PackagingAnnexB, nil); err != nil {
		t.Errorf("SetDemuxer(MPEG2, AnnexB): got %v, want nil", err)
	}
}

// TestSetDemuxerAcceptsExtradata checks that passing extradata alongside a
// codec/packaging change is accepted without error, whether or not it
// contains a parseable SPS (extradata is opportunistic, never fatal).
func TestSetDemuxerAcceptsExtradata(t *testing.T) {
	t.Parallel()
	c := InitDefault()
	sps := []byte{0x67, 66, 0x00, 0x1F, 0x80, 0x80}
	if err := c.SetDemuxer(CodecH264, PackagingAnnexB, sps); err != nil {
		t.Fatalf("SetDemuxer: %v", err)
	}
}

// TestNilContextMethodsReturnErrNilContext checks that calling a method on
// a nil *Context reports ErrNilContext instead of panicking.
func TestNilContextMethodsReturnErrNilContext(t *testing.T) {
	t.Parallel()
	var c *Context
	if err := c.FeedPacket(nil, 0); err != ErrNilContext {
		t.Errorf("FeedPacket on nil Context: got %v, want ErrNilContext", err)
	}
	if err := c.Feed(nil, 0); err != ErrNilContext {
		t.Errorf("Feed on nil Context: got %v, want ErrNilContext", err)
	}
}

// TestFeedRejectsNegativePTS checks the "invalid argument" taxonomy for a
// negative presentation timestamp.
func TestFeedRejectsNegativePTS(t *testing.T) {
	t.Parallel()
	c := InitDefault()
	if err := c.Feed([]byte{0xFC, 0x80, 0x80}, -1); err != ErrInvalidArgument {
		t.Errorf("Feed with negative pts: got %v, want ErrInvalidArgument", err)
	}
}

// TestWithCCChannelRestrictsDecoding checks that WithCCChannel(1) decodes
// CC1 but leaves CC2 untouched.
func TestWithCCChannelRestrictsDecoding(t *testing.T) {
	t.Parallel()
	c := Init(WithCCChannel(1))
	if _, ok := c.dec608[1]; !ok {
		t.Errorf("expected CC1 decoder to exist")
	}
	if _, ok := c.dec608[2]; ok {
		t.Errorf("expected CC2 decoder to be absent with WithCCChannel(1)")
	}
}

// TestWithEnable708False checks that disabling 708 construction makes 708
// triplets a no-op instead of panicking on a nil decoder.
func TestWithEnable708False(t *testing.T) {
	t.Parallel()
	c := Init(WithEnable708(false))
	ccData := buildTriplets([][3]byte{{2, 0x41, 0x48}})
	if err := c.Feed(ccData, 0); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if caps := c.GetCaptions(); len(caps) != 0 {
		t.Errorf("expected no captions with 708 disabled, got %d", len(caps))
	}
}

func TestFeedPacketWithNoCaptionDataIsHarmless(t *testing.T) {
	t.Parallel()
	c := InitDefault()
	if err := c.FeedPacket([]byte{0x00, 0x00, 0x00, 0x01, 0x09, 0xF0}, 0); err != nil {
		t.Fatalf("FeedPacket: %v", err)
	}
	if caps := c.GetCaptions(); len(caps) != 0 {
		t.Errorf("expected no captions from a packet with no SEI caption data, got %d", len(caps))
	}
}
