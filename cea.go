// Package cea extracts ATSC A/53 closed-caption text (EIA-608 and
// CEA-708/DTVCC) from compressed H.264 and MPEG-2 video streams. A Context
// demultiplexes cc_data from SEI/user-data payloads, reorders it into
// presentation order, drives a shared timing engine, and feeds the result
// to per-channel 608 decoders and a multi-service 708 decoder, rendering
// each completed screen to styled UTF-8 text.
package cea

import (
	"log/slog"

	"github.com/zsiec/cea/cea608"
	"github.com/zsiec/cea/cea708"
	"github.com/zsiec/cea/demux"
	"github.com/zsiec/cea/reorder"
	"github.com/zsiec/cea/timing"
)

// Codec selects which compressed video syntax FeedPacket demultiplexes
// cc_data from.
type Codec int

const (
	CodecH264 Codec = iota
	CodecMPEG2
)

// Packaging selects the container framing a Codec's NAL/unit stream uses.
// Only H.264 has both shapes; MPEG-2 has no AVCC concept and rejects it.
type Packaging int

const (
	PackagingAnnexB Packaging = iota // start-code delimited (00 00 01 / 00 00 00 01)
	PackagingAVCC                    // length-prefixed, as carried in an avcC box
)

// Context holds all per-stream decoder state: the reorder buffer, the
// shared timing engine, the 608 channel decoders, and the 708 service
// decoder. It is not safe for concurrent use.
type Context struct {
	log *slog.Logger

	codec     Codec
	codecSet  bool
	packaging Packaging
	avccForce *bool // nil = auto-detect from the first packet and cache, matching the source library's lenient default
	h264      *demux.H264Demuxer

	timer      *timing.Engine
	reorderBuf *reorder.Buffer

	ccChannel int  // 0 = decode all four CC1-CC4 channels; 1 or 2 restricts to that channel on both fields
	enable708 bool
	noRollup  bool

	dec608   map[int]*cea608.Decoder // keyed 1..4: CC1, CC2, CC3, CC4
	dec708   *cea708.Decoder
	services []int // 708 service numbers requested via WithServices

	callback CaptionCallback
	shown608 map[int]int64 // last StartMS each 608 channel has already announced via PhaseShow
	pull     []Caption

	closed bool
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithLogger sets the logger a Context reports decode diagnostics to. Nil
// (the default) uses slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// WithFPS sets the nominal frame rate used by the timing engine to convert
// temporal_reference into a time offset. Default 29.97 (NTSC).
func WithFPS(fps float64) Option {
	return func(c *Context) { c.timer = timing.NewEngine(timing.WithFPS(fps)) }
}

// WithReorderWindow forces the B-frame reorder window instead of letting it
// be inferred from the stream (H.264 SPS max_num_reorder_frames, or 2 on
// the first MPEG-2 B-frame seen).
func WithReorderWindow(n int) Option {
	return func(c *Context) { c.reorderBuf = reorder.NewBuffer(n) }
}

// WithCodec selects the compressed video syntax FeedPacket expects and
// marks the Context as configured. Unlike SetDemuxer it does not set
// framing: H.264 framing stays auto-detected unless WithH264AVCC forces it.
func WithCodec(codec Codec) Option {
	return func(c *Context) { c.codec, c.codecSet = codec, true }
}

// WithH264AVCC forces AVCC (length-prefixed) or Annex-B (start-code
// delimited) framing instead of auto-detecting it from the first packet's
// leading bytes.
func WithH264AVCC(avcc bool) Option {
	return func(c *Context) { c.avccForce = &avcc }
}

// WithServices selects which CEA-708 service numbers (1-63) are decoded.
// Defaults to service 1 only, the common single-service case.
func WithServices(services ...int) Option {
	return func(c *Context) { c.services = services }
}

// WithCCChannel restricts 608 decoding to a single channel (1 or 2) on
// both fields, e.g. WithCCChannel(1) builds only CC1 and CC3. Any other
// value (including the default 0) decodes all four CC1-CC4 channels.
func WithCCChannel(ch int) Option {
	return func(c *Context) { c.ccChannel = ch }
}

// WithEnable708 controls whether the CEA-708 service decoder is built at
// all. Defaults to true; passing false skips 708 entirely, saving the
// per-packet DTVCC reassembly work for 608-only callers.
func WithEnable708(enabled bool) Option {
	return func(c *Context) { c.enable708 = enabled }
}

// WithNoRollup disables roll-up's multi-row scrolling on every 608 decoder
// built by Init: in RU2/RU3/RU4 mode, each line is shown and cleared on its
// own instead of shifting previous lines upward.
func WithNoRollup(v bool) Option {
	return func(c *Context) { c.noRollup = v }
}

// Init returns a new Context configured by opts. Codec defaults to
// CodecH264 with auto-detected Annex-B/AVCC framing; 608 decodes all four
// CC1-CC4 channels and 708 decodes service 1, unless overridden.
func Init(opts ...Option) *Context {
	c := &Context{
		log:        slog.Default(),
		timer:      timing.NewEngine(),
		reorderBuf: reorder.NewBuffer(0),
		dec608:     make(map[int]*cea608.Decoder),
		shown608:   make(map[int]int64),
		codec:      CodecH264,
		codecSet:   true,
		enable708:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.services) == 0 {
		c.services = []int{1}
	}
	if c.enable708 {
		c.dec708 = cea708.NewDecoder(c.timer, c.services...)
	}

	fields := map[int]int{1: 1, 2: 1, 3: 2, 4: 2}
	withinField := map[int]int{1: 1, 2: 2, 3: 1, 4: 2}
	channels := []int{1, 2, 3, 4}
	switch c.ccChannel {
	case 1:
		channels = []int{1, 3}
	case 2:
		channels = []int{2, 4}
	}
	for _, idx := range channels {
		d := cea608.NewDecoder(fields[idx], withinField[idx], c.timer)
		d.SetNoRollup(c.noRollup)
		c.dec608[idx] = d
	}
	return c
}

// InitDefault returns a Context with every option at its default: H.264
// with auto-detected framing, all four 608 channels, 708 service 1 only,
// 29.97fps, pull-mode delivery.
func InitDefault() *Context {
	return Init()
}

// checkOpen validates that c is usable: non-nil and not yet Closed.
func (c *Context) checkOpen() error {
	if c == nil {
		return ErrNilContext
	}
	if c.closed {
		return ErrClosed
	}
	return nil
}

// SetDemuxer (re)configures which compressed video syntax and container
// framing FeedPacket expects, and is safe to call between FeedPacket calls
// to switch codecs mid-session. MPEG-2 has no AVCC framing concept, so
// CodecMPEG2 with PackagingAVCC is rejected. If extradata is non-nil and
// contains an SPS, the B-frame reorder window is resolved immediately
// instead of waiting for it to turn up in a packet.
func (c *Context) SetDemuxer(codec Codec, packaging Packaging, extradata []byte) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if codec == CodecMPEG2 && packaging == PackagingAVCC {
		return ErrUnsupportedPackaging
	}
	c.codec, c.codecSet = codec, true
	c.packaging = packaging
	if codec == CodecH264 {
		avcc := packaging == PackagingAVCC
		c.avccForce = &avcc
		c.h264 = nil // framing may have changed; redetect/reset cached NAL length size
	}
	if codec == CodecH264 && len(extradata) > 0 {
		if info, ok := demux.ParseAVCExtradata(packaging == PackagingAVCC, extradata); ok {
			c.reorderBuf.SetStreamHint(info.MaxNumReorderFrames)
		}
	}
	return nil
}

// SetCaptionCallback switches the Context into live delivery mode: cb is
// invoked with PhaseShow as soon as a caption becomes visible and again
// with PhaseComplete once it finishes. Passing nil reverts to pull mode.
func (c *Context) SetCaptionCallback(cb CaptionCallback) {
	c.callback = cb
}

// Close releases the Context. Any buffered cc_data not yet released by the
// reorder window is discarded unflushed; call Flush first to avoid losing
// trailing captions.
func (c *Context) Close() {
	c.closed = true
}
