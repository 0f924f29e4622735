package cea

import "errors"

// ErrClosed is returned by SetDemuxer, Feed, FeedPacket and Flush when
// called after Close.
var ErrClosed = errors.New("cea: context is closed")

// ErrNilContext is returned by SetDemuxer, Feed, FeedPacket and Flush when
// called on a nil *Context. GetCaptions, SetCaptionCallback and Close do
// not check for a nil receiver.
var ErrNilContext = errors.New("cea: nil context")

// ErrInvalidArgument is returned by Feed and FeedPacket for a negative
// presentation timestamp.
var ErrInvalidArgument = errors.New("cea: invalid argument")

// ErrDemuxerNotConfigured is returned by FeedPacket when the configured
// Codec doesn't resolve to a known demultiplexer. Init and InitDefault seed
// a working H.264/auto-detect default, so in practice this only fires if a
// Codec value is constructed outside the CodecH264/CodecMPEG2 constants.
var ErrDemuxerNotConfigured = errors.New("cea: demuxer not configured")

// ErrUnsupportedPackaging is returned by SetDemuxer for a codec/packaging
// combination the source format doesn't support: MPEG-2 has no AVCC
// framing concept, so CodecMPEG2 with PackagingAVCC is rejected at
// configuration time rather than silently ignored.
var ErrUnsupportedPackaging = errors.New("cea: unsupported packaging for codec")

// Phase distinguishes the two notifications SetCaptionCallback delivers for
// one caption: Show fires as soon as a screen becomes non-empty, with Text
// reflecting its in-progress content and EndMS still zero; Complete fires
// once the caption has actually finished (pop-on swap, erase, or roll-up
// carriage return) with its final text and both timestamps set. A 708
// caption has no in-progress view: its Show is delivered immediately before
// its Complete, with the same text. Pull-mode callers never see Show:
// GetCaptions only returns completed captions.
type Phase int

const (
	PhaseShow Phase = iota
	PhaseComplete
)

// Caption is one rendered, timed caption. Field is 1 or 2 for EIA-608
// (matching the line-21 field the bytes arrived on) and always 3 for
// CEA-708. Info is "608" for any EIA-608 channel, or a "7" + two-digit
// service number (e.g. "701") for 708. Mode is the 608 display strategy
// ("POP", "RU2", "RU3", "RU4", "PAI", "TXT") in effect when the caption was
// shown; it is empty for 708 captions, which have no mode concept.
type Caption struct {
	Field   int
	Info    string
	Mode    string
	Text    string
	BaseRow int
	StartMS int64
	EndMS   int64
}

// CaptionCallback receives live caption notifications. See Phase for the
// show/complete distinction.
type CaptionCallback func(Caption, Phase)
