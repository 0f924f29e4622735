package cea

import (
	"fmt"

	"github.com/zsiec/cea/demux"
	"github.com/zsiec/cea/reorder"
	"github.com/zsiec/cea/render"
	"github.com/zsiec/cea/timing"
)

var channelFields = map[int]int{1: 1, 2: 1, 3: 2, 4: 2}

// FeedPacket demultiplexes cc_data out of one compressed video packet
// (H.264 or MPEG-2, per the configured codec) and runs it through the
// reorder buffer, timing engine, and caption decoders. pts is the packet's
// presentation timestamp in milliseconds.
func (c *Context) FeedPacket(pkt []byte, pts int64) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if pts < 0 {
		return ErrInvalidArgument
	}
	var ccData []byte
	switch c.codec {
	case CodecH264:
		d := c.h264Demuxer(pkt)
		res := d.ExtractCCData(pkt)
		if res.ReorderHint >= 0 {
			c.reorderBuf.SetStreamHint(res.ReorderHint)
		}
		ccData = res.CCData
	case CodecMPEG2:
		res := demux.ExtractMPEG2CCData(pkt)
		if res.ReorderWindow >= 0 {
			c.reorderBuf.SetStreamHint(res.ReorderWindow)
		}
		ccData = res.CCData
	default:
		return ErrDemuxerNotConfigured
	}
	c.ingest(ccData, pts)
	return nil
}

// Feed runs one already-extracted cc_data batch (3 bytes per triplet)
// directly through the reorder buffer, timing engine, and caption
// decoders, bypassing video demuxing entirely. Useful for pipelines that
// already isolate cc_data upstream. pts is in milliseconds.
func (c *Context) Feed(ccData []byte, pts int64) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if pts < 0 {
		return ErrInvalidArgument
	}
	c.ingest(ccData, pts)
	return nil
}

// Flush releases every cc_data batch still held by the reorder buffer and
// finalizes any in-progress, non-empty screens, so trailing captions at
// end of stream are not lost.
func (c *Context) Flush() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	for _, e := range c.reorderBuf.Flush() {
		c.consumeEntry(e)
	}
	for _, d := range c.dec608 {
		d.Flush()
	}
	if c.dec708 != nil {
		c.dec708.Flush()
	}
	c.drainAndEmit()
	return nil
}

// GetCaptions returns and clears every caption completed since the last
// call. Used in pull mode (no callback registered via
// SetCaptionCallback); returns nil once a callback is set, since
// completed captions are delivered there instead.
func (c *Context) GetCaptions() []Caption {
	out := c.pull
	c.pull = nil
	return out
}

func (c *Context) h264Demuxer(pkt []byte) *demux.H264Demuxer {
	if c.h264 != nil {
		return c.h264
	}
	isAVCC := true
	if c.avccForce != nil {
		isAVCC = *c.avccForce
	} else {
		isAVCC = !looksLikeAnnexB(pkt)
	}
	c.log.Debug("h264 framing detected", "avcc", isAVCC)
	c.h264 = demux.NewH264Demuxer(isAVCC)
	return c.h264
}

// looksLikeAnnexB reports whether pkt opens with an Annex-B start code
// (00 00 01 or 00 00 00 01). AVCC's length-prefixed framing virtually
// never produces either pattern as its first four bytes for real NAL
// sizes, making this a reliable one-shot auto-detection.
func looksLikeAnnexB(pkt []byte) bool {
	if len(pkt) >= 3 && pkt[0] == 0 && pkt[1] == 0 && pkt[2] == 1 {
		return true
	}
	if len(pkt) >= 4 && pkt[0] == 0 && pkt[1] == 0 && pkt[2] == 0 && pkt[3] == 1 {
		return true
	}
	return false
}

func (c *Context) ingest(ccData []byte, pts int64) {
	if ccData == nil {
		return
	}
	for _, e := range c.reorderBuf.Add(ccData, pts) {
		c.consumeEntry(e)
	}
}

func (c *Context) consumeEntry(e reorder.Entry) {
	c.timer.SetCurrentPTS(e.PTSMs * (timing.ClockFreq / 1000))
	c.timer.Advance(0, timing.FrameI, 1, 0)
	c.demultiplex(e.CCData)
	c.drainAndEmit()
}

// demultiplex walks one released cc_data batch's triplets, routing each to
// the 608 channel decoder(s) for its field or to the 708 decoder,
// depending on cc_type. Triplets with cc_valid unset are dropped.
func (c *Context) demultiplex(ccData []byte) {
	for i := 0; i+2 < len(ccData); i += 3 {
		marker, b1, b2 := ccData[i], ccData[i+1], ccData[i+2]
		if marker&0x04 == 0 {
			continue
		}
		switch marker & 0x03 {
		case 0:
			c.feed608(1, b1, b2)
			c.feed608(2, b1, b2)
		case 1:
			c.feed608(3, b1, b2)
			c.feed608(4, b1, b2)
		case 2, 3:
			if c.dec708 != nil {
				c.dec708.ProcessTriplet(marker&0x03, b1, b2)
			}
		}
	}
}

// feed608 forwards a byte pair to channel idx's decoder if one was built;
// WithCCChannel may leave some of CC1-CC4 unbuilt, and their pairs are dropped.
func (c *Context) feed608(idx int, b1, b2 byte) {
	if d, ok := c.dec608[idx]; ok {
		d.ProcessPair(b1, b2)
	}
}

// drainAndEmit collects every screen finished by the last batch of
// triplets, renders it, and delivers it either to the registered callback
// (PhaseComplete) or the pull-mode queue. In live mode it additionally
// announces PhaseShow the first time each channel's visible screen
// transitions to non-empty.
func (c *Context) drainAndEmit() {
	for idx := 1; idx <= 4; idx++ {
		d, ok := c.dec608[idx]
		if !ok {
			continue
		}
		if c.callback != nil {
			if vis := d.VisibleScreen(); vis != nil && !vis.Empty && c.shown608[idx] != vis.StartMS {
				c.shown608[idx] = vis.StartMS
				if r := render.Screen608(vis); r.BaseRow >= 0 {
					c.callback(Caption{
						Field:   channelFields[idx],
						Info:    "608",
						Mode:    r.Mode,
						Text:    r.Text,
						BaseRow: r.BaseRow,
						StartMS: vis.StartMS,
					}, PhaseShow)
				}
			}
		}
		for _, scr := range d.DrainCompleted() {
			r := render.Screen608(scr)
			if r.BaseRow < 0 {
				continue
			}
			c.emit(Caption{
				Field:   channelFields[idx],
				Info:    "608",
				Mode:    r.Mode,
				Text:    r.Text,
				BaseRow: r.BaseRow,
				StartMS: scr.StartMS,
				EndMS:   scr.EndMS,
			})
		}
	}

	if c.dec708 == nil {
		return
	}
	for _, scr := range c.dec708.DrainCompleted() {
		r := render.Screen708(scr)
		if r.BaseRow < 0 {
			continue
		}
		cap := Caption{
			Field:   3,
			Info:    fmt.Sprintf("7%02d", scr.Service),
			Text:    r.Text,
			BaseRow: r.BaseRow,
			StartMS: scr.ShowMS,
			EndMS:   scr.HideMS,
		}
		if c.callback != nil {
			show := cap
			show.EndMS = 0
			c.callback(show, PhaseShow)
		}
		c.emit(cap)
	}
}

func (c *Context) emit(cap Caption) {
	if c.callback != nil {
		c.callback(cap, PhaseComplete)
		return
	}
	c.pull = append(c.pull, cap)
}
