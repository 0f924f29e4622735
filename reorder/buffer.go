// Package reorder holds compressed-domain cc_data batches until presentation
// order can be guaranteed, then releases them smallest-PTS-first. H.264 and
// MPEG-2 streams with B-frames deliver packets in decode order; a B-frame's
// presentation time can precede that of the reference frame decoded just
// before it, so captions must be re-sorted before reaching the field/channel
// decoders.
package reorder

// Entry is one buffered cc_data batch awaiting in-order delivery.
type Entry struct {
	PTSMs  int64
	CCData []byte
}

// Buffer holds pending entries and releases the ones falling outside the
// current reorder window, smallest PTS first. Window resolution follows a
// fixed priority: an explicit override always wins; otherwise a hint derived
// from the stream (H.264 SPS max_num_reorder_frames, or 2 whenever an
// MPEG-2 B-frame is seen) is used once known; absent both, the window
// defaults to 4.
type Buffer struct {
	entries    []Entry
	override   int // > 0: user-forced window, takes priority over streamHint
	streamHint int // -1 = unknown, else the window implied by the stream
}

// NewBuffer returns an empty buffer. override, if > 0, pins the reorder
// window regardless of what the stream itself implies.
func NewBuffer(override int) *Buffer {
	return &Buffer{override: override, streamHint: -1}
}

// SetStreamHint records a reorder-window hint parsed from the stream (SPS
// max_num_reorder_frames, or an MPEG-2 B-frame sighting). Only the first
// hint is kept — once the window is known from the stream it does not
// change mid-stream, matching the source library's "figure it out once"
// behavior.
func (b *Buffer) SetStreamHint(window int) {
	if window >= 0 && b.streamHint < 0 {
		b.streamHint = window
	}
}

// Window returns the reorder window currently in effect.
func (b *Buffer) Window() int {
	if b.override > 0 {
		return b.override
	}
	if b.streamHint >= 0 {
		return b.streamHint
	}
	return 4
}

// Add appends one cc_data batch at ptsMs and releases however many entries
// now fall outside the window, smallest PTS first. Normally at most one
// entry is released per Add call, but a first stream hint smaller than the
// default window shrinks it and can release more.
func (b *Buffer) Add(ccData []byte, ptsMs int64) []Entry {
	b.entries = append(b.entries, Entry{PTSMs: ptsMs, CCData: ccData})

	var out []Entry
	window := b.Window()
	for len(b.entries) > window {
		minIdx := 0
		for i := 1; i < len(b.entries); i++ {
			if b.entries[i].PTSMs < b.entries[minIdx].PTSMs {
				minIdx = i
			}
		}
		out = append(out, b.entries[minIdx])
		last := len(b.entries) - 1
		b.entries[minIdx] = b.entries[last]
		b.entries = b.entries[:last]
	}
	return out
}

// Flush releases every remaining entry in ascending PTS order and empties
// the buffer. Callers use this at end of stream, where no further packets
// will arrive to push entries out of the window naturally.
func (b *Buffer) Flush() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	b.entries = nil

	for i := 1; i < len(out); i++ {
		key := out[i]
		j := i - 1
		for j >= 0 && out[j].PTSMs > key.PTSMs {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = key
	}
	return out
}

// Len reports the number of entries currently buffered.
func (b *Buffer) Len() int {
	return len(b.entries)
}
