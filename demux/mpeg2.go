package demux

// MPEG2Result is the per-packet outcome of ExtractMPEG2CCData: the raw
// cc_data triplet bytes found in a user_data_start_code block, and a
// reorder-window hint derived from the picture's coding type.
type MPEG2Result struct {
	CCData        []byte // 3*cc_count bytes, may be nil
	ReorderWindow int    // -1 = no update, else the window to use
}

// ExtractMPEG2CCData scans one MPEG-2 elementary-stream picture for an ATSC
// A/53 GA94 user-data block and for a B-frame in its picture_coding_type.
// MPEG-2 packets arrive in decode order; a B-frame's presentation time
// precedes the P-frame decoded just before it, so seeing one means the
// caller needs a reorder buffer. I/P frames leave ReorderWindow at -1 so
// the caller keeps whatever window it already determined.
func ExtractMPEG2CCData(pkt []byte) MPEG2Result {
	result := MPEG2Result{ReorderWindow: -1}

	for i := 0; i+5 < len(pkt); i++ {
		if pkt[i] == 0x00 && pkt[i+1] == 0x00 && pkt[i+2] == 0x01 && pkt[i+3] == 0x00 {
			pictureCodingType := (pkt[i+5] >> 3) & 0x07
			if pictureCodingType == 3 { // B-frame
				result.ReorderWindow = 2
			}
			break
		}
	}

	result.CCData = parseMPEG2UserData(pkt)
	return result
}

// parseMPEG2UserData finds a user_data_start_code (00 00 01 B2) block
// carrying a GA94 ATSC A/53 payload and returns its cc_data triplet bytes,
// or nil if none is present or the block is malformed/truncated.
func parseMPEG2UserData(pkt []byte) []byte {
	for i := 0; i+3 < len(pkt); i++ {
		if !(pkt[i] == 0x00 && pkt[i+1] == 0x00 && pkt[i+2] == 0x01 && pkt[i+3] == 0xB2) {
			continue
		}

		ud := pkt[i+4:]
		udLen := len(ud)

		// The user-data block runs to the next start code or end of packet.
		for j := 0; j+2 < udLen; j++ {
			if ud[j] == 0x00 && ud[j+1] == 0x00 && ud[j+2] == 0x01 {
				udLen = j
				break
			}
		}
		ud = ud[:udLen]

		// GA94(4) + type(1) + flags(1) + em_data(1) = 7 bytes minimum.
		if len(ud) < 7 {
			continue
		}
		if ud[0] != 'G' || ud[1] != 'A' || ud[2] != '9' || ud[3] != '4' {
			continue
		}
		if ud[4] != 0x03 { // user_data_type_code: cc_data
			continue
		}

		flagsByte := ud[5]
		processCC := flagsByte&0x40 != 0
		count := int(flagsByte & 0x1F)
		if !processCC || count == 0 {
			continue
		}

		// ud[6] is em_data (reserved); cc_data starts at ud[7].
		need := count * 3
		if len(ud) < 7+need {
			continue
		}

		out := make([]byte, need)
		copy(out, ud[7:7+need])
		return out
	}
	return nil
}
