// Package fixture builds synthetic compressed-video byte streams for tests:
// EIA-608 triplets with correct odd parity, CEA-708 DTVCC packets wrapped in
// cc_data, and the surrounding A53/SEI/NAL framing that demux expects to
// unwrap. It has no production caller; only _test.go files import it.
package fixture

// AddParity sets the EIA-608 odd-parity high bit on a 7-bit data byte.
func AddParity(b byte) byte {
	b &= 0x7F
	ones := 0
	for v := b; v != 0; v >>= 1 {
		ones += int(v & 1)
	}
	if ones%2 == 0 {
		return b | 0x80
	}
	return b
}

// Triplet is one cc_data triplet: a cc_type (0=field1, 1=field2, 2=DTVCC
// start, 3=DTVCC continuation) and its two payload bytes.
type Triplet struct {
	Type byte
	B1   byte
	B2   byte
}

// CCData packs triplets into the raw byte form demux and the decoders
// consume: one marker byte per triplet (reserved bits set, cc_valid=1,
// cc_type in the low two bits) followed by its two data bytes. 608 data
// bytes are parity-encoded; 708 bytes are passed through unchanged.
func CCData(triplets []Triplet) []byte {
	out := make([]byte, 0, len(triplets)*3)
	for _, t := range triplets {
		marker := 0xFC | (t.Type & 0x03)
		b1, b2 := t.B1, t.B2
		if t.Type == 0 || t.Type == 1 {
			b1, b2 = AddParity(b1), AddParity(b2)
		}
		out = append(out, marker, b1, b2)
	}
	return out
}

// CC608Pair builds a field-1 (cc_type 0) text or control triplet.
func CC608Pair(b1, b2 byte) Triplet { return Triplet{Type: 0, B1: b1, B2: b2} }

// DTVCCPacket assembles one complete DTVCC channel packet for a single
// service block (service_number in 1..6, data up to 31 bytes) and splits it
// into cc_data triplets. The first triplet carries cc_type 2 (start) with
// the packet's size/sequence header as its first data byte per the
// ATSC A/53 cc_data() structure; every following pair of payload bytes is
// cc_type 3 (continuation). This is the opposite of the convention used by
// some third-party caption injectors, which swap start/continuation; see
// DESIGN.md.
func DTVCCPacket(serviceNumber int, data []byte, sequence byte) []Triplet {
	if len(data) > 31 {
		data = data[:31]
	}
	header := byte((serviceNumber&0x07)<<5) | byte(len(data)&0x1F)
	block := append([]byte{header}, data...)

	sizeCode := (len(block) + 1) / 2
	if sizeCode > 63 {
		sizeCode = 63
	}
	pktHeader := (sequence&0x03)<<6 | byte(sizeCode&0x3F)
	pkt := append([]byte{pktHeader}, block...)
	for len(pkt) < sizeCode*2+1 {
		pkt = append(pkt, 0x00)
	}

	var triplets []Triplet
	for i := 0; i < len(pkt); i += 2 {
		b2 := byte(0x00)
		if i+1 < len(pkt) {
			b2 = pkt[i+1]
		}
		t := Triplet{Type: 3, B1: pkt[i], B2: b2}
		if i == 0 {
			t.Type = 2
		}
		triplets = append(triplets, t)
	}
	return triplets
}

// EncodeSEIMessage encodes an H.264 SEI message (payload type + size using
// the FF-run multi-byte encoding, then the payload itself).
func EncodeSEIMessage(payloadType int, payload []byte) []byte {
	var out []byte
	for pt := payloadType; ; {
		if pt >= 255 {
			out = append(out, 0xFF)
			pt -= 255
			continue
		}
		out = append(out, byte(pt))
		break
	}
	for ps := len(payload); ; {
		if ps >= 255 {
			out = append(out, 0xFF)
			ps -= 255
			continue
		}
		out = append(out, byte(ps))
		break
	}
	return append(out, payload...)
}

// AddEmulationPrevention inserts 0x03 before any byte in 0x00-0x03 that
// follows two consecutive 0x00 bytes, undoing what
// bits.RemoveEmulationPrevention strips back out.
func AddEmulationPrevention(data []byte) []byte {
	var out []byte
	zeros := 0
	for _, b := range data {
		if zeros >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// A53Payload wraps cc_data triplets in the itu_t_t35 GA94 envelope that an
// SEI message (payload type 4) or MPEG-2 user_data block carries.
func A53Payload(ccData []byte) []byte {
	count := len(ccData) / 3
	if count > 31 {
		count = 31
	}
	payload := []byte{0xB5, 0x00, 0x31, 'G', 'A', '9', '4', 0x03, 0x40 | byte(count&0x1F), 0xFF}
	payload = append(payload, ccData[:count*3]...)
	payload = append(payload, 0xFF)
	return payload
}

// H264SEINAL builds a full Annex-B H.264 SEI NAL (start code, NAL header,
// emulation-prevention-escaped RBSP) carrying ccData as an A/53 GA94
// user_data_registered_itu_t_t35 message (payload type 4).
func H264SEINAL(ccData []byte) []byte {
	rbsp := EncodeSEIMessage(4, A53Payload(ccData))
	rbsp = append(rbsp, 0x80) // rbsp_trailing_bits
	nal := []byte{0x00, 0x00, 0x00, 0x01, 0x06}
	return append(nal, AddEmulationPrevention(rbsp)...)
}

// MPEG2UserData builds an MPEG-2 user_data_start_code block carrying ccData
// as a GA94 cc_data payload, the form ExtractMPEG2CCData expects.
func MPEG2UserData(ccData []byte) []byte {
	count := len(ccData) / 3
	userData := []byte{'G', 'A', '9', '4', 0x03, 0xC0 | byte(count&0x1F), 0xFF}
	userData = append(userData, ccData...)
	return append([]byte{0x00, 0x00, 0x01, 0xB2}, userData...)
}
