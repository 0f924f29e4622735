// Package demux locates and parses ATSC A/53 caption payloads inside
// compressed video packets: H.264 SEI messages (payload type 4) and MPEG-2
// user_data_start_code blocks. It also parses H.264 SPS NAL units to
// recover the stream's B-frame reorder window, used by the reorder buffer
// to know how many cc_data batches to hold before presentation order is
// guaranteed.
package demux

import (
	"errors"

	"github.com/zsiec/cea/internal/bits"
)

// H.264 NAL unit type constants (ITU-T H.264 Table 7-1).
const (
	NALTypeSEI = 6
	NALTypeSPS = 7
)

// ErrNoData is returned by nothing in this package today — malformed or
// truncated input is never an error, only an empty result (spec: demuxer
// errors are never fatal). It is kept for callers that want to distinguish
// "a real read error" from "no caption data this packet" in the future.
var ErrNoData = errors.New("demux: no caption data")

// H264Result is the per-packet outcome of ExtractCCData: the raw cc_data
// triplet bytes (3 bytes per triplet, up to 31 triplets) found in an SEI
// message, and a reorder-window hint parsed from any SPS seen in the same
// packet.
type H264Result struct {
	CCData      []byte // 3*cc_count bytes, may be nil
	ReorderHint int    // -1 = no update, else 0..N (max_num_reorder_frames)
}

// H264Demuxer walks H.264 Annex B or AVCC packets looking for SEI caption
// payloads and SPS reorder-window information. It caches the AVCC NAL
// length size across calls once auto-detected, matching the source
// library's "detect once, remember" behavior.
type H264Demuxer struct {
	isAVCC        bool
	nalLengthSize int // 0 = not yet detected (AVCC only)
}

// NewH264Demuxer returns a demuxer for either Annex-B (start-code delimited)
// or AVCC (length-prefixed) H.264 packets.
func NewH264Demuxer(isAVCC bool) *H264Demuxer {
	return &H264Demuxer{isAVCC: isAVCC}
}

// NALLengthSize returns the currently cached AVCC NAL length size (0 if not
// yet auto-detected or not applicable to Annex B streams).
func (d *H264Demuxer) NALLengthSize() int {
	return d.nalLengthSize
}

// ExtractCCData scans one compressed packet for an ATSC A/53 cc_data
// payload and for SPS-derived reorder window information. Truncated or
// malformed input never produces an error; it produces a zero-value
// component of the result instead (CCData == nil, ReorderHint == -1).
func (d *H264Demuxer) ExtractCCData(pkt []byte) H264Result {
	result := H264Result{ReorderHint: -1}

	nalus := d.iterateNALs(pkt)

	gotCC := false
	gotReorder := false
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		nalType := nalu[0] & 0x1F

		if nalType == NALTypeSPS && !gotReorder {
			if info, err := ParseSPS(nalu); err == nil {
				result.ReorderHint = info.MaxNumReorderFrames
				gotReorder = true
			}
		}

		if nalType == NALTypeSEI && !gotCC {
			if cc := parseSEICCData(nalu); cc != nil {
				result.CCData = cc
				gotCC = true
			}
		}

		if gotCC && gotReorder {
			break
		}
	}

	return result
}

// iterateNALs splits pkt into NAL units (including the NAL header byte),
// auto-detecting and caching the AVCC length-prefix size on first use.
func (d *H264Demuxer) iterateNALs(pkt []byte) [][]byte {
	if !d.isAVCC {
		return iterateAnnexB(pkt)
	}

	if d.nalLengthSize == 0 {
		d.nalLengthSize = detectAVCCLengthSize(pkt)
	}
	return iterateAVCC(pkt, d.nalLengthSize)
}

// detectAVCCLengthSize tries candidate NAL-length field widths, accepting
// the first whose declared length fits the packet and whose first NAL byte
// looks like a real NAL header (forbidden_zero_bit == 0, nal_unit_type != 0).
// Defaults to 4 if none of the candidates validate.
func detectAVCCLengthSize(pkt []byte) int {
	for _, size := range []int{4, 2, 1} {
		if len(pkt) < size+1 {
			continue
		}
		nalLen := readBE(pkt[:size])
		if size+nalLen > len(pkt) {
			continue
		}
		header := pkt[size]
		if header&0x80 != 0 { // forbidden_zero_bit must be 0
			continue
		}
		if header&0x1F == 0 { // nal_unit_type must be non-zero
			continue
		}
		return size
	}
	return 4
}

func readBE(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

func iterateAVCC(pkt []byte, lengthSize int) [][]byte {
	if lengthSize <= 0 {
		lengthSize = 4
	}
	var nalus [][]byte
	i := 0
	for i+lengthSize <= len(pkt) {
		nalLen := readBE(pkt[i : i+lengthSize])
		i += lengthSize
		if nalLen < 0 || i+nalLen > len(pkt) {
			break
		}
		nalus = append(nalus, pkt[i:i+nalLen])
		i += nalLen
	}
	return nalus
}

func iterateAnnexB(pkt []byte) [][]byte {
	var starts []int
	var headerLens []int
	n := len(pkt)
	i := 0
	for i+2 < n {
		if pkt[i] == 0 && pkt[i+1] == 0 {
			if i+3 < n && pkt[i+2] == 0 && pkt[i+3] == 1 {
				starts = append(starts, i+4)
				headerLens = append(headerLens, 4)
				i += 4
				continue
			}
			if pkt[i+2] == 1 {
				starts = append(starts, i+3)
				headerLens = append(headerLens, 3)
				i += 3
				continue
			}
		}
		i++
	}

	var nalus [][]byte
	for idx, start := range starts {
		end := n
		if idx+1 < len(starts) {
			end = starts[idx+1] - headerLens[idx+1]
		}
		if start < end {
			nalus = append(nalus, pkt[start:end])
		}
	}
	return nalus
}

// parseSEICCData walks the SEI messages in a de-emulated NAL payload and
// returns the cc_data triplet bytes of the first ATSC A/53 GA94 payload
// (SEI payload_type 4) found, or nil if none is present or the payload is
// malformed/truncated.
func parseSEICCData(nalu []byte) []byte {
	if len(nalu) < 2 {
		return nil
	}
	rbsp := bits.RemoveEmulationPrevention(nalu[1:])

	i := 0
	for i < len(rbsp) {
		payloadType := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadType += 255
			i++
		}
		if i >= len(rbsp) {
			return nil
		}
		payloadType += int(rbsp[i])
		i++

		payloadSize := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadSize += 255
			i++
		}
		if i >= len(rbsp) {
			return nil
		}
		payloadSize += int(rbsp[i])
		i++

		if i+payloadSize > len(rbsp) {
			return nil
		}
		payload := rbsp[i : i+payloadSize]

		if payloadType == 4 {
			if cc := parseA53Payload(payload); cc != nil {
				return cc
			}
			return nil
		}

		i += payloadSize
	}
	return nil
}

// parseA53Payload validates and extracts cc_data triplets from an
// itu_t_t35 payload carrying the ATSC A/53 GA94 identifier.
func parseA53Payload(payload []byte) []byte {
	if len(payload) < 10 {
		return nil
	}
	if payload[0] != 0xB5 { // itu_t_t35_country_code: United States
		return nil
	}
	if payload[1] != 0x00 || payload[2] != 0x31 { // itu_t_t35_provider_code: ATSC
		return nil
	}
	if payload[3] != 'G' || payload[4] != 'A' || payload[5] != '9' || payload[6] != '4' {
		return nil
	}
	if payload[7] != 0x03 { // user_data_type_code: cc_data
		return nil
	}

	flagsByte := payload[8]
	processCC := flagsByte&0x40 != 0
	if !processCC {
		return nil
	}
	ccCount := int(flagsByte & 0x1F)

	// payload[9] is em_data (reserved).
	start := 10
	need := ccCount * 3
	if start+need > len(payload) {
		return nil
	}
	out := make([]byte, need)
	copy(out, payload[start:start+need])
	return out
}

// ParseAVCExtradata scans codec extradata for an SPS and resolves its
// reorder window, so a caller that has out-of-band extradata (an avcC box,
// or a raw Annex-B SPS) doesn't have to wait for the first packet to learn
// it. avcc selects which extradata shape to expect: an AVCDecoderConfigurationRecord
// (length-prefixed SPS/PPS arrays) or a raw/start-code-delimited NAL stream.
func ParseAVCExtradata(avcc bool, extradata []byte) (SPSInfo, bool) {
	var nalus [][]byte
	if avcc {
		nalus = avcConfigSPSs(extradata)
	} else {
		nalus = iterateAnnexB(extradata)
	}
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		if nalu[0]&0x1F == NALTypeSPS {
			if info, err := ParseSPS(nalu); err == nil {
				return info, true
			}
		}
	}
	return SPSInfo{}, false
}

// avcConfigSPSs extracts the SPS NAL units from an AVCDecoderConfigurationRecord
// (ISO 14496-15): version/profile/level bytes, a length-size byte, then a
// count-prefixed array of 2-byte-length-prefixed SPS entries.
func avcConfigSPSs(extradata []byte) [][]byte {
	if len(extradata) < 6 {
		return nil
	}
	numSPS := int(extradata[5] & 0x1F)
	i := 6
	var out [][]byte
	for n := 0; n < numSPS && i+2 <= len(extradata); n++ {
		l := int(extradata[i])<<8 | int(extradata[i+1])
		i += 2
		if l < 0 || i+l > len(extradata) {
			break
		}
		out = append(out, extradata[i:i+l])
		i += l
	}
	return out
}
