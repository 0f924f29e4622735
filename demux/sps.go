package demux

import "github.com/zsiec/cea/internal/bits"

// SPSInfo holds the H.264 SPS fields needed to determine a stream's B-frame
// reorder window (how many frames may arrive out of presentation order).
type SPSInfo struct {
	ProfileIDC              byte
	ConstraintSet1          bool
	MaxNumRefFrames         uint
	BitstreamRestriction    bool
	MaxNumReorderFramesVUI  uint
	MaxNumReorderFrames     int // final resolved value, see resolveReorderFrames
}

// ParseSPS parses an H.264 SPS NAL unit (including its NAL header byte) and
// resolves max_num_reorder_frames per spec priority:
//  1. VUI bitstream_restriction_flag's declared max_num_reorder_frames.
//  2. profile_idc == 66 (Baseline), or == 66 with constraint_set1: 0 (no B-frames).
//  3. Heuristic on max_num_ref_frames: 0/1 -> 1, 2 -> 2, >=3 -> 4.
//
// Returns an error only on truncated/malformed input; the caller should
// treat that as "no SPS information available this packet", never fatal.
func ParseSPS(nalu []byte) (SPSInfo, error) {
	if len(nalu) < 4 {
		return SPSInfo{}, bits.ErrTruncated
	}

	rbsp := bits.RemoveEmulationPrevention(nalu[1:])
	r := bits.NewReader(rbsp)

	var info SPSInfo

	profileIDC, err := r.ReadBits(8)
	if err != nil {
		return SPSInfo{}, err
	}
	info.ProfileIDC = byte(profileIDC)

	constraintFlags, err := r.ReadBits(8)
	if err != nil {
		return SPSInfo{}, err
	}
	info.ConstraintSet1 = constraintFlags&0x40 != 0

	if _, err := r.ReadBits(8); err != nil { // level_idc
		return SPSInfo{}, err
	}
	if _, err := r.ReadUE(); err != nil { // seq_parameter_set_id
		return SPSInfo{}, err
	}

	chromaFormatIDC := uint(1)

	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		chromaFormatIDC, err = r.ReadUE()
		if err != nil {
			return SPSInfo{}, err
		}
		if chromaFormatIDC == 3 {
			if _, err := r.ReadFlag(); err != nil { // separate_colour_plane_flag
				return SPSInfo{}, err
			}
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_luma_minus8
			return SPSInfo{}, err
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_chroma_minus8
			return SPSInfo{}, err
		}
		if _, err := r.ReadBit(); err != nil { // qpprime_y_zero_transform_bypass_flag
			return SPSInfo{}, err
		}
		scalingMatrixPresent, err := r.ReadFlag()
		if err != nil {
			return SPSInfo{}, err
		}
		if scalingMatrixPresent {
			limit := 8
			if chromaFormatIDC == 3 {
				limit = 12
			}
			for i := 0; i < limit; i++ {
				present, err := r.ReadFlag()
				if err != nil {
					return SPSInfo{}, err
				}
				if present {
					size := 16
					if i >= 6 {
						size = 64
					}
					if err := r.SkipScalingList(size); err != nil {
						return SPSInfo{}, err
					}
				}
			}
		}
	}

	if _, err := r.ReadUE(); err != nil { // log2_max_frame_num_minus4
		return SPSInfo{}, err
	}

	picOrderCntType, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	switch picOrderCntType {
	case 0:
		if _, err := r.ReadUE(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return SPSInfo{}, err
		}
	case 1:
		if _, err := r.ReadBit(); err != nil { // delta_pic_order_always_zero_flag
			return SPSInfo{}, err
		}
		if _, err := r.ReadSE(); err != nil { // offset_for_non_ref_pic
			return SPSInfo{}, err
		}
		if _, err := r.ReadSE(); err != nil { // offset_for_top_to_bottom_field
			return SPSInfo{}, err
		}
		numRefFramesInPicOrderCntCycle, err := r.ReadUE()
		if err != nil {
			return SPSInfo{}, err
		}
		for i := uint(0); i < numRefFramesInPicOrderCntCycle; i++ {
			if _, err := r.ReadSE(); err != nil {
				return SPSInfo{}, err
			}
		}
	}

	maxNumRefFrames, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	info.MaxNumRefFrames = maxNumRefFrames

	if _, err := r.ReadBit(); err != nil { // gaps_in_frame_num_value_allowed_flag
		return SPSInfo{}, err
	}
	if _, err := r.ReadUE(); err != nil { // pic_width_in_mbs_minus1
		return SPSInfo{}, err
	}
	if _, err := r.ReadUE(); err != nil { // pic_height_in_map_units_minus1
		return SPSInfo{}, err
	}
	frameMbsOnly, err := r.ReadBit()
	if err != nil {
		return SPSInfo{}, err
	}
	if frameMbsOnly == 0 {
		if _, err := r.ReadBit(); err != nil { // mb_adaptive_frame_field_flag
			return SPSInfo{}, err
		}
	}
	if _, err := r.ReadBit(); err != nil { // direct_8x8_inference_flag
		return SPSInfo{}, err
	}
	frameCropping, err := r.ReadFlag()
	if err != nil {
		return SPSInfo{}, err
	}
	if frameCropping {
		for i := 0; i < 4; i++ {
			if _, err := r.ReadUE(); err != nil {
				return SPSInfo{}, err
			}
		}
	}

	vuiPresent, err := r.ReadFlag()
	if err != nil || !vuiPresent {
		info.MaxNumReorderFrames = resolveReorderFrames(info)
		return info, nil
	}

	parseVUI(r, &info)
	info.MaxNumReorderFrames = resolveReorderFrames(info)
	return info, nil
}

// parseVUI walks the VUI parameters far enough to reach
// bitstream_restriction_flag / max_num_reorder_frames. Every field is best
// effort: if a read fails partway through, whatever was already parsed (and
// the profile/ref-frame heuristic) still stands.
func parseVUI(r *bits.Reader, info *SPSInfo) {
	arPresent, err := r.ReadFlag()
	if err != nil {
		return
	}
	if arPresent {
		idc, err := r.ReadBits(8)
		if err != nil {
			return
		}
		if idc == 255 {
			if _, err := r.ReadBits(32); err != nil {
				return
			}
		}
	}

	overscanPresent, err := r.ReadFlag()
	if err != nil {
		return
	}
	if overscanPresent {
		if _, err := r.ReadBit(); err != nil {
			return
		}
	}

	videoSignalPresent, err := r.ReadFlag()
	if err != nil {
		return
	}
	if videoSignalPresent {
		if _, err := r.ReadBits(4); err != nil {
			return
		}
		colourDescPresent, err := r.ReadFlag()
		if err != nil {
			return
		}
		if colourDescPresent {
			if _, err := r.ReadBits(24); err != nil {
				return
			}
		}
	}

	chromaLocPresent, err := r.ReadFlag()
	if err != nil {
		return
	}
	if chromaLocPresent {
		if _, err := r.ReadUE(); err != nil {
			return
		}
		if _, err := r.ReadUE(); err != nil {
			return
		}
	}

	timingPresent, err := r.ReadFlag()
	if err != nil {
		return
	}
	if timingPresent {
		if _, err := r.ReadBits(32); err != nil {
			return
		}
		if _, err := r.ReadBits(32); err != nil {
			return
		}
		if _, err := r.ReadBit(); err != nil {
			return
		}
	}

	nalHRD, err := r.ReadFlag()
	if err != nil {
		return
	}
	if nalHRD {
		if err := skipHRD(r); err != nil {
			return
		}
	}
	vclHRD, err := r.ReadFlag()
	if err != nil {
		return
	}
	if vclHRD {
		if err := skipHRD(r); err != nil {
			return
		}
	}
	if nalHRD || vclHRD {
		if _, err := r.ReadBit(); err != nil {
			return
		}
	}

	if _, err := r.ReadBit(); err != nil { // pic_struct_present_flag
		return
	}

	bitstreamRestriction, err := r.ReadFlag()
	if err != nil {
		return
	}
	if !bitstreamRestriction {
		return
	}
	info.BitstreamRestriction = true

	if _, err := r.ReadBit(); err != nil { // motion_vectors_over_pic_boundaries_flag
		return
	}
	if _, err := r.ReadUE(); err != nil { // max_bytes_per_pic_denom
		return
	}
	if _, err := r.ReadUE(); err != nil { // max_bits_per_mb_denom
		return
	}
	if _, err := r.ReadUE(); err != nil { // log2_max_mv_length_horizontal
		return
	}
	if _, err := r.ReadUE(); err != nil { // log2_max_mv_length_vertical
		return
	}
	maxNumReorderFrames, err := r.ReadUE()
	if err != nil {
		return
	}
	info.MaxNumReorderFramesVUI = maxNumReorderFrames
	// max_dec_frame_buffering follows; not needed by this parser.
}

func skipHRD(r *bits.Reader) error {
	cpbCntMinus1, err := r.ReadUE()
	if err != nil {
		return err
	}
	if _, err := r.ReadBits(8); err != nil { // bit_rate_scale(4) + cpb_size_scale(4)
		return err
	}
	for i := uint(0); i <= cpbCntMinus1; i++ {
		if _, err := r.ReadUE(); err != nil {
			return err
		}
		if _, err := r.ReadUE(); err != nil {
			return err
		}
		if _, err := r.ReadBit(); err != nil {
			return err
		}
	}
	if _, err := r.ReadBits(5); err != nil { // initial_cpb_removal_delay_length_minus1
		return err
	}
	if _, err := r.ReadBits(5); err != nil { // cpb_removal_delay_length_minus1
		return err
	}
	if _, err := r.ReadBits(5); err != nil { // dpb_output_delay_length_minus1
		return err
	}
	if _, err := r.ReadBits(5); err != nil { // time_offset_length
		return err
	}
	return nil
}

// resolveReorderFrames applies the spec's priority rules once profile,
// VUI, and ref-frame fields have been parsed.
func resolveReorderFrames(info SPSInfo) int {
	if info.BitstreamRestriction {
		return int(info.MaxNumReorderFramesVUI)
	}
	if info.ProfileIDC == 66 {
		return 0
	}
	switch {
	case info.MaxNumRefFrames <= 1:
		return 1
	case info.MaxNumRefFrames == 2:
		return 2
	default:
		return 4
	}
}
