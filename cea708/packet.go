// Package cea708 implements the CEA-708 (DTVCC) closed-caption decoder:
// channel-packet reassembly, up to 63 independent service decoders, and the
// window/pen model each service uses to build its on-screen text.
package cea708

// assembler reconstructs one DTVCC channel packet from a cc_type==2 start
// triplet followed by zero or more cc_type==3 continuation triplets.
type assembler struct {
	want   int
	buf    []byte
	active bool
}

// start begins a new packet from a channel-packet-start triplet. header is
// the triplet's first data byte: [sequence(2 bits) | size_code(6 bits)].
// The packet's total payload length is size_code*2 bytes, the first of
// which is the triplet's second data byte.
func (a *assembler) start(header, firstByte byte) {
	sizeCode := header & 0x3F
	a.want = int(sizeCode) * 2
	a.buf = a.buf[:0]
	if a.want > 0 {
		a.buf = append(a.buf, firstByte)
	}
	a.active = len(a.buf) < a.want
}

// cont feeds one continuation triplet's two data bytes.
func (a *assembler) cont(b1, b2 byte) {
	if !a.active {
		return
	}
	a.buf = append(a.buf, b1, b2)
	if len(a.buf) >= a.want {
		a.active = false
	}
}

// packet returns the assembled payload once complete, or nil if the packet
// is still awaiting continuation bytes or was never started.
func (a *assembler) packet() []byte {
	if a.want == 0 || a.active || len(a.buf) < a.want {
		return nil
	}
	return a.buf[:a.want]
}

// ServiceBlock is one {service_number, payload} unit inside a channel
// packet.
type ServiceBlock struct {
	ServiceNumber int
	Payload       []byte
}

// parseServiceBlocks splits an assembled channel packet's payload into its
// service blocks. A null block (service number and size both zero) marks
// the end of meaningful data and stops the scan.
func parseServiceBlocks(payload []byte) []ServiceBlock {
	var blocks []ServiceBlock
	i := 0
	for i < len(payload) {
		header := payload[i]
		svcNum := int(header>>5) & 0x07
		blockSize := int(header & 0x1F)
		i++
		if svcNum == 0 && blockSize == 0 {
			break
		}
		if svcNum == 7 {
			if i >= len(payload) {
				break
			}
			svcNum = int(payload[i] & 0x3F)
			i++
		}
		if blockSize > len(payload)-i {
			blockSize = len(payload) - i
		}
		if blockSize < 0 {
			break
		}
		blocks = append(blocks, ServiceBlock{ServiceNumber: svcNum, Payload: payload[i : i+blockSize]})
		i += blockSize
	}
	return blocks
}
