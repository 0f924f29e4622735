package cea708

// Decoder reassembles DTVCC channel packets from a stream of cc_type 2/3
// triplets and fans each completed packet's service blocks out to up to 63
// independent Service decoders.
//
// Per the channel-packet framing, cc_type==2 starts a new packet (its first
// data byte is the sequence/size header) and cc_type==3 supplies
// continuation bytes for the packet in progress.
type Decoder struct {
	timer    visibleTimer
	enabled  [64]bool
	asm      assembler
	services map[int]*Service
}

// NewDecoder returns a decoder that reassembles channel packets and decodes
// only the given service numbers (1-63). An empty serviceNumbers decodes
// service 1 only, the common single-service case.
func NewDecoder(timer visibleTimer, serviceNumbers ...int) *Decoder {
	d := &Decoder{timer: timer, services: make(map[int]*Service)}
	if len(serviceNumbers) == 0 {
		serviceNumbers = []int{1}
	}
	for _, n := range serviceNumbers {
		if n >= 1 && n <= 63 {
			d.enabled[n] = true
		}
	}
	return d
}

// ProcessTriplet consumes one demultiplexed cc_data triplet: cc_type in
// {2,3} and its two data bytes. Triplets with any other cc_type (608 field
// data) are not this decoder's concern and should not be passed in.
func (d *Decoder) ProcessTriplet(ccType byte, b1, b2 byte) {
	switch ccType {
	case 2:
		d.asm.start(b1, b2)
	case 3:
		d.asm.cont(b1, b2)
	default:
		return
	}
	pkt := d.asm.packet()
	if pkt == nil {
		return
	}
	d.asm.want = 0 // process each completed packet once; later continuations wait for a new start
	d.processPacket(pkt)
}

func (d *Decoder) processPacket(payload []byte) {
	for _, block := range parseServiceBlocks(payload) {
		if !d.enabled[block.ServiceNumber] || len(block.Payload) == 0 {
			continue
		}
		svc := d.services[block.ServiceNumber]
		if svc == nil {
			svc = newService(block.ServiceNumber, d.timer)
			d.services[block.ServiceNumber] = svc
		}
		processServiceData(svc, block.Payload)
	}
	for _, svc := range d.services {
		svc.emitIfNonEmpty()
	}
}

// DrainCompleted returns and clears every screen completed since the last
// call, across all enabled services.
func (d *Decoder) DrainCompleted() []*TVScreen {
	var out []*TVScreen
	for _, svc := range d.services {
		out = append(out, svc.drainCompleted()...)
	}
	return out
}

// Flush finalizes any in-progress, non-empty screens as if their packet had
// just completed.
func (d *Decoder) Flush() {
	for _, svc := range d.services {
		svc.emitIfNonEmpty()
	}
}

// processServiceData walks one service block's code stream, dispatching C0
// control codes, G0/G1 identity characters, C1 window/pen commands, and the
// EXT1-prefixed G2/G3 extended character sets.
func processServiceData(svc *Service, data []byte) {
	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b == 0x10: // EXT1: next byte selects an extended code set
			i++
			if i >= len(data) {
				return
			}
			ext := data[i]
			i++
			if ch, ok := extendedChar(ext); ok {
				svc.writeChar(ch)
			}
		case b <= 0x1F: // C0
			i++
			handleC0(svc, b)
		case b <= 0x7F: // G0, identity with ASCII
			svc.writeChar(rune(b))
			i++
		case b <= 0x9F: // C1
			n := handleC1(svc, b, data[i+1:])
			i += 1 + n
		default: // G1, identity with Latin-1
			svc.writeChar(rune(b))
			i++
		}
	}
}

func handleC0(svc *Service, b byte) {
	switch b {
	case 0x0D: // CR
		svc.carriageReturn()
	case 0x0C: // FF, clears the service's whole screen, not just the active window
		svc.screen.clear()
	}
}

// handleC1 executes one C1 window/pen command and returns how many extra
// bytes past the opcode it consumed.
func handleC1(svc *Service, op byte, rest []byte) int {
	switch {
	case op >= 0x80 && op <= 0x87: // set current window
		svc.currentWindow = int(op - 0x80)
		return 0
	case op == 0x8D: // delay, tenths of a second; timing not modeled
		return min(1, len(rest))
	case op == 0x8E: // delay cancel
		return 0
	case op == 0x88, op == 0x89, op == 0x8A: // hide/display/toggle windows
		if len(rest) < 1 {
			return len(rest)
		}
		svc.toggleVisibility(op, rest[0])
		return 1
	case op == 0x8C: // delete windows
		if len(rest) < 1 {
			return len(rest)
		}
		svc.deleteWindows(rest[0])
		return 1
	case op == 0x8F: // reset
		svc.reset()
		return 0
	case op >= 0x98 && op <= 0x9F: // define window
		if len(rest) < 6 {
			return len(rest)
		}
		svc.defineWindow(int(op-0x98), rest[:6])
		return 6
	case op == 0x97: // set window attributes
		if len(rest) < 4 {
			return len(rest)
		}
		svc.setWindowAttributes(rest[:4])
		return 4
	case op == 0x90: // set pen attributes
		if len(rest) < 2 {
			return len(rest)
		}
		svc.setPenAttributes(rest[:2])
		return 2
	case op == 0x91: // set pen color
		if len(rest) < 3 {
			return len(rest)
		}
		svc.setPenColor(rest[:3])
		return 3
	case op == 0x92: // set pen location
		if len(rest) < 2 {
			return len(rest)
		}
		svc.setPenLocation(rest[:2])
		return 2
	default:
		return 0
	}
}

// extendedChar maps a G2/G3 code point (reached via the EXT1 prefix) to its
// Unicode equivalent. G2 (0x20-0x3F, 0x60-0x7F) covers miscellaneous
// symbols; G3 only defines 0xA0, the "CC" sign.
func extendedChar(b byte) (rune, bool) {
	switch {
	case b >= 0x20 && b <= 0x3F:
		return g2Table[b-0x20], true
	case b >= 0x60 && b <= 0x7F:
		return g2Table[b-0x60], true
	case b == 0xA0:
		return '𝄜', true // stand-in glyph for the DTVCC "CC" sign
	default:
		return ' ', true
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// g2Table covers the 0x20-0x3F / 0x60-0x7F G2 code points combined into one
// 32-entry table indexed from 0.
var g2Table = [32]rune{
	' ', ' ', '¡', '¢', '£', '™', '¥', '§',
	'¤', '‘', '’', '“', '”', '•', '—', '©',
	'℠', '·', '‚', '„', '…', '‰', '°', '¼',
	'½', '¾', '÷', '█', '»', '«', '—', '—',
}
