package cea608

import "math/bits"

// parityTable[b] is true when b carries valid odd parity across all 8 bits,
// the encoding ATSC A/53 requires for every EIA-608 data byte.
var parityTable = func() [256]bool {
	var t [256]bool
	for b := 0; b < 256; b++ {
		t[b] = bits.OnesCount8(uint8(b))%2 == 1
	}
	return t
}()

// validatePair checks one cc_data pair (after the marker byte has already
// been stripped) for parity and returns both bytes with the parity bit
// masked off. A bad second byte invalidates the whole pair; a bad first
// byte is sanitized to 0x7F so the pair can still be processed.
func validatePair(b1, b2 byte) (m1, m2 byte, ok bool) {
	if !parityTable[b2] {
		return 0, 0, false
	}
	m2 = b2 & 0x7F
	if !parityTable[b1] {
		return 0x7F, m2, true
	}
	return b1 & 0x7F, m2, true
}
