package cea608

// baseCharMap translates the basic EIA-608 character code (0x20..0x7F) to
// its display rune. Most codes are identity ASCII; a handful of positions
// carry accented Latin-1 characters instead, and 0x7F carries the musical
// note used as a "can't render this" placeholder.
var baseCharMap = func() [0x60]rune {
	var m [0x60]rune
	for i := range m {
		m[i] = rune(0x20 + i)
	}
	m[0x27-0x20] = '’' // right single quote
	m[0x2A-0x20] = 'á'
	m[0x5C-0x20] = 'é'
	m[0x5E-0x20] = 'í'
	m[0x5F-0x20] = 'ó'
	m[0x60-0x20] = 'ú'
	m[0x7B-0x20] = 'ç'
	m[0x7C-0x20] = '÷'
	m[0x7D-0x20] = 'Ñ'
	m[0x7E-0x20] = 'ñ'
	m[0x7F-0x20] = '♪' // musical note
	return m
}()

// mapChar converts one basic-range byte (0x20..0x7F) to its display rune.
func mapChar(b byte) rune {
	if b < 0x20 || b > 0x7F {
		return ' '
	}
	return baseCharMap[b-0x20]
}

// specialCharMap covers the 0x11/0x19 "special characters" group, selected
// by a second byte in 0x30..0x3F. These are appended to the screen like any
// other character rather than replacing the previous one.
var specialCharMap = map[byte]rune{
	0x30: '®', // registered sign
	0x31: '°', // degree sign
	0x32: '½', // one half
	0x33: '¿', // inverted question mark
	0x34: '™', // trademark
	0x35: '¢', // cent sign
	0x36: '£', // pound sign
	0x37: '♪', // musical note
	0x38: 'à', // a grave
	0x39: ' ', // transparent space (non-break)
	0x3A: 'è', // e grave
	0x3B: 'â', // a circumflex
	0x3C: 'ê', // e circumflex
	0x3D: 'î', // i circumflex
	0x3E: 'ô', // o circumflex
	0x3F: 'û', // u circumflex
}

// extendedCharMapWestern covers the 0x12/0x1A group (Spanish/French/misc
// extended characters), selected by a second byte in 0x20..0x3F. Per the
// standard, extended characters replace the character just written.
var extendedCharMapWestern = map[byte]rune{
	0x20: 'Á', 0x21: 'É', 0x22: 'Ó', 0x23: 'Ú',
	0x24: 'Ü', 0x25: 'ü', 0x26: '´', 0x27: '¡',
	0x28: '*', 0x29: '‘', 0x2A: '-', 0x2B: '©',
	0x2C: '℠', 0x2D: '•', 0x2E: '“', 0x2F: '”',
	0x30: 'À', 0x31: 'Â', 0x32: 'Ç', 0x33: 'È',
	0x34: 'Ê', 0x35: 'Ë', 0x36: 'ë', 0x37: 'Î',
	0x38: 'Ï', 0x39: 'ï', 0x3A: 'Ô', 0x3B: 'Ù',
	0x3C: 'ù', 0x3D: 'Û', 0x3E: '«', 0x3F: '»',
}

// extendedCharMapPortugueseGerman covers the 0x13/0x1B group, same second
// byte range and replace-last-char behavior as extendedCharMapWestern.
var extendedCharMapPortugueseGerman = map[byte]rune{
	0x20: 'Ã', 0x21: 'ã', 0x22: 'Í', 0x23: 'Ì',
	0x24: 'ì', 0x25: 'Ò', 0x26: 'ò', 0x27: 'Õ',
	0x28: 'õ', 0x29: '{', 0x2A: '}', 0x2B: '\\',
	0x2C: '^', 0x2D: '_', 0x2E: '¦', 0x2F: '~',
	0x30: 'Ä', 0x31: 'ä', 0x32: 'Ö', 0x33: 'ö',
	0x34: 'ß', 0x35: '¥', 0x36: '¤', 0x37: '│',
	0x38: 'Å', 0x39: 'å', 0x3A: 'Ø', 0x3B: 'ø',
	0x3C: '┌', 0x3D: '┐', 0x3E: '└', 0x3F: '┘',
}
