package bits

import "testing"

func TestReaderSingleBits(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xA5}) // 10100101
	expected := []uint{1, 0, 1, 0, 0, 1, 0, 1}
	for i, want := range expected {
		got, err := r.ReadBit()
		if err != nil {
			t.Fatalf("bit %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("bit %d: got %d, want %d", i, got, want)
		}
	}
	if _, err := r.ReadBit(); err != ErrTruncated {
		t.Errorf("expected ErrTruncated past end, got %v", err)
	}
}

func TestReaderReadBits(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xAB, 0xCD})
	got, err := r.ReadBits(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xABC {
		t.Errorf("ReadBits(12): got 0x%X, want 0xABC", got)
	}
	got, err = r.ReadBits(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xD {
		t.Errorf("ReadBits(4): got 0x%X, want 0xD", got)
	}
}

func TestReaderReadFlag(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x80})
	got, err := r.ReadFlag()
	if err != nil || !got {
		t.Fatalf("ReadFlag: got %v, err %v, want true", got, err)
	}
	got, err = r.ReadFlag()
	if err != nil || got {
		t.Fatalf("ReadFlag: got %v, err %v, want false", got, err)
	}
}

func TestReaderReadUE(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		bits []byte
		want uint
	}{
		{"zero", []byte{0x80}, 0},         // "1"
		{"one", []byte{0x40}, 1},          // "010"
		{"two", []byte{0x60}, 2},          // "011"
		{"three", []byte{0x20}, 3},        // "00100"
		{"six", []byte{0x38}, 6},          // "00111"
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewReader(tt.bits)
			got, err := r.ReadUE()
			if err != nil {
				t.Fatalf("ReadUE: unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadUE: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderReadSE(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		bits []byte
		want int
	}{
		{"zero", []byte{0x80}, 0},   // ue=0
		{"plus1", []byte{0x40}, 1},  // ue=1 -> +1
		{"minus1", []byte{0x60}, -1}, // ue=2 -> -1
		{"plus2", []byte{0x20}, 2},  // ue=3 -> +2
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewReader(tt.bits)
			got, err := r.ReadSE()
			if err != nil {
				t.Fatalf("ReadSE: unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadSE: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderReadUETruncated(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x00, 0x00, 0x00, 0x00})
	if _, err := r.ReadUE(); err != ErrTruncated {
		t.Errorf("expected ErrTruncated for runaway zero prefix, got %v", err)
	}
}

func TestReaderBitsLeft(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xFF, 0xFF})
	if r.BitsLeft() != 16 {
		t.Fatalf("BitsLeft: got %d, want 16", r.BitsLeft())
	}
	if _, err := r.ReadBits(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BitsLeft() != 11 {
		t.Errorf("BitsLeft after reading 5: got %d, want 11", r.BitsLeft())
	}
}

func TestRemoveEmulationPrevention(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			name: "no EPB",
			in:   []byte{0x01, 0x02, 0x03},
			want: []byte{0x01, 0x02, 0x03},
		},
		{
			name: "single EPB stripped",
			in:   []byte{0x00, 0x00, 0x03, 0x01},
			want: []byte{0x00, 0x00, 0x01},
		},
		{
			name: "EPB not stripped when following byte exceeds 0x03",
			in:   []byte{0x00, 0x00, 0x03, 0x04},
			want: []byte{0x00, 0x00, 0x03, 0x04},
		},
		{
			name: "EPB at end of buffer stripped",
			in:   []byte{0x00, 0x00, 0x03},
			want: []byte{0x00, 0x00},
		},
		{
			name: "consecutive EPBs stripped",
			in:   []byte{0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x01},
			want: []byte{0x00, 0x00, 0x00, 0x00, 0x01},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RemoveEmulationPrevention(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("byte %d: got 0x%02x, want 0x%02x", i, got[i], tt.want[i])
				}
			}
		})
	}
}
