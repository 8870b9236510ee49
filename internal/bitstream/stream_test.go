package bitstream

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// expand turns packed bytes into one byte per bit, using varied nonzero
// values for set bits.
func expand(packed []byte) []byte {
	out := make([]byte, 0, len(packed)*8)
	for i, b := range packed {
		for bit := 7; bit >= 0; bit-- {
			if b>>bit&1 == 1 {
				out = append(out, byte(1+(i+bit)%255))
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

func randomBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Intn(256))
	}
	return b
}

func TestPackedReadBit(t *testing.T) {
	s := NewPacked("t", bytes.NewReader([]byte{0xA5, 0x0F}), 2, false)

	bits, err := s.ReadBit(12)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := []bool{true, false, true, false, false, true, false, true, false, false, false, false}
	for i := range want {
		if bits[i] != want[i] {
			t.Errorf("bit %d: expected %v, got %v", i, want[i], bits[i])
		}
	}
	if s.TellBit() != 12 {
		t.Errorf("expected cursor 12, got %d", s.TellBit())
	}
}

func TestPackedCrossesByteBoundary(t *testing.T) {
	s := NewPacked("t", bytes.NewReader([]byte{0x01, 0x80}), 2, false)
	s.SeekBit(7)

	bits, err := s.ReadBit(2)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bits[0] || !bits[1] {
		t.Errorf("expected both boundary bits set, got %v", bits)
	}
}

func TestExpandedNonzeroIsSet(t *testing.T) {
	s := NewExpanded("t", bytes.NewReader([]byte{0x00, 0x01, 0x80, 0xFF, 0x00}), 5, false)

	bits, err := s.ReadBit(5)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := []bool{false, true, true, true, false}
	for i := range want {
		if bits[i] != want[i] {
			t.Errorf("bit %d: expected %v, got %v", i, want[i], bits[i])
		}
	}
	if s.SizeBit() != 5 {
		t.Errorf("expected size 5, got %d", s.SizeBit())
	}
}

func TestEncodingsAgree(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	packed := randomBytes(r, 64)
	expanded := expand(packed)

	p := NewPacked("p", bytes.NewReader(packed), int64(len(packed)), false)
	e := NewExpanded("e", bytes.NewReader(expanded), int64(len(expanded)), false)

	if p.SizeBit() != e.SizeBit() {
		t.Fatalf("size mismatch: %d vs %d", p.SizeBit(), e.SizeBit())
	}

	for i := 0; i < 200; i++ {
		pos := r.Int63n(p.SizeBit())
		n := 1 + r.Intn(int(p.SizeBit()-pos))
		p.SeekBit(pos)
		e.SeekBit(pos)
		pb, err := p.ReadBit(n)
		if err != nil {
			t.Fatalf("packed read failed: %v", err)
		}
		eb, err := e.ReadBit(n)
		if err != nil {
			t.Fatalf("expanded read failed: %v", err)
		}
		for j := range pb {
			if pb[j] != eb[j] {
				t.Fatalf("pos %d len %d: bit %d differs", pos, n, j)
			}
		}
	}
}

func TestReadIsTiled(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	data := randomBytes(r, 16)
	s := NewPacked("t", bytes.NewReader(data), int64(len(data)), false)

	s.SeekBit(5)
	whole, _ := s.ReadBit(40)

	s.SeekBit(5)
	var pieces []bool
	for _, n := range []int{3, 1, 13, 8, 15} {
		b, _ := s.ReadBit(n)
		pieces = append(pieces, b...)
	}
	for i := range whole {
		if whole[i] != pieces[i] {
			t.Fatalf("bit %d differs between whole and tiled reads", i)
		}
	}
}

func TestSeekTell(t *testing.T) {
	data := make([]byte, 32)
	streams := []Stream{
		NewPacked("p", bytes.NewReader(data), int64(len(data)), false),
		NewExpanded("e", bytes.NewReader(data), int64(len(data)), false),
	}
	for _, s := range streams {
		for pos := int64(0); pos <= s.SizeBit(); pos++ {
			s.SeekBit(pos)
			if s.TellBit() != pos {
				t.Errorf("%s: expected %d, got %d", s.Name(), pos, s.TellBit())
			}
		}
	}
}

func TestInvertIsComplement(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	data := randomBytes(r, 24)

	tests := []struct {
		name  string
		plain Stream
		inv   Stream
	}{
		{"packed", NewPacked("a", bytes.NewReader(data), 24, false), NewPacked("b", bytes.NewReader(data), 24, true)},
		{"expanded", NewExpanded("a", bytes.NewReader(data), 24, false), NewExpanded("b", bytes.NewReader(data), 24, true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := int(tt.plain.SizeBit())
			a, _ := tt.plain.ReadBit(n)
			b, _ := tt.inv.ReadBit(n)
			for i := range a {
				if a[i] == b[i] {
					t.Fatalf("bit %d not inverted", i)
				}
			}
		})
	}
}

func TestReadPastEndIsClear(t *testing.T) {
	s := NewPacked("t", bytes.NewReader([]byte{0xFF}), 1, true)
	s.SeekBit(4)

	bits, err := s.ReadBit(8)
	if err != nil {
		t.Fatalf("read past end should not fail: %v", err)
	}
	if len(bits) != 8 {
		t.Fatalf("expected 8 bits, got %d", len(bits))
	}
	for i, b := range bits {
		if b {
			t.Errorf("bit %d: expected clear", i)
		}
	}
	if s.TellBit() != 12 {
		t.Errorf("expected cursor 12, got %d", s.TellBit())
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, []byte{0xF0, 0x0F}, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, EncodingPacked, false)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer s.Close()

	if s.SizeBit() != 16 {
		t.Errorf("expected 16 bits, got %d", s.SizeBit())
	}
	if s.Name() != "capture.bin" {
		t.Errorf("expected name capture.bin, got %s", s.Name())
	}

	e, err := Open(path, EncodingExpanded, false)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer e.Close()
	if e.SizeBit() != 2 {
		t.Errorf("expected 2 bits, got %d", e.SizeBit())
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), EncodingPacked, false)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in   string
		want Encoding
	}{
		{"packed", EncodingPacked},
		{"bit", EncodingPacked},
		{"", EncodingPacked},
		{"Expanded", EncodingExpanded},
		{"byte", EncodingExpanded},
	}
	for _, tt := range tests {
		got, err := ParseEncoding(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}

	if _, err := ParseEncoding("nibble"); !errors.Is(err, ErrEncoding) {
		t.Errorf("expected ErrEncoding, got %v", err)
	}
}
