package trouble

import (
	"bytes"
	"testing"
)

func TestUUID16(t *testing.T) {
	got := UUID16(0x1800)
	if want := []byte{0x00, 0x18}; !bytes.Equal(got.Bytes(), want) {
		t.Errorf("UUID16: got %x, want %x", got.Bytes(), want)
	}
	if got.Len() != 2 {
		t.Errorf("Len: got %d want 2", got.Len())
	}
	if got.EncodedLen() != 6 {
		t.Errorf("EncodedLen: got %d want 6", got.EncodedLen())
	}
}

func TestUUID128(t *testing.T) {
	u := MustParseUUID("ABABABABABABABABABABABABABABABAB")
	if u.Len() != 16 {
		t.Fatalf("Len: got %d want 16", u.Len())
	}
	if u.EncodedLen() != 20 {
		t.Errorf("EncodedLen: got %d want 20", u.EncodedLen())
	}
}

func TestParseUUIDShort(t *testing.T) {
	u, err := ParseUUID("180f")
	if err != nil {
		t.Fatal(err)
	}
	if !u.Equal(UUID16(0x180F)) {
		t.Errorf("ParseUUID(180f): got %s", u)
	}
}

func TestParseUUIDCanonical(t *testing.T) {
	u, err := ParseUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	if err != nil {
		t.Fatal(err)
	}
	// Wire order is little-endian: the last display byte first.
	if got := u.Bytes()[0]; got != 0x9e {
		t.Errorf("first wire byte: got %x want 9e", got)
	}
	if got := u.Bytes()[15]; got != 0x6e {
		t.Errorf("last wire byte: got %x want 6e", got)
	}
	if got := u.String(); got != "6e400001b5a3f393e0a9e50e24dcca9e" {
		t.Errorf("String: got %s", got)
	}
}

func TestUUIDEqual(t *testing.T) {
	if UUID16(0x2800).Equal(UUID16(0x2801)) {
		t.Error("0x2800 should not equal 0x2801")
	}
	if UUID16(0x2800).Equal(MustParseUUID("ABABABABABABABABABABABABABABABAB")) {
		t.Error("short should not equal long")
	}
	if !UUID16(0x2800).Equal(UUID16(0x2800)) {
		t.Error("0x2800 should equal itself")
	}
}

func TestReverse(t *testing.T) {
	cases := []struct {
		fwd  []byte
		back []byte
	}{
		{fwd: []byte{0, 1}, back: []byte{1, 0}},
		{fwd: []byte{0, 1, 2}, back: []byte{2, 1, 0}},
		{fwd: []byte{0, 1, 2, 3}, back: []byte{3, 2, 1, 0}},
		{
			fwd:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			back: []byte{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
		},
	}

	for _, tt := range cases {
		got := reverse(tt.fwd)
		if !bytes.Equal(got, tt.back) {
			t.Errorf("reverse(%x): got %x want %x", tt.fwd, got, tt.back)
		}
	}
}
