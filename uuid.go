package trouble

import (
	"encoding/hex"
	"fmt"

	satori "github.com/satori/go.uuid"

	"github.com/lulf/trouble/codec"
)

// A UUID is a BLE UUID, either 16 or 128 bits wide. The bytes are
// kept in little-endian wire order; the short and long forms are
// never narrowed into one another.
type UUID struct {
	b []byte
}

// UUID16 returns a 16-bit UUID.
func UUID16(i uint16) UUID {
	return UUID{b: []byte{byte(i), byte(i >> 8)}}
}

// UUID128 returns a 128-bit UUID from little-endian wire bytes.
func UUID128(b [16]byte) UUID {
	u := make([]byte, 16)
	copy(u, b[:])
	return UUID{b: u}
}

// ParseUUID parses a UUID from its canonical string form: 4 hex
// digits for a 16-bit UUID, or a 128-bit UUID in any form accepted
// by RFC 4122 parsing (with or without dashes).
func ParseUUID(s string) (UUID, error) {
	if len(s) == 4 {
		b, err := hex.DecodeString(s)
		if err != nil {
			return UUID{}, err
		}
		return UUID16(uint16(b[0])<<8 | uint16(b[1])), nil
	}
	su, err := satori.FromString(s)
	if err != nil {
		return UUID{}, err
	}
	return UUID{b: reverse(su.Bytes())}, nil
}

// MustParseUUID parses a UUID and panics if s is invalid.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(fmt.Errorf("invalid uuid %q: %v", s, err))
	}
	return u
}

// Len returns the length of the UUID in bytes: 2 or 16.
func (u UUID) Len() int { return len(u.b) }

// EncodedLen is the size of one Read By Group Type response tuple
// carrying this UUID: start handle, end handle and the UUID value.
func (u UUID) EncodedLen() int { return u.Len() + 4 }

// Bytes returns the UUID in little-endian wire order. The caller
// must not modify the returned slice.
func (u UUID) Bytes() []byte { return u.b }

// Equal reports whether u and v are the same UUID.
func (u UUID) Equal(v UUID) bool {
	if len(u.b) != len(v.b) {
		return false
	}
	for i := range u.b {
		if u.b[i] != v.b[i] {
			return false
		}
	}
	return true
}

// String returns the UUID in display order, most significant
// byte first.
func (u UUID) String() string { return hex.EncodeToString(reverse(u.b)) }

func (u UUID) encode(w *codec.WriteCursor) error { return w.Append(u.b) }

// uuidFromBytes wraps little-endian wire bytes of length 2 or 16. The
// bytes are copied.
func uuidFromBytes(b []byte) (UUID, error) {
	switch len(b) {
	case 2, 16:
		u := make([]byte, len(b))
		copy(u, b)
		return UUID{b: u}, nil
	default:
		return UUID{}, codec.ErrInvalidValue
	}
}

// reverse returns a reversed copy of u.
func reverse(u []byte) []byte {
	l := len(u)
	b := make([]byte, l)
	for i := 0; i < l/2+1; i++ {
		b[i], b[l-i-1] = u[l-i-1], u[i]
	}
	return b
}
