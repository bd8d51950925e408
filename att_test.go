package trouble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReadReq(t *testing.T) {
	req, err := DecodeAttReq([]byte{0x0A, 0x2A, 0x00})
	require.NoError(t, err)
	assert.Equal(t, ReadReq{Handle: 0x002A}, req)
}

func TestDecodeReadByGroupType16(t *testing.T) {
	req, err := DecodeAttReq([]byte{0x10, 0x01, 0x00, 0xFF, 0xFF, 0x00, 0x28})
	require.NoError(t, err)
	r, ok := req.(ReadByGroupTypeReq)
	require.True(t, ok)
	assert.Equal(t, uint16(1), r.Start)
	assert.Equal(t, uint16(0xFFFF), r.End)
	assert.True(t, r.GroupType.Equal(UUID16(0x2800)))
}

func TestDecodeReadByType128(t *testing.T) {
	packet := []byte{0x08, 0x05, 0x00, 0x10, 0x00}
	uuid := MustParseUUID("ABABABABABABABABABABABABABABABAB")
	packet = append(packet, uuid.Bytes()...)
	req, err := DecodeAttReq(packet)
	require.NoError(t, err)
	r, ok := req.(ReadByTypeReq)
	require.True(t, ok)
	assert.Equal(t, uint16(5), r.Start)
	assert.Equal(t, uint16(16), r.End)
	assert.True(t, r.AttributeType.Equal(uuid))
}

func TestDecodeFixtures(t *testing.T) {
	cases := []struct {
		name   string
		packet []byte
		want   AttReq
	}{
		{
			name:   "exchange mtu",
			packet: []byte{0x02, 0xF7, 0x00},
			want:   ExchangeMtuReq{Mtu: 247},
		},
		{
			name:   "find information",
			packet: []byte{0x04, 0x01, 0x00, 0xFF, 0xFF},
			want:   FindInformationReq{StartHandle: 1, EndHandle: 0xFFFF},
		},
		{
			name:   "find by type value",
			packet: []byte{0x06, 0x01, 0x00, 0xFF, 0xFF, 0x00, 0x28, 0x0F, 0x18},
			want: FindByTypeValueReq{
				StartHandle: 1, EndHandle: 0xFFFF, AttType: 0x2800, AttValue: 0x180F,
			},
		},
		{
			name:   "read blob",
			packet: []byte{0x0C, 0x03, 0x00, 0x16, 0x00},
			want:   ReadBlobReq{Handle: 3, Offset: 22},
		},
		{
			name:   "write request",
			packet: []byte{0x12, 0x03, 0x00, 0xAA, 0xBB},
			want:   WriteReq{Handle: 3, Data: []byte{0xAA, 0xBB}},
		},
		{
			name:   "write command",
			packet: []byte{0x52, 0x04, 0x00, 0x01},
			want:   WriteCmd{Handle: 4, Data: []byte{0x01}},
		},
		{
			name:   "prepare write",
			packet: []byte{0x16, 0x03, 0x00, 0x12, 0x00, 0xCC},
			want:   PrepareWriteReq{Handle: 3, Offset: 18, Value: []byte{0xCC}},
		},
		{
			name:   "execute write",
			packet: []byte{0x18, 0x01},
			want:   ExecuteWriteReq{Flags: 1},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeAttReq(tt.packet)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	cases := [][]byte{
		{},
		{0x0A},             // read with no handle
		{0x0A, 0x2A},       // read with half a handle
		{0x0C, 0x03, 0x00}, // read blob with no offset
		{0x02},
		{0x12, 0x03},
		{0x10, 0x01, 0x00, 0xFF, 0xFF, 0x28}, // uuid of neither 2 nor 16 bytes
		{0x04, 0x01, 0x00},
		{0x06, 0x01, 0x00, 0xFF, 0xFF, 0x00, 0x28},
		{0x16, 0x03, 0x00},
		{0x18},
	}
	for _, packet := range cases {
		_, err := DecodeAttReq(packet)
		assert.ErrorIs(t, err, ErrUnexpectedPayload, "packet %x", packet)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := DecodeAttReq([]byte{0x1B, 0x00, 0x00})
	var unknown *UnknownOpcodeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, byte(0x1B), unknown.Opcode)
}

func TestAttErrorResp(t *testing.T) {
	rsp := make([]byte, 5)
	n := attErrorResp(rsp, attOpReadReq, 0x002A, AttErrInvalidHandle)
	require.Equal(t, 5, n)
	assert.Equal(t, []byte{0x01, 0x0A, 0x2A, 0x00, 0x01}, rsp)
}
