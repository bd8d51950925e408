package hci

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeSplit(t *testing.T) {
	cases := []struct {
		op  Opcode
		ogf uint8
		ocf uint16
	}{
		{op: opDisconnect, ogf: LinkCtl, ocf: 0x0006},
		{op: opReadRSSI, ogf: StatusParam, ocf: 0x0005},
		{op: opLEConnUpdate, ogf: LECtl, ocf: 0x0013},
		{op: opLESetExtAdvParams, ogf: LECtl, ocf: 0x0036},
		{op: opLESetExtAdvEnable, ogf: LECtl, ocf: 0x0039},
	}
	for _, tt := range cases {
		if tt.op.OGF() != tt.ogf || tt.op.OCF() != tt.ocf {
			t.Errorf("%v: got %02x|%04x want %02x|%04x", tt.op, tt.op.OGF(), tt.op.OCF(), tt.ogf, tt.ocf)
		}
	}
}

func TestDisconnectMarshal(t *testing.T) {
	b := Disconnect{Handle: 0x0040, Reason: DisconnectReasonRemoteUserTerminatedConn}.Marshal()
	assert.Equal(t, []byte{0x40, 0x00, 0x13}, b)
}

func TestReadRSSIMarshal(t *testing.T) {
	b := ReadRSSI{Handle: 0x0002}.Marshal()
	assert.Equal(t, []byte{0x02, 0x00}, b)
}

func TestReadRSSIReturn(t *testing.T) {
	var r ReadRSSIReturn
	require.NoError(t, r.Unmarshal([]byte{0x00, 0x40, 0x00, 0xC4}))
	assert.Equal(t, uint8(0), r.Status)
	assert.Equal(t, ConnHandle(0x0040), r.Handle)
	assert.Equal(t, int8(-60), r.RSSI)

	assert.Error(t, r.Unmarshal([]byte{0x00, 0x40}))
}

func TestLEConnUpdateMarshal(t *testing.T) {
	b := LEConnUpdate{
		Handle:             0x0040,
		ConnIntervalMin:    64,
		ConnIntervalMax:    64,
		ConnLatency:        0,
		SupervisionTimeout: 800,
	}.Marshal()
	want := []byte{
		0x40, 0x00,
		0x40, 0x00,
		0x40, 0x00,
		0x00, 0x00,
		0x20, 0x03,
		0x00, 0x00,
		0x00, 0x00,
	}
	assert.Equal(t, want, b)
}

func TestLESetExtAdvParamsMarshal(t *testing.T) {
	props := AdvEventProps(0).SetConnectableAdv(true).SetScannableAdv(true).SetLegacyAdv(true)
	b := LESetExtAdvParams{
		Handle:       1,
		Props:        props,
		IntervalMin:  400,
		IntervalMax:  400,
		ChannelMap:   AdvChannelsAll,
		OwnAddrKind:  AddrKindRandom,
		PeerAddrKind: AddrKindPublic,
		FilterPolicy: AdvFilterAllowAll,
		TxPower:      -4,
		PrimaryPhy:   PhyLe1M,
		SecondaryPhy: PhyLe1M,
		SID:          1,
	}.Marshal()

	require.Len(t, b, 25)
	assert.Equal(t, byte(1), b[0])
	assert.Equal(t, []byte{0x13, 0x00}, b[1:3]) // connectable|scannable|legacy
	assert.Equal(t, []byte{0x90, 0x01, 0x00}, b[3:6])
	assert.Equal(t, []byte{0x90, 0x01, 0x00}, b[6:9])
	assert.Equal(t, byte(0x07), b[9])
	assert.Equal(t, byte(0x01), b[10])
	assert.Equal(t, byte(0xFC), b[19]) // -4 dBm
	assert.Equal(t, byte(0x01), b[20])
}

func TestLESetExtAdvDataMarshal(t *testing.T) {
	b := LESetExtAdvData{Handle: 2, Op: AdvDataOpComplete, Data: []byte{0x02, 0x01, 0x06}}.Marshal()
	assert.Equal(t, []byte{0x02, 0x03, 0x01, 0x03, 0x02, 0x01, 0x06}, b)
}

func TestLESetExtAdvEnableMarshal(t *testing.T) {
	b := LESetExtAdvEnable{
		Enable: true,
		Sets:   []AdvSet{{Handle: 1, Duration: 500, MaxExtAdvEvents: 3}},
	}.Marshal()
	assert.Equal(t, []byte{0x01, 0x01, 0x01, 0xF4, 0x01, 0x03}, b)
}

func TestUnits(t *testing.T) {
	assert.Equal(t, uint32(400), Units625Micros(250*time.Millisecond))
	assert.Equal(t, uint16(64), Units1250Micros(80*time.Millisecond))
	assert.Equal(t, uint16(800), Units10Millis(8*time.Second))
}

func TestAdvEventProps(t *testing.T) {
	p := AdvEventProps(0).SetConnectableAdv(true).SetAnonymousAdv(true)
	assert.True(t, p.ConnectableAdv())
	assert.True(t, p.AnonymousAdv())
	assert.False(t, p.ScannableAdv())

	p = p.SetAnonymousAdv(false)
	assert.False(t, p.AnonymousAdv())
}

func TestBdAddrString(t *testing.T) {
	a := BdAddr{0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	assert.Equal(t, "01:02:03:04:05:06", a.String())
}
