package hci

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// A CmdParam is a marshalable HCI command parameter block.
type CmdParam interface {
	Opcode() Opcode
	Marshal() []byte
}

// Opcode group fields.
const (
	LinkCtl     = 0x01
	LinkPolicy  = 0x02
	HostCtl     = 0x03
	InfoParam   = 0x04
	StatusParam = 0x05
	LECtl       = 0x08
)

type Opcode uint16

func (op Opcode) OGF() uint8  { return uint8((uint16(op) & 0xFC00) >> 10) }
func (op Opcode) OCF() uint16 { return uint16(op) & 0x03FF }
func (op Opcode) String() string {
	if s, ok := opName[op]; ok {
		return s
	}
	return fmt.Sprintf("opcode 0x%04x", uint16(op))
}

const (
	opDisconnect            = Opcode(LinkCtl<<10 | 0x0006)
	opReadRSSI              = Opcode(StatusParam<<10 | 0x0005)
	opLEConnUpdate          = Opcode(LECtl<<10 | 0x0013)
	opLESetExtAdvParams     = Opcode(LECtl<<10 | 0x0036)
	opLESetExtAdvData       = Opcode(LECtl<<10 | 0x0037)
	opLESetExtScanRespData  = Opcode(LECtl<<10 | 0x0038)
	opLESetExtAdvEnable     = Opcode(LECtl<<10 | 0x0039)
)

var opName = map[Opcode]string{
	opDisconnect:           "Disconnect",
	opReadRSSI:             "Read RSSI",
	opLEConnUpdate:         "LE Connection Update",
	opLESetExtAdvParams:    "LE Set Extended Advertising Parameters",
	opLESetExtAdvData:      "LE Set Extended Advertising Data",
	opLESetExtScanRespData: "LE Set Extended Scan Response Data",
	opLESetExtAdvEnable:    "LE Set Extended Advertising Enable",
}

// Disconnect terminates a connection.
type Disconnect struct {
	Handle ConnHandle
	Reason DisconnectReason
}

func (c Disconnect) Opcode() Opcode { return opDisconnect }
func (c Disconnect) Marshal() []byte {
	b := make([]byte, 3)
	binary.LittleEndian.PutUint16(b, uint16(c.Handle))
	b[2] = byte(c.Reason)
	return b
}

// ReadRSSI requests the received signal strength for a connection.
type ReadRSSI struct {
	Handle ConnHandle
}

func (c ReadRSSI) Opcode() Opcode { return opReadRSSI }
func (c ReadRSSI) Marshal() []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(c.Handle))
	return b
}

// ReadRSSIReturn is the return parameter block of Read RSSI.
type ReadRSSIReturn struct {
	Status uint8
	Handle ConnHandle
	RSSI   int8 // dBm
}

func (r *ReadRSSIReturn) Unmarshal(b []byte) error {
	if len(b) < 4 {
		return errors.New("short read rssi return")
	}
	r.Status = b[0]
	r.Handle = ConnHandle(binary.LittleEndian.Uint16(b[1:]))
	r.RSSI = int8(b[3])
	return nil
}

// LEConnUpdate requests new connection parameters. Intervals are in
// 1.25 ms units, the supervision timeout and CE lengths in 10 ms and
// 0.625 ms units respectively.
type LEConnUpdate struct {
	Handle             ConnHandle
	ConnIntervalMin    uint16
	ConnIntervalMax    uint16
	ConnLatency        uint16
	SupervisionTimeout uint16
	MinCELength        uint16
	MaxCELength        uint16
}

func (c LEConnUpdate) Opcode() Opcode { return opLEConnUpdate }
func (c LEConnUpdate) Marshal() []byte {
	b := make([]byte, 14)
	binary.LittleEndian.PutUint16(b, uint16(c.Handle))
	binary.LittleEndian.PutUint16(b[2:], c.ConnIntervalMin)
	binary.LittleEndian.PutUint16(b[4:], c.ConnIntervalMax)
	binary.LittleEndian.PutUint16(b[6:], c.ConnLatency)
	binary.LittleEndian.PutUint16(b[8:], c.SupervisionTimeout)
	binary.LittleEndian.PutUint16(b[10:], c.MinCELength)
	binary.LittleEndian.PutUint16(b[12:], c.MaxCELength)
	return b
}

// LESetExtAdvParams configures one advertising set. Intervals are in
// 0.625 ms units and occupy 24 bits on the wire.
type LESetExtAdvParams struct {
	Handle           AdvHandle
	Props            AdvEventProps
	IntervalMin      uint32
	IntervalMax      uint32
	ChannelMap       AdvChannelMap
	OwnAddrKind      AddrKind
	PeerAddrKind     AddrKind
	PeerAddr         BdAddr
	FilterPolicy     AdvFilterPolicy
	TxPower          int8
	PrimaryPhy       PhyKind
	SecondaryMaxSkip uint8
	SecondaryPhy     PhyKind
	SID              uint8
	ScanReqNotify    bool
}

func (c LESetExtAdvParams) Opcode() Opcode { return opLESetExtAdvParams }
func (c LESetExtAdvParams) Marshal() []byte {
	b := make([]byte, 25)
	b[0] = byte(c.Handle)
	binary.LittleEndian.PutUint16(b[1:], uint16(c.Props))
	putUint24(b[3:], c.IntervalMin)
	putUint24(b[6:], c.IntervalMax)
	b[9] = byte(c.ChannelMap)
	b[10] = byte(c.OwnAddrKind)
	b[11] = byte(c.PeerAddrKind)
	copy(b[12:18], c.PeerAddr[:])
	b[18] = byte(c.FilterPolicy)
	b[19] = byte(c.TxPower)
	b[20] = byte(c.PrimaryPhy)
	b[21] = c.SecondaryMaxSkip
	b[22] = byte(c.SecondaryPhy)
	b[23] = c.SID
	if c.ScanReqNotify {
		b[24] = 1
	}
	return b
}

// Fragmentation operation values for advertising data commands.
const (
	AdvDataOpIntermediate = 0x00
	AdvDataOpFirst        = 0x01
	AdvDataOpLast         = 0x02
	AdvDataOpComplete     = 0x03
	AdvDataOpUnchanged    = 0x04
)

// LESetExtAdvData sets the advertising data of one set.
type LESetExtAdvData struct {
	Handle AdvHandle
	Op     uint8
	Data   []byte
}

func (c LESetExtAdvData) Opcode() Opcode { return opLESetExtAdvData }
func (c LESetExtAdvData) Marshal() []byte {
	return marshalAdvData(byte(c.Handle), c.Op, c.Data)
}

// LESetExtScanRespData sets the scan response data of one set.
type LESetExtScanRespData struct {
	Handle AdvHandle
	Op     uint8
	Data   []byte
}

func (c LESetExtScanRespData) Opcode() Opcode { return opLESetExtScanRespData }
func (c LESetExtScanRespData) Marshal() []byte {
	return marshalAdvData(byte(c.Handle), c.Op, c.Data)
}

func marshalAdvData(handle, op byte, data []byte) []byte {
	b := make([]byte, 4+len(data))
	b[0] = handle
	b[1] = op
	b[2] = 0x01 // controller should not fragment
	b[3] = byte(len(data))
	copy(b[4:], data)
	return b
}

// LESetExtAdvEnable enables or disables advertising sets.
type LESetExtAdvEnable struct {
	Enable bool
	Sets   []AdvSet
}

func (c LESetExtAdvEnable) Opcode() Opcode { return opLESetExtAdvEnable }
func (c LESetExtAdvEnable) Marshal() []byte {
	b := make([]byte, 2+4*len(c.Sets))
	if c.Enable {
		b[0] = 1
	}
	b[1] = byte(len(c.Sets))
	for i, s := range c.Sets {
		o := 2 + 4*i
		b[o] = byte(s.Handle)
		binary.LittleEndian.PutUint16(b[o+1:], s.Duration)
		b[o+3] = s.MaxExtAdvEvents
	}
	return b
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
