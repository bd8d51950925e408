package trouble

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ATT opcodes.
const (
	attOpError           = 0x01
	attOpMtuReq          = 0x02
	attOpMtuResp         = 0x03
	attOpFindInfoReq     = 0x04
	attOpFindInfoResp    = 0x05
	attOpFindByTypeReq   = 0x06
	attOpFindByTypeResp  = 0x07
	attOpReadByTypeReq   = 0x08
	attOpReadByTypeResp  = 0x09
	attOpReadReq         = 0x0a
	attOpReadResp        = 0x0b
	attOpReadBlobReq     = 0x0c
	attOpReadBlobResp    = 0x0d
	attOpReadMultiReq    = 0x0e
	attOpReadMultiResp   = 0x0f
	attOpReadByGroupReq  = 0x10
	attOpReadByGroupResp = 0x11
	attOpWriteReq        = 0x12
	attOpWriteResp       = 0x13
	attOpWriteCmd        = 0x52
	attOpPrepWriteReq    = 0x16
	attOpPrepWriteResp   = 0x17
	attOpExecWriteReq    = 0x18
	attOpExecWriteResp   = 0x19
	attOpHandleNotify    = 0x1b
	attOpHandleInd       = 0x1d
	attOpHandleCnf       = 0x1e
	attOpSignedWriteCmd  = 0xd2
)

// An AttError is a peer-visible ATT error code.
type AttError byte

const (
	AttErrInvalidHandle                 AttError = 0x01
	AttErrReadNotPermitted              AttError = 0x02
	AttErrWriteNotPermitted             AttError = 0x03
	AttErrInvalidPdu                    AttError = 0x04
	AttErrInsufficientAuthentication    AttError = 0x05
	AttErrRequestNotSupported           AttError = 0x06
	AttErrInvalidOffset                 AttError = 0x07
	AttErrInsufficientAuthorization     AttError = 0x08
	AttErrPrepareQueueFull              AttError = 0x09
	AttErrAttributeNotFound             AttError = 0x0a
	AttErrAttributeNotLong              AttError = 0x0b
	AttErrInsufficientEncryptionKeySize AttError = 0x0c
	AttErrInvalidAttributeValueLength   AttError = 0x0d
	AttErrUnlikelyError                 AttError = 0x0e
	AttErrInsufficientEncryption        AttError = 0x0f
	AttErrUnsupportedGroupType          AttError = 0x10
	AttErrInsufficientResources         AttError = 0x11
)

func (e AttError) Error() string { return fmt.Sprintf("att error 0x%02x", byte(e)) }

// attRespFor maps from att request
// codes to att response codes.
var attRespFor = map[byte]byte{
	attOpMtuReq:         attOpMtuResp,
	attOpFindInfoReq:    attOpFindInfoResp,
	attOpFindByTypeReq:  attOpFindByTypeResp,
	attOpReadByTypeReq:  attOpReadByTypeResp,
	attOpReadReq:        attOpReadResp,
	attOpReadBlobReq:    attOpReadBlobResp,
	attOpReadMultiReq:   attOpReadMultiResp,
	attOpReadByGroupReq: attOpReadByGroupResp,
	attOpWriteReq:       attOpWriteResp,
	attOpPrepWriteReq:   attOpPrepWriteResp,
	attOpExecWriteReq:   attOpExecWriteResp,
}

// attErrorResp frames an ATT Error Response into rsp and returns its
// length: request opcode, the handle in error, and the status code.
func attErrorResp(rsp []byte, op byte, h uint16, status AttError) int {
	rsp[0] = attOpError
	rsp[1] = op
	binary.LittleEndian.PutUint16(rsp[2:], h)
	rsp[4] = byte(status)
	return 5
}

// An AttReq is one decoded ATT request. Variable-length fields alias
// the packet the request was decoded from and are only valid as long
// as that buffer is.
type AttReq interface {
	attReq()
}

type ExchangeMtuReq struct {
	Mtu uint16
}

type FindInformationReq struct {
	StartHandle uint16
	EndHandle   uint16
}

type FindByTypeValueReq struct {
	StartHandle uint16
	EndHandle   uint16
	AttType     uint16
	AttValue    uint16
}

type ReadByTypeReq struct {
	Start         uint16
	End           uint16
	AttributeType UUID
}

type ReadReq struct {
	Handle uint16
}

type ReadBlobReq struct {
	Handle uint16
	Offset uint16
}

type ReadByGroupTypeReq struct {
	Start     uint16
	End       uint16
	GroupType UUID
}

type WriteReq struct {
	Handle uint16
	Data   []byte
}

type WriteCmd struct {
	Handle uint16
	Data   []byte
}

type PrepareWriteReq struct {
	Handle uint16
	Offset uint16
	Value  []byte
}

type ExecuteWriteReq struct {
	Flags uint8
}

func (ExchangeMtuReq) attReq()     {}
func (FindInformationReq) attReq() {}
func (FindByTypeValueReq) attReq() {}
func (ReadByTypeReq) attReq()      {}
func (ReadReq) attReq()            {}
func (ReadBlobReq) attReq()        {}
func (ReadByGroupTypeReq) attReq() {}
func (WriteReq) attReq()           {}
func (WriteCmd) attReq()           {}
func (PrepareWriteReq) attReq()    {}
func (ExecuteWriteReq) attReq()    {}

// ErrUnexpectedPayload is returned when a known opcode carries a
// payload that does not match its layout.
var ErrUnexpectedPayload = errors.New("att: unexpected payload")

// An UnknownOpcodeError reports a request opcode the decoder does not
// recognize.
type UnknownOpcodeError struct {
	Opcode byte
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("att: unknown opcode 0x%02x", e.Opcode)
}

// DecodeAttReq parses one ATT PDU: a single opcode byte followed by a
// little-endian body. Variable-length tails of the returned request
// alias packet.
func DecodeAttReq(packet []byte) (AttReq, error) {
	if len(packet) == 0 {
		return nil, ErrUnexpectedPayload
	}
	opcode, payload := packet[0], packet[1:]

	switch opcode {
	case attOpReadByGroupReq:
		start, end, uuid, err := decodeTypeRange(payload)
		if err != nil {
			return nil, err
		}
		return ReadByGroupTypeReq{Start: start, End: end, GroupType: uuid}, nil
	case attOpReadByTypeReq:
		start, end, uuid, err := decodeTypeRange(payload)
		if err != nil {
			return nil, err
		}
		return ReadByTypeReq{Start: start, End: end, AttributeType: uuid}, nil
	case attOpReadReq:
		if len(payload) < 2 {
			return nil, ErrUnexpectedPayload
		}
		return ReadReq{Handle: binary.LittleEndian.Uint16(payload)}, nil
	case attOpReadBlobReq:
		if len(payload) < 4 {
			return nil, ErrUnexpectedPayload
		}
		return ReadBlobReq{
			Handle: binary.LittleEndian.Uint16(payload),
			Offset: binary.LittleEndian.Uint16(payload[2:]),
		}, nil
	case attOpWriteReq:
		if len(payload) < 2 {
			return nil, ErrUnexpectedPayload
		}
		return WriteReq{Handle: binary.LittleEndian.Uint16(payload), Data: payload[2:]}, nil
	case attOpWriteCmd:
		if len(payload) < 2 {
			return nil, ErrUnexpectedPayload
		}
		return WriteCmd{Handle: binary.LittleEndian.Uint16(payload), Data: payload[2:]}, nil
	case attOpMtuReq:
		if len(payload) < 2 {
			return nil, ErrUnexpectedPayload
		}
		return ExchangeMtuReq{Mtu: binary.LittleEndian.Uint16(payload)}, nil
	case attOpFindByTypeReq:
		// Only a 16-bit attribute value is supported here.
		if len(payload) < 8 {
			return nil, ErrUnexpectedPayload
		}
		return FindByTypeValueReq{
			StartHandle: binary.LittleEndian.Uint16(payload),
			EndHandle:   binary.LittleEndian.Uint16(payload[2:]),
			AttType:     binary.LittleEndian.Uint16(payload[4:]),
			AttValue:    binary.LittleEndian.Uint16(payload[6:]),
		}, nil
	case attOpFindInfoReq:
		if len(payload) < 4 {
			return nil, ErrUnexpectedPayload
		}
		return FindInformationReq{
			StartHandle: binary.LittleEndian.Uint16(payload),
			EndHandle:   binary.LittleEndian.Uint16(payload[2:]),
		}, nil
	case attOpPrepWriteReq:
		if len(payload) < 4 {
			return nil, ErrUnexpectedPayload
		}
		return PrepareWriteReq{
			Handle: binary.LittleEndian.Uint16(payload),
			Offset: binary.LittleEndian.Uint16(payload[2:]),
			Value:  payload[4:],
		}, nil
	case attOpExecWriteReq:
		if len(payload) < 1 {
			return nil, ErrUnexpectedPayload
		}
		return ExecuteWriteReq{Flags: payload[0]}, nil
	default:
		return nil, &UnknownOpcodeError{Opcode: opcode}
	}
}

// decodeTypeRange parses the shared start/end/uuid layout of Read By
// Type and Read By Group Type. The payload length disambiguates the
// UUID width: 6 bytes for 16-bit, 20 for 128-bit.
func decodeTypeRange(payload []byte) (start, end uint16, uuid UUID, err error) {
	switch len(payload) {
	case 6:
		uuid = UUID16(binary.LittleEndian.Uint16(payload[4:]))
	case 20:
		uuid, err = uuidFromBytes(payload[4:20])
		if err != nil {
			return 0, 0, UUID{}, ErrUnexpectedPayload
		}
	default:
		return 0, 0, UUID{}, ErrUnexpectedPayload
	}
	return binary.LittleEndian.Uint16(payload), binary.LittleEndian.Uint16(payload[2:]), uuid, nil
}
