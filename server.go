package trouble

import (
	"encoding/binary"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/lulf/trouble/codec"
)

// defaultMTU is the minimum ATT MTU allowed by the spec. Peers may
// negotiate it up with Exchange MTU but never below.
const defaultMTU = 23

// An AttributeServer answers ATT requests from a peer against an
// attribute table. Requests from one peer arrive and are answered in
// order; every Process call is non-blocking.
type AttributeServer struct {
	table *AttributeTable
	mtu   uint16
	log   *logrus.Logger
}

// NewAttributeServer serves table. A nil logger falls back to the
// logrus default.
func NewAttributeServer(table *AttributeTable, log *logrus.Logger) *AttributeServer {
	if log == nil {
		log = logrus.New()
	}
	return &AttributeServer{table: table, mtu: defaultMTU, log: log}
}

// MTU returns the negotiated ATT MTU.
func (s *AttributeServer) MTU() uint16 { return s.mtu }

// Process handles one inbound ATT PDU and frames the response into
// rsp, returning the response length. A zero length means no response
// is due (Write Command). Malformed requests become peer-visible ATT
// error responses, not errors.
func (s *AttributeServer) Process(packet []byte, rsp []byte) (int, error) {
	if len(rsp) < 5 {
		return 0, ErrInsufficientSpace
	}
	req, err := DecodeAttReq(packet)
	if err != nil {
		var unknown *UnknownOpcodeError
		switch {
		case errors.As(err, &unknown):
			s.log.WithFields(logrus.Fields{"opcode": unknown.Opcode}).Debug("unsupported att opcode")
			return attErrorResp(rsp, unknown.Opcode, 0, AttErrRequestNotSupported), nil
		case len(packet) > 0:
			return attErrorResp(rsp, packet[0], 0, AttErrInvalidPdu), nil
		default:
			return attErrorResp(rsp, 0, 0, AttErrInvalidPdu), nil
		}
	}

	if n := len(rsp); n > int(s.mtu) {
		rsp = rsp[:s.mtu]
	}

	switch r := req.(type) {
	case ExchangeMtuReq:
		return s.handleExchangeMtu(r, rsp), nil
	case ReadByGroupTypeReq:
		return s.handleReadByGroupType(r, rsp), nil
	case ReadByTypeReq:
		return s.handleReadByType(r, rsp), nil
	case FindInformationReq:
		return s.handleFindInformation(r, rsp), nil
	case FindByTypeValueReq:
		return s.handleFindByTypeValue(r, rsp), nil
	case ReadReq:
		return s.handleRead(attOpReadReq, r.Handle, 0, rsp), nil
	case ReadBlobReq:
		return s.handleRead(attOpReadBlobReq, r.Handle, int(r.Offset), rsp), nil
	case WriteReq:
		return s.handleWrite(attOpWriteReq, r.Handle, r.Data, rsp), nil
	case WriteCmd:
		// Write commands are never answered, not even with errors.
		s.handleWrite(attOpWriteCmd, r.Handle, r.Data, rsp)
		return 0, nil
	case PrepareWriteReq:
		return attErrorResp(rsp, attOpPrepWriteReq, r.Handle, AttErrRequestNotSupported), nil
	case ExecuteWriteReq:
		return attErrorResp(rsp, attOpExecWriteReq, 0, AttErrRequestNotSupported), nil
	default:
		return attErrorResp(rsp, packet[0], 0, AttErrRequestNotSupported), nil
	}
}

func (s *AttributeServer) handleExchangeMtu(req ExchangeMtuReq, rsp []byte) int {
	mtu := req.Mtu
	if mtu < defaultMTU {
		mtu = defaultMTU
	}
	s.mtu = mtu
	s.log.WithFields(logrus.Fields{"mtu": mtu}).Debug("mtu exchanged")
	rsp[0] = attOpMtuResp
	binary.LittleEndian.PutUint16(rsp[1:], mtu)
	return 3
}

func (s *AttributeServer) handleReadByGroupType(req ReadByGroupTypeReq, rsp []byte) int {
	if !req.GroupType.Equal(gattAttrPrimaryServiceUUID) {
		return attErrorResp(rsp, attOpReadByGroupReq, req.Start, AttErrUnsupportedGroupType)
	}

	w := codec.NewWriteCursor(rsp)
	w.WriteByte(attOpReadByGroupResp)
	tupleLen := -1
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle < req.Start || att.Handle > req.End {
				continue
			}
			svc, ok := att.Data.(Service)
			if !ok {
				continue
			}
			if tupleLen == -1 {
				tupleLen = svc.UUID.EncodedLen()
				w.WriteByte(byte(tupleLen))
			}
			// Tuples in one response share a length.
			if svc.UUID.EncodedLen() != tupleLen {
				break
			}
			mark := w.Mark()
			if writeGroupTuple(w, att.Handle, att.LastHandleInGroup, svc.UUID) != nil {
				w.Truncate(mark)
				break
			}
		}
	})

	if tupleLen == -1 {
		return attErrorResp(rsp, attOpReadByGroupReq, req.Start, AttErrAttributeNotFound)
	}
	return w.Len()
}

func writeGroupTuple(w *codec.WriteCursor, start, end uint16, uuid UUID) error {
	if err := w.WriteUint16(start); err != nil {
		return err
	}
	if err := w.WriteUint16(end); err != nil {
		return err
	}
	return uuid.encode(w)
}

func (s *AttributeServer) handleReadByType(req ReadByTypeReq, rsp []byte) int {
	var (
		found  bool
		handle uint16
		n      int
		rerr   error
	)
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle < req.Start || att.Handle > req.End {
				continue
			}
			if !att.UUID.Equal(req.AttributeType) {
				continue
			}
			found = true
			handle = att.Handle
			// The pair length byte caps the value portion.
			window := rsp[4:]
			if len(window) > 0xff-2 {
				window = window[:0xff-2]
			}
			n, rerr = att.Read(0, window)
			return
		}
	})
	if !found {
		return attErrorResp(rsp, attOpReadByTypeReq, req.Start, AttErrAttributeNotFound)
	}
	if rerr != nil {
		return attErrorResp(rsp, attOpReadByTypeReq, handle, attErrorOf(rerr))
	}
	rsp[0] = attOpReadByTypeResp
	rsp[1] = byte(n + 2)
	binary.LittleEndian.PutUint16(rsp[2:], handle)
	return n + 4
}

func (s *AttributeServer) handleFindInformation(req FindInformationReq, rsp []byte) int {
	w := codec.NewWriteCursor(rsp)
	w.WriteByte(attOpFindInfoResp)
	uuidLen := -1
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle < req.StartHandle || att.Handle > req.EndHandle {
				continue
			}
			if uuidLen == -1 {
				uuidLen = att.UUID.Len()
				if uuidLen == 2 {
					w.WriteByte(0x01)
				} else {
					w.WriteByte(0x02)
				}
			}
			// One format per response.
			if att.UUID.Len() != uuidLen {
				break
			}
			mark := w.Mark()
			if w.WriteUint16(att.Handle) != nil || att.UUID.encode(w) != nil {
				w.Truncate(mark)
				break
			}
		}
	})
	if uuidLen == -1 {
		return attErrorResp(rsp, attOpFindInfoReq, req.StartHandle, AttErrAttributeNotFound)
	}
	return w.Len()
}

func (s *AttributeServer) handleFindByTypeValue(req FindByTypeValueReq, rsp []byte) int {
	if req.AttType != 0x2800 {
		return attErrorResp(rsp, attOpFindByTypeReq, req.StartHandle, AttErrAttributeNotFound)
	}
	want := UUID16(req.AttValue)

	w := codec.NewWriteCursor(rsp)
	w.WriteByte(attOpFindByTypeResp)
	var wrote bool
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle < req.StartHandle || att.Handle > req.EndHandle {
				continue
			}
			svc, ok := att.Data.(Service)
			if !ok || !svc.UUID.Equal(want) {
				continue
			}
			mark := w.Mark()
			if w.WriteUint16(att.Handle) != nil || w.WriteUint16(att.LastHandleInGroup) != nil {
				w.Truncate(mark)
				break
			}
			wrote = true
		}
	})
	if !wrote {
		return attErrorResp(rsp, attOpFindByTypeReq, req.StartHandle, AttErrAttributeNotFound)
	}
	return w.Len()
}

func (s *AttributeServer) handleRead(op byte, handle uint16, offset int, rsp []byte) int {
	var (
		found bool
		n     int
		rerr  error
	)
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle != handle {
				continue
			}
			found = true
			n, rerr = att.Read(offset, rsp[1:])
			return
		}
	})
	if !found {
		return attErrorResp(rsp, op, handle, AttErrInvalidHandle)
	}
	if rerr != nil {
		s.log.WithFields(logrus.Fields{"handle": handle, "err": rerr}).Debug("read refused")
		return attErrorResp(rsp, op, handle, attErrorOf(rerr))
	}
	rsp[0] = attRespFor[op]
	return n + 1
}

func (s *AttributeServer) handleWrite(op byte, handle uint16, data []byte, rsp []byte) int {
	var (
		found bool
		werr  error
	)
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle != handle {
				continue
			}
			found = true
			werr = att.Write(0, data)
			return
		}
	})
	if !found {
		return attErrorResp(rsp, op, handle, AttErrInvalidHandle)
	}
	if werr != nil {
		s.log.WithFields(logrus.Fields{"handle": handle, "err": werr}).Debug("write refused")
		return attErrorResp(rsp, op, handle, attErrorOf(werr))
	}
	rsp[0] = attOpWriteResp
	return 1
}

// NotifyValue frames a Handle Value Notification for the
// characteristic into rsp, if the peer has enabled notifications on
// its CCCD. A zero length means the peer is not subscribed.
func (s *AttributeServer) NotifyValue(h CharacteristicHandle, data []byte, rsp []byte) (int, error) {
	if h.CCCD == 0 {
		return 0, ErrNotSupported
	}
	enabled := false
	s.table.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle != h.CCCD {
				continue
			}
			if cccd, ok := att.Data.(*Cccd); ok {
				enabled = cccd.Notifications
			}
			return
		}
	})
	if !enabled {
		return 0, nil
	}
	if max := int(s.mtu); len(rsp) > max {
		rsp = rsp[:max]
	}
	if len(rsp) < 3 {
		return 0, ErrInsufficientSpace
	}
	if len(data) > len(rsp)-3 {
		data = data[:len(rsp)-3]
	}
	rsp[0] = attOpHandleNotify
	binary.LittleEndian.PutUint16(rsp[1:], h.Handle)
	copy(rsp[3:], data)
	return 3 + len(data), nil
}

// attErrorOf maps an attribute read/write error onto a peer-visible
// status; anything unexpected collapses to Unlikely Error.
func attErrorOf(err error) AttError {
	var ae AttError
	if errors.As(err, &ae) {
		return ae
	}
	return AttErrUnlikelyError
}
