package trouble

import (
	"context"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/lulf/trouble/hci"
)

// A Controller submits marshaled HCI commands to the radio and
// returns the command's return parameters. Submit blocks until the
// controller replies or ctx is done; a cancelled submission drops the
// pending command without consuming its slot.
type Controller interface {
	Submit(ctx context.Context, cmd hci.CmdParam) ([]byte, error)
}

type connInfo struct {
	role hci.Role
	peer Address
}

// An Adapter owns the controller handle and the per-connection
// registry. All HCI traffic of the host goes through it.
type Adapter struct {
	controller  Controller
	log         *logrus.Logger
	connections *hashmap.Map[uint16, connInfo]
	addrKind    hci.AddrKind
}

// NewAdapter wraps a controller. A nil logger falls back to the
// logrus default.
func NewAdapter(c Controller, log *logrus.Logger) *Adapter {
	if log == nil {
		log = logrus.New()
	}
	return &Adapter{
		controller:  c,
		log:         log,
		connections: hashmap.New[uint16, connInfo](),
		addrKind:    hci.AddrKindRandom,
	}
}

// Command submits cmd and blocks until the controller replies.
func (a *Adapter) Command(cmd hci.CmdParam) ([]byte, error) {
	return a.AsyncCommand(context.Background(), cmd)
}

// AsyncCommand submits cmd, cancellable through ctx.
func (a *Adapter) AsyncCommand(ctx context.Context, cmd hci.CmdParam) ([]byte, error) {
	a.log.WithFields(logrus.Fields{
		"opcode": cmd.Opcode().String(),
	}).Debug("submitting hci command")
	ret, err := a.controller.Submit(ctx, cmd)
	if err != nil {
		return nil, &ControllerError{Err: err}
	}
	return ret, nil
}

// AddConnection registers a controller-reported connection and
// returns its host-side facade.
func (a *Adapter) AddConnection(handle hci.ConnHandle, role hci.Role, peer Address) Connection {
	a.connections.Set(uint16(handle), connInfo{role: role, peer: peer})
	a.log.WithFields(logrus.Fields{
		"handle": uint16(handle),
		"role":   role.String(),
		"peer":   peer.String(),
	}).Debug("connection established")
	return Connection{handle: handle}
}

// RemoveConnection drops a connection from the registry.
func (a *Adapter) RemoveConnection(handle hci.ConnHandle) {
	a.connections.Del(uint16(handle))
}

func (a *Adapter) role(handle hci.ConnHandle) (hci.Role, error) {
	info, ok := a.connections.Get(uint16(handle))
	if !ok {
		return 0, ErrNotFound
	}
	return info.role, nil
}

func (a *Adapter) peerAddress(handle hci.ConnHandle) (Address, error) {
	info, ok := a.connections.Get(uint16(handle))
	if !ok {
		return Address{}, ErrNotFound
	}
	return info.peer, nil
}

// Advertise configures and enables one advertising set from the
// normalized form of adv: parameters, advertising data, scan response
// data, enable. Timeout and event limits are delivered to the
// controller unchanged.
func (a *Adapter) Advertise(ctx context.Context, config AdvertisementConfig, adv Advertisement) error {
	raw := adv.Raw()

	// Legacy advertising PDUs cap both payloads at 31 bytes.
	if raw.Props.LegacyAdv() && (len(raw.AdvData) > 31 || len(raw.ScanData) > 31) {
		return ErrAdvertisementTooLong
	}

	if _, err := a.AsyncCommand(ctx, advParams(config, raw, a.addrKind)); err != nil {
		return err
	}
	if _, err := a.AsyncCommand(ctx, hci.LESetExtAdvData{
		Handle: raw.Set.Handle,
		Op:     hci.AdvDataOpComplete,
		Data:   raw.AdvData,
	}); err != nil {
		return err
	}
	if len(raw.ScanData) > 0 {
		if _, err := a.AsyncCommand(ctx, hci.LESetExtScanRespData{
			Handle: raw.Set.Handle,
			Op:     hci.AdvDataOpComplete,
			Data:   raw.ScanData,
		}); err != nil {
			return err
		}
	}
	_, err := a.AsyncCommand(ctx, hci.LESetExtAdvEnable{
		Enable: true,
		Sets:   []hci.AdvSet{advEnableSet(config, raw)},
	})
	return err
}
