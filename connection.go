package trouble

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"

	"github.com/lulf/trouble/hci"
)

// A Connection is a typed wrapper around a controller-allocated
// connection handle. Peer address and role live in the adapter's
// registry; the handle itself is opaque.
type Connection struct {
	handle hci.ConnHandle
}

// Handle returns the controller's identifier for this connection.
func (c Connection) Handle() hci.ConnHandle { return c.handle }

// ConnectParams are the parameters of an LE connection update.
type ConnectParams struct {
	MinConnectionInterval time.Duration `default:"80ms"`
	MaxConnectionInterval time.Duration `default:"80ms"`
	MaxLatency            uint16
	EventLength           time.Duration
	SupervisionTimeout    time.Duration `default:"8s"`
}

// DefaultConnectParams returns ConnectParams with defaults applied.
func DefaultConnectParams() ConnectParams {
	var p ConnectParams
	defaults.SetDefaults(&p)
	return p
}

// Disconnect terminates the connection, reason remote user
// terminated connection.
func (c Connection) Disconnect(a *Adapter) error {
	_, err := a.Command(hci.Disconnect{
		Handle: c.handle,
		Reason: hci.DisconnectReasonRemoteUserTerminatedConn,
	})
	return err
}

// Role returns the local role on this connection.
func (c Connection) Role(a *Adapter) (hci.Role, error) {
	return a.role(c.handle)
}

// PeerAddress returns the remote device address.
func (c Connection) PeerAddress(a *Adapter) (Address, error) {
	return a.peerAddress(c.handle)
}

// RSSI reads the received signal strength of the connection in dBm.
func (c Connection) RSSI(ctx context.Context, a *Adapter) (int8, error) {
	ret, err := a.AsyncCommand(ctx, hci.ReadRSSI{Handle: c.handle})
	if err != nil {
		return 0, err
	}
	var r hci.ReadRSSIReturn
	if err := r.Unmarshal(ret); err != nil {
		return 0, &HCIDecodeError{Err: err}
	}
	return r.RSSI, nil
}

// SetConnectionParams requests a connection update. CE lengths are
// left at zero.
func (c Connection) SetConnectionParams(ctx context.Context, a *Adapter, params ConnectParams) error {
	_, err := a.AsyncCommand(ctx, hci.LEConnUpdate{
		Handle:             c.handle,
		ConnIntervalMin:    hci.Units1250Micros(params.MinConnectionInterval),
		ConnIntervalMax:    hci.Units1250Micros(params.MaxConnectionInterval),
		ConnLatency:        params.MaxLatency,
		SupervisionTimeout: hci.Units10Millis(params.SupervisionTimeout),
	})
	return err
}
