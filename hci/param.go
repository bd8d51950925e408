// Package hci holds the controller-facing parameter types and the
// command marshaling for the commands the host issues. The transport
// that carries the marshaled packets is external.
package hci

import (
	"fmt"
	"time"
)

// A ConnHandle identifies a connection. It is allocated by the
// controller and treated as opaque by the host.
type ConnHandle uint16

// An AddrKind discriminates public and random device addresses.
type AddrKind uint8

const (
	AddrKindPublic AddrKind = 0x00
	AddrKindRandom AddrKind = 0x01
)

// A BdAddr is a 48-bit device address in little-endian wire order.
type BdAddr [6]byte

func (a BdAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[5], a[4], a[3], a[2], a[1], a[0])
}

// A DisconnectReason is the reason code carried by a Disconnect
// command.
type DisconnectReason uint8

const (
	DisconnectReasonAuthenticationFailure          DisconnectReason = 0x05
	DisconnectReasonRemoteUserTerminatedConn       DisconnectReason = 0x13
	DisconnectReasonRemoteDeviceTerminatedLowRes   DisconnectReason = 0x14
	DisconnectReasonUnsupportedRemoteFeature       DisconnectReason = 0x1A
	DisconnectReasonPairingWithUnitKeyNotSupported DisconnectReason = 0x29
	DisconnectReasonUnacceptableConnParams         DisconnectReason = 0x3B
)

// A Role is the LE connection role.
type Role uint8

const (
	RoleCentral    Role = 0x00
	RolePeripheral Role = 0x01
)

func (r Role) String() string {
	if r == RoleCentral {
		return "central"
	}
	return "peripheral"
}

// A PhyKind selects a physical-layer coding.
type PhyKind uint8

const (
	PhyLe1M    PhyKind = 0x01
	PhyLe2M    PhyKind = 0x02
	PhyLeCoded PhyKind = 0x03
)

// An AdvFilterPolicy controls which peers may scan or connect while
// advertising. The zero value accepts all.
type AdvFilterPolicy uint8

const (
	AdvFilterAllowAll          AdvFilterPolicy = 0x00
	AdvFilterFilterScan        AdvFilterPolicy = 0x01
	AdvFilterFilterConn        AdvFilterPolicy = 0x02
	AdvFilterFilterScanAndConn AdvFilterPolicy = 0x03
)

// An AdvChannelMap selects the primary advertising channels. It is
// marshaled as given; the zero value has no channel bit set.
type AdvChannelMap uint8

const (
	AdvChannel37 AdvChannelMap = 1 << iota
	AdvChannel38
	AdvChannel39
	AdvChannelsAll = AdvChannel37 | AdvChannel38 | AdvChannel39
)

// An AdvHandle identifies one advertising set in the controller.
type AdvHandle uint8

// AdvEventProps is the advertising event properties bitfield of the
// LE Set Extended Advertising Parameters command.
type AdvEventProps uint16

const (
	advPropConnectable AdvEventProps = 1 << iota
	advPropScannable
	advPropDirected
	advPropHighDutyDirectedConnectable
	advPropLegacy
	advPropAnonymous
	advPropIncludeTxPower
)

func (p AdvEventProps) set(bit AdvEventProps, on bool) AdvEventProps {
	if on {
		return p | bit
	}
	return p &^ bit
}

func (p AdvEventProps) SetConnectableAdv(on bool) AdvEventProps { return p.set(advPropConnectable, on) }
func (p AdvEventProps) SetScannableAdv(on bool) AdvEventProps   { return p.set(advPropScannable, on) }
func (p AdvEventProps) SetDirectedAdv(on bool) AdvEventProps    { return p.set(advPropDirected, on) }
func (p AdvEventProps) SetHighDutyCycleDirectedConnectableAdv(on bool) AdvEventProps {
	return p.set(advPropHighDutyDirectedConnectable, on)
}
func (p AdvEventProps) SetLegacyAdv(on bool) AdvEventProps    { return p.set(advPropLegacy, on) }
func (p AdvEventProps) SetAnonymousAdv(on bool) AdvEventProps { return p.set(advPropAnonymous, on) }

func (p AdvEventProps) ConnectableAdv() bool { return p&advPropConnectable != 0 }
func (p AdvEventProps) ScannableAdv() bool   { return p&advPropScannable != 0 }
func (p AdvEventProps) DirectedAdv() bool    { return p&advPropDirected != 0 }
func (p AdvEventProps) HighDutyCycleDirectedConnectableAdv() bool {
	return p&advPropHighDutyDirectedConnectable != 0
}
func (p AdvEventProps) LegacyAdv() bool    { return p&advPropLegacy != 0 }
func (p AdvEventProps) AnonymousAdv() bool { return p&advPropAnonymous != 0 }

// An AdvSet names one advertising set in an LE Set Extended
// Advertising Enable command. Duration is in 10 ms units; zero means
// advertise until disabled.
type AdvSet struct {
	Handle          AdvHandle
	Duration        uint16
	MaxExtAdvEvents uint8
}

// Controller time units. The conversions truncate.

// Units625Micros converts d to 0.625 ms units (advertising intervals).
func Units625Micros(d time.Duration) uint32 {
	return uint32(d / (625 * time.Microsecond))
}

// Units1250Micros converts d to 1.25 ms units (connection intervals).
func Units1250Micros(d time.Duration) uint16 {
	return uint16(d / (1250 * time.Microsecond))
}

// Units10Millis converts d to 10 ms units (supervision timeout,
// advertising duration).
func Units10Millis(d time.Duration) uint16 {
	return uint16(d / (10 * time.Millisecond))
}
