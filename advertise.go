package trouble

import (
	"encoding/binary"
	"time"

	"github.com/mcuadros/go-defaults"

	"github.com/lulf/trouble/codec"
	"github.com/lulf/trouble/hci"
)

// Advertising data flag bits.
const (
	FlagLELimitedDiscoverable = 0x01
	FlagLEGeneralDiscoverable = 0x02
	FlagBREDRNotSupported     = 0x04
	FlagSimulLEBRController   = 0x08
	FlagSimulLEBRHost         = 0x10
)

// advertising data field types
const (
	adTypeFlags            = 0x01 // flags
	adTypeSomeUUID16       = 0x02 // incomplete list of 16-bit UUIDs
	adTypeAllUUID128       = 0x07 // complete list of 128-bit UUIDs
	adTypeShortName        = 0x08 // shortened local name
	adTypeCompleteName     = 0x09 // complete local name
	adTypeServiceData16    = 0x16 // service data, 16-bit UUID
	adTypeManufacturerData = 0xFF // manufacturer specific data
)

// An AdStructure is one length-prefixed typed element of advertising
// data.
type AdStructure interface {
	appendTo(w *codec.WriteCursor) error
}

// AdFlags carries the device flags and baseband capabilities. Must
// not be used in scan response data.
type AdFlags uint8

// AdServiceUUIDs16 lists 16-bit service class UUIDs.
type AdServiceUUIDs16 []UUID

// AdServiceUUIDs128 lists 128-bit service class UUIDs.
type AdServiceUUIDs128 []UUID

// AdShortenedLocalName sets the abbreviated device name.
type AdShortenedLocalName []byte

// AdCompleteLocalName sets the full device name.
type AdCompleteLocalName []byte

// AdServiceData16 is service data keyed by a 16-bit service UUID.
type AdServiceData16 struct {
	UUID uint16
	Data []byte
}

// AdManufacturerData is manufacturer specific data.
type AdManufacturerData struct {
	CompanyIdentifier uint16
	Payload           []byte
}

// AdUnknown is an unrecognized AD structure kept as raw bytes.
type AdUnknown struct {
	Type uint8
	Data []byte
}

// appendField writes one [len][type][payload] triple. len counts the
// type byte, so a payload may be at most 254 bytes.
func appendField(w *codec.WriteCursor, typ byte, payload int, parts ...[]byte) error {
	if payload+1 > 0xff {
		return codec.ErrInsufficientSpace
	}
	if err := w.WriteByte(byte(payload + 1)); err != nil {
		return err
	}
	if err := w.WriteByte(typ); err != nil {
		return err
	}
	for _, p := range parts {
		if err := w.Append(p); err != nil {
			return err
		}
	}
	return nil
}

func (f AdFlags) appendTo(w *codec.WriteCursor) error {
	return appendField(w, adTypeFlags, 1, []byte{byte(f)})
}

func (uu AdServiceUUIDs16) appendTo(w *codec.WriteCursor) error {
	if err := appendField(w, adTypeSomeUUID16, len(uu)*2); err != nil {
		return err
	}
	for _, u := range uu {
		if err := u.encode(w); err != nil {
			return err
		}
	}
	return nil
}

func (uu AdServiceUUIDs128) appendTo(w *codec.WriteCursor) error {
	if err := appendField(w, adTypeAllUUID128, len(uu)*16); err != nil {
		return err
	}
	for _, u := range uu {
		if err := u.encode(w); err != nil {
			return err
		}
	}
	return nil
}

func (n AdShortenedLocalName) appendTo(w *codec.WriteCursor) error {
	return appendField(w, adTypeShortName, len(n), n)
}

func (n AdCompleteLocalName) appendTo(w *codec.WriteCursor) error {
	return appendField(w, adTypeCompleteName, len(n), n)
}

func (d AdServiceData16) appendTo(w *codec.WriteCursor) error {
	var u [2]byte
	binary.LittleEndian.PutUint16(u[:], d.UUID)
	return appendField(w, adTypeServiceData16, len(d.Data)+2, u[:], d.Data)
}

func (d AdManufacturerData) appendTo(w *codec.WriteCursor) error {
	var cid [2]byte
	binary.LittleEndian.PutUint16(cid[:], d.CompanyIdentifier)
	return appendField(w, adTypeManufacturerData, len(d.Payload)+2, cid[:], d.Payload)
}

func (u AdUnknown) appendTo(w *codec.WriteCursor) error {
	return appendField(w, u.Type, len(u.Data), u.Data)
}

// EncodeAdStructures encodes ads into dest and returns the number of
// bytes written. Encoding fails with ErrInsufficientSpace when dest
// is exhausted or any single element exceeds the length byte's
// maximum.
func EncodeAdStructures(ads []AdStructure, dest []byte) (int, error) {
	w := codec.NewWriteCursor(dest)
	for _, ad := range ads {
		if err := ad.appendTo(w); err != nil {
			return 0, fromCodec(err)
		}
	}
	return w.Len(), nil
}

// DecodeAdStructures returns a lazy iterator over the AD elements of
// data. The iterator is finite and not restartable.
func DecodeAdStructures(data []byte) *AdStructureIter {
	return &AdStructureIter{cursor: codec.NewReadCursor(data)}
}

// An AdStructureIter yields AD structures one at a time.
type AdStructureIter struct {
	cursor *codec.ReadCursor
}

// More reports whether another element may be read.
func (it *AdStructureIter) More() bool { return it.cursor.Available() > 0 }

// Next decodes the next element. A declared length overshooting the
// remaining buffer surfaces as an error on that item only.
func (it *AdStructureIter) Next() (AdStructure, error) {
	l, err := it.cursor.ReadByte()
	if err != nil {
		return nil, ErrInvalidValue
	}
	if l == 0 {
		return nil, ErrInvalidValue
	}
	typ, err := it.cursor.ReadByte()
	if err != nil {
		return nil, ErrInvalidValue
	}
	data, err := it.cursor.Slice(int(l) - 1)
	if err != nil {
		return nil, ErrInvalidValue
	}
	switch typ {
	case adTypeFlags:
		if len(data) < 1 {
			return nil, ErrInvalidValue
		}
		return AdFlags(data[0]), nil
	case adTypeSomeUUID16:
		if len(data)%2 != 0 {
			return nil, ErrInvalidValue
		}
		uu := make(AdServiceUUIDs16, 0, len(data)/2)
		for i := 0; i < len(data); i += 2 {
			uu = append(uu, UUID16(binary.LittleEndian.Uint16(data[i:])))
		}
		return uu, nil
	case adTypeAllUUID128:
		if len(data)%16 != 0 {
			return nil, ErrInvalidValue
		}
		uu := make(AdServiceUUIDs128, 0, len(data)/16)
		for i := 0; i < len(data); i += 16 {
			u, err := uuidFromBytes(data[i : i+16])
			if err != nil {
				return nil, err
			}
			uu = append(uu, u)
		}
		return uu, nil
	case adTypeShortName:
		return AdShortenedLocalName(data), nil
	case adTypeCompleteName:
		return AdCompleteLocalName(data), nil
	case adTypeServiceData16:
		if len(data) < 2 {
			return nil, ErrInvalidValue
		}
		return AdServiceData16{UUID: binary.LittleEndian.Uint16(data), Data: data[2:]}, nil
	case adTypeManufacturerData:
		if len(data) < 2 {
			return nil, ErrInvalidValue
		}
		return AdManufacturerData{
			CompanyIdentifier: binary.LittleEndian.Uint16(data),
			Payload:           data[2:],
		}, nil
	default:
		return AdUnknown{Type: typ, Data: data}, nil
	}
}

// TxPower is a transmit power level. Only the discrete values below
// are accepted by controllers.
type TxPower int8

const (
	TxPowerMinus40dBm TxPower = -40
	TxPowerMinus20dBm TxPower = -20
	TxPowerMinus16dBm TxPower = -16
	TxPowerMinus12dBm TxPower = -12
	TxPowerMinus8dBm  TxPower = -8
	TxPowerMinus4dBm  TxPower = -4
	TxPowerZerodBm    TxPower = 0
	TxPowerPlus2dBm   TxPower = 2
	TxPowerPlus3dBm   TxPower = 3
	TxPowerPlus4dBm   TxPower = 4
	TxPowerPlus5dBm   TxPower = 5
	TxPowerPlus6dBm   TxPower = 6
	TxPowerPlus7dBm   TxPower = 7
	TxPowerPlus8dBm   TxPower = 8
)

// AdvertisementConfig carries the tunable advertising parameters. A
// zero Timeout advertises until disabled; a zero ChannelMap advertises
// on all three primary channels.
type AdvertisementConfig struct {
	PrimaryPhy   hci.PhyKind `default:"1"`
	SecondaryPhy hci.PhyKind `default:"1"`
	TxPower      TxPower

	Timeout   time.Duration
	MaxEvents uint8

	IntervalMin time.Duration `default:"250ms"`
	IntervalMax time.Duration `default:"250ms"`

	ChannelMap   hci.AdvChannelMap
	FilterPolicy hci.AdvFilterPolicy
}

// DefaultAdvertisementConfig returns the config with defaults
// applied: 1M PHYs, 0 dBm, 250 ms intervals.
func DefaultAdvertisementConfig() AdvertisementConfig {
	var c AdvertisementConfig
	defaults.SetDefaults(&c)
	return c
}

// A RawAdvertisement is the normalized form every advertisement
// variant maps onto: one HCI parameter tuple.
type RawAdvertisement struct {
	Props    hci.AdvEventProps
	AdvData  []byte
	ScanData []byte
	Peer     *Address
	Set      hci.AdvSet
}

// An Advertisement maps onto the normalized RawAdvertisement form via
// Raw. Legacy variants work with BLE 4.0 and newer; extended variants
// require BLE 5.0.
type Advertisement interface {
	Raw() RawAdvertisement
}

// Legacy advertisement variants.

type AdvConnectableScannableUndirected struct {
	AdvData  []byte
	ScanData []byte
}

type AdvConnectableNonscannableDirected struct {
	Peer Address
}

type AdvConnectableNonscannableDirectedHighDuty struct {
	Peer Address
}

type AdvNonconnectableScannableUndirected struct {
	AdvData  []byte
	ScanData []byte
}

type AdvNonconnectableNonscannableUndirected struct {
	AdvData []byte
}

func legacyProps() hci.AdvEventProps {
	return hci.AdvEventProps(0).SetLegacyAdv(true).SetAnonymousAdv(false)
}

func (a AdvConnectableScannableUndirected) Raw() RawAdvertisement {
	return RawAdvertisement{
		Props:    legacyProps().SetConnectableAdv(true).SetScannableAdv(true),
		AdvData:  a.AdvData,
		ScanData: a.ScanData,
	}
}

func (a AdvConnectableNonscannableDirected) Raw() RawAdvertisement {
	peer := a.Peer
	return RawAdvertisement{
		Props: legacyProps().SetConnectableAdv(true).SetDirectedAdv(true),
		Peer:  &peer,
	}
}

func (a AdvConnectableNonscannableDirectedHighDuty) Raw() RawAdvertisement {
	peer := a.Peer
	return RawAdvertisement{
		Props: legacyProps().SetConnectableAdv(true).SetHighDutyCycleDirectedConnectableAdv(true),
		Peer:  &peer,
	}
}

func (a AdvNonconnectableScannableUndirected) Raw() RawAdvertisement {
	return RawAdvertisement{
		Props:    legacyProps().SetScannableAdv(true),
		AdvData:  a.AdvData,
		ScanData: a.ScanData,
	}
}

func (a AdvNonconnectableNonscannableUndirected) Raw() RawAdvertisement {
	return RawAdvertisement{
		Props:   legacyProps(),
		AdvData: a.AdvData,
	}
}

// Extended advertisement variants. The set id selects the controller
// advertising set the parameters apply to.

type ExtConnectableNonscannableUndirected struct {
	SetID   uint8
	AdvData []byte
}

type ExtConnectableNonscannableDirected struct {
	SetID   uint8
	Peer    Address
	AdvData []byte
}

type ExtNonconnectableScannableUndirected struct {
	SetID    uint8
	ScanData []byte
}

type ExtNonconnectableScannableDirected struct {
	SetID    uint8
	Peer     Address
	ScanData []byte
}

type ExtNonconnectableNonscannableUndirected struct {
	SetID     uint8
	Anonymous bool
	AdvData   []byte
}

type ExtNonconnectableNonscannableDirected struct {
	SetID     uint8
	Anonymous bool
	Peer      Address
	AdvData   []byte
}

func extSet(setID uint8) hci.AdvSet {
	return hci.AdvSet{Handle: hci.AdvHandle(setID)}
}

func (a ExtConnectableNonscannableUndirected) Raw() RawAdvertisement {
	return RawAdvertisement{
		Props:   hci.AdvEventProps(0).SetConnectableAdv(true),
		AdvData: a.AdvData,
		Set:     extSet(a.SetID),
	}
}

func (a ExtConnectableNonscannableDirected) Raw() RawAdvertisement {
	peer := a.Peer
	return RawAdvertisement{
		Props:   hci.AdvEventProps(0).SetConnectableAdv(true).SetDirectedAdv(true),
		AdvData: a.AdvData,
		Peer:    &peer,
		Set:     extSet(a.SetID),
	}
}

func (a ExtNonconnectableScannableUndirected) Raw() RawAdvertisement {
	return RawAdvertisement{
		Props:    hci.AdvEventProps(0).SetScannableAdv(true),
		ScanData: a.ScanData,
		Set:      extSet(a.SetID),
	}
}

func (a ExtNonconnectableScannableDirected) Raw() RawAdvertisement {
	peer := a.Peer
	return RawAdvertisement{
		Props:    hci.AdvEventProps(0).SetScannableAdv(true).SetDirectedAdv(true),
		ScanData: a.ScanData,
		Peer:     &peer,
		Set:      extSet(a.SetID),
	}
}

func (a ExtNonconnectableNonscannableUndirected) Raw() RawAdvertisement {
	return RawAdvertisement{
		Props:   hci.AdvEventProps(0).SetAnonymousAdv(a.Anonymous),
		AdvData: a.AdvData,
		Set:     extSet(a.SetID),
	}
}

func (a ExtNonconnectableNonscannableDirected) Raw() RawAdvertisement {
	peer := a.Peer
	return RawAdvertisement{
		Props:   hci.AdvEventProps(0).SetAnonymousAdv(a.Anonymous).SetDirectedAdv(true),
		AdvData: a.AdvData,
		Peer:    &peer,
		Set:     extSet(a.SetID),
	}
}

// advParams maps the normalized advertisement and config onto the LE
// Set Extended Advertising Parameters command.
func advParams(c AdvertisementConfig, raw RawAdvertisement, own hci.AddrKind) hci.LESetExtAdvParams {
	p := hci.LESetExtAdvParams{
		Handle:       raw.Set.Handle,
		Props:        raw.Props,
		IntervalMin:  hci.Units625Micros(c.IntervalMin),
		IntervalMax:  hci.Units625Micros(c.IntervalMax),
		ChannelMap:   c.ChannelMap,
		OwnAddrKind:  own,
		FilterPolicy: c.FilterPolicy,
		TxPower:      int8(c.TxPower),
		PrimaryPhy:   c.PrimaryPhy,
		SecondaryPhy: c.SecondaryPhy,
		SID:          uint8(raw.Set.Handle),
	}
	if p.ChannelMap == 0 {
		p.ChannelMap = hci.AdvChannelsAll
	}
	if raw.Peer != nil {
		p.PeerAddrKind = raw.Peer.Kind
		p.PeerAddr = raw.Peer.Addr
	}
	return p
}

// advEnableSet maps the config's timeout and event budget onto the
// advertising set named by raw.
func advEnableSet(c AdvertisementConfig, raw RawAdvertisement) hci.AdvSet {
	return hci.AdvSet{
		Handle:          raw.Set.Handle,
		Duration:        hci.Units10Millis(c.Timeout),
		MaxExtAdvEvents: c.MaxEvents,
	}
}
