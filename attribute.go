package trouble

import (
	"fmt"
	"sync"

	"github.com/lulf/trouble/codec"
)

// Well-known GATT attribute UUIDs.
var (
	gattAttrGAPUUID  = UUID16(0x1800)
	gattAttrGATTUUID = UUID16(0x1801)

	gattAttrPrimaryServiceUUID = UUID16(0x2800)
	gattAttrCharacteristicUUID = UUID16(0x2803)

	gattAttrClientCharacteristicConfigUUID = UUID16(0x2902)

	gattAttrDeviceNameUUID = UUID16(0x2A00)
	gattAttrAppearanceUUID = UUID16(0x2A01)
)

// gapCharAppearanceGenericComputer is the appearance value advertised
// by the bootstrap GAP service.
var gapCharAppearanceGenericComputer = []byte{0x80, 0x00}

// Do not re-order the bit flags below;
// they are organized to match the BLE spec.

// CharacteristicProps is the characteristic property bitfield.
type CharacteristicProps uint8

const (
	CharBroadcast CharacteristicProps = 1 << iota
	CharRead
	CharWriteWithoutResponse
	CharWrite
	CharNotify
	CharIndicate
	CharAuthenticatedWrite
	CharExtended
)

func (p CharacteristicProps) any(mask CharacteristicProps) bool { return p&mask != 0 }

// AttributeData is the value payload of an attribute. It is a closed
// set: Service, ReadOnlyData, Data, Declaration and Cccd.
type AttributeData interface {
	isAttributeData()
}

// Service declares a primary service.
type Service struct {
	UUID UUID
}

// ReadOnlyData is a static characteristic value.
type ReadOnlyData struct {
	Props CharacteristicProps
	Value []byte
}

// Data is a mutable characteristic value. The storage length is fixed
// at construction.
type Data struct {
	Props CharacteristicProps
	Value []byte
}

// Declaration is a characteristic declaration. Its wire layout is the
// property byte, the value handle and the characteristic UUID.
type Declaration struct {
	Props       CharacteristicProps
	ValueHandle uint16
	UUID        UUID
}

// Cccd is a Client Characteristic Configuration descriptor.
type Cccd struct {
	Notifications bool
	Indications   bool
}

func (Service) isAttributeData()      {}
func (ReadOnlyData) isAttributeData() {}
func (Data) isAttributeData()         {}
func (Declaration) isAttributeData()  {}
func (*Cccd) isAttributeData()        {}

// An Attribute is one row of the attribute table.
type Attribute struct {
	UUID              UUID
	Handle            uint16
	LastHandleInGroup uint16
	Data              AttributeData
}

func (a *Attribute) String() string {
	return fmt.Sprintf("attr 0x%04x group 0x%04x uuid %s readable %t writable %t",
		a.Handle, a.LastHandleInGroup, a.UUID, a.Readable(), a.Writable())
}

// Readable reports whether the attribute may be read.
func (a *Attribute) Readable() bool {
	switch d := a.Data.(type) {
	case Data:
		return d.Props&CharRead != 0
	default:
		return true
	}
}

// Writable reports whether the attribute may be written.
func (a *Attribute) Writable() bool {
	switch d := a.Data.(type) {
	case Data:
		return d.Props.any(CharWrite | CharWriteWithoutResponse | CharAuthenticatedWrite)
	case *Cccd:
		return true
	default:
		return false
	}
}

// Read copies the attribute value starting at offset into data and
// returns the number of bytes written. An offset past the end of the
// value reads zero bytes. Errors are AttError values suitable for an
// ATT error response.
func (a *Attribute) Read(offset int, data []byte) (int, error) {
	if !a.Readable() {
		return 0, AttErrReadNotPermitted
	}
	switch d := a.Data.(type) {
	case ReadOnlyData:
		return readValue(d.Value, offset, data), nil
	case Data:
		return readValue(d.Value, offset, data), nil
	case Service:
		return readValue(d.UUID.Bytes(), offset, data), nil
	case *Cccd:
		if offset > 0 {
			return 0, AttErrInvalidOffset
		}
		if len(data) < 2 {
			return 0, AttErrUnlikelyError
		}
		var v byte
		if d.Notifications {
			v |= 0x01
		}
		if d.Indications {
			v |= 0x02
		}
		data[0] = v
		data[1] = 0
		return 2, nil
	case Declaration:
		val := d.UUID.Bytes()
		if offset > len(val)+3 {
			return 0, nil
		}
		w := codec.NewWriteCursor(data)
		for i := offset; i < len(val)+3 && w.Available() > 0; i++ {
			var b byte
			switch i {
			case 0:
				b = byte(d.Props)
			case 1:
				b = byte(d.ValueHandle)
			case 2:
				b = byte(d.ValueHandle >> 8)
			default:
				b = val[i-3]
			}
			if err := w.WriteByte(b); err != nil {
				return 0, AttErrUnlikelyError
			}
		}
		return w.Len(), nil
	default:
		return 0, AttErrUnlikelyError
	}
}

func readValue(value []byte, offset int, data []byte) int {
	if offset > len(value) {
		return 0
	}
	return copy(data, value[offset:])
}

// Write patches the attribute value at offset with data.
func (a *Attribute) Write(offset int, data []byte) error {
	switch d := a.Data.(type) {
	case Data:
		if !a.Writable() {
			return AttErrWriteNotPermitted
		}
		// TODO: the strict < refuses a write that exactly fills the
		// value; relaxing it to <= changes behavior for deployed
		// peers and needs a compatibility check first.
		if offset+len(data) < len(d.Value) {
			copy(d.Value[offset:], data)
			return nil
		}
		return AttErrInvalidOffset
	case *Cccd:
		if offset > 0 {
			return AttErrInvalidOffset
		}
		if len(data) == 0 {
			return AttErrUnlikelyError
		}
		d.Notifications = data[0]&0x01 != 0
		d.Indications = data[0]&0x02 != 0
		return nil
	default:
		return AttErrWriteNotPermitted
	}
}

// An AttributeTable is a fixed-capacity, handle-indexed attribute
// database. Attributes are append-only; handles start at 1, increase
// monotonically and are never reused. One mutex guards the whole
// table, and holders must not block.
type AttributeTable struct {
	mu         sync.Mutex
	attributes []Attribute
	nextHandle uint16
}

// NewAttributeTable returns an empty table with space for max
// attributes. The capacity is fixed; exceeding it while building the
// service topology panics.
func NewAttributeTable(max int) *AttributeTable {
	return &AttributeTable{
		attributes: make([]Attribute, 0, max),
		nextHandle: 1,
	}
}

func (t *AttributeTable) push(a Attribute) uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.attributes) == cap(t.attributes) {
		panic("no space for more attributes")
	}
	a.Handle = t.nextHandle
	t.attributes = append(t.attributes, a)
	t.nextHandle++
	return a.Handle
}

// AddService appends a primary service attribute and returns a
// builder for the service's characteristics. The builder must be
// finished before the next service is added.
func (t *AttributeTable) AddService(s Service) *ServiceBuilder {
	t.mu.Lock()
	start := len(t.attributes)
	t.mu.Unlock()
	t.push(Attribute{
		UUID: gattAttrPrimaryServiceUUID,
		Data: s,
	})
	return &ServiceBuilder{table: t, start: start}
}

// AddGAPService seeds the table with a Generic Access service
// exposing the device name and a generic-computer appearance.
func (t *AttributeTable) AddGAPService(name string) {
	b := t.AddService(Service{UUID: gattAttrGAPUUID})
	b.AddCharacteristicRO(gattAttrDeviceNameUUID, []byte(name))
	b.AddCharacteristicRO(gattAttrAppearanceUUID, gapCharAppearanceGenericComputer)
	b.Finish()
}

// Set replaces the value of the mutable characteristic identified by
// handle. The input must exactly match the size of the storage, or
// Set panics: storage length is fixed at construction.
func (t *AttributeTable) Set(handle CharacteristicHandle, input []byte) error {
	found := ErrNotFound
	t.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle != handle.Handle {
				continue
			}
			if d, ok := att.Data.(Data); ok {
				if len(d.Value) != len(input) {
					panic(fmt.Sprintf("set attribute 0x%04x: value length %d != storage %d",
						att.Handle, len(input), len(d.Value)))
				}
				copy(d.Value, input)
				found = nil
				return
			}
		}
	})
	return found
}

// Get passes the current value of the characteristic identified by
// handle to f. The slice is only valid inside f.
func (t *AttributeTable) Get(handle CharacteristicHandle, f func(value []byte)) error {
	found := ErrNotFound
	t.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			if att.Handle != handle.Handle {
				continue
			}
			if d, ok := att.Data.(Data); ok {
				f(d.Value)
				found = nil
				return
			}
		}
	})
	return found
}

// Iterate runs f with an iteration cursor over the table. The table
// mutex is held for the duration of f, so f must be short and must
// not block.
func (t *AttributeTable) Iterate(f func(it *AttributeIterator)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(&AttributeIterator{attributes: t.attributes})
}

// An AttributeIterator walks the table in handle order.
type AttributeIterator struct {
	attributes []Attribute
	pos        int
}

// Next returns the next attribute, or nil when the table is
// exhausted. The pointer is only valid while the table lock is held.
func (it *AttributeIterator) Next() *Attribute {
	if it.pos >= len(it.attributes) {
		return nil
	}
	a := &it.attributes[it.pos]
	it.pos++
	return a
}

// A CharacteristicHandle names the attributes of one characteristic:
// the value handle, and the CCCD handle when the characteristic
// supports notifications or indications (zero otherwise).
type CharacteristicHandle struct {
	Handle uint16
	CCCD   uint16
}

// A ServiceBuilder appends characteristics to one service group. Call
// Finish when the service is complete; until then the group's
// attributes carry no group end handle and the table is inconsistent
// for readers.
type ServiceBuilder struct {
	table *AttributeTable
	start int
	done  bool
}

func (b *ServiceBuilder) addCharacteristic(uuid UUID, props CharacteristicProps, data AttributeData) CharacteristicHandle {
	// Declaration first, then the value right after it.
	b.table.mu.Lock()
	next := b.table.nextHandle + 1
	cccd := b.table.nextHandle + 2
	b.table.mu.Unlock()

	b.table.push(Attribute{
		UUID: gattAttrCharacteristicUUID,
		Data: Declaration{Props: props, ValueHandle: next, UUID: uuid},
	})
	b.table.push(Attribute{UUID: uuid, Data: data})

	h := CharacteristicHandle{Handle: next}
	if props.any(CharNotify | CharIndicate) {
		b.table.push(Attribute{
			UUID: gattAttrClientCharacteristicConfigUUID,
			Data: &Cccd{},
		})
		h.CCCD = cccd
	}
	return h
}

// AddCharacteristic appends a characteristic backed by the mutable
// storage slice. The storage length fixes the value size.
func (b *ServiceBuilder) AddCharacteristic(uuid UUID, props CharacteristicProps, storage []byte) CharacteristicHandle {
	return b.addCharacteristic(uuid, props, Data{Props: props, Value: storage})
}

// AddCharacteristicRO appends a read-only characteristic with a
// static value.
func (b *ServiceBuilder) AddCharacteristicRO(uuid UUID, value []byte) CharacteristicHandle {
	return b.addCharacteristic(uuid, CharRead, ReadOnlyData{Props: CharRead, Value: value})
}

// Finish closes the service group: every attribute appended since
// AddService gets the group's last handle, and the next service
// starts at the next 16-aligned handle so callers may reserve fixed
// ranges. Finish is idempotent.
func (b *ServiceBuilder) Finish() {
	if b.done {
		return
	}
	b.done = true

	t := b.table
	t.mu.Lock()
	defer t.mu.Unlock()

	last := t.nextHandle - 1
	for i := b.start; i < len(t.attributes); i++ {
		t.attributes[i].LastHandleInGroup = last
	}
	t.nextHandle += 0x10 - t.nextHandle%0x10
}
