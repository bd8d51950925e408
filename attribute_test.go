package trouble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectAttributes(t *AttributeTable) []Attribute {
	var out []Attribute
	t.Iterate(func(it *AttributeIterator) {
		for att := it.Next(); att != nil; att = it.Next() {
			out = append(out, *att)
		}
	})
	return out
}

func TestServiceLayout(t *testing.T) {
	table := NewAttributeTable(16)
	var storage [1]byte

	svc := table.AddService(Service{UUID: UUID16(0x180F)})
	ch := svc.AddCharacteristic(UUID16(0x2A19), CharRead|CharNotify, storage[:])
	svc.Finish()

	require.Equal(t, uint16(3), ch.Handle)
	require.Equal(t, uint16(4), ch.CCCD)

	attrs := collectAttributes(table)
	require.Len(t, attrs, 4)

	assert.Equal(t, uint16(1), attrs[0].Handle)
	assert.True(t, attrs[0].UUID.Equal(UUID16(0x2800)))
	assert.Equal(t, uint16(2), attrs[1].Handle)
	assert.True(t, attrs[1].UUID.Equal(UUID16(0x2803)))
	assert.Equal(t, uint16(3), attrs[2].Handle)
	assert.True(t, attrs[2].UUID.Equal(UUID16(0x2A19)))
	assert.Equal(t, uint16(4), attrs[3].Handle)
	assert.True(t, attrs[3].UUID.Equal(UUID16(0x2902)))

	for _, a := range attrs {
		assert.Equal(t, uint16(4), a.LastHandleInGroup, "attr 0x%04x", a.Handle)
	}

	assert.Equal(t, uint16(0x10), table.nextHandle)
}

func TestSecondServiceAligned(t *testing.T) {
	table := NewAttributeTable(16)
	var v1, v2 [2]byte

	s1 := table.AddService(Service{UUID: UUID16(0x180F)})
	s1.AddCharacteristic(UUID16(0x2A19), CharRead, v1[:])
	s1.Finish()

	s2 := table.AddService(Service{UUID: UUID16(0x1809)})
	s2.AddCharacteristic(UUID16(0x2A1C), CharRead|CharIndicate, v2[:])
	s2.Finish()

	attrs := collectAttributes(table)
	require.Len(t, attrs, 7)

	// Handles strictly increase and are never reused.
	for i := 1; i < len(attrs); i++ {
		assert.Less(t, attrs[i-1].Handle, attrs[i].Handle)
	}

	// Every service starts 16-aligned, except the very first at 1.
	assert.Equal(t, uint16(1), attrs[0].Handle)
	assert.Equal(t, uint16(0x10), attrs[3].Handle)
	assert.Equal(t, uint16(0), attrs[3].Handle%0x10)

	// Each group closes over its own last handle.
	assert.Equal(t, uint16(3), attrs[0].LastHandleInGroup)
	assert.Equal(t, uint16(3), attrs[2].LastHandleInGroup)
	assert.Equal(t, uint16(0x13), attrs[3].LastHandleInGroup)
	assert.Equal(t, uint16(0x13), attrs[6].LastHandleInGroup)

	assert.Equal(t, uint16(0x20), table.nextHandle)
}

func TestCharacteristicWithoutCccd(t *testing.T) {
	table := NewAttributeTable(8)
	var storage [4]byte

	svc := table.AddService(Service{UUID: UUID16(0x180A)})
	ch := svc.AddCharacteristic(UUID16(0x2A29), CharRead|CharWrite, storage[:])
	svc.Finish()

	assert.Equal(t, uint16(0), ch.CCCD)
	assert.Len(t, collectAttributes(table), 3)
}

func TestTableCapacityPanics(t *testing.T) {
	table := NewAttributeTable(1)
	table.AddService(Service{UUID: UUID16(0x180F)})
	assert.Panics(t, func() {
		table.AddService(Service{UUID: UUID16(0x1809)})
	})
}

func TestFinishIdempotent(t *testing.T) {
	table := NewAttributeTable(8)
	svc := table.AddService(Service{UUID: UUID16(0x180F)})
	svc.Finish()
	next := table.nextHandle
	svc.Finish()
	assert.Equal(t, next, table.nextHandle)
}

func TestReadOffsets(t *testing.T) {
	att := Attribute{
		UUID: UUID16(0x2A19),
		Data: ReadOnlyData{Props: CharRead, Value: []byte{1, 2, 3, 4}},
	}

	cases := []struct {
		offset int
		dst    int
		want   []byte
	}{
		{offset: 0, dst: 8, want: []byte{1, 2, 3, 4}},
		{offset: 0, dst: 2, want: []byte{1, 2}},
		{offset: 2, dst: 8, want: []byte{3, 4}},
		{offset: 4, dst: 8, want: []byte{}},
		{offset: 5, dst: 8, want: []byte{}}, // past the end reads zero bytes
	}

	for _, tt := range cases {
		dst := make([]byte, tt.dst)
		n, err := att.Read(tt.offset, dst)
		require.NoError(t, err)
		assert.Equal(t, tt.want, dst[:n], "offset %d", tt.offset)
	}
}

func TestReadNotPermitted(t *testing.T) {
	att := Attribute{
		UUID: UUID16(0x2A19),
		Data: Data{Props: CharWrite, Value: make([]byte, 4)},
	}
	_, err := att.Read(0, make([]byte, 4))
	assert.ErrorIs(t, err, AttErrReadNotPermitted)
}

func TestServiceRead(t *testing.T) {
	att := Attribute{
		UUID: UUID16(0x2800),
		Data: Service{UUID: UUID16(0x180F)},
	}
	dst := make([]byte, 4)
	n, err := att.Read(0, dst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x18}, dst[:n])
}

func TestDeclarationRead(t *testing.T) {
	att := Attribute{
		UUID: UUID16(0x2803),
		Data: Declaration{Props: CharRead | CharNotify, ValueHandle: 0x0003, UUID: UUID16(0x2A19)},
	}

	full := []byte{0x12, 0x03, 0x00, 0x19, 0x2A}
	for offset := 0; offset <= len(full); offset++ {
		dst := make([]byte, 8)
		n, err := att.Read(offset, dst)
		require.NoError(t, err, "offset %d", offset)
		assert.Equal(t, full[offset:], dst[:n], "offset %d", offset)
	}

	// Truncated destination stops mid-layout.
	dst := make([]byte, 2)
	n, err := att.Read(0, dst)
	require.NoError(t, err)
	assert.Equal(t, full[:2], dst[:n])
}

func TestDataWriteBounds(t *testing.T) {
	storage := make([]byte, 4)
	att := Attribute{
		UUID: UUID16(0x2A19),
		Data: Data{Props: CharRead | CharWrite, Value: storage},
	}

	require.NoError(t, att.Write(0, []byte{9, 8}))
	assert.Equal(t, []byte{9, 8, 0, 0}, storage)

	require.NoError(t, att.Write(1, []byte{7, 6}))
	assert.Equal(t, []byte{9, 7, 6, 0}, storage)

	// A write that reaches the final byte is refused.
	assert.ErrorIs(t, att.Write(0, []byte{1, 2, 3, 4}), AttErrInvalidOffset)
	assert.ErrorIs(t, att.Write(2, []byte{1, 2}), AttErrInvalidOffset)
	assert.ErrorIs(t, att.Write(4, []byte{1}), AttErrInvalidOffset)
}

func TestWriteNotPermitted(t *testing.T) {
	cases := []struct {
		name string
		data AttributeData
	}{
		{name: "read only", data: ReadOnlyData{Props: CharRead, Value: []byte{1}}},
		{name: "service", data: Service{UUID: UUID16(0x180F)}},
		{name: "declaration", data: Declaration{Props: CharRead, ValueHandle: 3, UUID: UUID16(0x2A19)}},
		{name: "data without write prop", data: Data{Props: CharRead, Value: make([]byte, 4)}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			att := Attribute{UUID: UUID16(0x2A19), Data: tt.data}
			assert.ErrorIs(t, att.Write(0, []byte{1}), AttErrWriteNotPermitted)
		})
	}
}

func TestCccdSerialization(t *testing.T) {
	cases := []struct {
		write  []byte
		notify bool
		ind    bool
	}{
		{write: []byte{0x01, 0x00}, notify: true, ind: false},
		{write: []byte{0x02, 0x00}, notify: false, ind: true},
		{write: []byte{0x03, 0x00}, notify: true, ind: true},
		{write: []byte{0x00, 0x00}, notify: false, ind: false},
	}

	for _, tt := range cases {
		cccd := &Cccd{}
		att := Attribute{UUID: UUID16(0x2902), Data: cccd}
		require.NoError(t, att.Write(0, tt.write))
		assert.Equal(t, tt.notify, cccd.Notifications, "write %x", tt.write)
		assert.Equal(t, tt.ind, cccd.Indications, "write %x", tt.write)

		// Reading immediately after yields the same two bytes.
		dst := make([]byte, 2)
		n, err := att.Read(0, dst)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		assert.Equal(t, tt.write, dst)
	}
}

func TestCccdErrors(t *testing.T) {
	att := Attribute{UUID: UUID16(0x2902), Data: &Cccd{}}

	assert.ErrorIs(t, att.Write(1, []byte{1}), AttErrInvalidOffset)
	assert.ErrorIs(t, att.Write(0, nil), AttErrUnlikelyError)

	_, err := att.Read(1, make([]byte, 2))
	assert.ErrorIs(t, err, AttErrInvalidOffset)
	_, err = att.Read(0, make([]byte, 1))
	assert.ErrorIs(t, err, AttErrUnlikelyError)
}

func TestSetGet(t *testing.T) {
	table := NewAttributeTable(8)
	var storage [2]byte

	svc := table.AddService(Service{UUID: UUID16(0x180F)})
	ch := svc.AddCharacteristic(UUID16(0x2A19), CharRead|CharWrite, storage[:])
	svc.Finish()

	require.NoError(t, table.Set(ch, []byte{0xAA, 0xBB}))
	var got []byte
	require.NoError(t, table.Get(ch, func(value []byte) {
		got = append(got, value...)
	}))
	assert.Equal(t, []byte{0xAA, 0xBB}, got)

	missing := CharacteristicHandle{Handle: 0x99}
	assert.ErrorIs(t, table.Set(missing, []byte{1}), ErrNotFound)
	assert.ErrorIs(t, table.Get(missing, func([]byte) {}), ErrNotFound)
}

func TestSetLengthMismatchPanics(t *testing.T) {
	table := NewAttributeTable(8)
	var storage [2]byte

	svc := table.AddService(Service{UUID: UUID16(0x180F)})
	ch := svc.AddCharacteristic(UUID16(0x2A19), CharRead|CharWrite, storage[:])
	svc.Finish()

	assert.Panics(t, func() {
		table.Set(ch, []byte{1, 2, 3})
	})
}

func TestAddGAPService(t *testing.T) {
	table := NewAttributeTable(8)
	table.AddGAPService("gopher")

	attrs := collectAttributes(table)
	require.Len(t, attrs, 5)
	svc, ok := attrs[0].Data.(Service)
	require.True(t, ok)
	assert.True(t, svc.UUID.Equal(UUID16(0x1800)))

	name, ok := attrs[2].Data.(ReadOnlyData)
	require.True(t, ok)
	assert.Equal(t, []byte("gopher"), name.Value)
}
