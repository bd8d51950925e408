// Package trouble implements the core of a Bluetooth Low Energy host
// that drives a controller over an HCI transport.
//
// The host keeps a fixed-capacity GATT attribute database for the
// peripheral role, parses and frames ATT protocol data units, and
// prepares advertising data and parameters for submission through a
// single controller command interface. Storage is sized up front:
// attribute values live in caller-owned buffers and responses are
// framed into caller-owned buffers. Request decoding, UUID values and
// logging still allocate on the heap.
//
// A minimal peripheral looks like:
//
//	table := trouble.NewAttributeTable(32)
//	table.AddGAPService("my device")
//
//	var battery [1]byte
//	svc := table.AddService(trouble.Service{UUID: trouble.UUID16(0x180F)})
//	level := svc.AddCharacteristic(trouble.UUID16(0x2A19),
//		trouble.CharRead|trouble.CharNotify, battery[:])
//	svc.Finish()
//
//	server := trouble.NewAttributeServer(table, nil)
//	// feed inbound ATT payloads to server.Process, transmit what it frames
//	_ = level
//
// The transport, L2CAP channel management and connection event
// handling are external: the host consumes only a Controller that
// submits commands.
package trouble
