package trouble

import "github.com/lulf/trouble/hci"

// An Address is a device address together with its kind.
type Address struct {
	Kind hci.AddrKind
	Addr hci.BdAddr
}

// RandomAddress returns a static random address.
func RandomAddress(val [6]byte) Address {
	return Address{Kind: hci.AddrKindRandom, Addr: hci.BdAddr(val)}
}

// PublicAddress returns a public device address.
func PublicAddress(val [6]byte) Address {
	return Address{Kind: hci.AddrKindPublic, Addr: hci.BdAddr(val)}
}

func (a Address) String() string { return a.Addr.String() }
