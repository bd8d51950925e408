package trouble

import (
	"errors"
	"fmt"

	"github.com/lulf/trouble/codec"
)

// Errors surfaced by the host core. Adapter command submission wraps
// transport failures in ControllerError; everything else is host-side.
var (
	ErrInsufficientSpace    = errors.New("insufficient space")
	ErrInvalidValue         = errors.New("invalid value")
	ErrInvalidChannelID     = errors.New("invalid channel id")
	ErrNoChannelAvailable   = errors.New("no channel available")
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrOutOfMemory          = errors.New("out of memory")
	ErrNotSupported         = errors.New("not supported")
	ErrChannelClosed        = errors.New("channel closed")
	ErrTimeout              = errors.New("timeout")
	ErrBusy                 = errors.New("busy")
	ErrNoPermits            = errors.New("no permits")
	ErrDisconnected         = errors.New("disconnected")
	ErrAdvertisementTooLong = errors.New("advertisement too long")
	ErrOther                = errors.New("other error")
)

// ControllerError wraps a transport-specific failure reported by the
// controller, as opposed to an error raised by the host itself.
type ControllerError struct {
	Err error
}

func (e *ControllerError) Error() string { return "controller: " + e.Err.Error() }
func (e *ControllerError) Unwrap() error { return e.Err }

// HCIEncodeError wraps a failure to marshal an HCI command parameter.
type HCIEncodeError struct {
	Err error
}

func (e *HCIEncodeError) Error() string { return "hci encode: " + e.Err.Error() }
func (e *HCIEncodeError) Unwrap() error { return e.Err }

// HCIDecodeError wraps a failure to parse an HCI return parameter.
type HCIDecodeError struct {
	Err error
}

func (e *HCIDecodeError) Error() string { return "hci decode: " + e.Err.Error() }
func (e *HCIDecodeError) Unwrap() error { return e.Err }

// fromCodec lifts a codec error into the host taxonomy.
func fromCodec(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, codec.ErrInsufficientSpace):
		return ErrInsufficientSpace
	case errors.Is(err, codec.ErrInvalidValue):
		return ErrInvalidValue
	default:
		return fmt.Errorf("%w: %v", ErrOther, err)
	}
}
