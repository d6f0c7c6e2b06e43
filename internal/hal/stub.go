//go:build !linux

package hal

import "errors"

var errNotSupported = errors.New("hal: not supported on this platform (requires Linux)")

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(opts Options) (*RealBoard, error) {
	return nil, errNotSupported
}

func (b *RealBoard) SetRelay(asserted bool) error            { return errNotSupported }
func (b *RealBoard) SetActivityInterrupt(enabled bool) error { return errNotSupported }
func (b *RealBoard) Edges() <-chan Edge                      { return nil }
func (b *RealBoard) ReadActivity() (bool, error)             { return false, errNotSupported }
func (b *RealBoard) ReadSwitches() (Switches, error)         { return Switches{}, errNotSupported }
func (b *RealBoard) SetLEDs(green, red bool) error           { return errNotSupported }
func (b *RealBoard) ArmTimer() error                         { return errNotSupported }

// Close is a no-op on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
