//go:build !linux && !tinygo

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(cfg RealConfig) (*RealBoard, error) {
	return nil, errUnsupported
}

func (b *RealBoard) SetMode(pin Pin, mode Mode) error          { return errUnsupported }
func (b *RealBoard) Write(pin Pin, high bool)                  {}
func (b *RealBoard) Read(pin Pin) bool                         { return false }
func (b *RealBoard) AnalogWrite(pin Pin, duty uint8)           {}
func (b *RealBoard) NowMs() uint32                             { return 0 }
func (b *RealBoard) NowUs() uint32                             { return 0 }
func (b *RealBoard) BusyWaitUs(n uint32)                       {}
func (b *RealBoard) OnEdge(pin Pin, handler EdgeHandler) error { return errUnsupported }
func (b *RealBoard) DisableInterrupts()                        {}
func (b *RealBoard) EnableInterrupts()                         {}
func (b *RealBoard) DroppedEdges() uint32                      { return 0 }
func (b *RealBoard) Tone(pin Pin, hz uint32)                   {}
func (b *RealBoard) NoTone(pin Pin)                            {}
func (b *RealBoard) WriteAngle(angle uint8)                    {}

// Close is a no-op on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
