package source

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

const defaultBaudRate = 115200

// PortOptions are the line settings of a capture device. Zero values mean
// 115200 baud, 8N1.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"` // N, E or O; NONE, EVEN and ODD are accepted
}

var parityModes = map[string]serial.Parity{
	"N": serial.NoParity,
	"E": serial.EvenParity,
	"O": serial.OddParity,
}

func parityCode(s string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(s))
	switch code {
	case "", "NONE":
		code = "N"
	case "EVEN":
		code = "E"
	case "ODD":
		code = "O"
	}
	_, ok := parityModes[code]
	return code, ok
}

// Normalize fills in defaults and rejects settings the capture source
// cannot open.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = defaultBaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	parity, ok := parityCode(o.Parity)

	switch {
	case o.DataBits < 5 || o.DataBits > 8:
		return o, fmt.Errorf("serial data bits %d out of range 5-8", o.DataBits)
	case o.StopBits != 1 && o.StopBits != 2:
		return o, fmt.Errorf("serial stop bits %d: want 1 or 2", o.StopBits)
	case !ok:
		return o, fmt.Errorf("serial parity %q: want N, E or O", o.Parity)
	}
	o.Parity = parity
	return o, nil
}

// SerialMode returns the go.bug.st/serial mode for the normalised options.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	stop := serial.OneStopBit
	if n.StopBits == 2 {
		stop = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		StopBits: stop,
		Parity:   parityModes[n.Parity],
	}, nil
}
