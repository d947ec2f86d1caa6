package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// Porter is the part of a serial port the capture source needs.
type Porter interface {
	io.Reader
	io.Closer
}

// PortOpener opens a serial device. Tests replace it to avoid hardware.
type PortOpener func(path string, mode *serial.Mode) (Porter, error)

func openSerialPort(path string, mode *serial.Mode) (Porter, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

const serialQueueSize = 4096

// SerialSource reads newline-delimited "distance,angle[,strength]" readings
// from a serial device on a background goroutine.
type SerialSource struct {
	path string
	opts PortOptions
	open PortOpener

	port    Porter
	packets chan Packet
	done    atomic.Bool
	started bool

	malformed atomic.Uint64

	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSerialSource returns a capture source for the device at path.
func NewSerialSource(path string, opts PortOptions) *SerialSource {
	return NewSerialSourceWithOpener(path, opts, openSerialPort)
}

// NewSerialSourceWithOpener is NewSerialSource with a custom port opener.
func NewSerialSourceWithOpener(path string, opts PortOptions, open PortOpener) *SerialSource {
	return &SerialSource{
		path:    path,
		opts:    opts,
		open:    open,
		packets: make(chan Packet, serialQueueSize),
	}
}

// Start opens the port and begins reading.
func (s *SerialSource) Start(ctx context.Context) error {
	if s.started {
		return errors.New("serial source already started")
	}
	mode, err := s.opts.SerialMode()
	if err != nil {
		return err
	}
	port, err := s.open(s.path, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.path, err)
	}
	log.Printf("serial source reading from %s at %d baud", s.path, mode.BaudRate)

	s.port = port
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.read(ctx)
	return nil
}

func (s *SerialSource) read(ctx context.Context) {
	defer s.wg.Done()
	defer s.done.Store(true)

	scan := bufio.NewScanner(s.port)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		pkt, err := ParseReading(line)
		if err != nil {
			if s.malformed.Add(1) == 1 {
				log.Printf("serial source %s: skipping malformed reading %q: %v", s.path, line, err)
			}
			continue
		}
		pkt.Time = time.Now()
		select {
		case s.packets <- pkt:
		case <-ctx.Done():
			return
		}
	}
	if err := scan.Err(); err != nil && ctx.Err() == nil {
		log.Printf("serial source %s: read error: %v", s.path, err)
	}
}

// HasNext reports whether a reading is buffered.
func (s *SerialSource) HasNext() bool {
	return len(s.packets) > 0
}

// Next returns the oldest buffered reading.
func (s *SerialSource) Next() (Packet, error) {
	if !s.started {
		return Packet{}, ErrNotStarted
	}
	select {
	case p := <-s.packets:
		return p, nil
	default:
		return Packet{}, ErrNoData
	}
}

// Done reports that the port has stopped delivering data and every reading
// has been consumed.
func (s *SerialSource) Done() bool {
	return s.done.Load() && len(s.packets) == 0
}

// Malformed returns the number of lines that could not be parsed.
func (s *SerialSource) Malformed() uint64 {
	return s.malformed.Load()
}

// Close stops the reader and closes the port.
func (s *SerialSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.port != nil {
			err = s.port.Close()
		}
		s.wg.Wait()
	})
	return err
}

// ParseReading parses a "distance,angle[,strength]" line. A missing
// strength defaults to 1. Readings failing Packet.Validate are errors.
func ParseReading(line string) (Packet, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return Packet{}, fmt.Errorf("expected 2 or 3 fields, got %d", len(fields))
	}

	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Packet{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i] = v
	}
	p := Packet{Distance: vals[0], AngleDeg: vals[1], Strength: 1}
	if len(vals) == 3 {
		p.Strength = vals[2]
	}
	if err := p.Validate(); err != nil {
		return Packet{}, err
	}
	return p, nil
}
