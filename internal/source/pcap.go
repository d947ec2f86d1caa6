package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReadingSize is the encoded size of one reading in a UDP payload: three
// little-endian float32 values (angle in degrees, distance, strength).
const ReadingSize = 12

// PcapSource replays readings carried in UDP datagrams of a pcap capture
// file. Capture timestamps are preserved.
type PcapSource struct {
	path string
	port int

	file    *os.File
	reader  *pcapgo.Reader
	decoder gopacket.Decoder

	pending []Packet
	eof     bool
	started bool

	datagrams uint64
	skipped   uint64
	invalid   uint64
}

// NewPcapSource returns a replay source for the capture at path. Only UDP
// datagrams addressed to port are used; port 0 accepts all.
func NewPcapSource(path string, port int) *PcapSource {
	return &PcapSource{path: path, port: port}
}

// Start opens the capture file.
func (s *PcapSource) Start(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open capture %s: %w", s.path, err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read pcap header of %s: %w", s.path, err)
	}
	s.file, s.reader, s.decoder = f, r, r.LinkType()
	s.started = true
	log.Printf("pcap source replaying %s (link type %v, udp port %d)", s.path, r.LinkType(), s.port)
	return nil
}

// HasNext reads ahead until a reading is buffered or the file ends.
func (s *PcapSource) HasNext() bool {
	if !s.started {
		return false
	}
	for len(s.pending) == 0 && !s.eof {
		s.fill()
	}
	return len(s.pending) > 0
}

// Next returns the next reading from the capture.
func (s *PcapSource) Next() (Packet, error) {
	if !s.started {
		return Packet{}, ErrNotStarted
	}
	if !s.HasNext() {
		return Packet{}, ErrNoData
	}
	p := s.pending[0]
	s.pending = s.pending[1:]
	return p, nil
}

// Done reports that the whole capture has been replayed.
func (s *PcapSource) Done() bool {
	return s.started && s.eof && len(s.pending) == 0
}

// Stats returns the number of datagrams decoded and capture records skipped.
func (s *PcapSource) Stats() (datagrams, skipped uint64) {
	return s.datagrams, s.skipped
}

// Invalid returns the number of readings dropped by Packet.Validate.
func (s *PcapSource) Invalid() uint64 {
	return s.invalid
}

func (s *PcapSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// fill reads one capture record and appends any readings it carries.
func (s *PcapSource) fill() {
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("pcap source %s: stopping at read error: %v", s.path, err)
		}
		s.eof = true
		return
	}

	pkt := gopacket.NewPacket(data, s.decoder, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		s.skipped++
		return
	}
	udp := udpLayer.(*layers.UDP)
	if s.port != 0 && int(udp.DstPort) != s.port {
		s.skipped++
		return
	}

	readings, invalid, err := DecodeReadings(udp.Payload)
	if err != nil {
		s.skipped++
		return
	}
	if invalid > 0 && s.invalid == 0 {
		log.Printf("pcap source %s: dropping invalid readings", s.path)
	}
	s.invalid += uint64(invalid)
	s.datagrams++
	for i := range readings {
		readings[i].Time = ci.Timestamp
	}
	s.pending = append(s.pending, readings...)
}

// DecodeReadings decodes a UDP payload of packed readings. Readings that
// fail Packet.Validate are dropped and counted in invalid.
func DecodeReadings(payload []byte) (pkts []Packet, invalid int, err error) {
	if len(payload) == 0 || len(payload)%ReadingSize != 0 {
		return nil, 0, fmt.Errorf("payload of %d bytes is not a whole number of %d-byte readings", len(payload), ReadingSize)
	}
	pkts = make([]Packet, 0, len(payload)/ReadingSize)
	for off := 0; off < len(payload); off += ReadingSize {
		p := Packet{
			AngleDeg: float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))),
			Distance: float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[off+4:]))),
			Strength: float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[off+8:]))),
		}
		if p.Validate() != nil {
			invalid++
			continue
		}
		pkts = append(pkts, p)
	}
	return pkts, invalid, nil
}

// EncodeReadings packs readings into a UDP payload. It is the inverse of
// DecodeReadings up to float32 precision.
func EncodeReadings(pkts []Packet) []byte {
	buf := make([]byte, len(pkts)*ReadingSize)
	for i, p := range pkts {
		off := i * ReadingSize
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(p.AngleDeg)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(p.Distance)))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(p.Strength)))
	}
	return buf
}
