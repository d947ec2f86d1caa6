package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type pipePort struct {
	*io.PipeReader
}

func pipeOpener(r *io.PipeReader, gotMode **serial.Mode) PortOpener {
	return func(path string, mode *serial.Mode) (Porter, error) {
		if gotMode != nil {
			*gotMode = mode
		}
		return pipePort{r}, nil
	}
}

func TestSerialSource_ReadsLines(t *testing.T) {
	r, w := io.Pipe()
	var mode *serial.Mode
	s := NewSerialSourceWithOpener("/dev/ttyUSB0", PortOptions{BaudRate: 230400}, pipeOpener(r, &mode))
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.NotNil(t, mode)
	assert.Equal(t, 230400, mode.BaudRate)

	go func() {
		io.WriteString(w, "1.5,-10\n")
		io.WriteString(w, "garbage\n")
		io.WriteString(w, "\n")
		io.WriteString(w, "2.25, 30.5, 0.4\r\n")
		w.Close()
	}()

	var got int
	require.Eventually(t, func() bool {
		for s.HasNext() {
			if _, err := s.Next(); err == nil {
				got++
			}
		}
		return s.Done()
	}, 2*time.Second, time.Millisecond, "source did not finish after EOF")
	assert.Equal(t, 2, got)
	assert.Equal(t, uint64(1), s.Malformed())
}

func TestSerialSource_DeliversPackets(t *testing.T) {
	r, w := io.Pipe()
	s := NewSerialSourceWithOpener("/dev/ttyUSB0", PortOptions{}, pipeOpener(r, nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	go func() {
		io.WriteString(w, "1.5,-10\n2.25, 30.5, 0.4\nbad,line\n")
	}()

	var got []Packet
	require.Eventually(t, func() bool {
		for s.HasNext() {
			p, err := s.Next()
			require.NoError(t, err)
			got = append(got, p)
		}
		return len(got) == 2
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, 1.5, got[0].Distance)
	assert.Equal(t, -10.0, got[0].AngleDeg)
	assert.Equal(t, 1.0, got[0].Strength)
	assert.Equal(t, 0.4, got[1].Strength)
	assert.False(t, got[1].Time.IsZero())
	require.Eventually(t, func() bool { return s.Malformed() == 1 }, 2*time.Second, time.Millisecond)
	assert.False(t, s.Done(), "an open port is never done")

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrNoData)
	w.Close()
}

func TestSerialSource_OpenFailure(t *testing.T) {
	s := NewSerialSourceWithOpener("/dev/missing", PortOptions{}, func(string, *serial.Mode) (Porter, error) {
		return nil, errors.New("no such device")
	})
	assert.Error(t, s.Start(context.Background()))

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.NoError(t, s.Close())
}

func TestSerialSource_InvalidOptions(t *testing.T) {
	r, _ := io.Pipe()
	s := NewSerialSourceWithOpener("/dev/ttyUSB0", PortOptions{DataBits: 9}, pipeOpener(r, nil))
	assert.Error(t, s.Start(context.Background()))
}

func TestSerialSource_CloseUnblocksReader(t *testing.T) {
	r, _ := io.Pipe()
	s := NewSerialSourceWithOpener("/dev/ttyUSB0", PortOptions{}, pipeOpener(r, nil))
	require.NoError(t, s.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, s.Done())
}

func TestParseReading(t *testing.T) {
	tests := []struct {
		line    string
		want    Packet
		wantErr bool
		invalid bool
	}{
		{line: "1.5,-10", want: Packet{Distance: 1.5, AngleDeg: -10, Strength: 1}},
		{line: " 3 , 45 , 0.25 ", want: Packet{Distance: 3, AngleDeg: 45, Strength: 0.25}},
		{line: "1.5", wantErr: true},
		{line: "1,2,3,4", wantErr: true},
		{line: "x,2", wantErr: true},
		{line: "-1,2", wantErr: true, invalid: true},
		{line: "NaN,10", wantErr: true, invalid: true},
		{line: "1,NaN", wantErr: true, invalid: true},
		{line: "Inf,10", wantErr: true, invalid: true},
		{line: "1,-Inf", wantErr: true, invalid: true},
		{line: "1,2,NaN", wantErr: true, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseReading(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.invalid {
					assert.ErrorIs(t, err, ErrInvalidReading)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
