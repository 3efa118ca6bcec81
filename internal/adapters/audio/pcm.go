package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mastertrainer/mt/internal/ports"
)

const DefaultFrameDuration = 20 * time.Millisecond

var (
	ErrDeviceBusy     = errors.New("audio device already has an open stream")
	ErrFormatMismatch = errors.New("audio format mismatch")
)

// PCMReaderDevice plays back raw s16le or WAV data as if it were a live
// input. Frames are released at real-time pace unless Unpaced is set.
type PCMReaderDevice struct {
	source        io.Reader
	FrameDuration time.Duration
	Unpaced       bool

	mu   sync.Mutex
	open bool
}

var _ ports.AudioDevice = (*PCMReaderDevice)(nil)

func NewPCMReaderDevice(source io.Reader) *PCMReaderDevice {
	return &PCMReaderDevice{source: source, FrameDuration: DefaultFrameDuration}
}

func (d *PCMReaderDevice) Open(ctx context.Context, format ports.Format) (ports.AudioStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil, ErrDeviceBusy
	}

	reader := bufio.NewReader(d.source)
	header, err := reader.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read audio source: %w", err)
	}
	if string(header) == "RIFF" {
		wavFormat, err := skipWAVHeader(reader)
		if err != nil {
			return nil, err
		}
		if wavFormat != format {
			return nil, fmt.Errorf("%w: source is %d Hz/%d ch, want %d Hz/%d ch", ErrFormatMismatch,
				wavFormat.SampleRate, wavFormat.Channels, format.SampleRate, format.Channels)
		}
	}

	frameDuration := d.FrameDuration
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}
	frameSize := int(int64(format.SampleRate) * int64(format.Channels) * 2 * int64(frameDuration) / int64(time.Second))
	if frameSize < 2 {
		frameSize = 2
	}
	frameSize -= frameSize % 2

	stream := &pcmStream{
		device:    d,
		reader:    reader,
		closer:    closerOf(d.source),
		frameSize: frameSize,
		enabled:   true,
		state:     ports.TrackLive,
	}
	if !d.Unpaced {
		stream.pace = time.NewTicker(frameDuration)
	}

	d.open = true
	return stream, nil
}

func (d *PCMReaderDevice) release() {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
}

type pcmStream struct {
	device    *PCMReaderDevice
	reader    io.Reader
	closer    io.Closer
	frameSize int
	pace      *time.Ticker
	closeOnce sync.Once

	mu      sync.Mutex
	enabled bool
	state   ports.TrackState
}

func (s *pcmStream) Read(ctx context.Context) ([]byte, error) {
	if s.State() == ports.TrackEnded {
		return nil, io.EOF
	}

	if s.pace != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.pace.C:
		}
	}

	frame := make([]byte, s.frameSize)
	n, err := io.ReadFull(s.reader, frame)
	frame = frame[:n-n%2]

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		s.end()
		err = io.EOF
	}
	if s.State() == ports.TrackEnded && err == nil {
		err = io.EOF
	}

	s.mu.Lock()
	enabled := s.enabled
	s.mu.Unlock()
	if !enabled {
		clear(frame)
	}

	if len(frame) == 0 {
		return nil, err
	}
	return frame, err
}

func (s *pcmStream) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *pcmStream) State() ports.TrackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *pcmStream) Close() error {
	s.end()

	var err error
	s.closeOnce.Do(func() {
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// end marks the track ended and frees the device.
func (s *pcmStream) end() {
	s.mu.Lock()
	if s.state == ports.TrackEnded {
		s.mu.Unlock()
		return
	}
	s.state = ports.TrackEnded
	s.mu.Unlock()

	if s.pace != nil {
		s.pace.Stop()
	}
	s.device.release()
}

func closerOf(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nil
}

// skipWAVHeader consumes a RIFF/WAVE header up to the start of the data
// chunk. Only 16-bit PCM is accepted.
func skipWAVHeader(r io.Reader) (ports.Format, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return ports.Format{}, fmt.Errorf("read wav header: %w", err)
	}
	if string(riff[8:12]) != "WAVE" {
		return ports.Format{}, errors.New("read wav header: not a WAVE file")
	}

	var format ports.Format
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return ports.Format{}, fmt.Errorf("read wav chunk: %w", err)
		}
		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return ports.Format{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return ports.Format{}, errors.New("read wav fmt chunk: too short")
			}
			if audioFormat := binary.LittleEndian.Uint16(body[0:]); audioFormat != 1 {
				return ports.Format{}, fmt.Errorf("unsupported wav encoding %d", audioFormat)
			}
			if bits := binary.LittleEndian.Uint16(body[14:]); bits != 16 {
				return ports.Format{}, fmt.Errorf("unsupported wav sample size %d bits", bits)
			}
			format.Channels = int(binary.LittleEndian.Uint16(body[2:]))
			format.SampleRate = int(binary.LittleEndian.Uint32(body[4:]))
		case "data":
			if format.SampleRate == 0 {
				return ports.Format{}, errors.New("read wav header: data before fmt chunk")
			}
			return format, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return ports.Format{}, fmt.Errorf("skip wav chunk %q: %w", id, err)
			}
		}
	}
}
