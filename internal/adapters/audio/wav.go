package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mastertrainer/mt/internal/ports"
)

const wavHeaderSize = 44

// WAVWriter writes 16-bit PCM chunks behind a WAV header. Sizes are patched
// in on Close, which needs a seekable destination.
type WAVWriter struct {
	dst     io.WriteSeeker
	format  ports.Format
	written int64
	closed  bool
}

func NewWAVWriter(dst io.WriteSeeker, format ports.Format) (*WAVWriter, error) {
	w := &WAVWriter{dst: dst, format: format}
	if err := w.writeHeader(0); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *WAVWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("wav writer is closed")
	}
	n, err := w.dst.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *WAVWriter) BytesWritten() int64 {
	return w.written
}

func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind wav file: %w", err)
	}
	if err := w.writeHeader(w.written); err != nil {
		return err
	}
	_, err := w.dst.Seek(0, io.SeekEnd)
	return err
}

func (w *WAVWriter) writeHeader(dataSize int64) error {
	blockAlign := w.format.Channels * 2
	header := make([]byte, wavHeaderSize)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataSize))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], uint16(w.format.Channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(w.format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(w.format.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))

	if _, err := w.dst.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	return nil
}
