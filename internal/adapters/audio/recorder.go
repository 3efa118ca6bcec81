package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mastertrainer/mt/internal/ports"
)

const (
	DefaultSampleRate    = 16000
	DefaultChannels      = 1
	DefaultChunkInterval = 250 * time.Millisecond
	DefaultMeterInterval = 16 * time.Millisecond

	endedPollInterval = 10 * time.Millisecond
)

var (
	ErrAlreadyRecording = errors.New("recorder is already recording")
	ErrNotRecording     = errors.New("recorder is not recording")
)

type Config struct {
	Format        ports.Format
	ChunkInterval time.Duration
	MeterInterval time.Duration
	// OnChunk receives every flushed chunk. Calls never overlap.
	OnChunk func([]byte)
	// OnLevel receives each meter reading in [0,1].
	OnLevel func(float64)
}

func (c Config) normalize() Config {
	if c.Format.SampleRate <= 0 {
		c.Format.SampleRate = DefaultSampleRate
	}
	if c.Format.Channels <= 0 {
		c.Format.Channels = DefaultChannels
	}
	if c.ChunkInterval <= 0 {
		c.ChunkInterval = DefaultChunkInterval
	}
	if c.MeterInterval <= 0 {
		c.MeterInterval = DefaultMeterInterval
	}
	return c
}

// Recorder captures PCM from a device and emits it in fixed-interval chunks.
type Recorder struct {
	device ports.AudioDevice
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	rec   *recording
	muted bool
	level atomic.Uint64
}

// recording owns everything acquired by Start. Stop releases it.
type recording struct {
	stream   ports.AudioStream
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	captured chan struct{}

	mu      sync.Mutex
	pending [][]byte
	window  []byte
}

func NewRecorder(device ports.AudioDevice, config Config, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{device: device, config: config.normalize(), logger: logger}
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec != nil {
		return ErrAlreadyRecording
	}

	stream, err := r.device.Open(ctx, r.config.Format)
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	rec := &recording{stream: stream, cancel: cancel, captured: make(chan struct{})}
	r.rec = rec
	r.muted = false
	r.level.Store(0)

	rec.wg.Add(3)
	go r.capture(runCtx, rec)
	go r.flushLoop(runCtx, rec)
	go r.meterLoop(runCtx, rec)

	r.logger.Debug("recording started", "sample_rate", r.config.Format.SampleRate, "channels", r.config.Format.Channels)
	return nil
}

// Stop ends capture, flushes what is buffered and releases the stream. It
// returns once the stream reports TrackEnded or ctx is done. The stream is
// closed before the goroutines are joined so a blocked read returns.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	rec := r.rec
	r.rec = nil
	r.mu.Unlock()

	if rec == nil {
		return ErrNotRecording
	}

	rec.cancel()
	closeErr := rec.stream.Close()
	rec.wg.Wait()
	r.flush(rec)

	if err := waitEnded(ctx, rec.stream); err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("close audio stream: %w", closeErr)
	}

	r.logger.Debug("recording stopped")
	return nil
}

// Record runs fn while recording and always stops afterwards.
func (r *Recorder) Record(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		err = errors.Join(err, r.Stop(stopCtx))
	}()

	return fn(ctx)
}

// ToggleMute flips the input track and reports whether it is now muted.
// Capture and the chunk timer keep running.
func (r *Recorder) ToggleMute() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		return false, ErrNotRecording
	}

	r.muted = !r.muted
	r.rec.stream.SetEnabled(!r.muted)
	return r.muted, nil
}

// Captured is closed once the stream stops delivering frames, because the
// source is exhausted, the device failed or Stop was called. It is nil when
// the recorder is idle.
func (r *Recorder) Captured() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return nil
	}
	return r.rec.captured
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec != nil
}

func (r *Recorder) Muted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted
}

// Level is the latest meter reading in [0,1].
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

func (r *Recorder) capture(ctx context.Context, rec *recording) {
	defer rec.wg.Done()
	defer close(rec.captured)

	for {
		frame, err := rec.stream.Read(ctx)
		if len(frame) > 0 {
			rec.mu.Lock()
			rec.pending = append(rec.pending, frame)
			rec.window = frame
			rec.mu.Unlock()
		}
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Debug("audio capture finished", "error", err)
			}
			return
		}
	}
}

func (r *Recorder) flushLoop(ctx context.Context, rec *recording) {
	defer rec.wg.Done()

	ticker := time.NewTicker(r.config.ChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.flush(rec)
		}
	}
}

func (r *Recorder) flush(rec *recording) {
	rec.mu.Lock()
	pending := rec.pending
	rec.pending = nil
	rec.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	size := 0
	for _, part := range pending {
		size += len(part)
	}
	chunk := make([]byte, 0, size)
	for _, part := range pending {
		chunk = append(chunk, part...)
	}

	if r.config.OnChunk != nil {
		r.config.OnChunk(chunk)
	}
}

func (r *Recorder) meterLoop(ctx context.Context, rec *recording) {
	defer rec.wg.Done()

	ticker := time.NewTicker(r.config.MeterInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec.mu.Lock()
			window := rec.window
			rec.mu.Unlock()

			level := MeanAmplitude(window)
			r.level.Store(math.Float64bits(level))
			if r.config.OnLevel != nil {
				r.config.OnLevel(level)
			}
		}
	}
}

// MeanAmplitude is the mean absolute value of s16le samples, scaled to [0,1].
func MeanAmplitude(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < samples; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		sum += math.Abs(float64(sample))
	}

	level := sum / float64(samples) / 32768
	if level > 1 {
		return 1
	}
	return level
}

func waitEnded(ctx context.Context, stream ports.AudioStream) error {
	if stream.State() == ports.TrackEnded {
		return nil
	}

	ticker := time.NewTicker(endedPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for audio track to end: %w", ctx.Err())
		case <-ticker.C:
			if stream.State() == ports.TrackEnded {
				return nil
			}
		}
	}
}
