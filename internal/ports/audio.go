package ports

import "context"

type Format struct {
	SampleRate int
	Channels   int
}

type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// AudioDevice hands out capture streams. A device serves one stream at a
// time.
type AudioDevice interface {
	Open(ctx context.Context, format Format) (AudioStream, error)
}

// AudioStream delivers 16-bit little-endian PCM frames.
type AudioStream interface {
	// Read blocks until the next frame is available. It returns io.EOF after
	// Close or when the source is exhausted.
	Read(ctx context.Context) ([]byte, error)
	// SetEnabled toggles the input track. Disabled tracks keep producing
	// silent frames.
	SetEnabled(enabled bool)
	State() TrackState
	Close() error
}
