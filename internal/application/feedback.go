package application

import (
	"context"
	"errors"
	"time"

	"github.com/mastertrainer/mt/internal/domain"
)

var ErrFeedbackTimeout = errors.New("timed out waiting for feedback")

const (
	DefaultFeedbackInterval = 3 * time.Second
	DefaultFeedbackTimeout  = 2 * time.Minute
)

// PollFeedback calls fetch until it stops answering ErrFeedbackPending.
func PollFeedback(ctx context.Context, fetch func(context.Context) (domain.Feedback, error), interval, timeout time.Duration) (domain.Feedback, error) {
	if interval <= 0 {
		interval = DefaultFeedbackInterval
	}
	if timeout <= 0 {
		timeout = DefaultFeedbackTimeout
	}

	deadline := time.Now().Add(timeout)
	for {
		feedback, err := fetch(ctx)
		if err == nil {
			return feedback, nil
		}
		if !errors.Is(err, domain.ErrFeedbackPending) {
			return domain.Feedback{}, err
		}

		if time.Now().Add(interval).After(deadline) {
			return domain.Feedback{}, ErrFeedbackTimeout
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return domain.Feedback{}, ctx.Err()
		case <-timer.C:
		}
	}
}
