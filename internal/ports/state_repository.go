package ports

import (
	"context"

	"github.com/mastertrainer/mt/internal/domain"
)

// ActiveSession is what the CLI remembers between invocations.
type ActiveSession struct {
	SessionID  domain.SessionID
	ScenarioID domain.ScenarioID
	MaxTurns   int
	Ended      bool
}

type StateRepository interface {
	// Active returns domain.ErrNoActiveSession when nothing is stored.
	Active(ctx context.Context) (ActiveSession, error)
	SaveActive(ctx context.Context, session ActiveSession) error
	ClearActive(ctx context.Context) error
}
