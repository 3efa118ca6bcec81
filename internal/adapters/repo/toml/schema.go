package toml

import (
	"fmt"
	"slices"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Active  *activeSchema  `toml:"active,omitempty"`
	Recent  []recentSchema `toml:"recent,omitempty"`
}

// checkVersion refuses files written by a newer release. Version 0 is a
// file from before versioning and reads as current.
func (s fileSchema) checkVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

// remember puts active at the head of the recent list, dropping an older
// entry for the same session and anything past maxRecent.
func (s *fileSchema) remember(active activeSchema) {
	entry := recentSchema{SessionID: active.SessionID, ScenarioID: active.ScenarioID, Ended: active.Ended}
	s.Recent = slices.DeleteFunc(s.Recent, func(r recentSchema) bool { return r.SessionID == entry.SessionID })
	s.Recent = slices.Insert(s.Recent, 0, entry)
	if len(s.Recent) > maxRecent {
		s.Recent = s.Recent[:maxRecent]
	}
}

type activeSchema struct {
	SessionID  string `toml:"session_id"`
	ScenarioID string `toml:"scenario_id"`
	MaxTurns   int    `toml:"max_turns"`
	Ended      bool   `toml:"ended"`
	SavedAt    string `toml:"saved_at"`
}

func activeFromPort(session ports.ActiveSession) activeSchema {
	return activeSchema{
		SessionID:  string(session.SessionID),
		ScenarioID: string(session.ScenarioID),
		MaxTurns:   session.MaxTurns,
		Ended:      session.Ended,
	}
}

func (a activeSchema) toPort() ports.ActiveSession {
	return ports.ActiveSession{
		SessionID:  domain.SessionID(a.SessionID),
		ScenarioID: domain.ScenarioID(a.ScenarioID),
		MaxTurns:   a.MaxTurns,
		Ended:      a.Ended,
	}
}

type recentSchema struct {
	SessionID  string `toml:"session_id"`
	ScenarioID string `toml:"scenario_id"`
	Ended      bool   `toml:"ended"`
}

func (r recentSchema) toPort() ports.ActiveSession {
	return ports.ActiveSession{
		SessionID:  domain.SessionID(r.SessionID),
		ScenarioID: domain.ScenarioID(r.ScenarioID),
		Ended:      r.Ended,
	}
}
