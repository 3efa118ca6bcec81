package domain

import (
	"fmt"
	"strings"
)

type ScenarioID string

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

func (d Difficulty) Label() string {
	switch d {
	case DifficultyBeginner:
		return "Beginner"
	case DifficultyIntermediate:
		return "Intermediate"
	case DifficultyAdvanced:
		return "Advanced"
	default:
		return string(d)
	}
}

// Persona describes the simulated buyer.
type Persona struct {
	Name        string
	Role        string
	Company     string
	Background  string
	Concerns    []string
	Personality string
}

type Scenario struct {
	ID                ScenarioID
	Title             string
	Description       string
	Persona           Persona
	Objections        []string
	IdealResponses    []string
	Difficulty        Difficulty
	Category          string
	EstimatedDuration int // minutes
}

func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if strings.TrimSpace(s.Persona.Name) == "" {
		return fmt.Errorf("persona name is required")
	}
	if s.Difficulty != "" && !s.Difficulty.Valid() {
		return fmt.Errorf("unsupported difficulty %q", s.Difficulty)
	}
	if s.EstimatedDuration < 0 {
		return fmt.Errorf("estimated duration must not be negative")
	}

	return nil
}

// ScenarioFilter narrows scenario listings. It is compared by value, so it
// must stay a flat comparable struct.
type ScenarioFilter struct {
	Page       int
	PageSize   int
	Category   string
	Difficulty Difficulty
	Search     string
}

// PageQuery is the pagination-only filter used by history and admin lists.
type PageQuery struct {
	Page     int
	PageSize int
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (f ScenarioFilter) Normalize() ScenarioFilter {
	q := PageQuery{Page: f.Page, PageSize: f.PageSize}.Normalize()
	f.Page = q.Page
	f.PageSize = q.PageSize
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)
	return f
}
