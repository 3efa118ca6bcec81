package domain

import (
	"fmt"
	"unicode/utf8"
)

const (
	DefaultMaxTurns       = 8
	DefaultMinutesPerTurn = 2
	DefaultMinTurnBudget  = 4
	DefaultMaxTurnBudget  = 20

	DefaultMinMessageLength = 10
	DefaultMaxMessageLength = 2000
)

// TurnPolicy derives a session's turn budget. Fixed wins when positive;
// otherwise the scenario's estimated duration is converted at MinutesPerTurn
// and clamped, and scenarios without a duration get DefaultMaxTurns.
type TurnPolicy struct {
	Fixed          int
	MinutesPerTurn int
	MinTurns       int
	MaxTurns       int
}

func DefaultTurnPolicy() TurnPolicy {
	return TurnPolicy{
		MinutesPerTurn: DefaultMinutesPerTurn,
		MinTurns:       DefaultMinTurnBudget,
		MaxTurns:       DefaultMaxTurnBudget,
	}
}

func (p TurnPolicy) normalize() TurnPolicy {
	if p.MinutesPerTurn <= 0 {
		p.MinutesPerTurn = DefaultMinutesPerTurn
	}
	if p.MinTurns <= 0 {
		p.MinTurns = DefaultMinTurnBudget
	}
	if p.MaxTurns <= 0 {
		p.MaxTurns = DefaultMaxTurnBudget
	}
	if p.MaxTurns < p.MinTurns {
		p.MaxTurns = p.MinTurns
	}
	return p
}

func (p TurnPolicy) MaxTurnsFor(scenario *Scenario) int {
	if p.Fixed > 0 {
		return p.Fixed
	}
	if scenario == nil || scenario.EstimatedDuration <= 0 {
		return DefaultMaxTurns
	}

	p = p.normalize()
	turns := (scenario.EstimatedDuration + p.MinutesPerTurn - 1) / p.MinutesPerTurn
	if turns < p.MinTurns {
		return p.MinTurns
	}
	if turns > p.MaxTurns {
		return p.MaxTurns
	}
	return turns
}

// MessageLimits bounds the length, in characters, of a user message.
type MessageLimits struct {
	Min int
	Max int
}

func DefaultMessageLimits() MessageLimits {
	return MessageLimits{Min: DefaultMinMessageLength, Max: DefaultMaxMessageLength}
}

func (l MessageLimits) Validate(content string) error {
	if l.Min <= 0 && l.Max <= 0 {
		l = DefaultMessageLimits()
	}

	length := utf8.RuneCountInString(content)
	if l.Min > 0 && length < l.Min {
		return &ValidationError{Field: "content", Reason: ErrMessageTooShort, Length: length, Limit: l.Min}
	}
	if l.Max > 0 && length > l.Max {
		return &ValidationError{Field: "content", Reason: ErrMessageTooLong, Length: length, Limit: l.Max}
	}

	return nil
}

func (l MessageLimits) String() string {
	return fmt.Sprintf("%d-%d characters", l.Min, l.Max)
}
