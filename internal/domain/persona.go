package domain

import "fmt"

// Reply returns the scripted persona line for the given zero-based user
// turn. Objections come first, then concerns; once both are exhausted the
// persona asks for next steps.
func (s Scenario) Reply(turn int) string {
	lines := make([]string, 0, len(s.Objections)+len(s.Persona.Concerns))
	lines = append(lines, s.Objections...)
	for _, concern := range s.Persona.Concerns {
		lines = append(lines, fmt.Sprintf("I'm still not sure about %s.", concern))
	}

	name := s.Persona.Name
	if name == "" {
		name = "The buyer"
	}
	if turn < 0 || turn >= len(lines) {
		return fmt.Sprintf("%s: Alright, what would the next steps look like?", name)
	}
	return fmt.Sprintf("%s: %s", name, lines[turn])
}
