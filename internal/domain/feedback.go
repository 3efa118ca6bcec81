package domain

import "sort"

type Feedback struct {
	SessionID       SessionID
	OverallScore    float64
	Scores          map[string]float64
	Summary         string
	Recommendations []string
}

// Dimensions returns score dimension names in a stable order.
func (f Feedback) Dimensions() []string {
	names := make([]string, 0, len(f.Scores))
	for name := range f.Scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
