package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/mastertrainer/mt/internal/domain"
)

// ScenarioText is the text embedded for a scenario.
func ScenarioText(s domain.Scenario) string {
	var b strings.Builder
	b.WriteString(s.Title)
	if s.Description != "" {
		b.WriteString("\n")
		b.WriteString(s.Description)
	}

	persona := strings.TrimSpace(strings.Join(nonEmpty(s.Persona.Name, s.Persona.Role, s.Persona.Company), ", "))
	if persona != "" {
		b.WriteString("\nBuyer: ")
		b.WriteString(persona)
	}
	if s.Persona.Background != "" {
		b.WriteString("\n")
		b.WriteString(s.Persona.Background)
	}
	if len(s.Persona.Concerns) > 0 {
		b.WriteString("\nConcerns: ")
		b.WriteString(strings.Join(s.Persona.Concerns, "; "))
	}
	if len(s.Objections) > 0 {
		b.WriteString("\nObjections: ")
		b.WriteString(strings.Join(s.Objections, "; "))
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

// Indexer ties an Embedder to an Index.
type Indexer struct {
	embedder *Embedder
	index    *Index
}

func NewIndexer(embedder *Embedder, index *Index) *Indexer {
	return &Indexer{embedder: embedder, index: index}
}

// IndexScenarios embeds and upserts scenarios, keyed by scenario id. It
// returns the number of docs written.
func (x *Indexer) IndexScenarios(ctx context.Context, scenarios []domain.Scenario) (int, error) {
	if len(scenarios) == 0 {
		return 0, nil
	}
	if err := x.index.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	texts := make([]string, 0, len(scenarios))
	for _, scenario := range scenarios {
		texts = append(texts, ScenarioText(scenario))
	}

	vectors, err := x.embedder.Embed(ctx, texts, TextTypeDocument)
	if err != nil {
		return 0, err
	}

	docs := make([]Doc, 0, len(scenarios))
	for i, scenario := range scenarios {
		docs = append(docs, Doc{
			ID:     string(scenario.ID),
			Vector: vectors[i],
			Fields: map[string]any{
				"title":      scenario.Title,
				"category":   scenario.Category,
				"difficulty": string(scenario.Difficulty),
			},
		})
	}

	if err := x.index.Upsert(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (x *Indexer) Search(ctx context.Context, text string, topK int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("search: query text is empty")
	}

	vectors, err := x.embedder.Embed(ctx, []string{text}, TextTypeQuery)
	if err != nil {
		return nil, err
	}
	return x.index.Query(ctx, vectors[0], topK)
}
