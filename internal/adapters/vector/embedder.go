// Package vector indexes scenarios for semantic search: DashScope computes
// the embeddings and DashVector stores and queries them.
package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultDashScopeURL   = "https://dashscope.aliyuncs.com"
	DefaultEmbeddingModel = "text-embedding-v2"
	DefaultTimeout        = 30 * time.Second

	// maxBatch is the text-embedding-v2 limit on texts per request.
	maxBatch = 25

	embeddingPath = "/api/v1/services/embeddings/text-embedding/text-embedding"
)

type TextType string

const (
	TextTypeDocument TextType = "document"
	TextTypeQuery    TextType = "query"
)

type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Embedder calls the DashScope text embedding API.
type Embedder struct {
	http   *resty.Client
	model  string
	logger *slog.Logger
}

func NewEmbedder(cfg EmbedderConfig, logger *slog.Logger) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDashScopeURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Embedder{http: client, model: cfg.Model, logger: logger}
}

type embeddingRequest struct {
	Model      string              `json:"model"`
	Input      embeddingInput      `json:"input"`
	Parameters embeddingParameters `json:"parameters"`
}

type embeddingInput struct {
	Texts []string `json:"texts"`
}

type embeddingParameters struct {
	TextType TextType `json:"text_type"`
}

type embeddingResponse struct {
	Output struct {
		Embeddings []struct {
			TextIndex int       `json:"text_index"`
			Embedding []float32 `json:"embedding"`
		} `json:"embeddings"`
	} `json:"output"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
}

type dashScopeError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string, textType TextType) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end], textType)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string, textType TextType) ([][]float32, error) {
	var (
		result  embeddingResponse
		failure dashScopeError
	)
	resp, err := e.http.R().
		SetContext(ctx).
		SetBody(embeddingRequest{
			Model:      e.model,
			Input:      embeddingInput{Texts: texts},
			Parameters: embeddingParameters{TextType: textType},
		}).
		SetResult(&result).
		SetError(&failure).
		Post(embeddingPath)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embed texts: status %d: %s %s", resp.StatusCode(), failure.Code, failure.Message)
	}

	if len(result.Output.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed texts: got %d embeddings for %d texts", len(result.Output.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, embedding := range result.Output.Embeddings {
		if embedding.TextIndex < 0 || embedding.TextIndex >= len(texts) {
			return nil, fmt.Errorf("embed texts: text index %d out of range", embedding.TextIndex)
		}
		vectors[embedding.TextIndex] = embedding.Embedding
	}

	e.logger.Debug("embedded texts", "count", len(texts), "tokens", result.Usage.TotalTokens, "request_id", result.RequestID)
	return vectors, nil
}
