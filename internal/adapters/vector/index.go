package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultDimension = 1536
	DefaultMetric    = "cosine"
	DefaultTopK      = 5
)

var ErrCollectionNotFound = errors.New("collection not found")

type IndexConfig struct {
	APIKey string
	// Endpoint is the cluster endpoint, e.g. https://vrs-cn-xxx.dashvector.cn-hangzhou.aliyuncs.com.
	Endpoint   string
	Collection string
	Dimension  int
	Metric     string
	Timeout    time.Duration
}

// Index is a DashVector collection.
type Index struct {
	http       *resty.Client
	collection string
	dimension  int
	metric     string
	logger     *slog.Logger
}

type Doc struct {
	ID     string         `json:"id"`
	Vector []float32      `json:"vector"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Hit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

func NewIndex(cfg IndexConfig, logger *slog.Logger) (*Index, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("dashvector endpoint is required")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, errors.New("dashvector collection is required")
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Metric == "" {
		cfg.Metric = DefaultMetric
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("dashvector-apikey", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Index{
		http:       client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		metric:     cfg.Metric,
		logger:     logger,
	}, nil
}

// envelope is the response shape of every DashVector call; code 0 is
// success.
type envelope[T any] struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Output    T      `json:"output"`
}

func send[T any](ctx context.Context, client *resty.Client, op, method, path string, body any) (T, error) {
	var (
		zero   T
		result envelope[T]
	)

	req := client.R().SetContext(ctx).SetResult(&result).SetError(&result)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return zero, fmt.Errorf("%s: %w", op, ErrCollectionNotFound)
	}
	if resp.IsError() || result.Code != 0 {
		return zero, fmt.Errorf("%s: status %d: code %d: %s", op, resp.StatusCode(), result.Code, result.Message)
	}
	return result.Output, nil
}

func (i *Index) collectionPath(suffix string) string {
	return "/v1/collections/" + url.PathEscape(i.collection) + suffix
}

// EnsureCollection creates the collection when it does not exist yet.
func (i *Index) EnsureCollection(ctx context.Context) error {
	_, err := send[map[string]any](ctx, i.http, "describe collection", http.MethodGet, i.collectionPath(""), nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	_, err = send[any](ctx, i.http, "create collection", http.MethodPost, "/v1/collections", map[string]any{
		"name":      i.collection,
		"dimension": i.dimension,
		"metric":    i.metric,
		"fields_schema": map[string]string{
			"title":      "STRING",
			"category":   "STRING",
			"difficulty": "STRING",
		},
	})
	if err != nil {
		return err
	}

	i.logger.Info("created dashvector collection", "collection", i.collection, "dimension", i.dimension)
	return nil
}

func (i *Index) Upsert(ctx context.Context, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if len(doc.Vector) != i.dimension {
			return fmt.Errorf("upsert docs: doc %s has dimension %d, collection wants %d", doc.ID, len(doc.Vector), i.dimension)
		}
	}

	_, err := send[any](ctx, i.http, "upsert docs", http.MethodPost, i.collectionPath("/docs/upsert"), map[string]any{"docs": docs})
	return err
}

func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	return send[[]Hit](ctx, i.http, "query docs", http.MethodPost, i.collectionPath("/query"), map[string]any{
		"vector":         vector,
		"topk":           topK,
		"include_vector": false,
	})
}
