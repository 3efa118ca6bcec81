// Package scriptenv loads the environment shared by the maintenance
// programs under cmd/. Values come from the process environment, with a
// .env file in the working directory filling in what is unset.
package scriptenv

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mastertrainer/mt/internal/adapters/credentials/env"
	filestore "github.com/mastertrainer/mt/internal/adapters/credentials/file"
	gatewayadapter "github.com/mastertrainer/mt/internal/adapters/gateway"
	"github.com/mastertrainer/mt/internal/adapters/vector"
	"github.com/mastertrainer/mt/internal/application"
)

const (
	DotEnvFile = ".env"

	GatewayBaseURL       = "MT_GATEWAY_BASE_URL"
	APIToken             = "MT_API_TOKEN"
	ServeDB              = "MT_SERVE_DB"
	StaleAfter           = "MT_STALE_AFTER"
	DashScopeAPIKey      = "DASHSCOPE_API_KEY"
	DashVectorAPIKey     = "DASHVECTOR_API_KEY"
	DashVectorEndpoint   = "DASHVECTOR_ENDPOINT"
	DashVectorCollection = "DASHVECTOR_COLLECTION"

	DefaultCollection = "mastertrainer_scenarios"
	DefaultStaleAfter = 24 * time.Hour
)

// Load reads path into the environment. A missing file is not an error and
// variables already set are left alone.
func Load(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func String(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

// Require returns the trimmed values of names, failing on the first unset one.
func Require(names ...string) ([]string, error) {
	values := make([]string, 0, len(names))
	for _, name := range names {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return nil, fmt.Errorf("%s is not set", name)
		}
		values = append(values, value)
	}
	return values, nil
}

func Duration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, raw)
	}
	return value, nil
}

// Gateway builds a client that authenticates with MT_API_TOKEN or, when it
// is unset, the token saved by `mt auth login`.
func Gateway(logger *slog.Logger) (*gatewayadapter.Client, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	credentials := env.NewStore(application.TokenKey, APIToken,
		filestore.NewStore(filepath.Join(homeDir, ".mastertrainer", filestore.DefaultFileName)))

	return gatewayadapter.NewClient(gatewayadapter.Config{
		BaseURL:  String(GatewayBaseURL, gatewayadapter.DefaultBaseURL),
		TokenKey: application.TokenKey,
	}, credentials, logger), nil
}

func Indexer(logger *slog.Logger) (*vector.Indexer, error) {
	keys, err := Require(DashScopeAPIKey, DashVectorAPIKey, DashVectorEndpoint)
	if err != nil {
		return nil, err
	}

	index, err := vector.NewIndex(vector.IndexConfig{
		APIKey:     keys[1],
		Endpoint:   keys[2],
		Collection: String(DashVectorCollection, DefaultCollection),
	}, logger)
	if err != nil {
		return nil, err
	}

	embedder := vector.NewEmbedder(vector.EmbedderConfig{APIKey: keys[0]}, logger)
	return vector.NewIndexer(embedder, index), nil
}
