package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	chainstore "github.com/mastertrainer/mt/internal/adapters/credentials/chain"
	envstore "github.com/mastertrainer/mt/internal/adapters/credentials/env"
	filestore "github.com/mastertrainer/mt/internal/adapters/credentials/file"
	passstore "github.com/mastertrainer/mt/internal/adapters/credentials/pass"
	gatewayadapter "github.com/mastertrainer/mt/internal/adapters/gateway"
	tomlrepo "github.com/mastertrainer/mt/internal/adapters/repo/toml"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".mastertrainer"
	configFileName = "config.toml"
	envPrefix      = "MT"

	keyGatewayBaseURL     = "gateway.base_url"
	keyGatewayTimeout     = "gateway.timeout"
	keyGatewayFallbacks   = "gateway.fallbacks"
	keyMaxTurns           = "roleplay.max_turns"
	keyMinutesPerTurn     = "roleplay.minutes_per_turn"
	keyMinLength          = "roleplay.min_length"
	keyMaxLength          = "roleplay.max_length"
	keyFeedbackTimeout    = "roleplay.feedback_timeout"
	keyAudioSampleRate    = "audio.sample_rate"
	keyAudioChunkInterval = "audio.chunk_interval"
	keyLogLevel           = "log.level"
	keyCredentialsBackend = "credentials.backend"
	keyPassStoreDir       = "credentials.pass_store_dir"
	keyServeDB            = "serve.db"

	apiTokenEnv = "MT_API_TOKEN"
)

type app struct {
	config      *viper.Viper
	logger      *slog.Logger
	clock       ports.Clock
	credentials ports.CredentialStore
	gateway     *gatewayadapter.Client
	state       *tomlrepo.Repository
	auth        *application.AuthService
	sessions    *application.SessionService
	roleplay    application.ControllerConfig
	fallbacks   application.Fallbacks
	homeDir     string
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := loadConfig(homeDir)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.GetString(keyLogLevel))
	clock := ports.SystemClock{}

	credentials, err := newCredentialStore(cfg, homeDir)
	if err != nil {
		return nil, err
	}

	gateway := gatewayadapter.NewClient(gatewayadapter.Config{
		BaseURL:  cfg.GetString(keyGatewayBaseURL),
		Timeout:  cfg.GetDuration(keyGatewayTimeout),
		TokenKey: application.TokenKey,
	}, credentials, logger)

	state, err := tomlrepo.NewRepository(cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	roleplay := controllerConfig(cfg)

	fallbacks := application.Fallbacks{}
	if cfg.GetBool(keyGatewayFallbacks) {
		fallbacks = application.DemoFallbacks()
	}

	return &app{
		config:      cfg,
		logger:      logger,
		clock:       clock,
		credentials: credentials,
		gateway:     gateway,
		state:       state,
		auth:        application.NewAuthService(gateway, credentials),
		sessions:    application.NewSessionService(gateway, state, roleplay, clock, logger),
		roleplay:    roleplay,
		fallbacks:   fallbacks,
		homeDir:     homeDir,
	}, nil
}

// loadConfig reads ~/.mastertrainer/config.toml (or $MT_CONFIG) when it
// exists. MT_* variables override file values.
func loadConfig(homeDir string) (*viper.Viper, error) {
	cfg := viper.New()
	cfg.SetConfigType("toml")
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(keyGatewayBaseURL, gatewayadapter.DefaultBaseURL)
	cfg.SetDefault(keyGatewayTimeout, gatewayadapter.DefaultTimeout)
	cfg.SetDefault(keyGatewayFallbacks, true)
	cfg.SetDefault(keyMaxTurns, 0)
	cfg.SetDefault(keyMinutesPerTurn, domain.DefaultMinutesPerTurn)
	cfg.SetDefault(keyMinLength, domain.DefaultMinMessageLength)
	cfg.SetDefault(keyMaxLength, domain.DefaultMaxMessageLength)
	cfg.SetDefault(keyFeedbackTimeout, application.DefaultFeedbackTimeout)
	cfg.SetDefault(keyAudioSampleRate, 16000)
	cfg.SetDefault(keyAudioChunkInterval, 250*time.Millisecond)
	cfg.SetDefault(keyLogLevel, "warn")
	cfg.SetDefault(keyCredentialsBackend, "chain")
	cfg.SetDefault(keyServeDB, filepath.Join(homeDir, configDirName, "devgateway.db"))

	configPath := os.Getenv("MT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join(homeDir, configDirName, configFileName)
	}
	cfg.SetConfigFile(configPath)

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newCredentialStore layers MT_API_TOKEN over the configured backend:
// "chain" tries pass first and falls back to the credential file, "file"
// skips pass.
func newCredentialStore(cfg *viper.Viper, homeDir string) (ports.CredentialStore, error) {
	path := filepath.Join(homeDir, configDirName, filestore.DefaultFileName)

	var backend ports.CredentialStore
	switch cfg.GetString(keyCredentialsBackend) {
	case "file":
		backend = filestore.NewStore(path)
	case "chain", "":
		var passOpts []passstore.Option
		if dir := cfg.GetString(keyPassStoreDir); dir != "" {
			passOpts = append(passOpts, passstore.WithStoreDir(dir))
		}
		chain, err := chainstore.NewPassWithFileFallback(path, passOpts...)
		if err != nil {
			return nil, fmt.Errorf("wire credential store chain: %w", err)
		}
		backend = chain
	default:
		return nil, fmt.Errorf("unsupported credentials backend %q", cfg.GetString(keyCredentialsBackend))
	}

	return envstore.NewStore(application.TokenKey, apiTokenEnv, backend), nil
}

func controllerConfig(cfg *viper.Viper) application.ControllerConfig {
	config := application.DefaultControllerConfig()
	config.Policy.Fixed = cfg.GetInt(keyMaxTurns)
	config.Policy.MinutesPerTurn = cfg.GetInt(keyMinutesPerTurn)
	config.Limits = domain.MessageLimits{
		Min: cfg.GetInt(keyMinLength),
		Max: cfg.GetInt(keyMaxLength),
	}
	return config
}
