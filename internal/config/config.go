package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analytics engine.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Spool       SpoolConfig       `yaml:"spool"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Forecast    ForecastConfig    `yaml:"forecast"`
	Learning    LearningConfig    `yaml:"learning"`
	Selection   SelectionConfig   `yaml:"selection"`
	Store       StoreConfig       `yaml:"store"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls the metrics listener and shutdown behaviour.
type ServerConfig struct {
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// SpoolConfig controls the incident bundle intake directory.
type SpoolConfig struct {
	Dir     string `yaml:"dir"`
	Workers int    `yaml:"workers"`
}

// CorrelationConfig tunes the alert similarity graph.
type CorrelationConfig struct {
	EdgeThreshold   float64       `yaml:"edgeThreshold"`
	HostWeight      float64       `yaml:"hostWeight"`
	ProximityWeight float64       `yaml:"proximityWeight"`
	KeywordWeight   float64       `yaml:"keywordWeight"`
	KeywordCap      float64       `yaml:"keywordCap"`
	ProximityWindow time.Duration `yaml:"proximityWindow"`
}

// ForecastConfig tunes the exponential-smoothing forecaster.
type ForecastConfig struct {
	Horizon      int     `yaml:"horizon"`
	Alpha        float64 `yaml:"alpha"`
	Beta         float64 `yaml:"beta"`
	MinPoints    int     `yaml:"minPoints"`
	DisplayCap   int     `yaml:"displayCap"`
	TopAnomalies int     `yaml:"topAnomalies"`
}

// LearningConfig tunes the outcome learner.
type LearningConfig struct {
	SuggestMinObservations   int     `yaml:"suggestMinObservations"`
	ThresholdMinObservations int     `yaml:"thresholdMinObservations"`
	ConfidenceFloor          float64 `yaml:"confidenceFloor"`
	ThresholdFloor           int     `yaml:"thresholdFloor"`
	ThresholdCeiling         int     `yaml:"thresholdCeiling"`
	ThresholdStep            int     `yaml:"thresholdStep"`
	HighQuality              float64 `yaml:"highQuality"`
	LowQuality               float64 `yaml:"lowQuality"`
}

// SelectionConfig tunes learned specialist selection.
type SelectionConfig struct {
	BaseThreshold      int     `yaml:"baseThreshold"`
	OverrideConfidence float64 `yaml:"overrideConfidence"`
}

// StoreConfig picks and configures the selection history backend.
type StoreConfig struct {
	Backend         string       `yaml:"backend"`
	MaxPerSignature int          `yaml:"maxPerSignature"`
	Valkey          ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig configures the Valkey-backed history store.
type ValkeyConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("OPSFORGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Spool: SpoolConfig{
			Dir:     "spool",
			Workers: 4,
		},
		Correlation: CorrelationConfig{
			EdgeThreshold:   0.5,
			HostWeight:      0.4,
			ProximityWeight: 0.3,
			KeywordWeight:   0.1,
			KeywordCap:      0.3,
			ProximityWindow: 60 * time.Second,
		},
		Forecast: ForecastConfig{
			Horizon:      12,
			Alpha:        0.4,
			Beta:         0.2,
			MinPoints:    5,
			DisplayCap:   8,
			TopAnomalies: 5,
		},
		Learning: LearningConfig{
			SuggestMinObservations:   3,
			ThresholdMinObservations: 5,
			ConfidenceFloor:          0.7,
			ThresholdFloor:           50,
			ThresholdCeiling:         85,
			ThresholdStep:            5,
			HighQuality:              0.75,
			LowQuality:               0.4,
		},
		Selection: SelectionConfig{
			BaseThreshold:      60,
			OverrideConfidence: 0.85,
		},
		Store: StoreConfig{
			Backend:         "memory",
			MaxPerSignature: 500,
			Valkey: ValkeyConfig{
				DialTimeout:  2 * time.Second,
				ReadTimeout:  500 * time.Millisecond,
				WriteTimeout: 500 * time.Millisecond,
				MaxRetries:   2,
				KeyPrefix:    "opsforge:selection:",
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "memory", "valkey":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "valkey" && cfg.Store.Valkey.Addr == "" {
		return errors.New("store.valkey.addr is required for the valkey backend")
	}
	if cfg.Spool.Workers <= 0 {
		return fmt.Errorf("spool.workers must be positive, got %d", cfg.Spool.Workers)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPSFORGE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("OPSFORGE_SPOOL_DIR"); v != "" {
		cfg.Spool.Dir = v
	}
	if v := os.Getenv("OPSFORGE_SPOOL_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			cfg.Spool.Workers = workers
		}
	}
	if v := os.Getenv("OPSFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPSFORGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("OPSFORGE_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("OPSFORGE_STORE_MAX_PER_SIGNATURE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxPerSignature = n
		}
	}
	if v := os.Getenv("OPSFORGE_VALKEY_ADDR"); v != "" {
		cfg.Store.Valkey.Addr = v
	}
	if v := os.Getenv("OPSFORGE_VALKEY_USERNAME"); v != "" {
		cfg.Store.Valkey.Username = v
	}
	if v := os.Getenv("OPSFORGE_VALKEY_PASSWORD"); v != "" {
		cfg.Store.Valkey.Password = v
	}
	if v := os.Getenv("OPSFORGE_VALKEY_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Store.Valkey.DB = db
		}
	}
	if v := os.Getenv("OPSFORGE_VALKEY_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Store.Valkey.TLS = true
	}
	if v := os.Getenv("OPSFORGE_VALKEY_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.Valkey.DialTimeout = d
		}
	}
	if v := os.Getenv("OPSFORGE_VALKEY_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.Valkey.ReadTimeout = d
		}
	}
	if v := os.Getenv("OPSFORGE_VALKEY_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.Valkey.WriteTimeout = d
		}
	}
	if v := os.Getenv("OPSFORGE_VALKEY_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Store.Valkey.MaxRetries = retry
		}
	}
	if v := os.Getenv("OPSFORGE_VALKEY_KEY_PREFIX"); v != "" {
		cfg.Store.Valkey.KeyPrefix = v
	}
	if v := os.Getenv("OPSFORGE_FORECAST_HORIZON"); v != "" {
		if horizon, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.Horizon = horizon
		}
	}
	if v := os.Getenv("OPSFORGE_FORECAST_ALPHA"); v != "" {
		if alpha, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Forecast.Alpha = alpha
		}
	}
	if v := os.Getenv("OPSFORGE_FORECAST_BETA"); v != "" {
		if beta, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Forecast.Beta = beta
		}
	}
	if v := os.Getenv("OPSFORGE_SELECTION_BASE_THRESHOLD"); v != "" {
		if threshold, err := strconv.Atoi(v); err == nil {
			cfg.Selection.BaseThreshold = threshold
		}
	}
}
