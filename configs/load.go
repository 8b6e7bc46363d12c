package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// Config is the runtime configuration shared by the client and the relay server.
type Config struct {
	AppName          string   `json:"app_name"`
	ServerAddress    string   `json:"server_address"`
	RedisURL         string   `json:"redis_url"`
	Verbose          bool     `json:"verbose"`
	EncryptionModels []string `json:"encryption_models"`
}

// Default returns the configuration built from the package defaults.
func Default() *Config {
	models := make([]string, len(EncryptionModels))
	copy(models, EncryptionModels)
	return &Config{
		AppName:          AppName,
		ServerAddress:    ServerAddress,
		RedisURL:         "redis://" + RedisAddress,
		EncryptionModels: models,
	}
}

// Load builds a Config from defaults, then the JSONC file at path (if any),
// then QKD_* environment variables. A .env file in the working directory is
// loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if len(cfg.EncryptionModels) == 0 {
		return nil, fmt.Errorf("config %s: encryption_models must not be empty", path)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("QKD_SERVER_ADDRESS"); v != "" {
		c.ServerAddress = v
	}
	if v := os.Getenv("QKD_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("QKD_VERBOSE"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QKD_VERBOSE: %w", err)
		}
		c.Verbose = verbose
	}
	return nil
}

// WebSocketURL is the client dial address for the relay.
func (c *Config) WebSocketURL() string {
	return fmt.Sprintf("ws://%s%s", c.ServerAddress, WebSocketPath)
}
