// Package config loads powermarket settings from a YAML file and
// POWERMARKET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Off-ledger store modes.
const (
	ModeSQLite = "sqlite"
	ModeHTTP   = "http"
)

// Config is the resolved configuration.
type Config struct {
	Ledger   LedgerConfig
	OffChain OffChainConfig
	Signer   SignerConfig
	Market   MarketConfig
	Server   ServerConfig

	// File is the config file that was read, empty if none.
	File string
}

// LedgerConfig locates the chain database.
type LedgerConfig struct {
	Path string
}

// OffChainConfig selects the document store.
type OffChainConfig struct {
	// BaseURL prefixes the locators recorded on the ledger.
	BaseURL string
	// Mode is ModeSQLite (local docstore at Path) or ModeHTTP (documents
	// fetched from their locator URLs).
	Mode string
	Path string
}

// SignerConfig holds the active account's hex private key.
type SignerConfig struct {
	Key string
}

// MarketConfig tunes the market facade.
type MarketConfig struct {
	Concurrency int
}

// ServerConfig configures serve-offchain.
type ServerConfig struct {
	Addr string
}

var defaults = map[string]any{
	"ledger.path":        "powermarket-ledger.db",
	"offchain.base_url":  "http://localhost:3030",
	"offchain.mode":      ModeSQLite,
	"offchain.path":      "powermarket-docs.db",
	"signer.key":         "",
	"market.concurrency": 8,
	"server.addr":        ":3030",
}

// Load reads path, or powermarket.yaml in the working directory when path
// is empty. A missing default file is not an error; a missing explicit
// file is. Environment variables override the file, e.g.
// POWERMARKET_SIGNER_KEY for signer.key.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("POWERMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("powermarket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Ledger: LedgerConfig{Path: v.GetString("ledger.path")},
		OffChain: OffChainConfig{
			BaseURL: v.GetString("offchain.base_url"),
			Mode:    strings.ToLower(v.GetString("offchain.mode")),
			Path:    v.GetString("offchain.path"),
		},
		Signer: SignerConfig{Key: v.GetString("signer.key")},
		Market: MarketConfig{Concurrency: v.GetInt("market.concurrency")},
		Server: ServerConfig{Addr: v.GetString("server.addr")},
		File:   v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.OffChain.Mode {
	case ModeSQLite:
		if c.OffChain.Path == "" {
			return errors.New("config: offchain.path is required in sqlite mode")
		}
	case ModeHTTP:
	default:
		return fmt.Errorf("config: offchain.mode %q must be %q or %q", c.OffChain.Mode, ModeSQLite, ModeHTTP)
	}
	if c.OffChain.BaseURL == "" {
		return errors.New("config: offchain.base_url is required")
	}
	if c.Ledger.Path == "" {
		return errors.New("config: ledger.path is required")
	}
	if c.Market.Concurrency <= 0 {
		return fmt.Errorf("config: market.concurrency must be positive, got %d", c.Market.Concurrency)
	}
	return nil
}
