package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "powermarket.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "powermarket-ledger.db", cfg.Ledger.Path)
	assert.Equal(t, "http://localhost:3030", cfg.OffChain.BaseURL)
	assert.Equal(t, ModeSQLite, cfg.OffChain.Mode)
	assert.Equal(t, 8, cfg.Market.Concurrency)
	assert.Equal(t, ":3030", cfg.Server.Addr)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
ledger:
  path: /var/lib/pm/chain.db
offchain:
  base_url: https://docs.example.org
  mode: HTTP
market:
  concurrency: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/pm/chain.db", cfg.Ledger.Path)
	assert.Equal(t, "https://docs.example.org", cfg.OffChain.BaseURL)
	assert.Equal(t, ModeHTTP, cfg.OffChain.Mode)
	assert.Equal(t, 3, cfg.Market.Concurrency)
	assert.Equal(t, path, cfg.File)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
signer:
  key: "0x01"
server:
  addr: ":9000"
`)
	t.Setenv("POWERMARKET_SIGNER_KEY", "0x02")
	t.Setenv("POWERMARKET_MARKET_CONCURRENCY", "16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0x02", cfg.Signer.Key)
	assert.Equal(t, 16, cfg.Market.Concurrency)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := Load(writeConfig(t, "offchain:\n  mode: s3\n"))
		assert.ErrorContains(t, err, "offchain.mode")
	})

	t.Run("non-positive concurrency", func(t *testing.T) {
		_, err := Load(writeConfig(t, "market:\n  concurrency: 0\n"))
		assert.ErrorContains(t, err, "concurrency")
	})
}
