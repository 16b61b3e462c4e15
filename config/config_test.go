package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "SWINGBOT_DSN", "SWINGBOT_MODE", "RERANKER_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Interval())
	assert.Equal(t, "swingbot.db", cfg.Storage.DSN)
	assert.Equal(t, "paper", cfg.Storage.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	ec := cfg.EngineConfig()
	assert.Equal(t, 30*time.Minute, ec.ScanInterval)
	assert.Equal(t, 3, ec.ProtectionThreshold)
	assert.Equal(t, 24*time.Hour, ec.ProtectionWindow)
	assert.Equal(t, 2*time.Hour, ec.CooldownAfterWin)
	assert.Equal(t, 4*time.Hour, ec.CooldownAfterLoss)
	assert.Equal(t, 24*time.Hour, ec.EntryTimeout)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, ec.ReferenceCoins)
	assert.Equal(t, 10*time.Second, ec.RerankTimeout)

	fc := cfg.FunnelConfig()
	assert.Equal(t, 30, fc.MaxRank)
	assert.Equal(t, 70.0, fc.MinProbability)
}

func TestLoad_YAMLValues(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, `
engine:
  scan_interval_minutes: 15
  cooldown_loss_minutes: 360
  reference_coins: [bitcoin]
funnel:
  max_rank: 50
  min_probability: 75
  min_stop_pct: 1.5
  max_stop_pct: 6
  preferred_rr: 2.8
  rsi_overbought: 75
  rsi_oversold: 25
  stop_atr_multiple: 2
  near_entry_1h: 0.8
api:
  reranker_base: http://localhost:9000
  timeout_seconds: 4
storage:
  mode: live
`))
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	assert.Equal(t, 15*time.Minute, ec.ScanInterval)
	assert.Equal(t, 6*time.Hour, ec.CooldownAfterLoss)
	assert.Equal(t, []string{"bitcoin"}, ec.ReferenceCoins)
	assert.Equal(t, 4*time.Second, ec.RerankTimeout)

	fc := cfg.FunnelConfig()
	assert.Equal(t, 50, fc.MaxRank)
	assert.Equal(t, 75.0, fc.MinProbability)
	assert.Equal(t, 2.5, fc.MinRiskReward, "unset fields keep the default")
	assert.Equal(t, 1.5, fc.MinStopPct)
	assert.Equal(t, 6.0, fc.MaxStopPct)
	assert.Equal(t, 2.8, fc.PreferredRR)
	assert.Equal(t, 75.0, fc.RSIOverbought)
	assert.Equal(t, 25.0, fc.RSIOversold)
	assert.Equal(t, 2.0, fc.StopATRMultiple)
	assert.Equal(t, 0.8, fc.NearEntry1h)

	assert.Equal(t, "http://localhost:9000", cfg.API.RerankerBase)
	assert.Equal(t, "live", cfg.Storage.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SWINGBOT_DSN", "/tmp/other.db")
	t.Setenv("SWINGBOT_MODE", "live")
	t.Setenv("RERANKER_API_KEY", "secret")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\nstorage:\n  dsn: a.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/other.db", cfg.Storage.DSN)
	assert.Equal(t, "live", cfg.Storage.Mode)
	assert.Equal(t, "secret", cfg.API.RerankerAPIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "engine: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "funnel:\n  min_stop_pct: 6\n  max_stop_pct: 3\n"))
	assert.ErrorContains(t, err, "min_stop_pct")

	_, err = Load(writeConfig(t, "funnel:\n  rsi_oversold: 80\n"))
	assert.ErrorContains(t, err, "rsi_oversold")
}
