package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/swingbot/internal/application/engine"
	"github.com/alejandrodnm/swingbot/internal/application/funnel"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Funnel  FunnelConfig  `yaml:"funnel"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla los tiempos de la máquina de estados.
type EngineConfig struct {
	IntervalSeconds       int      `yaml:"interval_seconds"` // cada cuánto se invoca el engine en modo loop
	ScanIntervalMinutes   int      `yaml:"scan_interval_minutes"`
	ProtectionThreshold   int      `yaml:"protection_threshold"`
	ProtectionWindowHours int      `yaml:"protection_window_hours"`
	CooldownWinMinutes    int      `yaml:"cooldown_win_minutes"`
	CooldownLossMinutes   int      `yaml:"cooldown_loss_minutes"`
	EntryTimeoutHours     int      `yaml:"entry_timeout_hours"`
	StaleAfterMinutes     int      `yaml:"stale_after_minutes"`
	ReferenceCoins        []string `yaml:"reference_coins"`
	RerankTopN            int      `yaml:"rerank_top_n"`
}

// FunnelConfig expone los umbrales del funnel; 0 = default.
type FunnelConfig struct {
	MaxRank         int     `yaml:"max_rank"`
	MinVolume24h    float64 `yaml:"min_volume_24h"`
	MinMarketCap    float64 `yaml:"min_market_cap"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	RSIOversold     float64 `yaml:"rsi_oversold"`
	StopATRMultiple float64 `yaml:"stop_atr_multiple"`
	MinStopPct      float64 `yaml:"min_stop_pct"` // banda del stop en %
	MaxStopPct      float64 `yaml:"max_stop_pct"`
	PreferredRR     float64 `yaml:"preferred_rr"`
	MinProbability  float64 `yaml:"min_probability"`
	MinRiskReward   float64 `yaml:"min_risk_reward"`
	MaxTargetPct    float64 `yaml:"max_target_pct"`
	NearEntry1h     float64 `yaml:"near_entry_1h"` // |1h| ≤ esto ⇒ entrada inmediata
	Workers         int     `yaml:"workers"`
}

// APIConfig contiene los base URLs de los colaboradores HTTP. Vacío = deshabilitado.
type APIConfig struct {
	IngestionBase  string  `yaml:"ingestion_base"`
	WhaleBase      string  `yaml:"whale_base"`
	RerankerBase   string  `yaml:"reranker_base"`
	RerankerAPIKey string  `yaml:"-"` // solo por env
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN  string `yaml:"dsn"`  // ruta al archivo SQLite
	Mode string `yaml:"mode"` // paper | live
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// Interval devuelve cada cuánto se invoca el engine en modo loop.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Engine.IntervalSeconds) * time.Second
}

// APITimeout devuelve el timeout HTTP de los colaboradores.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// EngineConfig traduce la sección engine a engine.Config sobre los defaults.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	e := c.Engine
	ec.ScanInterval = time.Duration(e.ScanIntervalMinutes) * time.Minute
	ec.ProtectionThreshold = e.ProtectionThreshold
	ec.ProtectionWindow = time.Duration(e.ProtectionWindowHours) * time.Hour
	ec.CooldownAfterWin = time.Duration(e.CooldownWinMinutes) * time.Minute
	ec.CooldownAfterLoss = time.Duration(e.CooldownLossMinutes) * time.Minute
	ec.EntryTimeout = time.Duration(e.EntryTimeoutHours) * time.Hour
	ec.SnapshotStaleAfter = time.Duration(e.StaleAfterMinutes) * time.Minute
	ec.ReferenceCoins = append([]string(nil), e.ReferenceCoins...)
	ec.RerankTopN = e.RerankTopN
	if t := c.APITimeout(); t > 0 {
		ec.RerankTimeout = t
		ec.RefreshTimeout = t
	}
	return ec
}

// FunnelConfig traduce la sección funnel a funnel.Config; los campos a 0 conservan el default.
func (c *Config) FunnelConfig() funnel.Config {
	fc := funnel.DefaultConfig()
	f := c.Funnel
	if f.MaxRank > 0 {
		fc.MaxRank = f.MaxRank
	}
	if f.MinVolume24h > 0 {
		fc.MinVolume24h = f.MinVolume24h
	}
	if f.MinMarketCap > 0 {
		fc.MinMarketCap = f.MinMarketCap
	}
	if f.RSIOverbought > 0 {
		fc.RSIOverbought = f.RSIOverbought
	}
	if f.RSIOversold > 0 {
		fc.RSIOversold = f.RSIOversold
	}
	if f.StopATRMultiple > 0 {
		fc.StopATRMultiple = f.StopATRMultiple
	}
	if f.MinStopPct > 0 {
		fc.MinStopPct = f.MinStopPct
	}
	if f.MaxStopPct > 0 {
		fc.MaxStopPct = f.MaxStopPct
	}
	if f.PreferredRR > 0 {
		fc.PreferredRR = f.PreferredRR
	}
	if f.NearEntry1h > 0 {
		fc.NearEntry1h = f.NearEntry1h
	}
	if f.MinProbability > 0 {
		fc.MinProbability = f.MinProbability
	}
	if f.MinRiskReward > 0 {
		fc.MinRiskReward = f.MinRiskReward
	}
	if f.MaxTargetPct > 0 {
		fc.MaxTargetPct = f.MaxTargetPct
	}
	if f.Workers > 0 {
		fc.Workers = f.Workers
	}
	return fc
}

// validate rechaza bandas invertidas después de aplicar los defaults.
func (c *Config) validate() error {
	fc := c.FunnelConfig()
	if fc.MinStopPct > fc.MaxStopPct {
		return fmt.Errorf("funnel: min_stop_pct %.2f above max_stop_pct %.2f", fc.MinStopPct, fc.MaxStopPct)
	}
	if fc.RSIOversold >= fc.RSIOverbought {
		return fmt.Errorf("funnel: rsi_oversold %.0f not below rsi_overbought %.0f", fc.RSIOversold, fc.RSIOverbought)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SWINGBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SWINGBOT_MODE"); v != "" {
		cfg.Storage.Mode = v
	}
	if v := os.Getenv("RERANKER_API_KEY"); v != "" {
		cfg.API.RerankerAPIKey = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	def := engine.DefaultConfig()
	e := &cfg.Engine
	if e.IntervalSeconds <= 0 {
		e.IntervalSeconds = 300
	}
	if e.ScanIntervalMinutes <= 0 {
		e.ScanIntervalMinutes = int(def.ScanInterval / time.Minute)
	}
	if e.ProtectionThreshold <= 0 {
		e.ProtectionThreshold = def.ProtectionThreshold
	}
	if e.ProtectionWindowHours <= 0 {
		e.ProtectionWindowHours = int(def.ProtectionWindow / time.Hour)
	}
	if e.CooldownWinMinutes <= 0 {
		e.CooldownWinMinutes = int(def.CooldownAfterWin / time.Minute)
	}
	if e.CooldownLossMinutes <= 0 {
		e.CooldownLossMinutes = int(def.CooldownAfterLoss / time.Minute)
	}
	if e.EntryTimeoutHours <= 0 {
		e.EntryTimeoutHours = int(def.EntryTimeout / time.Hour)
	}
	if e.StaleAfterMinutes <= 0 {
		e.StaleAfterMinutes = int(def.SnapshotStaleAfter / time.Minute)
	}
	if len(e.ReferenceCoins) == 0 {
		e.ReferenceCoins = def.ReferenceCoins
	}
	if e.RerankTopN <= 0 {
		e.RerankTopN = def.RerankTopN
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.API.RatePerSecond <= 0 {
		cfg.API.RatePerSecond = 5
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "swingbot.db"
	}
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = "paper"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
