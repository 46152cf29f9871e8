// Package config loads and validates the engine's structured
// configuration document using github.com/spf13/viper, with
// environment overrides for the operationally important fields.
package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/atlas-desktop/pulsecore/internal/automation"
	"github.com/atlas-desktop/pulsecore/internal/datafetch"
	"github.com/atlas-desktop/pulsecore/internal/engineerr"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/execution"
	"github.com/atlas-desktop/pulsecore/internal/filewatcher"
	"github.com/atlas-desktop/pulsecore/internal/position"
	"github.com/atlas-desktop/pulsecore/internal/regime"
	"github.com/atlas-desktop/pulsecore/internal/risk"
	"github.com/atlas-desktop/pulsecore/internal/strategyeval"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// TradingConfig lists the symbols and timeframes the engine trades.
type TradingConfig struct {
	Symbols    []string
	Timeframes []string
}

// OrchestratorConfig tunes the tick loop and health-check cadence.
type OrchestratorConfig struct {
	EnableAutoRestart   bool
	HealthCheckInterval time.Duration
	TickInterval        time.Duration
}

// RiskConfig bundles the account-wide limits and the nested
// account-stop-loss guard settings.
type RiskConfig struct {
	DailyLossLimit  decimal.Decimal
	MaxPositions    int
	MaxPositionSize decimal.Decimal
	AccountStopLoss risk.Config
}

// AutomationConfig bundles the state manager and file watcher settings.
type AutomationConfig struct {
	Enabled             bool
	StateFile           string
	ToggleFile          string
	FileWatcherEnabled  bool
	FileWatcherInterval time.Duration
	BackupCount         int
}

// ServicesConfig bundles per-service defaults applied to every symbol's
// pipeline.
type ServicesConfig struct {
	CandleIndex     int
	NbrBars         int
	Regime          regime.Config
	MinRowsRequired int
	ExecutionMode   execution.Mode
	BatchSize       int
	LotStep         decimal.Decimal
	MinLot          decimal.Decimal
	BrokerMinVolume decimal.Decimal
}

// Config is the fully validated, in-memory configuration document.
type Config struct {
	Trading      TradingConfig
	Services     ServicesConfig
	EventBus     events.Config
	Orchestrator OrchestratorConfig
	Risk         RiskConfig
	Automation   AutomationConfig
}

// Default returns working defaults for every section, trading symbols
// and timeframes left empty for the caller (or file/env) to supply.
func Default() Config {
	return Config{
		Trading: TradingConfig{},
		Services: ServicesConfig{
			CandleIndex:     1,
			NbrBars:         500,
			Regime:          regime.DefaultConfig(),
			MinRowsRequired: 3,
			ExecutionMode:   execution.ModeImmediate,
			BatchSize:       1,
			LotStep:         decimal.NewFromFloat(0.01),
			MinLot:          decimal.NewFromFloat(0.01),
			BrokerMinVolume: decimal.NewFromFloat(0.01),
		},
		EventBus: events.DefaultConfig(),
		Orchestrator: OrchestratorConfig{
			EnableAutoRestart:   true,
			HealthCheckInterval: 30 * time.Second,
			TickInterval:        5 * time.Second,
		},
		Risk: RiskConfig{
			DailyLossLimit:  decimal.NewFromInt(1000),
			MaxPositions:    10,
			MaxPositionSize: decimal.NewFromFloat(1.0),
			AccountStopLoss: risk.DefaultConfig(),
		},
		Automation: AutomationConfig{
			Enabled:             true,
			StateFile:           "config/automation_state.json",
			ToggleFile:          "config/automation_toggle.txt",
			FileWatcherEnabled:  true,
			FileWatcherInterval: 5 * time.Second,
			BackupCount:         5,
		},
	}
}

// Load reads the document at path (any viper-supported format) merged
// over Default(), applies environment overrides, validates, and returns
// the result. path may be empty to use defaults plus environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, engineerr.New(engineerr.ErrConfig, "", "reading config file", err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, engineerr.New(engineerr.ErrConfig, "", "unmarshalling config file", err)
		}
	}

	applyEnvOverrides(v, &cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the environment-override rules:
// case-insensitive booleans (true|1|yes|on), comma-separated symbol and
// timeframe lists, numeric parsing that falls back to the existing value
// on failure.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if s := v.GetString("SYMBOLS"); s != "" {
		cfg.Trading.Symbols = splitAndTrim(s)
	}
	if s := v.GetString("TIMEFRAMES"); s != "" {
		cfg.Trading.Timeframes = splitAndTrim(s)
	}
	if s := v.GetString("AUTOMATION_ENABLED"); s != "" {
		if b, ok := parseLooseBool(s); ok {
			cfg.Automation.Enabled = b
		}
	}
	if s := v.GetString("FILE_WATCHER_ENABLED"); s != "" {
		if b, ok := parseLooseBool(s); ok {
			cfg.Automation.FileWatcherEnabled = b
		}
	}
	if s := v.GetString("ENABLE_AUTO_RESTART"); s != "" {
		if b, ok := parseLooseBool(s); ok {
			cfg.Orchestrator.EnableAutoRestart = b
		}
	}
	if s := v.GetString("DAILY_LOSS_LIMIT"); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			cfg.Risk.DailyLossLimit = d
		}
	}
	if s := v.GetString("MAX_POSITIONS"); s != "" {
		if n := v.GetInt("MAX_POSITIONS"); n > 0 {
			cfg.Risk.MaxPositions = n
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLooseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Validate checks every section's bounds. A non-nil error is always an
// *engineerr.WrappedError wrapping engineerr.ErrConfig and is fatal at
// startup.
func (c Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return engineerr.New(engineerr.ErrConfig, "", "trading.symbols must have at least one entry", nil)
	}
	if len(c.Trading.Timeframes) == 0 {
		return engineerr.New(engineerr.ErrConfig, "", "trading.timeframes must have at least one entry", nil)
	}
	if c.EventBus.HistoryLimit < 0 {
		return engineerr.New(engineerr.ErrConfig, "", "event_bus.history_limit must be >= 0", nil)
	}
	if c.Orchestrator.HealthCheckInterval < 10*time.Second {
		return engineerr.New(engineerr.ErrConfig, "", "orchestrator.health_check_interval must be >= 10s", nil)
	}
	if c.Risk.DailyLossLimit.IsNegative() {
		return engineerr.New(engineerr.ErrConfig, "", "risk.daily_loss_limit must be >= 0", nil)
	}
	if c.Risk.MaxPositions < 1 {
		return engineerr.New(engineerr.ErrConfig, "", "risk.max_positions must be >= 1", nil)
	}
	if c.Risk.MaxPositionSize.LessThan(decimal.NewFromFloat(0.01)) {
		return engineerr.New(engineerr.ErrConfig, "", "risk.max_position_size must be >= 0.01", nil)
	}
	if c.Automation.FileWatcherInterval < time.Second || c.Automation.FileWatcherInterval > 60*time.Second {
		return engineerr.New(engineerr.ErrConfig, "", "automation.file_watcher_interval must be within [1,60]s", nil)
	}
	return nil
}

// TypedTimeframes converts the configured timeframe strings to
// types.Timeframe.
func (c Config) TypedTimeframes() []types.Timeframe {
	out := make([]types.Timeframe, 0, len(c.Trading.Timeframes))
	for _, tf := range c.Trading.Timeframes {
		out = append(out, types.Timeframe(tf))
	}
	return out
}

// DataFetchConfig builds a datafetch.Config for one symbol from this
// document's shared service defaults.
func (c Config) DataFetchConfig(symbol string) datafetch.Config {
	return datafetch.Config{
		Symbol:      symbol,
		Timeframes:  c.TypedTimeframes(),
		CandleIndex: c.Services.CandleIndex,
		NbrBars:     c.Services.NbrBars,
	}
}

// StrategyEvalConfig builds a strategyeval.Config for one symbol.
func (c Config) StrategyEvalConfig(symbol string) strategyeval.Config {
	return strategyeval.Config{Symbol: symbol, MinRowsRequired: c.Services.MinRowsRequired}
}

// ExecutionConfig builds an execution.Config for one symbol.
func (c Config) ExecutionConfig(symbol string) execution.Config {
	return execution.Config{Symbol: symbol, Mode: c.Services.ExecutionMode, BatchSize: c.Services.BatchSize}
}

// PositionConfig builds a position.Config for one symbol.
func (c Config) PositionConfig(symbol string) position.Config {
	return position.Config{
		Symbol:          symbol,
		LotStep:         c.Services.LotStep,
		MinLot:          c.Services.MinLot,
		BrokerMinVolume: c.Services.BrokerMinVolume,
	}
}

// AutomationManagerConfig builds an automation.Config from this document.
func (c Config) AutomationManagerConfig() automation.Config {
	return automation.Config{
		StateFilePath:  c.Automation.StateFile,
		DefaultEnabled: c.Automation.Enabled,
		BackupCount:    c.Automation.BackupCount,
	}
}

// FileWatcherConfig builds a filewatcher.Config from this document.
func (c Config) FileWatcherConfig() filewatcher.Config {
	d := filewatcher.DefaultConfig()
	d.FilePath = c.Automation.ToggleFile
	d.PollInterval = c.Automation.FileWatcherInterval
	return d
}
