package config

import "testing"

func TestValidateRejectsEmptySymbols(t *testing.T) {
	cfg := Default()
	cfg.Trading.Timeframes = []string{"1"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected ConfigError for empty symbols")
	}
}

func TestValidateRejectsShortHealthCheckInterval(t *testing.T) {
	cfg := Default()
	cfg.Trading.Symbols = []string{"EURUSD"}
	cfg.Trading.Timeframes = []string{"1"}
	cfg.Orchestrator.HealthCheckInterval = 5_000_000_000 - 1 // just under 5s, well under the 10s floor
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected ConfigError for health_check_interval < 10s")
	}
}

func TestValidateAcceptsDefaultsWithTradingFilledIn(t *testing.T) {
	cfg := Default()
	cfg.Trading.Symbols = []string{"EURUSD"}
	cfg.Trading.Timeframes = []string{"1", "5"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestEnvOverrideParsesCommaSeparatedSymbols(t *testing.T) {
	t.Setenv("ENGINE_SYMBOLS", "EURUSD, GBPUSD")
	t.Setenv("ENGINE_TIMEFRAMES", "1")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Trading.Symbols) != 2 || cfg.Trading.Symbols[0] != "EURUSD" || cfg.Trading.Symbols[1] != "GBPUSD" {
		t.Fatalf("got symbols %v", cfg.Trading.Symbols)
	}
}
