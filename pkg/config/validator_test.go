package config

import "testing"

func TestValidate_DefaultLoadedConfigIsValid(t *testing.T) {
	t.Setenv("ASTRA_AUTH_MODE", "local")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
	if cfg.Auth.Mode != AuthModeLocal {
		t.Fatalf("expected local auth mode, got %s", cfg.Auth.Mode)
	}
}

func TestValidate_RejectsUnknownAuthMode(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/astra-test"
	cfg.Auth.Mode = "bogus"
	cfg.Brain.BaseURL = "http://x"
	cfg.Brain.BaseChatModel = "m"
	cfg.Brain.MaxConcurrency = 1
	cfg.Brain.BudgetPerRun = 1
	cfg.Brain.BudgetPerStep = 1
	cfg.Executor.MaxMicroSteps = 1
	cfg.Executor.MaxTotalTimeS = 1
	cfg.Memory.MaxContentChars = 1

	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one validation error, got %d: %v", len(errs), errs)
	}
}

func TestValidate_AggregatesAllErrors(t *testing.T) {
	cfg := Default()
	errs := Validate(cfg)
	if len(errs) < 3 {
		t.Fatalf("expected multiple aggregated errors on a zero-value config, got %d", len(errs))
	}
}
