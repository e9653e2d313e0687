package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default days ahead is 7",
			check:  func(c *Config) bool { return c.DaysAhead == 7 },
			expect: "7",
		},
		{
			name:   "default batch size is 5",
			check:  func(c *Config) bool { return c.BatchSize == 5 },
			expect: "5",
		},
		{
			name:   "default inter-batch delay is 500ms",
			check:  func(c *Config) bool { return c.InterBatchDelayMs == 500 },
			expect: "500",
		},
		{
			name:   "default inter-tenant delay is 1000ms",
			check:  func(c *Config) bool { return c.InterTenantDelayMs == 1000 },
			expect: "1000",
		},
		{
			name:   "default per-tenant timeout is 120000ms",
			check:  func(c *Config) bool { return c.PerTenantTimeoutMs == 120000 },
			expect: "120000",
		},
		{
			name:   "default log level is info",
			check:  func(c *Config) bool { return c.LogLevel == "info" },
			expect: "info",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "default system timezone is UTC",
			check:  func(c *Config) bool { return c.SystemTimezone == "UTC" },
			expect: "UTC",
		},
		{
			name:   "ops addr format",
			check:  func(c *Config) bool { return c.OpsAddr() == "0.0.0.0:9090" },
			expect: "0.0.0.0:9090",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing encryption key is fatal",
			cfg:     Config{DaysAhead: 7, BatchSize: 5},
			wantErr: true,
		},
		{
			name:    "days ahead out of bounds",
			cfg:     Config{EncryptionKey: "k", DaysAhead: 15, BatchSize: 5},
			wantErr: true,
		},
		{
			name:    "zero batch size",
			cfg:     Config{EncryptionKey: "k", DaysAhead: 7, BatchSize: 0},
			wantErr: true,
		},
		{
			name:    "valid config",
			cfg:     Config{EncryptionKey: "k", DaysAhead: 7, BatchSize: 5},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
