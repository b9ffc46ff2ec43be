package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	API struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Liquidation struct {
		DefaultCommissionPct float64 `yaml:"default_commission_pct"`
		DefaultCurrency      string  `yaml:"default_currency"`
	} `yaml:"liquidation"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsPath string `yaml:"credentials_path"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SyncHours       int    `yaml:"sync_hours"`
	} `yaml:"sheets"`

	Reminders struct {
		Enabled       bool `yaml:"enabled"`
		CheckinDays   int  `yaml:"checkin_days_ahead"`
		IntervalHours int  `yaml:"interval_hours"`
	} `yaml:"reminders"`

	Import struct {
		Dir string `yaml:"dir"` // legacy CSV directory; imported once when set
	} `yaml:"import"`

	Managers []int64 `yaml:"managers"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/rentero.db"
	}
	if cfg.Liquidation.DefaultCommissionPct <= 0 {
		cfg.Liquidation.DefaultCommissionPct = 20
	}
	if cfg.Liquidation.DefaultCurrency == "" {
		cfg.Liquidation.DefaultCurrency = "USD"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ReminderInterval returns how often the reminder scan runs.
func (c *Config) ReminderInterval() time.Duration {
	if c.Reminders.IntervalHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Reminders.IntervalHours) * time.Hour
}

// BackupInterval returns how often backups run.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// SheetsSyncInterval returns how often the spreadsheet sync runs.
func (c *Config) SheetsSyncInterval() time.Duration {
	if c.Sheets.SyncHours <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.Sheets.SyncHours) * time.Hour
}
