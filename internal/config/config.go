package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	libconfig "evmobile/libs/config"
)

// Config defines the charging client configuration.
type Config struct {
	API struct {
		BaseURL        string `yaml:"baseUrl" env:"EVM_API_BASE_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"EVM_API_TIMEOUT_SECONDS"`
	} `yaml:"api"`
	WS struct {
		URL              string `yaml:"url" env:"EVM_WS_URL"`
		ReconnectDelayMs int    `yaml:"reconnectDelayMs" env:"EVM_WS_RECONNECT_DELAY_MS"`
	} `yaml:"ws"`
	Poll struct {
		IntervalSeconds int `yaml:"intervalSeconds" env:"EVM_POLL_INTERVAL_SECONDS"`
		TimeoutSeconds  int `yaml:"timeoutSeconds" env:"EVM_POLL_TIMEOUT_SECONDS"`
	} `yaml:"poll"`
	Scan struct {
		WindowMs     int     `yaml:"windowMs" env:"EVM_SCAN_WINDOW_MS"`
		Padding      float64 `yaml:"padding" env:"EVM_SCAN_PADDING"`
		MinSizeRatio float64 `yaml:"minSizeRatio" env:"EVM_SCAN_MIN_SIZE_RATIO"`
		GuideX       float64 `yaml:"guideX" env:"EVM_SCAN_GUIDE_X"`
		GuideY       float64 `yaml:"guideY" env:"EVM_SCAN_GUIDE_Y"`
		GuideSize    float64 `yaml:"guideSize" env:"EVM_SCAN_GUIDE_SIZE"`
	} `yaml:"scan"`
	Wallet struct {
		MinStartBalance float64 `yaml:"minStartBalance" env:"EVM_WALLET_MIN_START_BALANCE"`
	} `yaml:"wallet"`
	Credentials struct {
		Path   string `yaml:"path" env:"EVM_CREDENTIALS_PATH"`
		Secret string `yaml:"secret" env:"EVM_CREDENTIALS_SECRET"`
	} `yaml:"credentials"`
	Device struct {
		ID string `yaml:"id" env:"EVM_DEVICE_ID"`
	} `yaml:"device"`
	Redis struct {
		Addr       string `yaml:"addr" env:"EVM_REDIS_ADDR"`
		Password   string `yaml:"password" env:"EVM_REDIS_PASSWORD"`
		DB         int    `yaml:"db" env:"EVM_REDIS_DB"`
		TTLSeconds int    `yaml:"ttlSeconds" env:"EVM_REDIS_TTL_SECONDS"`
	} `yaml:"redis"`
	Database struct {
		DSN string `yaml:"dsn" env:"EVM_POSTGRES_DSN"`
	} `yaml:"database"`
	Status struct {
		Port string `yaml:"port" env:"EVM_STATUS_PORT"`
	} `yaml:"status"`
	Charging struct {
		IDTag string `yaml:"idTag" env:"EVM_CHARGING_ID_TAG"`
	} `yaml:"charging"`
}

// Default returns the configuration before file and environment overrides.
func Default() *Config {
	cfg := &Config{}
	cfg.API.TimeoutSeconds = 15
	cfg.WS.ReconnectDelayMs = 2000
	cfg.Poll.IntervalSeconds = 3
	cfg.Poll.TimeoutSeconds = 300
	cfg.Scan.WindowMs = 1200
	cfg.Scan.Padding = 8
	cfg.Scan.MinSizeRatio = 0.25
	cfg.Scan.GuideX = 100
	cfg.Scan.GuideY = 100
	cfg.Scan.GuideSize = 400
	cfg.Wallet.MinStartBalance = 1.0
	cfg.Credentials.Path = defaultCredentialsPath()
	cfg.Redis.TTLSeconds = 43200
	return cfg
}

// Load reads configuration via the shared helper. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := libconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api base url required")
	}
	if _, err := url.Parse(c.API.BaseURL); err != nil {
		return fmt.Errorf("config: api base url: %w", err)
	}
	if strings.TrimSpace(c.WS.URL) == "" {
		return errors.New("config: ws url required")
	}
	u, err := url.Parse(c.WS.URL)
	if err != nil {
		return fmt.Errorf("config: ws url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("config: ws url must use ws or wss, got %q", u.Scheme)
	}
	if strings.TrimSpace(c.Credentials.Secret) == "" {
		return errors.New("config: credentials secret required")
	}
	if c.Scan.MinSizeRatio < 0 || c.Scan.MinSizeRatio > 1 {
		return errors.New("config: scan min size ratio must be within [0,1]")
	}
	return nil
}

// APITimeout returns the REST timeout.
func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// ReconnectDelay returns the fixed socket reconnect delay.
func (c *Config) ReconnectDelay() time.Duration {
	if c.WS.ReconnectDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.WS.ReconnectDelayMs) * time.Millisecond
}

// PollInterval returns the top-up status check interval.
func (c *Config) PollInterval() time.Duration {
	if c.Poll.IntervalSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// PollTimeout returns the hard stop for top-up polling.
func (c *Config) PollTimeout() time.Duration {
	if c.Poll.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Poll.TimeoutSeconds) * time.Second
}

// ScanWindow returns the maximum gap between two confirming reads.
func (c *Config) ScanWindow() time.Duration {
	if c.Scan.WindowMs <= 0 {
		return 1200 * time.Millisecond
	}
	return time.Duration(c.Scan.WindowMs) * time.Millisecond
}

// SessionTTL returns the redis cache ttl.
func (c *Config) SessionTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// StatusAddress returns :port style, empty when the status server is disabled.
func (c *Config) StatusAddress() string {
	port := strings.TrimSpace(c.Status.Port)
	if port == "" {
		return ""
	}
	if strings.HasPrefix(port, ":") || strings.Contains(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "evmobile", "credentials.bin")
}
