package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Scrape struct {
	TargetURL         string `json:"target_url"`
	ContainerSelector string `json:"container_selector"`
	PriceSelector     string `json:"price_selector"`
	PollIntervalSec   int    `json:"poll_interval_sec"`
	NavTimeoutSec     int    `json:"nav_timeout_sec"`
	SettleMs          int    `json:"settle_ms"`
	BackoffBaseSec    int    `json:"backoff_base_sec"`
	BackoffCapSec     int    `json:"backoff_cap_sec"`
	RebuildThreshold  int    `json:"rebuild_threshold"`
	StartAttempts     int    `json:"start_attempts"`
	StalenessFactor   int    `json:"staleness_factor"`
	Headless          bool   `json:"headless"`
	ChromePath        string `json:"chrome_path"`
	UserAgent         string `json:"user_agent"`
}

type Alerts struct {
	Enabled     bool     `json:"enabled"`
	SMTPHost    string   `json:"smtp_host"`
	SMTPPort    int      `json:"smtp_port"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	From        string   `json:"from"`
	To          []string `json:"to"`
	GoldBelow   string   `json:"gold_below"`
	SilverBelow string   `json:"silver_below"`
}

type Config struct {
	Server Server `json:"server"`
	Scrape Scrape `json:"scrape"`
	Alerts Alerts `json:"alerts"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Scrape: Scrape{
			TargetURL:         "https://auragold.in",
			ContainerSelector: ".live__price__container",
			PriceSelector:     ".price",
			PollIntervalSec:   60,
			NavTimeoutSec:     15,
			SettleMs:          2000,
			BackoffBaseSec:    5,
			BackoffCapSec:     60,
			RebuildThreshold:  3,
			StartAttempts:     3,
			StalenessFactor:   3,
			Headless:          true,
		},
		Alerts: Alerts{
			Enabled:  false,
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields
// so secrets stay out of the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}

	if v := os.Getenv("TARGET_URL"); v != "" {
		cfg.Scrape.TargetURL = v
	}
	if v := os.Getenv("CONTAINER_SELECTOR"); v != "" {
		cfg.Scrape.ContainerSelector = v
	}
	if v := os.Getenv("PRICE_SELECTOR"); v != "" {
		cfg.Scrape.PriceSelector = v
	}
	if v := os.Getenv("POLL_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.PollIntervalSec = x
		}
	}
	if v := os.Getenv("NAV_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.NavTimeoutSec = x
		}
	}
	if v := os.Getenv("SETTLE_MS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Scrape.SettleMs = x
		}
	}
	if v := os.Getenv("BACKOFF_BASE_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.BackoffBaseSec = x
		}
	}
	if v := os.Getenv("BACKOFF_CAP_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.BackoffCapSec = x
		}
	}
	if v := os.Getenv("REBUILD_THRESHOLD"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.RebuildThreshold = x
		}
	}
	if v := os.Getenv("START_ATTEMPTS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.StartAttempts = x
		}
	}
	if v := os.Getenv("STALENESS_FACTOR"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Scrape.StalenessFactor = x
		}
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Scrape.Headless = true
		case "0", "false", "no", "n":
			cfg.Scrape.Headless = false
		}
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		cfg.Scrape.ChromePath = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.Scrape.UserAgent = v
	}

	if v := os.Getenv("ALERTS_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Alerts.Enabled = true
		case "0", "false", "no", "n":
			cfg.Alerts.Enabled = false
		}
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Alerts.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Alerts.SMTPPort = x
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.Alerts.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Alerts.Password = v
	}
	if v := os.Getenv("ALERT_FROM"); v != "" {
		cfg.Alerts.From = v
	}
	if v := os.Getenv("ALERT_TO"); v != "" {
		cfg.Alerts.To = splitCSV(v)
	}
	if v := os.Getenv("GOLD_THRESHOLD"); v != "" {
		cfg.Alerts.GoldBelow = v
	}
	if v := os.Getenv("SILVER_THRESHOLD"); v != "" {
		cfg.Alerts.SilverBelow = v
	}
}

func splitCSV(s string) []string {
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
