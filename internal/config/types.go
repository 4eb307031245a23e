package config

import (
	"fmt"
	"net"
	"time"

	"highnoon/internal/scheduler"
)

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Server    ServerConfig    `json:"server"`
	Line      LineConfig      `json:"line"`
	Storage   StorageConfig   `json:"storage"`
	Locales   LocalesConfig   `json:"locales"`
	Daily     DailyConfig     `json:"daily"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	Notifier  NotifierConfig  `json:"notifier,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ServerConfig controls the webhook HTTP server.
//
// AdminAllowCIDRs restricts the operational endpoints (manual sends, question
// management, scheduler status). When empty, loopback and private ranges are
// allowed.
type ServerConfig struct {
	Addr            string   `json:"addr"`
	AdminAllowCIDRs []string `json:"admin_allow_cidrs,omitempty"`
	RatePerSec      float64  `json:"rate_per_sec,omitempty"`
}

// LineConfig carries the messaging channel credentials.
//
// Both credentials may also come from the environment (LINE_CHANNEL_SECRET,
// LINE_CHANNEL_ACCESS_TOKEN), which takes precedence over the file so secrets
// can stay out of config on disk.
type LineConfig struct {
	ChannelSecret      string `json:"channel_secret,omitempty"`
	ChannelAccessToken string `json:"channel_access_token,omitempty"`
	APIBase            string `json:"api_base,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type LocalesConfig struct {
	Dir string `json:"dir"`
}

// DailyConfig controls the broadcast jobs. Times are "HH:MM" in UTC.
// CountdownDate is "YYYY-MM-DD"; the countdown job is skipped when empty.
type DailyConfig struct {
	Enabled       bool   `json:"enabled"`
	QuestionAt    string `json:"question_at"`
	AnswerAt      string `json:"answer_at"`
	CountdownAt   string `json:"countdown_at,omitempty"`
	CountdownDate string `json:"countdown_date,omitempty"`
}

type SchedulerConfig struct {
	// WakeInterval is a Go duration string; how often due jobs are checked.
	WakeInterval string `json:"wake_interval,omitempty"`
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
	BatchSize  int `json:"batch_size,omitempty"`
}

// Default returns a config suitable for local development: everything on,
// loopback server, relative data paths.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Storage: StorageConfig{Path: "data/highnoon.db"},
		Locales: LocalesConfig{Dir: "locales"},
		Daily: DailyConfig{
			Enabled:    true,
			QuestionAt: "12:00",
			AnswerAt:   "20:00",
		},
	}
}

// Validate checks the fields a bad edit is most likely to break. Credentials
// are deliberately not required here; the app checks them at startup after
// the environment overlay.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	for _, cidr := range c.Server.AdminAllowCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("server.admin_allow_cidrs: %w", err)
		}
	}
	if c.Server.RatePerSec < 0 {
		return fmt.Errorf("server.rate_per_sec must not be negative")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.BusyTimeout != "" {
		if _, err := time.ParseDuration(c.Storage.BusyTimeout); err != nil {
			return fmt.Errorf("storage.busy_timeout: %w", err)
		}
	}
	if c.Locales.Dir == "" {
		return fmt.Errorf("locales.dir is required")
	}
	if c.Daily.Enabled {
		for name, at := range map[string]string{
			"daily.question_at": c.Daily.QuestionAt,
			"daily.answer_at":   c.Daily.AnswerAt,
		} {
			if _, err := scheduler.ParseFireTime(at); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		if c.Daily.CountdownAt != "" {
			if _, err := scheduler.ParseFireTime(c.Daily.CountdownAt); err != nil {
				return fmt.Errorf("daily.countdown_at: %w", err)
			}
		}
		if c.Daily.CountdownDate != "" {
			if _, err := time.Parse("2006-01-02", c.Daily.CountdownDate); err != nil {
				return fmt.Errorf("daily.countdown_date: %w", err)
			}
		}
	}
	if c.Scheduler.WakeInterval != "" {
		d, err := time.ParseDuration(c.Scheduler.WakeInterval)
		if err != nil {
			return fmt.Errorf("scheduler.wake_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("scheduler.wake_interval must be positive")
		}
	}
	if c.Notifier.RatePerSec < 0 {
		return fmt.Errorf("notifier.rate_per_sec must not be negative")
	}
	if c.Notifier.BatchSize < 0 {
		return fmt.Errorf("notifier.batch_size must not be negative")
	}
	return nil
}

// BusyTimeoutDuration parses storage.busy_timeout; zero when unset.
func (c *Config) BusyTimeoutDuration() time.Duration {
	if c.Storage.BusyTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Storage.BusyTimeout)
	if err != nil {
		return 0
	}
	return d
}

// WakeIntervalDuration parses scheduler.wake_interval; zero when unset.
func (c *Config) WakeIntervalDuration() time.Duration {
	if c.Scheduler.WakeInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Scheduler.WakeInterval)
	if err != nil {
		return 0
	}
	return d
}
