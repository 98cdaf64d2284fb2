package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	CachePath    string `mapstructure:"cache_path" yaml:"cache_path"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	InactivityWindow  time.Duration `mapstructure:"inactivity_window" yaml:"inactivity_window"`
	OnlineWindow      time.Duration `mapstructure:"online_window" yaml:"online_window"`
	ChannelCacheTTL   time.Duration `mapstructure:"channel_cache_ttl" yaml:"channel_cache_ttl"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	MentionWebhookURL string `mapstructure:"mention_webhook_url" yaml:"mention_webhook_url"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "packchat.db",
		CachePath:         "packchat-profile.json",
		LogLevel:          "info",
		HeartbeatInterval: 15 * time.Second,
		InactivityWindow:  5 * time.Minute,
		OnlineWindow:      5 * time.Minute,
		ChannelCacheTTL:   30 * time.Second,
		HistoryLimit:      50,
		JWTIssuer:         "packchat",
		JWTAudience:       "packchat-portal",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.CachePath != "" {
		c.CachePath = other.CachePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.HeartbeatInterval != 0 {
		c.HeartbeatInterval = other.HeartbeatInterval
	}
	if other.InactivityWindow != 0 {
		c.InactivityWindow = other.InactivityWindow
	}
	if other.OnlineWindow != 0 {
		c.OnlineWindow = other.OnlineWindow
	}
	if other.ChannelCacheTTL != 0 {
		c.ChannelCacheTTL = other.ChannelCacheTTL
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.MentionWebhookURL != "" {
		c.MentionWebhookURL = other.MentionWebhookURL
	}
}
