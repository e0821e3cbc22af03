package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds Sentinex configuration.
type Config struct {
	Defaults     Defaults        `yaml:"defaults"`
	Inference    InferenceConfig `yaml:"inference"`
	Telegram     TelegramConfig  `yaml:"telegram"`
	Status       StatusConfig    `yaml:"status"`
	Alerts       AlertsConfig    `yaml:"alerts"`
	LastFrameDir string          `yaml:"last_frame_dir"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Cameras      []CameraConfig  `yaml:"cameras"`
}

// Defaults are the process-wide values every camera falls back to.
// Durations are whole seconds.
type Defaults struct {
	IntervalSeconds         int     `yaml:"interval_seconds"`
	FrameWidth              int     `yaml:"frame_width"`
	FrameHeight             int     `yaml:"frame_height"`
	FrameMaxWidth           int     `yaml:"frame_max_width"`
	ScoreThreshold          float64 `yaml:"score_threshold"`
	PresenceMinScore        float64 `yaml:"presence_min_score"`
	RiskCooldownSeconds     int     `yaml:"risk_cooldown_seconds"`
	PresenceCooldownSeconds int     `yaml:"presence_cooldown_seconds"`
	SystemPrompt            string  `yaml:"system_prompt"`
}

// CameraConfig describes one camera. Optional fields override Defaults;
// pointer fields distinguish "not set" from a deliberate zero.
type CameraConfig struct {
	Name                    string   `yaml:"name"`
	URL                     string   `yaml:"url"`
	SystemPrompt            string   `yaml:"system_prompt"`
	IntervalSeconds         *int     `yaml:"interval_seconds"`
	FrameWidth              *int     `yaml:"frame_width"`
	FrameHeight             *int     `yaml:"frame_height"`
	FrameMaxWidth           *int     `yaml:"frame_max_width"`
	ScoreThreshold          *float64 `yaml:"score_threshold"`
	PresenceMinScore        *float64 `yaml:"presence_min_score"`
	RiskCooldownSeconds     *int     `yaml:"risk_cooldown_seconds"`
	PresenceCooldownSeconds *int     `yaml:"presence_cooldown_seconds"`
}

type InferenceConfig struct {
	BaseURL          string `yaml:"base_url"` // e.g. "http://192.168.1.50:1234/v1"
	Path             string `yaml:"path"`     // e.g. "/chat/completions"
	Model            string `yaml:"model"`    // e.g. "qwen3-vl-8b"
	APIKeyEnv        string `yaml:"api_key_env"`
	APIKey           string `yaml:"api_key"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	MaxTokens        int    `yaml:"max_tokens"`
	MaxResponseBytes int64  `yaml:"max_response_bytes"`
}

// Timeout is the per-request inference deadline.
func (c InferenceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type TelegramConfig struct {
	BotTokenEnv    string `yaml:"bot_token_env"`
	BotToken       string `yaml:"bot_token"`
	ChatID         string `yaml:"chat_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c TelegramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StatusConfig points at an optional webhook that receives every cycle
// result (not only alerts), best effort.
type StatusConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	QueueSize      int    `yaml:"queue_size"`
	Workers        int    `yaml:"workers"`
}

func (c StatusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type AlertsConfig struct {
	JournalPath string `yaml:"journal_path"` // optional JSONL file of dispatched alerts
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := &cfg.Defaults
	if d.IntervalSeconds <= 0 {
		d.IntervalSeconds = 60
	}
	if d.FrameWidth <= 0 {
		d.FrameWidth = 1280
	}
	if d.FrameHeight <= 0 {
		d.FrameHeight = 720
	}
	if d.FrameMaxWidth <= 0 {
		d.FrameMaxWidth = 960
	}
	if d.ScoreThreshold == 0 {
		d.ScoreThreshold = 0.8
	}
	if d.PresenceMinScore == 0 {
		d.PresenceMinScore = 0.2
	}
	if d.PresenceCooldownSeconds == 0 {
		d.PresenceCooldownSeconds = 300
	}
	// RiskCooldownSeconds stays 0 unless configured: risk alerts are critical
	// and are only rate limited when the operator asks for it.

	if cfg.Inference.Path == "" {
		cfg.Inference.Path = "/chat/completions"
	}
	if cfg.Inference.TimeoutSeconds <= 0 {
		cfg.Inference.TimeoutSeconds = 60
	}
	if cfg.Inference.MaxTokens <= 0 {
		cfg.Inference.MaxTokens = 700
	}
	if cfg.Inference.MaxResponseBytes <= 0 {
		cfg.Inference.MaxResponseBytes = 4 * 1024 * 1024
	}

	if cfg.Telegram.TimeoutSeconds <= 0 {
		cfg.Telegram.TimeoutSeconds = 20
	}

	if cfg.Status.TimeoutSeconds <= 0 {
		cfg.Status.TimeoutSeconds = 10
	}
	if cfg.Status.QueueSize <= 0 {
		cfg.Status.QueueSize = 100
	}
	if cfg.Status.Workers <= 0 {
		cfg.Status.Workers = 1
	}
}

// InferenceAPIKey resolves the inference API key, preferring the env var.
func (c *Config) InferenceAPIKey() string {
	if c.Inference.APIKeyEnv != "" {
		if v := os.Getenv(c.Inference.APIKeyEnv); v != "" {
			return v
		}
	}
	return c.Inference.APIKey
}

// TelegramBotToken resolves the bot token, preferring the env var.
func (c *Config) TelegramBotToken() string {
	if c.Telegram.BotTokenEnv != "" {
		if v := os.Getenv(c.Telegram.BotTokenEnv); v != "" {
			return v
		}
	}
	return c.Telegram.BotToken
}

// Settings are the effective per-camera values after applying defaults.
// They are resolved once at startup and immutable afterwards.
type Settings struct {
	Name             string
	URL              string
	SystemPrompt     string
	Interval         time.Duration
	FrameWidth       int
	FrameHeight      int
	FrameMaxWidth    int
	ScoreThreshold   float64
	PresenceMinScore float64
	RiskCooldown     time.Duration
	PresenceCooldown time.Duration
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// CameraSettings resolves every configured camera against Defaults.
func (c *Config) CameraSettings() []Settings {
	out := make([]Settings, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		s := Settings{
			Name:             cam.Name,
			URL:              cam.URL,
			SystemPrompt:     c.Defaults.SystemPrompt,
			Interval:         seconds(c.Defaults.IntervalSeconds),
			FrameWidth:       c.Defaults.FrameWidth,
			FrameHeight:      c.Defaults.FrameHeight,
			FrameMaxWidth:    c.Defaults.FrameMaxWidth,
			ScoreThreshold:   c.Defaults.ScoreThreshold,
			PresenceMinScore: c.Defaults.PresenceMinScore,
			RiskCooldown:     seconds(c.Defaults.RiskCooldownSeconds),
			PresenceCooldown: seconds(c.Defaults.PresenceCooldownSeconds),
		}
		if cam.SystemPrompt != "" {
			s.SystemPrompt = cam.SystemPrompt
		}
		if cam.IntervalSeconds != nil {
			s.Interval = seconds(*cam.IntervalSeconds)
		}
		if cam.FrameWidth != nil {
			s.FrameWidth = *cam.FrameWidth
		}
		if cam.FrameHeight != nil {
			s.FrameHeight = *cam.FrameHeight
		}
		if cam.FrameMaxWidth != nil {
			s.FrameMaxWidth = *cam.FrameMaxWidth
		}
		if cam.ScoreThreshold != nil {
			s.ScoreThreshold = *cam.ScoreThreshold
		}
		if cam.PresenceMinScore != nil {
			s.PresenceMinScore = *cam.PresenceMinScore
		}
		if cam.RiskCooldownSeconds != nil {
			s.RiskCooldown = seconds(*cam.RiskCooldownSeconds)
		}
		if cam.PresenceCooldownSeconds != nil {
			s.PresenceCooldown = seconds(*cam.PresenceCooldownSeconds)
		}
		out = append(out, s)
	}
	return out
}
