package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validateInferenceConfig(cfg.Inference); err != nil {
		return err
	}

	if len(cfg.Cameras) == 0 {
		return errors.New("at least one camera must be configured")
	}

	seen := make(map[string]bool, len(cfg.Cameras))
	for i, cam := range cfg.Cameras {
		name := strings.TrimSpace(cam.Name)
		if name == "" {
			return fmt.Errorf("camera %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("duplicate camera name %q", name)
		}
		seen[name] = true

		if strings.TrimSpace(cam.URL) == "" {
			return fmt.Errorf("camera %q has no stream url", name)
		}
		u, err := url.Parse(cam.URL)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("camera %q has invalid stream url", name)
		}

		if cam.ScoreThreshold != nil && (*cam.ScoreThreshold < 0 || *cam.ScoreThreshold > 1) {
			return fmt.Errorf("camera %q score_threshold must be in [0,1]", name)
		}
		if cam.PresenceMinScore != nil && (*cam.PresenceMinScore < 0 || *cam.PresenceMinScore > 1) {
			return fmt.Errorf("camera %q presence_min_score must be in [0,1]", name)
		}
		if cam.IntervalSeconds != nil && *cam.IntervalSeconds <= 0 {
			return fmt.Errorf("camera %q interval_seconds must be positive", name)
		}
	}

	if cfg.Defaults.ScoreThreshold < 0 || cfg.Defaults.ScoreThreshold > 1 {
		return errors.New("defaults.score_threshold must be in [0,1]")
	}
	if cfg.Defaults.PresenceMinScore < 0 || cfg.Defaults.PresenceMinScore > 1 {
		return errors.New("defaults.presence_min_score must be in [0,1]")
	}

	if err := validateTelegramConfig(cfg); err != nil {
		return err
	}

	if cfg.Status.URL != "" {
		u, err := url.Parse(cfg.Status.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("status.url is invalid")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("status.url must be http or https")
		}
	}

	return validateTelemetryConfig(cfg.Telemetry)
}

func validateInferenceConfig(inf InferenceConfig) error {
	if strings.TrimSpace(inf.BaseURL) == "" {
		return errors.New("inference.base_url must be set")
	}
	u, err := url.Parse(inf.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("inference.base_url is invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("inference.base_url must be http or https")
	}
	if strings.TrimSpace(inf.Model) == "" {
		return errors.New("inference.model must be set")
	}
	return nil
}

func validateTelegramConfig(cfg *Config) error {
	// Telegram is optional; when a token is resolvable a chat id is required.
	if cfg.TelegramBotToken() == "" {
		return nil
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		return errors.New("telegram.chat_id must be set when a bot token is configured")
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}
