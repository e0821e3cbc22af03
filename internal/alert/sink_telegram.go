package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramCaptionLimit = 1024

// TelegramSink pushes alerts through the Telegram bot API: sendPhoto with
// the triggering frame when one is attached, sendMessage otherwise.
type TelegramSink struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSink creates a sink for one bot token and destination chat.
// baseURL is the API host and exists to point tests at a local server;
// empty means api.telegram.org.
func NewTelegramSink(baseURL, token, chatID string, timeout time.Duration) (*TelegramSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram chat id is empty")
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TelegramSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(ctx context.Context, ev *Event, photo []byte) error {
	caption := buildCaption(ev)
	if len(photo) == 0 {
		return s.sendMessage(ctx, caption)
	}
	return s.sendPhoto(ctx, caption, photo)
}

func (s *TelegramSink) Close(context.Context) error { return nil }

// buildCaption renders the alert text: severity marker, camera identity,
// description and score, capped at Telegram's caption limit.
func buildCaption(ev *Event) string {
	var caption string
	switch ev.Kind {
	case KindPresence:
		caption = fmt.Sprintf("🧍 %s: Person detected | Risk=%.2f | %s", ev.Camera, ev.Score, ev.Description)
	default:
		caption = fmt.Sprintf("%s %s: %s | Risk=%.2f", SeverityMarker(ev.Score), ev.Camera, ev.Description, ev.Score)
	}
	return truncateRunes(caption, telegramCaptionLimit)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func (s *TelegramSink) sendPhoto(ctx context.Context, caption string, photo []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("chat_id", s.chatID); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption: %w", err)
	}
	part, err := mw.CreateFormFile("photo", "frame.jpg")
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return s.do(req)
}

func (s *TelegramSink) sendMessage(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", s.chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.do(req)
}

func (s *TelegramSink) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d body=%q", resp.StatusCode, truncateRunes(string(body), 200))
	}
	return nil
}
