package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/agui1era/Sentinex/internal/alert"
	"github.com/agui1era/Sentinex/internal/camera"
	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/lastframe"
	"github.com/agui1era/Sentinex/internal/redact"
	"github.com/agui1era/Sentinex/internal/status"
	"github.com/agui1era/Sentinex/internal/telemetry"
	"github.com/agui1era/Sentinex/internal/vision"
	"github.com/agui1era/Sentinex/internal/watch"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "sentinex.yaml", "Path to Sentinex config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		redact.Fatalf("load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		redact.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "sentinex",
		Version:  version,
	})
	if err != nil {
		redact.Fatalf("init telemetry: %v", err)
	}

	analyzer := vision.NewClient(vision.ClientConfig{
		BaseURL:          cfg.Inference.BaseURL,
		Path:             cfg.Inference.Path,
		APIKey:           cfg.InferenceAPIKey(),
		Model:            cfg.Inference.Model,
		MaxTokens:        cfg.Inference.MaxTokens,
		Timeout:          cfg.Inference.Timeout(),
		MaxResponseBytes: cfg.Inference.MaxResponseBytes,
	})

	var sinks []alert.Sink
	if token := cfg.TelegramBotToken(); token != "" {
		tg, err := alert.NewTelegramSink("", token, cfg.Telegram.ChatID, cfg.Telegram.Timeout())
		if err != nil {
			redact.Fatalf("init telegram sink: %v", err)
		}
		sinks = append(sinks, tg)
	}
	if cfg.Alerts.JournalPath != "" {
		js, err := alert.NewFileSink(cfg.Alerts.JournalPath)
		if err != nil {
			redact.Fatalf("init alert journal: %v", err)
		}
		sinks = append(sinks, js)
	}
	if len(sinks) == 0 {
		redact.Logf("no alert sinks configured; triggered alerts will only be logged")
	}

	frames, err := lastframe.NewStore(cfg.LastFrameDir)
	if err != nil {
		redact.Fatalf("init last frame store: %v", err)
	}

	reporter := status.NewReporter(status.Config{
		URL:       cfg.Status.URL,
		Timeout:   cfg.Status.Timeout(),
		QueueSize: cfg.Status.QueueSize,
		Workers:   cfg.Status.Workers,
	})

	cams := cfg.CameraSettings()
	orch := watch.NewOrchestrator(cams, watch.Deps{
		Analyzer: analyzer,
		Sinks:    sinks,
		Frames:   frames,
		Reporter: reporter,
		Metrics:  metrics,
		NewReader: func(cam config.Settings) camera.Reader {
			r := camera.NewRTSPReader(cam.Name, cam.URL, camera.Options{
				Width:    cam.FrameWidth,
				Height:   cam.FrameHeight,
				MaxWidth: cam.FrameMaxWidth,
			})
			r.OnReconnect = func() { metrics.RecordReconnect(cam.Name) }
			return r
		},
	})

	redact.Logf("sentinex %s started, %d cameras", version, len(cams))
	if err := orch.Run(ctx); err != nil {
		redact.Logf("shutdown: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reporter.Close(flushCtx)
	metrics.Shutdown(flushCtx)
}
