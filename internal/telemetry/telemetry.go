package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/agui1era/Sentinex/internal/redact"
)

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and exposes helpers.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	cyclesCounter         metric.Int64Counter
	cycleFailuresCounter  metric.Int64Counter
	alertsCounter         metric.Int64Counter
	suppressedCounter     metric.Int64Counter
	reconnectsCounter     metric.Int64Counter
	inferenceDuration     metric.Float64Histogram
	dispatchDuration      metric.Float64Histogram
	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures OTEL exporters + providers. When disabled, returns no-op providers.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		no := &Provider{
			Enabled: false,
			tracer:  trace.NewNoopTracerProvider().Tracer(""),
			meter:   noop.NewMeterProvider().Meter(""),
		}
		no.initInstruments()
		return no, nil
	}

	redact.Logf("telemetry enabled (OpenTelemetry OTLP %s) endpoint=%s; if no collector is listening, periodic 'failed to upload metrics' warnings are expected", strings.ToLower(cfg.Protocol), cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	var tp *sdktrace.TracerProvider

	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	case "http":
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	default:
		return nil, nil
	}

	otel.SetTracerProvider(tp)

	var metricExporter sdkmetric.Reader
	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		metricExporter = sdkmetric.NewPeriodicReader(exp)
	case "http":
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, err
		}
		metricExporter = sdkmetric.NewPeriodicReader(exp)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(metricExporter))
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer("sentinex"),
		meter:                 mp.Meter("sentinex"),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: func(ctx context.Context) error {
			if mp != nil {
				return mp.Shutdown(ctx)
			}
			return nil
		},
	}
	p.initInstruments()
	return p, nil
}

func (p *Provider) initInstruments() {
	if p == nil {
		return
	}
	// Use meter to create instruments; ignore errors to keep telemetry best-effort.
	p.cyclesCounter, _ = p.meter.Int64Counter("sentinex_cycles_total")
	p.cycleFailuresCounter, _ = p.meter.Int64Counter("sentinex_cycle_failures_total")
	p.alertsCounter, _ = p.meter.Int64Counter("sentinex_alerts_total")
	p.suppressedCounter, _ = p.meter.Int64Counter("sentinex_alerts_suppressed_total")
	p.reconnectsCounter, _ = p.meter.Int64Counter("sentinex_stream_reconnects_total")
	p.inferenceDuration, _ = p.meter.Float64Histogram("sentinex_inference_duration_ms")
	p.dispatchDuration, _ = p.meter.Float64Histogram("sentinex_dispatch_duration_ms")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return trace.NewNoopTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordCycle counts one completed supervision cycle and its inference
// latency. failure marks cycles that aborted before evaluation.
func (p *Provider) RecordCycle(camera string, inferenceMs float64, failure bool) {
	if p == nil {
		return
	}
	labels := []attribute.KeyValue{attribute.String("sentinex.camera", camera)}
	p.cyclesCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
	if failure {
		p.cycleFailuresCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
	}
	if inferenceMs > 0 {
		p.inferenceDuration.Record(context.Background(), inferenceMs, metric.WithAttributes(labels...))
	}
}

// RecordAlert counts a dispatched or suppressed alert for (camera, kind).
func (p *Provider) RecordAlert(camera, kind string, suppressed bool, dispatchMs float64) {
	if p == nil {
		return
	}
	labels := []attribute.KeyValue{
		attribute.String("sentinex.camera", camera),
		attribute.String("sentinex.kind", kind),
	}
	if suppressed {
		p.suppressedCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
		return
	}
	p.alertsCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
	if dispatchMs > 0 {
		p.dispatchDuration.Record(context.Background(), dispatchMs, metric.WithAttributes(labels...))
	}
}

// RecordReconnect counts one stream reconnect attempt for a camera.
func (p *Provider) RecordReconnect(camera string) {
	if p == nil {
		return
	}
	p.reconnectsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("sentinex.camera", camera)))
}
