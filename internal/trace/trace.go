// Package trace owns the process tracer provider. Spans are exported to
// stdout (or Config.Writer) and carry the run id of the batch they belong to.
package trace

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultServiceName = "eps-report"

	// Span attribute keys set by AnnotateRun
	RunIDKey      = attribute.Key("eps.run_id")
	ReportYearKey = attribute.Key("eps.report_year")
	PortfolioKey  = attribute.Key("eps.portfolio")
)

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
	instanceID     string
)

// Config selects where spans go. A zero Config disables tracing.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// Command names the binary, e.g. "report" or "revenue"
	Command     string
	PrettyPrint bool
	// Writer defaults to stdout
	Writer io.Writer
}

// LoadConfigFromEnv reads LOG_TRACING_ENABLED and LOG_TRACING_PRETTY
func LoadConfigFromEnv(command string) Config {
	return Config{
		Enabled:        getEnv("LOG_TRACING_ENABLED", "false") == "true",
		ServiceName:    defaultServiceName,
		ServiceVersion: "1.0.0",
		Command:        command,
		PrettyPrint:    getEnv("LOG_TRACING_PRETTY", "true") == "true",
	}
}

// Init installs the global tracer provider from the environment
func Init(command string) error {
	return InitWithConfig(LoadConfigFromEnv(command))
}

// InitWithConfig replaces any previous provider. Every process gets a fresh
// service.instance.id so the spans of one scheduled daemon group together.
func InitWithConfig(config Config) error {
	enabled = false
	tracer = nil
	if tracerProvider != nil {
		_ = tracerProvider.Shutdown(context.Background())
		tracerProvider = nil
	}
	if !config.Enabled {
		return nil
	}

	opts := []stdouttrace.Option{}
	if config.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(config.Writer))
	}
	if config.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return err
	}

	name := config.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	instanceID = uuid.NewString()
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		attribute.String("service.instance.id", instanceID),
	}
	if config.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(config.ServiceVersion))
	}
	if config.Command != "" {
		attrs = append(attrs, attribute.String("eps.command", config.Command))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return err
	}

	// Syncer so short-lived commands flush every span before exiting
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = tracerProvider.Tracer(name)
	enabled = true
	return nil
}

func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}
	err := tracerProvider.Shutdown(ctx)
	tracerProvider = nil
	tracer = nil
	enabled = false
	return err
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

// InstanceID is the service.instance.id of the current provider, empty when
// tracing is off
func InstanceID() string {
	if !enabled {
		return ""
	}
	return instanceID
}

// AnnotateRun tags the active span with the batch it belongs to
func AnnotateRun(ctx context.Context, runID string, reportYear int, portfolio string) {
	if !enabled {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}
	attrs := []attribute.KeyValue{RunIDKey.String(runID), ReportYearKey.Int(reportYear)}
	if portfolio != "" {
		attrs = append(attrs, PortfolioKey.String(portfolio))
	}
	span.SetAttributes(attrs...)
}

// GetTraceFields returns the ids of the span carried by ctx, if any.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
