// Package otel wires the engine's OpenTelemetry log pipeline: a
// pretty-printed session log file plus an optional OTLP endpoint. The
// metric side stays on the global meter provider, which is a no-op
// unless the host configures one.
package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds the log pipeline configuration.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // session log file, required when enabled
	Endpoint     string    // OTLP endpoint, exporter added only if set
	Insecure     bool      // plain HTTP for the OTLP exporter
}

// Provider owns the sdk log provider backing the otelslog bridge.
// A disabled provider is valid and all its methods are no-ops.
type Provider struct {
	cfg         Config
	logProvider *sdklog.LoggerProvider
}

// New builds the provider. With Enabled false it returns a no-op
// provider; with Enabled true at least one of LogWriter and Endpoint
// must be set.
func New(cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	processors, err := buildProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(processors) == 0 {
		return nil, fmt.Errorf("OTel enabled but no log writer or endpoint configured")
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)

	return p, nil
}

func buildProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var processors []sdklog.Processor

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	return processors, nil
}

// LoggerProvider returns the log provider for the otelslog bridge,
// nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a no-op meter; the log pipeline is the primary export
// and per-package meters come from the global provider instead.
func (p *Provider) Meter(name string) metric.Meter {
	return noop.Meter{}
}

// Flush forces out all pending log records. Called before session
// shutdown so the exported file is complete.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown stops the log provider. Called once on engine exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled reports whether the pipeline was configured on.
func (p *Provider) Enabled() bool {
	return p.cfg.Enabled
}
