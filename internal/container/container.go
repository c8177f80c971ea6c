package container

import (
	"fmt"
	"net/http"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/analyzer"
	"go-trustshield/internal/client"
	"go-trustshield/internal/config"
	"go-trustshield/internal/factory"
	"go-trustshield/internal/intake"
	"go-trustshield/internal/logger"
	"go-trustshield/internal/observer"
	"go-trustshield/internal/ocr"
	"go-trustshield/internal/storage"
	"go-trustshield/internal/transport"
	"go-trustshield/pkg/models"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	backend   *client.Client
	previews  *storage.PreviewStore
	publisher *observer.EventPublisher
	metrics   *observer.MetricsObserver
	hub       *transport.EventHub
	factories *factory.ComponentFactory
	registry  *analyzer.Registry
	handler   http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("container needs a config")
	}
	logger.SetLevel(cfg.LogLevel)

	// Build dependency graph
	backend := client.New(cfg.APIBaseURL, cfg.RequestTimeout, nil)
	previews := storage.NewPreviewStore()

	storageFactory := factory.NewStorageFactory(cfg, previews)
	router, err := storageFactory.CreateRouter()
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact storage: %w", err)
	}
	al := aligner.New(router, cfg.ContainerWidth)

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	hub := transport.NewEventHub()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)
	publisher.Subscribe(hub)

	deps := factory.AnalyzerDeps{
		Backend:   backend,
		Publisher: publisher,
		Aligner:   al,
		Previews:  previews,
		Previewer: newPreviewer(cfg),
	}
	factories := factory.NewComponentFactory(factory.NewAnalyzerFactory(cfg, deps), storageFactory)

	var analyzers []*analyzer.Analyzer
	for _, kind := range models.Kinds {
		a, err := factories.AnalyzerFactory.CreateAnalyzer(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s analyzer: %w", kind, err)
		}
		analyzers = append(analyzers, a)
	}
	registry, err := analyzer.NewRegistry(analyzers...)
	if err != nil {
		return nil, err
	}

	handler := transport.NewHandler(registry, backend, metrics, hub, cfg)

	return &Container{
		config:    cfg,
		backend:   backend,
		previews:  previews,
		publisher: publisher,
		metrics:   metrics,
		hub:       hub,
		factories: factories,
		registry:  registry,
		handler:   handler,
	}, nil
}

// newPreviewer returns the OCR previewer when enabled and available. OCR is
// optional; failures only disable previews.
func newPreviewer(cfg *config.Config) intake.Previewer {
	if !cfg.OCREnabled {
		return nil
	}
	p, err := ocr.NewTesseractPreviewer(ocr.Config{Language: cfg.OCRLanguage})
	if err != nil {
		logger.WithError(err).Warn("OCR previews disabled")
		return nil
	}
	return p
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Backend returns the analysis service client
func (c *Container) Backend() *client.Client {
	return c.backend
}

// Registry returns the long-lived analyzers served by the console
func (c *Container) Registry() *analyzer.Registry {
	return c.registry
}

// Analyzers returns the factory for additional, independent analyzers
func (c *Container) Analyzers() factory.AnalyzerFactory {
	return c.factories.AnalyzerFactory
}

// Metrics returns the session metrics
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Publisher returns the session event publisher
func (c *Container) Publisher() *observer.EventPublisher {
	return c.publisher
}
