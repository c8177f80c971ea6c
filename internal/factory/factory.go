package factory

import (
	"fmt"
	"time"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/analyzer"
	"go-trustshield/internal/client"
	"go-trustshield/internal/config"
	"go-trustshield/internal/intake"
	"go-trustshield/internal/observer"
	"go-trustshield/internal/storage"
	"go-trustshield/pkg/models"
)

// StorageType represents different types of artifact storage backends
type StorageType string

const (
	// HTTPStorage for artifacts served over HTTP(S)
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// PreviewStorage for in-memory attachment previews
	PreviewStorage StorageType = "preview"
)

// AnalyzerFactory creates analyzers sharing one backend, publisher and aligner
type AnalyzerFactory interface {
	CreateAnalyzer(kind models.Kind) (*analyzer.Analyzer, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
	CreateRouter() (*storage.Router, error)
}

// AnalyzerDeps are the collaborators shared by every analyzer
type AnalyzerDeps struct {
	Backend   client.Backend
	Publisher observer.Subject
	Aligner   *aligner.Aligner
	Previews  *storage.PreviewStore
	// Previewer is optional; nil disables image text previews
	Previewer intake.Previewer
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	cfg  *config.Config
	deps AnalyzerDeps
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config, deps AnalyzerDeps) AnalyzerFactory {
	return &analyzerFactory{cfg: cfg, deps: deps}
}

// CreateAnalyzer creates a fresh analyzer with its own collector
func (f *analyzerFactory) CreateAnalyzer(kind models.Kind) (*analyzer.Analyzer, error) {
	if _, ok := models.ParseKind(string(kind)); !ok {
		return nil, fmt.Errorf("unsupported analyzer type: %s", kind)
	}
	if f.deps.Backend == nil {
		return nil, fmt.Errorf("analyzer %s needs a backend", kind)
	}

	collectorOpts := []intake.CollectorOption{intake.WithMaxSize(f.cfg.MaxAttachmentSize)}
	if f.deps.Previewer != nil {
		collectorOpts = append(collectorOpts, intake.WithPreviewer(f.deps.Previewer))
	}
	collector := intake.NewCollector(kind, f.deps.Previews, collectorOpts...)

	opts := analyzer.DefaultOptions(kind).WithStageInterval(f.stageInterval(kind))
	if !f.cfg.SurfaceFallback {
		opts = opts.WithSilentFallback()
	}

	var al *aligner.Aligner
	if kind == models.KindDocument {
		al = f.deps.Aligner
	}
	return analyzer.New(kind, f.deps.Backend, collector, f.deps.Publisher, al, opts), nil
}

func (f *analyzerFactory) stageInterval(kind models.Kind) time.Duration {
	switch kind {
	case models.KindMessage:
		return f.cfg.MessageStageInterval
	case models.KindDocument:
		return f.cfg.DocumentStageInterval
	case models.KindPayment:
		return f.cfg.PaymentStageInterval
	case models.KindURL:
		return f.cfg.URLStageInterval
	}
	return 0
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg      *config.Config
	previews *storage.PreviewStore
}

// NewStorageFactory creates a new storage factory. previews backs PreviewStorage.
func NewStorageFactory(cfg *config.Config, previews *storage.PreviewStore) StorageFactory {
	return &storageFactory{cfg: cfg, previews: previews}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return f.httpFetcher(), nil
	case AzureStorage:
		a, err := f.azure()
		if err != nil {
			return nil, err
		}
		return a, nil
	case PreviewStorage:
		if f.previews == nil {
			return nil, fmt.Errorf("preview storage not configured")
		}
		return f.previews, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateRouter combines preview, HTTP and, when configured, Azure storage
func (f *storageFactory) CreateRouter() (*storage.Router, error) {
	var azure *storage.AzureStorage
	if f.cfg.AzureEnabled() {
		a, err := f.azure()
		if err != nil {
			return nil, err
		}
		azure = a
	}
	return storage.NewRouter(f.previews, f.httpFetcher(), azure), nil
}

func (f *storageFactory) httpFetcher() *storage.HTTPImageFetcher {
	return storage.NewHTTPImageFetcher(nil)
}

func (f *storageFactory) azure() (*storage.AzureStorage, error) {
	if !f.cfg.AzureEnabled() {
		return nil, fmt.Errorf("azure storage not configured (set AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY)")
	}
	return storage.NewAzureStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(analyzers AnalyzerFactory, stores StorageFactory) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: analyzers,
		StorageFactory:  stores,
	}
}
