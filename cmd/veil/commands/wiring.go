package commands

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/veil-ai/veil/internal/config"
	"github.com/veil-ai/veil/internal/detect"
	"github.com/veil-ai/veil/internal/embed"
	"github.com/veil-ai/veil/internal/logging"
	"github.com/veil-ai/veil/internal/provider"
	"github.com/veil-ai/veil/internal/pseudo"
	"github.com/veil-ai/veil/internal/registry"
	"github.com/veil-ai/veil/internal/store"
)

var configPath string

// app is the wired collaborator set shared by ingest and query.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	detector  detect.Detector
	storage   store.Storage
	generator provider.Generator
	strategy  pseudo.Pseudonymizer

	persistent *registry.Persistent // nil when the registry is memory-only
	closers    []func() error
}

// buildApp wires everything from config. The registry strategy is the only
// one exposed through the CLI; the alternatives live in `veil compare`.
func buildApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.Logging.Level, cfg.Logging.JSON),
	}

	switch cfg.Detector.Mode {
	case "remote":
		a.detector = detect.NewRemote(
			cfg.Detector.BaseURL,
			config.APIKey(cfg.Detector.APIKeyEnv),
			cfg.Detector.Timeout.Std(),
		)
	case "local":
		a.detector = detect.NewRegexDetector()
	default:
		return nil, errors.Newf("unknown detector mode %q", cfg.Detector.Mode)
	}

	if cfg.Registry.Path != "" {
		p, err := registry.OpenSQLite(cfg.Registry.Path, cfg.Registry.Session, a.logger)
		if err != nil {
			return nil, err
		}
		a.persistent = p
		a.strategy = pseudo.NewConsistent(p)
		a.closers = append(a.closers, p.Close)
	} else {
		a.logger.Warn("no registry path configured; token mapping will not survive this process")
		a.strategy = pseudo.NewConsistent(registry.New())
	}

	switch cfg.Storage.Mode {
	case "sqlite":
		var embedder embed.Embedder
		switch cfg.Storage.Embedder.Mode {
		case "openai":
			embedder = embed.NewOpenAI(
				cfg.Storage.Embedder.BaseURL,
				config.APIKey(cfg.Storage.Embedder.APIKeyEnv),
				cfg.Storage.Embedder.Model,
				0,
			)
		case "hash":
			embedder = embed.NewHashEmbedder(cfg.Storage.Embedder.Dimensions)
		default:
			return nil, errors.Newf("unknown embedder mode %q", cfg.Storage.Embedder.Mode)
		}
		vs, err := store.OpenVecStore(cfg.Storage.Path, embedder, a.logger)
		if err != nil {
			return nil, err
		}
		a.storage = vs
		a.closers = append(a.closers, vs.Close)
	case "memory":
		a.storage = store.NewMemStore()
	default:
		return nil, errors.Newf("unknown storage mode %q", cfg.Storage.Mode)
	}

	switch cfg.Provider.Type {
	case "openai":
		a.generator = provider.NewOpenAI(
			cfg.Provider.BaseURL,
			config.APIKey(cfg.Provider.APIKeyEnv),
			cfg.Provider.Model,
			cfg.Provider.SystemPrompt,
			cfg.Provider.Timeout.Std(),
		)
	case "fake":
		a.generator = provider.NewFake("(no provider configured; echoing nothing useful)")
	default:
		return nil, errors.Newf("unknown provider type %q", cfg.Provider.Type)
	}

	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
