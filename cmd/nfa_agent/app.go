package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/assemble"
	"github.com/jonathan/nfa-builder/internal/classify"
	"github.com/jonathan/nfa-builder/internal/config"
	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/generation"
	"github.com/jonathan/nfa-builder/internal/llm"
	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/reconcile"
	"github.com/jonathan/nfa-builder/internal/signatures"
	"github.com/jonathan/nfa-builder/internal/storage"
	"github.com/jonathan/nfa-builder/internal/types"
)

// app holds everything a command needs, built once from the configuration.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	client     llm.Client
	database   *db.DB
	store      *storage.Store
	signatures signatures.Store
	defaults   types.SignatureLayout
	builder    *pipeline.Builder
}

// loadConfig reads, merges and validates the configuration.
func loadConfig(path string) (*config.Config, error) {
	loaded, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	merged := loaded.MergeWithDefaults(config.Default())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// newApp wires the pipeline. The database is opened only when a URL is
// configured and the LLM client only when an API key is available; both are
// optional.
func newApp(ctx context.Context) (*app, error) {
	logger, err := newLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		logger.Debug("loaded config", zap.String("file", cfg.ConfigFile))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    storage.New(cfg.OutputDir),
		defaults: cfg.SignatureDefaults(),
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.database = database
	}

	if err := a.initClient(ctx); err != nil {
		a.Close()
		return nil, err
	}

	switch {
	case cfg.SignaturesFile != "":
		a.signatures = signatures.NewFileStore(cfg.SignaturesFile)
	case a.database != nil:
		a.signatures = signatures.NewDBStore(a.database)
	}

	if err := a.initBuilder(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) initClient(ctx context.Context) error {
	apiKey := a.cfg.LLM.ResolveAPIKey(os.LookupEnv)
	if apiKey == "" {
		a.logger.Warn("no API key configured, memos use the fallback draft and edits are not applied",
			zap.String("provider", a.cfg.LLM.Provider))
		return nil
	}
	llmConfig, err := a.cfg.LLM.ClientConfig()
	if err != nil {
		return fmt.Errorf("invalid llm config: %w", err)
	}
	client, err := llm.NewClient(ctx, llmConfig, apiKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.client = client
	return nil
}

func (a *app) initBuilder() error {
	classifierOpts, err := a.cfg.ClassifierOptions()
	if err != nil {
		return err
	}
	classifier := classify.New(classifierOpts)

	var header []byte
	if path, ok := storage.FindHeaderImage(a.cfg.HeaderImage, a.cfg.AssetsDir); ok {
		header, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read header image: %w", err)
		}
		a.logger.Debug("using header image", zap.String("path", path))
	} else {
		a.logger.Debug("no header image found", zap.String("assets_dir", a.cfg.AssetsDir))
	}

	opts := pipeline.Options{
		Generator: generation.New(a.client, generation.Options{
			MaxOutputTokens: a.cfg.LLM.GenerateMaxTokens,
			Temperature:     a.cfg.LLM.GenerateTemperature,
			Tier:            llm.TierStandard,
		}, a.logger),
		Reconciler: reconcile.New(a.client, classifier, reconcile.Options{
			MaxOutputTokens: a.cfg.LLM.EditMaxTokens,
			Temperature:     a.cfg.LLM.EditTemperature,
			Tier:            llm.TierStandard,
		}, a.logger),
		Classifier: classifier,
		Assembler: assemble.New(assemble.Options{
			HeaderImage: header,
			Defaults:    a.defaults,
			Creator:     "nfa-builder",
		}, a.logger),
		Store:             a.store,
		Signatures:        a.signatures,
		DefaultSignatures: a.defaults,
		Logger:            a.logger,
	}
	if a.database != nil {
		opts.Recorder = a.database
	}

	builder, err := pipeline.NewBuilder(opts)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}
	a.builder = builder
	return nil
}

// requireDatabase fails commands that only make sense with history storage.
func (a *app) requireDatabase() error {
	if a.database == nil {
		return fmt.Errorf("this command requires a database: set database_url or DATABASE_URL")
	}
	return nil
}

// Close releases the client and the database pool.
func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Debug("failed to close LLM client", zap.Error(err))
		}
	}
	if a.database != nil {
		a.database.Close()
	}
	_ = a.logger.Sync()
}
