package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/config"
	"github.com/Arash-Rostami/AI-Agent-sub000/internal/logger"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/gateway"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/keyring"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/orchestrator"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/permission"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/retrieval"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/scheduler"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/session"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/statestore"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/tools"
)

const (
	defaultSystemPrompt = `You are a helpful assistant for visitors of this site.
Answer concisely. Use the available tools when they help answer the question,
and cite knowledge base material when you rely on it.`

	restrictedSystemPrompt = `You are a helpful assistant embedded on a public page.
Only answer questions about this site and its services. For anything else,
say it is outside my area of expertise and offer to continue if the visitor
confirms.`

	bmsSystemPrompt = `You are the building management assistant. Answer strictly
from the internal knowledge base. If the knowledge base has no answer, say so.`
)

// app is the fully wired gateway stack.
type app struct {
	cfg *config.Config
	log *logger.Logger

	store    statestore.Store
	rotator  *keyring.Rotator
	sessions *session.Store
	archiver *session.Archiver
	chunks   *retrieval.ChunkStore
	index    *retrieval.Index
	watcher  *retrieval.Watcher
	states   *permission.StateStore
	service  *gateway.Service
	sched    *scheduler.Scheduler
}

// newApp loads configuration and assembles every component. The caller owns
// the returned app and must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logs, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logs}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	// State backend
	switch cfg.State.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.State.RedisAddr,
			DB:   cfg.State.RedisDB,
		})
		a.store = statestore.NewRedisStore(client)
	default:
		a.store = statestore.NewMemoryStore()
	}

	// Credential rotation
	pool := make([]keyring.Credential, 0, len(cfg.Keys.Pool))
	for i, key := range cfg.Keys.Pool {
		pool = append(pool, keyring.Credential{ID: fmt.Sprintf("pool-%d", i+1), Key: key})
	}
	rotator, err := keyring.New(keyring.Config{
		Pool:       pool,
		Privileged: keyring.Credential{ID: "privileged", Key: cfg.Keys.Privileged},
		Store:      a.store,
		TTL:        cfg.Keys.LeaseTTL,
		Logger:     a.log.Zerolog(),
	})
	if err != nil {
		return err
	}
	a.rotator = rotator

	// Sessions and transcript archive
	a.sessions = session.NewStore()
	archiver, err := session.NewArchiver(cfg.Session.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to open transcript archive: %w", err)
	}
	a.archiver = archiver

	// Retrieval index
	index, err := a.buildIndex(ctx)
	if err != nil {
		return err
	}
	a.index = index

	// Tools
	registry := tools.NewRegistry()
	backends := tools.Backends{
		Crawler:   tools.NewPageFetcher(),
		Knowledge: gateway.NewKnowledgeAdapter(index, cfg.Retrieval.TopK),
		Timezone:  cfg.Tools.Timezone,
	}
	if cfg.Tools.WeatherAPIKey != "" {
		backends.Weather = tools.NewWeatherAPIClient(cfg.Tools.WeatherAPIKey)
	}
	if cfg.Tools.SearchAPIKey != "" {
		backends.Search = tools.NewSerperClient(cfg.Tools.SearchAPIKey)
	}
	if cfg.Tools.Mail.Host != "" {
		backends.Mail = tools.NewSMTPMailer(
			cfg.Tools.Mail.Host, cfg.Tools.Mail.Port,
			cfg.Tools.Mail.Username, cfg.Tools.Mail.Password, cfg.Tools.Mail.From)
	}
	if err := tools.RegisterBuiltins(registry, backends); err != nil {
		return err
	}

	gate := permission.NewGate(permission.GateConfig{
		AllTools:      tools.AllToolNames(),
		WebTools:      tools.WebToolNames(),
		KnowledgeTool: tools.ToolKnowledgeBase,
		EmailTool:     tools.ToolSendEmail,
	})
	a.states = permission.NewStateStore(a.store, cfg.Permission.StateExpiry)

	consent, err := permission.NewConsentScanner(cfg.Permission.Disclaimers, cfg.Permission.Affirmations)
	if err != nil {
		return err
	}

	// Orchestration
	orch, err := orchestrator.New(orchestrator.Config{
		Provider:    cfg.Provider.Name,
		Model:       cfg.Provider.Model,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,

		Gate:     gate,
		Registry: registry,
		Invoker:  tools.NewInvoker(registry, 0),
		Rotator:  rotator,
		Factory:  orchestrator.SDKFactory{},

		Prompts: orchestrator.SystemPrompts{
			Default:    defaultSystemPrompt,
			Restricted: restrictedSystemPrompt,
			BMS:        bmsSystemPrompt,
		},
		LeakedKeyMarker: cfg.Keys.LeakedKeyMarker,
		MaxHops:         cfg.Provider.MaxHops,
	})
	if err != nil {
		return err
	}

	service, err := gateway.New(gateway.Config{
		Orchestrator: orch,
		Sessions:     a.sessions,
		Archiver:     archiver,
		Consent:      consent,
		Index:        index,
		TopK:         cfg.Retrieval.TopK,
	})
	if err != nil {
		return err
	}
	a.service = service

	sched, err := scheduler.New(scheduler.Config{
		Rotator: rotator,
		Cleaner: session.NewCleaner(a.sessions, cfg.Session.IdleTimeout),
		Index:   index,
		Intervals: scheduler.Intervals{
			LeasePrune:   cfg.Maintenance.LeasePrune,
			SessionSweep: cfg.Maintenance.SessionSweep,
			IndexResync:  cfg.Maintenance.IndexResync,
		},
	})
	if err != nil {
		return err
	}
	a.sched = sched

	return nil
}

func (a *app) buildIndex(ctx context.Context) (*retrieval.Index, error) {
	cfg := a.cfg

	embKey := cfg.Retrieval.Embedding.APIKey
	if embKey == "" && len(cfg.Keys.Pool) > 0 {
		embKey = cfg.Keys.Pool[0]
	}

	var embedder retrieval.EmbeddingProvider
	switch cfg.Retrieval.Embedding.Provider {
	case "openai":
		embedder = retrieval.NewOpenAIEmbedder(embKey, cfg.Retrieval.Embedding.Model)
	default:
		gem, err := retrieval.NewGeminiEmbedder(ctx, embKey, cfg.Retrieval.Embedding.Model, cfg.Retrieval.Embedding.Dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		embedder = gem
	}

	source, err := retrieval.NewDirSource(cfg.Retrieval.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open docs directory: %w", err)
	}

	chunkStore, err := retrieval.NewChunkStore(cfg.Retrieval.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}
	a.chunks = chunkStore

	index, err := retrieval.NewIndex(retrieval.IndexConfig{
		Embedder:  embedder,
		Source:    source,
		Store:     chunkStore,
		ChunkSize: cfg.Retrieval.ChunkSize,
	})
	if err != nil {
		return nil, err
	}

	if err := index.WarmUp(ctx); err != nil {
		return nil, err
	}
	return index, nil
}

// watchDocs starts the docs watcher feeding the index dirty flag.
func (a *app) watchDocs() error {
	if !a.cfg.Retrieval.Watch {
		return nil
	}
	watcher, err := retrieval.NewWatcher(a.index.MarkDirty)
	if err != nil {
		return err
	}
	if err := watcher.Watch(a.cfg.Retrieval.DocsDir); err != nil {
		watcher.Stop()
		return err
	}
	a.watcher = watcher
	return nil
}

// Close releases everything in reverse wiring order. Safe on a partially
// wired app.
func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.archiver != nil {
		a.archiver.Close()
	}
	if a.chunks != nil {
		a.chunks.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.log != nil {
		a.log.Close()
	}
}
