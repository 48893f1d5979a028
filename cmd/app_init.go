package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/springfield-isd/grants-assistant/internal/assemble"
	"github.com/springfield-isd/grants-assistant/internal/completion"
	"github.com/springfield-isd/grants-assistant/internal/grants"
	"github.com/springfield-isd/grants-assistant/internal/store"
	"github.com/springfield-isd/grants-assistant/internal/webfetch"
	"github.com/springfield-isd/grants-assistant/pkg/anthropic"
)

// appEnv holds the wired request-path components.
type appEnv struct {
	Store       *grants.Store
	Assembler   *assemble.Assembler
	Requester   *completion.Requester
	Transcripts store.Store
}

// initApp builds the immutable stores and the request-path components once,
// at process start.
func initApp(ctx context.Context) (*appEnv, error) {
	grantStore := grants.Load(cfg.Data.GrantsPath, cfg.Data.FinancialPath)

	fetcher := webfetch.New(time.Duration(cfg.Fetch.TimeoutSecs) * time.Second)

	asm := assemble.New(grantStore, fetcher)
	asm.FinancialEnabled = cfg.Context.FinancialEnabled
	asm.MaxContextGrants = cfg.Context.MaxGrants
	asm.MaxFetchedContent = cfg.Context.MaxFetchedContent

	client := anthropic.NewClient(cfg.Anthropic.Key)
	if client == nil {
		zap.L().Warn("anthropic api key not configured, completions will report a configuration problem")
	}
	requester := completion.New(client)
	requester.Model = cfg.Anthropic.Model
	requester.MaxTokens = cfg.Anthropic.MaxTokens
	requester.Temperature = cfg.Anthropic.Temperature
	requester.MaxHistoryTurns = cfg.Context.MaxHistoryTurns

	transcripts, err := openTranscripts(ctx)
	if err != nil {
		return nil, err
	}

	return &appEnv{
		Store:       grantStore,
		Assembler:   asm,
		Requester:   requester,
		Transcripts: transcripts,
	}, nil
}

// openTranscripts opens the configured transcript store, or returns nil when
// persistence is disabled.
func openTranscripts(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Transcripts != nil {
		if err := e.Transcripts.Close(); err != nil {
			zap.L().Warn("close transcript store", zap.Error(err))
		}
	}
}
