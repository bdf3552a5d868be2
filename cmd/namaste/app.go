package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/config"
	"github.com/namaste/namaste/internal/domain/terminology"
	"github.com/namaste/namaste/internal/platform/auth"
	"github.com/namaste/namaste/internal/platform/fhirclient"
	"github.com/namaste/namaste/internal/platform/transport"
)

// app holds the components every command needs: the token manager and
// the terminology client, wired to the configured token store.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	httpClient *http.Client
	redis      *redis.Client
	tokens     *auth.Manager
	client     *fhirclient.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	a.httpClient = transport.NewHTTPClient(transport.Options{
		RetryMax:     cfg.RetryMax,
		RetryWaitMin: cfg.RetryWaitMin,
		RetryWaitMax: cfg.RetryWaitMax,
		Timeout:      cfg.RequestTimeout,
		Logger:       logger,
	})

	var store auth.Store
	switch cfg.TokenStoreKind() {
	case "redis":
		rc, err := auth.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := rc.Ping(ctx).Err(); err != nil {
			rc.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = rc
		store = auth.NewRedisStore(rc, cfg.TokenStorageKey)
	default:
		store = auth.NewMemoryStore()
	}
	logger.Debug().Str("token_store", cfg.TokenStoreKind()).Msg("token store selected")

	a.tokens = auth.NewManager(auth.Options{
		TokenURL:         cfg.TerminologyBaseURL + "/auth/token",
		HTTPClient:       a.httpClient,
		Store:            store,
		DefaultTTL:       cfg.TokenDefaultTTL,
		RefreshThreshold: cfg.TokenRefreshThreshold,
		Timeout:          cfg.RequestTimeout,
		Logger:           logger,
	})
	if err := a.tokens.Init(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	a.client = fhirclient.New(fhirclient.Options{
		BaseURL:    cfg.TerminologyBaseURL,
		HTTPClient: a.httpClient,
		Tokens:     a.tokens,
		Timeout:    cfg.RequestTimeout,
		Logger:     logger,
	})
	return a, nil
}

func (a *app) classifier() (*terminology.Classifier, error) {
	rules, err := terminology.ParseRules(a.cfg.SystemLabels)
	if err != nil {
		return nil, err
	}
	return terminology.NewClassifier(rules), nil
}

// terminologyService builds the service over history, which may be nil
// for commands that keep no history.
func (a *app) terminologyService(history terminology.HistoryRepository) (*terminology.Service, error) {
	cls, err := a.classifier()
	if err != nil {
		return nil, err
	}
	return terminology.NewService(a.client, terminology.ServiceOptions{
		ValueSetURL:   a.cfg.ValueSetURL,
		ConceptMapURL: a.cfg.ConceptMapURL,
		Classifier:    cls,
		History:       history,
		Logger:        a.logger,
	}), nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}
