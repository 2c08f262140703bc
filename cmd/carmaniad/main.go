package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"CarMania-Agent/internal/access"
	"CarMania-Agent/internal/agent"
	"CarMania-Agent/internal/api"
	"CarMania-Agent/internal/chain"
	"CarMania-Agent/internal/compose"
	"CarMania-Agent/internal/config"
	xerrors "CarMania-Agent/internal/errors"
	"CarMania-Agent/internal/history"
	"CarMania-Agent/internal/intent"
	"CarMania-Agent/internal/notify"
	"CarMania-Agent/internal/transport"
	"CarMania-Agent/internal/txbuilder"
	"CarMania-Agent/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("carmaniad failed: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("CARMANIA_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "carmania.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	chainClient, err := chain.NewClient(ctx, chain.Config{RPCURL: cfg.Chain.RPCURL})
	if err != nil {
		return err
	}
	defer chainClient.Close()

	registry, err := chain.NewHTTPRegistry(chain.RegistryConfig{
		BaseURL: cfg.Chain.RegistryBaseURL,
		APIKey:  cfg.RegistryAPIKey(),
	})
	if err != nil {
		return err
	}

	definitions, err := chain.LoadCollectionDefinitions(cfg.Chain.CollectionsFile)
	if err != nil {
		return err
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return err
	}

	verifier := access.NewVerifier(chainClient, registry, definitions.Addresses(),
		access.WithCache(cache))

	classifier, err := intent.NewClassifier()
	if err != nil {
		return err
	}
	composer := compose.NewComposer(compose.DefaultTemplates())

	builder, err := txbuilder.NewBuilder(txbuilder.Contracts{
		Provenance: cfg.Contracts.Provenance,
		Minting:    cfg.Contracts.Minting,
		Community:  cfg.Contracts.Community,
	}, txbuilder.WithReceiptVerifier(chainClient))
	if err != nil {
		return err
	}

	store, err := buildHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = notifier.Close() }()

	// The in-process transport serves webhook traffic; messages arrive via
	// the API server and replies are observable through it in local runs.
	client := transport.NewMemoryClient()

	dispatcher := agent.New(agent.Config{
		SelfAddress:        cfg.Agent.Address,
		GalleryBaseURL:     cfg.Agent.GalleryBaseURL,
		CommunityInviteURL: cfg.Agent.CommunityInviteURL,
	}, classifier, verifier, composer, builder, client,
		agent.WithNotifier(notifier))

	dispatcher.RegisterObserver("history", func(ctx context.Context, result agent.PipelineResult) error {
		return store.Save(ctx, history.Record{
			MessageID:     result.Message.ID,
			SenderAddress: result.Message.SenderAddress,
			IntentType:    string(result.Intent.Type),
			Confidence:    result.Intent.Confidence,
			AccessTier:    string(result.Response.Metadata.AccessTier),
			NFTVerified:   result.Response.Metadata.NFTVerified,
			ResponseChars: len(result.Response.Content),
			CreatedAt:     time.Now().Unix(),
		})
	})

	if err := dispatcher.Start(ctx); err != nil {
		return err
	}
	defer dispatcher.Stop()

	server := api.NewServer(cfg.Server.Addr, dispatcher, builder,
		api.WithCache(cache),
		api.WithHistory(store),
		api.WithTimeouts(
			time.Duration(cfg.Server.ReadTimeoutSec)*time.Second,
			time.Duration(cfg.Server.WriteTimeoutSec)*time.Second))

	return server.Start(ctx)
}

func buildCache(cfg *config.Config) (access.Cache, error) {
	switch cfg.AccessCache.Driver {
	case "memory":
		return access.NewMemoryCache(), nil
	case "redis":
		return access.NewRedisCache(access.RedisCacheConfig{
			Address:  cfg.AccessCache.Redis.Addr,
			Password: cfg.AccessCache.Redis.Password,
			DB:       cfg.AccessCache.Redis.DB,
		})
	default:
		return nil, xerrors.New(xerrors.CodeInitializationFailure,
			"unsupported access cache driver: "+cfg.AccessCache.Driver)
	}
}

func buildHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Driver {
	case "memory":
		return history.NewMemoryStore(), nil
	case "mysql":
		return history.NewMySQLStore(ctx, history.MySQLConfig{DSN: cfg.History.DSN})
	default:
		return nil, xerrors.New(xerrors.CodeInitializationFailure,
			"unsupported history driver: "+cfg.History.Driver)
	}
}

func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notify.Driver {
	case "none":
		return notify.Nop{}, nil
	case "rabbitmq":
		return notify.NewAMQPNotifier(notify.AMQPConfig{
			URL:     cfg.Notify.AMQPURL,
			Queue:   cfg.Notify.Queue,
			Durable: true,
		})
	default:
		return nil, xerrors.New(xerrors.CodeInitializationFailure,
			"unsupported notify driver: "+cfg.Notify.Driver)
	}
}
