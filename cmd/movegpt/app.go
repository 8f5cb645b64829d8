package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"MoveGPT/internal/address"
	"MoveGPT/internal/agent"
	"MoveGPT/internal/config"
	"MoveGPT/internal/conversation"
	"MoveGPT/internal/events"
	"MoveGPT/internal/knowledge"
	"MoveGPT/internal/llm/openai"
	"MoveGPT/internal/prompt"
	"MoveGPT/internal/resource"
	"MoveGPT/internal/retrieval"
	"MoveGPT/internal/storage/transcript"
	"MoveGPT/internal/web3/provider"
	"MoveGPT/pkg/logger"
)

// application 持有一次进程生命周期内的全部组件。
type application struct {
	agent   *agent.Agent
	closers []func() error
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L().Warn("关闭组件失败", slog.Any("error", err))
		}
	}
}

func (a *application) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// buildApplication 根据配置装配大模型、知识库、链客户端与存储。
func buildApplication(ctx context.Context, cfg *config.Config) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	llmClient, err := createLLMClient(cfg)
	if err != nil {
		return nil, err
	}

	index, err := openKnowledge(ctx, cfg, llmClient)
	if err != nil {
		return nil, err
	}
	if closer, ok := index.(interface{ Close() error }); ok {
		app.onClose(closer.Close)
	}

	account, err := buildAccountRetriever(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	templates, err := prompt.LoadTemplates(cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}

	counter, err := conversation.CounterByName(cfg.Agent.HistoryCounter)
	if err != nil {
		return nil, err
	}

	repo, err := transcript.Open(ctx, transcript.Config{
		Driver: cfg.Storage.Transcript.Driver,
		DSN:    cfg.Storage.Transcript.DSN,
		Path:   cfg.Storage.Transcript.Path,
	})
	if err != nil {
		return nil, err
	}
	app.onClose(repo.Close)

	publisher, err := events.New(ctx, events.Config{
		Driver: cfg.Events.Driver,
		Buffer: cfg.Events.Buffer,
		Redis: events.RedisConfig{
			Address:  cfg.Events.Redis.Address,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
			Key:      cfg.Events.Redis.Key,
		},
		RabbitMQ: events.RabbitMQConfig{
			URL:   cfg.Events.RabbitMQ.URL,
			Queue: cfg.Events.RabbitMQ.Queue,
		},
	})
	if err != nil {
		return nil, err
	}
	app.onClose(publisher.Close)

	app.agent = agent.New(llmClient,
		agent.WithSimilarityRetriever(retrieval.NewSimilarityRetriever(index, cfg.Knowledge.TopK)),
		agent.WithAccountRetriever(account),
		agent.WithTemplates(templates),
		agent.WithSessions(conversation.NewManager(conversation.WithMaxSessions(cfg.Agent.MaxSessions))),
		agent.WithHistoryWindow(conversation.Window{MaxTokens: cfg.Agent.HistoryBudget, Counter: counter}),
		agent.WithTranscript(repo),
		agent.WithPublisher(publisher),
		agent.WithRetrievalTimeout(cfg.Agent.RetrievalTimeout()),
		agent.WithLLMTimeout(cfg.LLM.Timeout()),
	)
	return app, nil
}

func createLLMClient(cfg *config.Config) (*openai.Client, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			Timeout:        cfg.LLM.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

// searchIndex 同时支持检索与写入的知识库。
type searchIndex interface {
	knowledge.Provider
	knowledge.Indexer
}

func openKnowledge(ctx context.Context, cfg *config.Config, embedder *openai.Client) (searchIndex, error) {
	switch cfg.Knowledge.Driver {
	case "static":
		return knowledge.LoadStaticProvider(cfg.Knowledge.StaticPath, cfg.Knowledge.TopK)
	case "qdrant":
		return knowledge.NewQdrantProvider(ctx, knowledge.QdrantConfig{
			URL:        cfg.Knowledge.Qdrant.URL,
			APIKey:     cfg.Knowledge.Qdrant.APIKey,
			Collection: cfg.Knowledge.Collection,
			Dimension:  cfg.Knowledge.Qdrant.Dimension,
		}, embedder)
	case "", "chromem":
		return knowledge.NewChromemProvider(knowledge.ChromemConfig{
			Path:       cfg.Knowledge.Path,
			Collection: cfg.Knowledge.Collection,
			Compress:   cfg.Knowledge.Compress,
		}, embedder)
	default:
		return nil, fmt.Errorf("不支持的知识库驱动: %s", cfg.Knowledge.Driver)
	}
}

func buildAccountRetriever(ctx context.Context, cfg *config.Config, app *application) (*retrieval.ResourceRetriever, error) {
	registry, err := provider.NewRegistry(ctx, cfg.Web3)
	if err != nil {
		return nil, err
	}
	app.onClose(func() error {
		registry.Close()
		return nil
	})

	client, err := registry.DefaultClient()
	if err != nil {
		return nil, err
	}

	validator, ok := address.ValidatorByName(cfg.Web3.AddressValidator)
	if !ok {
		return nil, errors.New("未知的地址校验方式: " + cfg.Web3.AddressValidator)
	}
	logger.Named("bootstrap").Info("链客户端就绪",
		slog.String("chain", registry.DefaultChain()),
		slog.String("type", registry.ChainType(registry.DefaultChain())))

	return &retrieval.ResourceRetriever{
		Client:              client,
		Extractor:           address.NewExtractor(address.WithValidator(validator)),
		Formatter:           resource.NewFormatter(cfg.Web3.CoinDecimals, cfg.Web3.DefaultDecimals),
		DefaultAddress:      cfg.Web3.DefaultAddress,
		IncludeTransactions: cfg.Web3.IncludeTransactions,
		TransactionLimit:    cfg.Web3.TransactionLimit,
		IncludeModules:      cfg.Web3.IncludeModules,
		IncludeTokens:       cfg.Web3.IncludeTokens,
		TokenLimit:          cfg.Web3.TokenLimit,
	}, nil
}
