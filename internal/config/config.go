package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MoveGPT/internal/resource"
	"MoveGPT/pkg/logger"
)

// DefaultPath 是未指定配置文件时读取的位置。
const DefaultPath = "configs/movegpt.json"

// 可以覆盖配置文件的环境变量。
const (
	EnvConfigPath     = "MOVEGPT_CONFIG"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvNodeURL        = "MOVEGPT_NODE_URL"
	EnvDefaultAddress = "MOVEGPT_DEFAULT_ADDRESS"
	EnvServerAddress  = "MOVEGPT_SERVER_ADDRESS"
)

// Config 描述了 MoveGPT 在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" toml:"llm"`
	Knowledge KnowledgeConfig `json:"knowledge" yaml:"knowledge" toml:"knowledge"`
	Web3      Web3Config      `json:"web3" yaml:"web3" toml:"web3"`
	Agent     AgentConfig     `json:"agent" yaml:"agent" toml:"agent"`
	Storage   StorageConfig   `json:"storage" yaml:"storage" toml:"storage"`
	Events    EventsConfig    `json:"events" yaml:"events" toml:"events"`
	Logging   logger.Config   `json:"logging" yaml:"logging" toml:"logging"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime" toml:"runtime"`
	Prompts   PromptsConfig   `json:"prompts" yaml:"prompts" toml:"prompts"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address                string   `json:"address" yaml:"address" toml:"address"`
	AllowedOrigins         []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
}

// ShutdownTimeout 返回优雅退出的等待时间。
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LLMConfig 用于配置大模型的调用方式。
type LLMConfig struct {
	Provider       string  `json:"provider" yaml:"provider" toml:"provider"`
	APIKey         string  `json:"api_key" yaml:"api_key" toml:"api_key"`
	BaseURL        string  `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model          string  `json:"model" yaml:"model" toml:"model"`
	EmbeddingModel string  `json:"embedding_model" yaml:"embedding_model" toml:"embedding_model"`
	Temperature    float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// Timeout 返回单次补全请求的超时时间。
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// KnowledgeConfig 描述文档向量库。
type KnowledgeConfig struct {
	Driver     string       `json:"driver" yaml:"driver" toml:"driver"`
	Path       string       `json:"path" yaml:"path" toml:"path"`
	Collection string       `json:"collection" yaml:"collection" toml:"collection"`
	Compress   bool         `json:"compress" yaml:"compress" toml:"compress"`
	TopK       int          `json:"top_k" yaml:"top_k" toml:"top_k"`
	StaticPath string       `json:"static_path" yaml:"static_path" toml:"static_path"`
	Qdrant     QdrantConfig `json:"qdrant" yaml:"qdrant" toml:"qdrant"`
	Ingest     IngestConfig `json:"ingest" yaml:"ingest" toml:"ingest"`
}

// QdrantConfig 描述 qdrant 连接信息。
type QdrantConfig struct {
	URL       string `json:"url" yaml:"url" toml:"url"`
	APIKey    string `json:"api_key" yaml:"api_key" toml:"api_key"`
	Dimension int    `json:"dimension" yaml:"dimension" toml:"dimension"`
}

// IngestConfig 控制文档导入的切分方式。
type IngestConfig struct {
	Dir       string `json:"dir" yaml:"dir" toml:"dir"`
	ChunkSize int    `json:"chunk_size" yaml:"chunk_size" toml:"chunk_size"`
	Separator string `json:"separator" yaml:"separator" toml:"separator"`
}

// Web3Config 包含访问区块链节点与格式化资源所需的参数。
type Web3Config struct {
	ChainConfig         string         `json:"chain_config" yaml:"chain_config" toml:"chain_config"`
	DefaultChain        string         `json:"default_chain" yaml:"default_chain" toml:"default_chain"`
	NodeURL             string         `json:"node_url" yaml:"node_url" toml:"node_url"`
	DefaultAddress      string         `json:"default_address" yaml:"default_address" toml:"default_address"`
	AddressValidator    string         `json:"address_validator" yaml:"address_validator" toml:"address_validator"`
	CoinDecimals        map[string]int `json:"coin_decimals" yaml:"coin_decimals" toml:"coin_decimals"`
	DefaultDecimals     int            `json:"default_decimals" yaml:"default_decimals" toml:"default_decimals"`
	IncludeTransactions bool           `json:"include_transactions" yaml:"include_transactions" toml:"include_transactions"`
	TransactionLimit    int            `json:"transaction_limit" yaml:"transaction_limit" toml:"transaction_limit"`
	IncludeModules      bool           `json:"include_modules" yaml:"include_modules" toml:"include_modules"`
	IncludeTokens       bool           `json:"include_tokens" yaml:"include_tokens" toml:"include_tokens"`
	TokenLimit          int            `json:"token_limit" yaml:"token_limit" toml:"token_limit"`
	IndexerURL          string         `json:"indexer_url" yaml:"indexer_url" toml:"indexer_url"`
	TimeoutSeconds      int            `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// Timeout 返回节点请求的超时时间。
func (c Web3Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AgentConfig 控制单轮对话的行为。
type AgentConfig struct {
	RetrievalTimeoutSeconds int    `json:"retrieval_timeout_seconds" yaml:"retrieval_timeout_seconds" toml:"retrieval_timeout_seconds"`
	HistoryBudget           int    `json:"history_budget" yaml:"history_budget" toml:"history_budget"`
	HistoryCounter          string `json:"history_counter" yaml:"history_counter" toml:"history_counter"`
	MaxSessions             int    `json:"max_sessions" yaml:"max_sessions" toml:"max_sessions"`
}

// RetrievalTimeout 返回检索阶段的超时时间。
func (c AgentConfig) RetrievalTimeout() time.Duration {
	return time.Duration(c.RetrievalTimeoutSeconds) * time.Second
}

// StorageConfig 统一描述对话记录的存储后端。
type StorageConfig struct {
	Transcript TranscriptConfig `json:"transcript" yaml:"transcript" toml:"transcript"`
}

// TranscriptConfig 选择对话记录的存储驱动：file、mysql、sqlite 或 none。
type TranscriptConfig struct {
	Driver string `json:"driver" yaml:"driver" toml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Path   string `json:"path" yaml:"path" toml:"path"`
}

// EventsConfig 选择对话事件的发布方式：none、memory、redis 或 rabbitmq。
type EventsConfig struct {
	Driver   string         `json:"driver" yaml:"driver" toml:"driver"`
	Buffer   int            `json:"buffer" yaml:"buffer" toml:"buffer"`
	Redis    RedisConfig    `json:"redis" yaml:"redis" toml:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq" toml:"rabbitmq"`
}

// RedisConfig 描述 Redis 连接。
type RedisConfig struct {
	Address  string `json:"address" yaml:"address" toml:"address"`
	Password string `json:"password" yaml:"password" toml:"password"`
	DB       int    `json:"db" yaml:"db" toml:"db"`
	Key      string `json:"key" yaml:"key" toml:"key"`
}

// RabbitMQConfig 描述 RabbitMQ 连接。
type RabbitMQConfig struct {
	URL   string `json:"url" yaml:"url" toml:"url"`
	Queue string `json:"queue" yaml:"queue" toml:"queue"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir     string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	HistoryFile string `json:"history_file" yaml:"history_file" toml:"history_file"`
}

// PromptsConfig 指定提示词模板文件。
type PromptsConfig struct {
	Path string `json:"path" yaml:"path" toml:"path"`
}

// Load 读取配置文件并叠加环境变量。path 为空时依次尝试 MOVEGPT_CONFIG 与
// configs/movegpt.json；默认位置不存在配置文件时使用内置默认值。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	explicit := true
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path == "" {
		path = DefaultPath
		explicit = false
	}

	var cfg Config
	baseDir := filepath.Dir(path)
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, content, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		baseDir = "."
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不读取任何文件的默认配置。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(".")
	return &cfg
}

func decode(path string, content []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, cfg)
	case ".toml":
		err = toml.Unmarshal(content, cfg)
	default:
		err = json.Unmarshal(content, cfg)
	}
	if err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvOpenAIKey)); v != "" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvNodeURL)); v != "" {
		c.Web3.NodeURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultAddress)); v != "" {
		c.Web3.DefaultAddress = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddress)); v != "" {
		c.Server.Address = v
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":3000"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-3.5-turbo-instruct"
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}

	c.Runtime.DataDir = resolve(baseDir, c.Runtime.DataDir, "data")
	c.Runtime.HistoryFile = resolve(c.Runtime.DataDir, c.Runtime.HistoryFile, ".repl_history")

	if c.Knowledge.Driver == "" {
		c.Knowledge.Driver = "chromem"
	}
	c.Knowledge.Path = resolve(c.Runtime.DataDir, c.Knowledge.Path, "docStore")
	if c.Knowledge.StaticPath != "" {
		c.Knowledge.StaticPath = resolve(baseDir, c.Knowledge.StaticPath, "")
	}
	if c.Knowledge.TopK <= 0 {
		c.Knowledge.TopK = 1
	}
	c.Knowledge.Ingest.Dir = resolve(baseDir, c.Knowledge.Ingest.Dir, "training")
	if c.Knowledge.Ingest.ChunkSize <= 0 {
		c.Knowledge.Ingest.ChunkSize = 2000
	}
	if c.Knowledge.Ingest.Separator == "" {
		c.Knowledge.Ingest.Separator = "\n"
	}

	if c.Web3.NodeURL == "" {
		c.Web3.NodeURL = "https://fullnode.mainnet.aptoslabs.com"
	}
	if c.Web3.ChainConfig != "" {
		c.Web3.ChainConfig = resolve(baseDir, c.Web3.ChainConfig, "")
	}
	if c.Web3.DefaultDecimals <= 0 {
		c.Web3.DefaultDecimals = 8
	}
	if c.Web3.TransactionLimit <= 0 {
		c.Web3.TransactionLimit = 2
	}
	if c.Web3.TokenLimit <= 0 {
		c.Web3.TokenLimit = 10
	}
	if c.Web3.IndexerURL == "" {
		c.Web3.IndexerURL = "https://indexer.mainnet.aptoslabs.com/v1/graphql"
	}
	if c.Web3.TimeoutSeconds <= 0 {
		c.Web3.TimeoutSeconds = 15
	}

	if c.Agent.RetrievalTimeoutSeconds <= 0 {
		c.Agent.RetrievalTimeoutSeconds = 30
	}
	if c.Agent.MaxSessions <= 0 {
		c.Agent.MaxSessions = 1000
	}
	if c.Agent.HistoryCounter == "" {
		c.Agent.HistoryCounter = "chars"
	}

	if c.Storage.Transcript.Driver == "" {
		c.Storage.Transcript.Driver = "file"
	}
	switch c.Storage.Transcript.Driver {
	case "file":
		c.Storage.Transcript.Path = resolve(c.Runtime.DataDir, c.Storage.Transcript.Path, "turns.jsonl")
	case "sqlite":
		if c.Storage.Transcript.DSN == "" {
			c.Storage.Transcript.DSN = filepath.Join(c.Runtime.DataDir, "movegpt.db")
		}
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = 64
	}
	if c.Events.Redis.Key == "" {
		c.Events.Redis.Key = "movegpt:turns"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "movegpt.turns"
	}

	if c.Prompts.Path != "" {
		c.Prompts.Path = resolve(baseDir, c.Prompts.Path, "")
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path != "" {
		c.Logging.Audit.Path = resolve(baseDir, c.Logging.Audit.Path, "")
	}
}

// resolve 把相对路径解析到 baseDir 下，value 为空时使用 fallback。
func resolve(baseDir, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if value == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}

// Validate 检查驱动名称等取值是否合法。
func (c *Config) Validate() error {
	if !oneOf(c.Knowledge.Driver, "chromem", "qdrant", "static") {
		return fmt.Errorf("不支持的知识库驱动: %s", c.Knowledge.Driver)
	}
	if c.Knowledge.Driver == "static" && c.Knowledge.StaticPath == "" {
		return errors.New("static 知识库需要配置 knowledge.static_path")
	}
	if !oneOf(c.Storage.Transcript.Driver, "none", "file", "mysql", "sqlite") {
		return fmt.Errorf("不支持的对话记录驱动: %s", c.Storage.Transcript.Driver)
	}
	if c.Storage.Transcript.Driver == "mysql" && c.Storage.Transcript.DSN == "" {
		return errors.New("mysql 对话记录需要配置 storage.transcript.dsn")
	}
	if !oneOf(c.Events.Driver, "none", "memory", "redis", "rabbitmq") {
		return fmt.Errorf("不支持的事件驱动: %s", c.Events.Driver)
	}
	if !oneOf(c.Agent.HistoryCounter, "chars", "words", "tiktoken") {
		return fmt.Errorf("不支持的历史计数方式: %s", c.Agent.HistoryCounter)
	}
	if !resource.ValidDecimals(c.Web3.DefaultDecimals) {
		return fmt.Errorf("web3.default_decimals 超出范围 [0, %d]: %d", resource.MaxDecimals, c.Web3.DefaultDecimals)
	}
	for coinType, d := range c.Web3.CoinDecimals {
		if !resource.ValidDecimals(d) {
			return fmt.Errorf("web3.coin_decimals[%s] 超出范围 [0, %d]: %d", coinType, resource.MaxDecimals, d)
		}
	}
	if c.Agent.HistoryBudget < 0 {
		return errors.New("agent.history_budget 不能为负数")
	}
	return nil
}

func oneOf(value string, options ...string) bool {
	for _, option := range options {
		if value == option {
			return true
		}
	}
	return false
}
