package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"MoveGPT/internal/config"
	"MoveGPT/internal/web3"
	"MoveGPT/internal/web3/aptos"
	"MoveGPT/internal/web3/ethereum"
)

// DefaultChainName 是仅配置 node_url 时注册的链名称。
const DefaultChainName = "aptos"

// Registry manages a set of chain clients keyed by human readable names.
type Registry struct {
	defaultChain string
	clients      map[string]web3.Client
	types        map[string]string
}

// NewRegistry loads chain definitions and instantiates concrete clients.
// Without a chains file it registers a single Aptos client for web3.node_url.
func NewRegistry(ctx context.Context, cfg config.Web3Config) (*Registry, error) {
	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	r := &Registry{clients: make(map[string]web3.Client), types: make(map[string]string)}
	for name, chain := range defs.Chains {
		client, err := newClient(ctx, name, chain, cfg)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
		}
		r.clients[name] = client
		r.types[name] = chain.Type
	}

	defaultChain := strings.TrimSpace(cfg.DefaultChain)
	if defaultChain == "" {
		defaultChain = defs.Default
	}

	if len(r.clients) == 0 && strings.TrimSpace(cfg.NodeURL) != "" {
		client, err := aptos.NewClient(aptos.Config{Name: DefaultChainName, NodeURL: cfg.NodeURL, IndexerURL: cfg.IndexerURL, Timeout: cfg.Timeout()})
		if err != nil {
			return nil, err
		}
		r.clients[DefaultChainName] = client
		r.types[DefaultChainName] = web3.ChainTypeAptos
		if defaultChain == "" {
			defaultChain = DefaultChainName
		}
	}

	if len(r.clients) == 0 {
		return nil, errors.New("未配置任何链的节点地址")
	}

	if defaultChain == "" {
		defaultChain = r.Chains()[0]
	}
	if _, ok := r.clients[defaultChain]; !ok {
		r.Close()
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}
	r.defaultChain = defaultChain
	return r, nil
}

func newClient(ctx context.Context, name string, chain web3.ChainDefinition, cfg config.Web3Config) (web3.Client, error) {
	switch chain.Type {
	case web3.ChainTypeAptos:
		nodeURL := chain.RPCURL
		if nodeURL == "" {
			nodeURL = cfg.NodeURL
		}
		indexerURL := chain.IndexerURL
		if indexerURL == "" {
			indexerURL = cfg.IndexerURL
		}
		return aptos.NewClient(aptos.Config{Name: name, NodeURL: nodeURL, IndexerURL: indexerURL, Timeout: cfg.Timeout()})
	case web3.ChainTypeEVM:
		return ethereum.NewClient(ctx, ethereum.Config{
			Name:         name,
			RPCURL:       chain.RPCURL,
			NativeSymbol: chain.NativeSymbol,
		})
	default:
		return nil, fmt.Errorf("不支持的链类型 %s", chain.Type)
	}
}

// DefaultClient returns the client configured as default chain.
func (r *Registry) DefaultClient() (web3.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// DefaultChain returns the name of the default chain.
func (r *Registry) DefaultChain() string {
	if r == nil {
		return ""
	}
	return r.defaultChain
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name string) (web3.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// ChainType returns the type (aptos or evm) of the named chain.
func (r *Registry) ChainType(name string) string {
	if r == nil {
		return ""
	}
	return r.types[name]
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

// Chains returns the list of registered chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
