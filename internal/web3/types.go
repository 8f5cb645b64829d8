package web3

import (
	"context"

	"MoveGPT/internal/resource"
)

// Client 是只读的账户状态接口，不同链的实现把各自的状态映射为统一的资源记录。
type Client interface {
	AccountResources(ctx context.Context, address string) ([]resource.Record, error)
	AccountTransactions(ctx context.Context, address string, limit int) ([]resource.Transaction, error)
	AccountModules(ctx context.Context, address string) ([]resource.Module, error)
	Close()
}

// TokenLister 由能够列出账户 NFT 的链客户端实现。
type TokenLister interface {
	AccountTokens(ctx context.Context, address string, limit int) ([]resource.Token, error)
}

// 支持的链类型。
const (
	ChainTypeAptos = "aptos"
	ChainTypeEVM   = "evm"
)
