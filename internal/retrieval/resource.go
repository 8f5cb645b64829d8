package retrieval

import (
	"context"
	"strings"

	"MoveGPT/internal/address"
	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/resource"
	"MoveGPT/internal/web3"
	"MoveGPT/pkg/logger"
)

// ResourceRetriever 读取问题中提到的账户的链上资源。
type ResourceRetriever struct {
	Client         web3.Client
	Extractor      *address.Extractor
	Formatter      *resource.Formatter
	DefaultAddress string

	IncludeTransactions bool
	TransactionLimit    int
	IncludeModules      bool
	IncludeTokens       bool
	TokenLimit          int
}

// Retrieve 实现 Retriever。
func (r *ResourceRetriever) Retrieve(ctx context.Context, question string) (string, error) {
	text, _, err := r.RetrieveWithAddress(ctx, question)
	return text, err
}

// RetrieveWithAddress 返回格式化后的资源文本及实际查询的地址。
// 问题中没有地址时使用默认地址。
func (r *ResourceRetriever) RetrieveWithAddress(ctx context.Context, question string) (string, string, error) {
	if r == nil || r.Client == nil {
		return "", "", xerrors.New(xerrors.CodeInitializationFailure, "未配置链客户端")
	}
	extractor := r.Extractor
	if extractor == nil {
		extractor = address.NewExtractor()
	}
	addr := extractor.First(question, r.DefaultAddress)
	if strings.TrimSpace(addr) == "" {
		return "", "", xerrors.New(xerrors.CodeInvalidArgument, "问题中没有账户地址，且未配置默认地址")
	}

	records, err := r.Client.AccountResources(ctx, addr)
	if err != nil {
		return "", addr, wrap(ctx, err, "读取账户资源失败")
	}

	formatter := r.Formatter
	if formatter == nil {
		formatter = resource.NewFormatter(nil, 0)
	}
	blocks := []string{formatter.Format(records)}

	log := logger.Named("retrieval")
	if r.IncludeTransactions {
		limit := r.TransactionLimit
		if limit <= 0 {
			limit = 2
		}
		txs, err := r.Client.AccountTransactions(ctx, addr, limit)
		if err != nil {
			log.Debug("读取最近交易失败", "address", addr, "error", err)
		} else if text := resource.FormatTransactions(txs); text != "" {
			blocks = append(blocks, "recent transactions:\n"+text)
		}
	}
	if r.IncludeModules {
		modules, err := r.Client.AccountModules(ctx, addr)
		if err != nil {
			log.Debug("读取账户模块失败", "address", addr, "error", err)
		} else if text := resource.FormatModules(modules); text != "" {
			blocks = append(blocks, "modules:\n"+text)
		}
	}
	if r.IncludeTokens {
		if lister, ok := r.Client.(web3.TokenLister); ok {
			tokens, err := lister.AccountTokens(ctx, addr, r.TokenLimit)
			if err != nil {
				log.Debug("读取账户 NFT 失败", "address", addr, "error", err)
			} else if text := resource.FormatTokens(tokens); text != "" {
				blocks = append(blocks, "tokens:\n"+text)
			}
		}
	}
	return strings.Join(blocks, "\n\n"), addr, nil
}
