package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/resource"
	"MoveGPT/internal/web3"
)

// 映射到资源记录时使用的类型名。
const (
	NativeCoinType = "0x1::coin::CoinStore<native>"
	AccountType    = "0x1::account::Account"
	ContractType   = "0x1::code::Contract"

	nativeDecimals = 18
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name         string
	RPCURL       string
	NativeSymbol string
}

// stateReader is the subset of ethclient used to read account state.
type stateReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Client implements web3.Client for EVM compatible chains. It exposes the
// native balance, nonce and contract code of an address as resource records.
type Client struct {
	name      string
	symbol    string
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	state     stateReader
	mu        sync.Mutex
}

var _ web3.Client = (*Client)(nil)

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接以太坊节点失败")
	}
	eth := ethclient.NewClient(rpcClient)

	client := newClient(cfg, eth)
	client.rpcClient = rpcClient
	client.eth = eth
	return client, nil
}

func newClient(cfg Config, state stateReader) *Client {
	symbol := strings.TrimSpace(cfg.NativeSymbol)
	if symbol == "" {
		symbol = "ETH"
	}
	return &Client{name: cfg.Name, symbol: symbol, state: state}
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.rpcClient = nil
	c.state = nil
}

// AccountResources reads the balance, nonce and code of the address at the
// latest block.
func (c *Client) AccountResources(ctx context.Context, address string) ([]resource.Record, error) {
	account, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	state, err := c.reader()
	if err != nil {
		return nil, err
	}

	balance, err := state.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, wrapRPCError(ctx, err, "查询余额失败")
	}
	nonce, err := state.NonceAt(ctx, account, nil)
	if err != nil {
		return nil, wrapRPCError(ctx, err, "查询交易计数失败")
	}
	code, err := state.CodeAt(ctx, account, nil)
	if err != nil {
		return nil, wrapRPCError(ctx, err, "查询合约代码失败")
	}

	records := []resource.Record{
		{
			Type: AccountType,
			Data: map[string]any{
				"address":         account.Hex(),
				"sequence_number": strconv.FormatUint(nonce, 10),
			},
		},
		{
			Type: NativeCoinType,
			Data: map[string]any{
				"coin": map[string]any{
					"name":     c.symbol,
					"value":    balance.String(),
					"decimals": nativeDecimals,
				},
			},
		},
	}
	if len(code) > 0 {
		records = append(records, resource.Record{
			Type: ContractType,
			Data: map[string]any{"bytecode_size": len(code)},
		})
	}
	return records, nil
}

// AccountTransactions is not available over plain JSON-RPC without an indexer.
func (c *Client) AccountTransactions(context.Context, string, int) ([]resource.Transaction, error) {
	return nil, nil
}

// AccountModules has no EVM equivalent.
func (c *Client) AccountModules(context.Context, string) ([]resource.Module, error) {
	return nil, nil
}

func (c *Client) reader() (stateReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未初始化的以太坊客户端")
	}
	return c.state, nil
}

func parseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("无效的 EVM 地址: %q", address))
	}
	return common.HexToAddress(address), nil
}

func wrapRPCError(ctx context.Context, err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return xerrors.Wrap(xerrors.CodeTimeout, err, message)
	}
	return fmt.Errorf("%s: %w", message, err)
}
