package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/resource"
	"MoveGPT/internal/web3"
)

// DefaultNodeURL 是 Aptos 主网全节点。
const DefaultNodeURL = "https://fullnode.mainnet.aptoslabs.com"

const defaultTimeout = 15 * time.Second

// Config 描述 Aptos 节点连接参数。
type Config struct {
	Name       string
	NodeURL    string
	IndexerURL string
	Timeout    time.Duration
}

// Client 通过节点 REST API 读取账户状态。
type Client struct {
	name       string
	baseURL    string
	indexerURL string
	httpClient *http.Client
}

var _ web3.Client = (*Client)(nil)

// NewClient 创建 Aptos 客户端。NodeURL 可以带或不带 /v1 后缀。
func NewClient(cfg Config) (*Client, error) {
	nodeURL := strings.TrimRight(strings.TrimSpace(cfg.NodeURL), "/")
	if nodeURL == "" {
		nodeURL = DefaultNodeURL
	}
	if _, err := url.ParseRequestURI(nodeURL); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "Aptos 节点地址无效")
	}
	nodeURL = strings.TrimSuffix(nodeURL, "/v1")

	indexerURL := strings.TrimSpace(cfg.IndexerURL)
	if indexerURL != "" {
		if _, err := url.ParseRequestURI(indexerURL); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "Aptos 索引服务地址无效")
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		name:       cfg.Name,
		baseURL:    nodeURL + "/v1",
		indexerURL: indexerURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// AccountResources 读取账户下的全部资源。
func (c *Client) AccountResources(ctx context.Context, address string) ([]resource.Record, error) {
	var records []resource.Record
	if err := c.getAccount(ctx, address, "resources", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AccountTransactions 读取账户最近提交的交易。
func (c *Client) AccountTransactions(ctx context.Context, address string, limit int) ([]resource.Transaction, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	var txs []resource.Transaction
	if err := c.getAccount(ctx, address, "transactions", query, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// AccountModules 读取账户发布的模块 ABI。
func (c *Client) AccountModules(ctx context.Context, address string) ([]resource.Module, error) {
	var modules []resource.Module
	if err := c.getAccount(ctx, address, "modules", nil, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// Close 释放空闲连接。
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) getAccount(ctx context.Context, address, kind string, query url.Values, out any) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "账户地址不能为空")
	}

	endpoint := fmt.Sprintf("%s/accounts/%s/%s", c.baseURL, url.PathEscape(address), kind)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("构建 Aptos 请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return xerrors.Wrap(xerrors.CodeTimeout, err, "请求 Aptos 节点超时", xerrors.WithMetadata("address", address))
		}
		return fmt.Errorf("请求 Aptos 节点失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("账户 %s 不存在", address),
			xerrors.WithMetadata("address", address))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("Aptos 节点返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取 Aptos 响应失败: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("解析 Aptos 响应失败: %w", err)
	}
	return nil
}
