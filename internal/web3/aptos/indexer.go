package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/resource"
	"MoveGPT/internal/web3"
)

// DefaultIndexerURL 是 Aptos 主网索引服务的 GraphQL 入口。
const DefaultIndexerURL = "https://indexer.mainnet.aptoslabs.com/v1/graphql"

const defaultTokenLimit = 10

const tokenOwnershipsQuery = `query CurrentTokens($owner_address: String, $limit: Int) {
  current_token_ownerships(
    order_by: {last_transaction_version: desc}
    limit: $limit
    where: {owner_address: {_eq: $owner_address}}
  ) {
    amount
    collection_name
    creator_address
    name
    owner_address
  }
}`

var _ web3.TokenLister = (*Client)(nil)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type tokenOwnershipsResponse struct {
	Data struct {
		Ownerships []resource.Token `json:"current_token_ownerships"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// AccountTokens 通过索引服务查询账户当前持有的 NFT，按最近变动排序。
func (c *Client) AccountTokens(ctx context.Context, address string, limit int) ([]resource.Token, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "账户地址不能为空")
	}
	if c.indexerURL == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置 Aptos 索引服务地址")
	}
	if limit <= 0 {
		limit = defaultTokenLimit
	}

	payload, err := json.Marshal(graphQLRequest{
		Query:     tokenOwnershipsQuery,
		Variables: map[string]any{"owner_address": address, "limit": limit},
	})
	if err != nil {
		return nil, fmt.Errorf("编码索引查询失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建索引请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "请求 Aptos 索引服务超时", xerrors.WithMetadata("address", address))
		}
		return nil, fmt.Errorf("请求 Aptos 索引服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("Aptos 索引服务返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var out tokenOwnershipsResponse
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("解析索引响应失败: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("索引查询失败: %s", out.Errors[0].Message)
	}
	return out.Data.Ownerships, nil
}
