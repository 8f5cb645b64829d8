package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoveGPT/internal/address"
	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/knowledge"
	"MoveGPT/internal/resource"
)

type stubProvider struct {
	snippets []knowledge.Snippet
	err      error
	gotK     int
}

func (s *stubProvider) Search(_ context.Context, _ string, k int) ([]knowledge.Snippet, error) {
	s.gotK = k
	return s.snippets, s.err
}

type stubChain struct {
	records  []resource.Record
	txs      []resource.Transaction
	modules  []resource.Module
	err      error
	txErr    error
	gotAddrs []string
}

func (s *stubChain) AccountResources(_ context.Context, addr string) ([]resource.Record, error) {
	s.gotAddrs = append(s.gotAddrs, addr)
	return s.records, s.err
}

func (s *stubChain) AccountTransactions(context.Context, string, int) ([]resource.Transaction, error) {
	return s.txs, s.txErr
}

func (s *stubChain) AccountModules(context.Context, string) ([]resource.Module, error) {
	return s.modules, nil
}

func (s *stubChain) Close() {}

func TestSimilarityRetriever(t *testing.T) {
	p := &stubProvider{snippets: []knowledge.Snippet{{Content: "module a"}, {Content: "module b"}}}
	r := NewSimilarityRetriever(p, 0)

	text, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, p.gotK)
	assert.Equal(t, "Context:\nmodule a\n\nContext:\nmodule b", text)
}

func TestSimilarityRetrieverEmpty(t *testing.T) {
	text, err := NewSimilarityRetriever(&stubProvider{}, 1).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestSimilarityRetrieverError(t *testing.T) {
	cause := errors.New("store offline")
	_, err := NewSimilarityRetriever(&stubProvider{err: cause}, 1).Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeRetrievalFailure, xerrors.CodeOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestSimilarityRetrieverCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimilarityRetriever(&stubProvider{err: context.Canceled}, 1).Retrieve(ctx, "q")
	assert.Equal(t, xerrors.CodeTimeout, xerrors.CodeOf(err))
}

func TestResourceRetrieverUsesFirstAddress(t *testing.T) {
	chain := &stubChain{records: []resource.Record{{Type: "0x1::account::Account"}}}
	r := &ResourceRetriever{Client: chain, DefaultAddress: "0xdefault"}

	text, addr, err := r.RetrieveWithAddress(context.Background(), "what does 0xabc and 0xdef hold")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", addr)
	assert.Equal(t, []string{"0xabc"}, chain.gotAddrs)
	assert.Equal(t, "type: 0x1::account::Account", text)
}

func TestResourceRetrieverDefaultAddress(t *testing.T) {
	chain := &stubChain{}
	r := &ResourceRetriever{Client: chain, DefaultAddress: "0xdefault"}

	_, addr, err := r.RetrieveWithAddress(context.Background(), "how many coins do I have")
	require.NoError(t, err)
	assert.Equal(t, "0xdefault", addr)

	_, err = (&ResourceRetriever{Client: chain}).Retrieve(context.Background(), "anything")
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestResourceRetrieverValidator(t *testing.T) {
	chain := &stubChain{}
	r := &ResourceRetriever{
		Client:         chain,
		Extractor:      address.NewExtractor(address.WithValidator(address.AptosValidator)),
		DefaultAddress: "0x1",
	}
	_, addr, err := r.RetrieveWithAddress(context.Background(), "check 0xnothex please")
	require.NoError(t, err)
	assert.Equal(t, "0x1", addr)
}

func TestResourceRetrieverOptionalSections(t *testing.T) {
	chain := &stubChain{
		records: []resource.Record{{Type: "0x1::account::Account"}},
		txs:     []resource.Transaction{{Payload: resource.Payload{Function: "0x1::coin::transfer"}}},
		modules: []resource.Module{{ABI: &resource.ModuleABI{Name: "demo", ExposedFunctions: []resource.Function{{Name: "run"}}}}},
	}
	r := &ResourceRetriever{Client: chain, IncludeTransactions: true, IncludeModules: true}

	text, err := r.Retrieve(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "type: 0x1::account::Account\n\nrecent transactions:\naddress: 0x1\nmodule: coin\nfunction: transfer\n\nmodules:\ndemo::run::()", text)

	chain.txErr = errors.New("indexer down")
	text, err = r.Retrieve(context.Background(), "0x1")
	require.NoError(t, err)
	assert.NotContains(t, text, "recent transactions")
}

type stubTokenChain struct {
	stubChain
	tokens   []resource.Token
	tokenErr error
	gotLimit int
}

func (s *stubTokenChain) AccountTokens(_ context.Context, _ string, limit int) ([]resource.Token, error) {
	s.gotLimit = limit
	return s.tokens, s.tokenErr
}

func TestResourceRetrieverTokens(t *testing.T) {
	chain := &stubTokenChain{
		stubChain: stubChain{records: []resource.Record{{Type: "0x1::account::Account"}}},
		tokens:    []resource.Token{{Name: "Aptos Monkey #1", CollectionName: "Aptos Monkeys", CreatorAddress: "0xc0de", Amount: "1"}},
	}
	r := &ResourceRetriever{Client: chain, IncludeTokens: true, TokenLimit: 5}

	text, err := r.Retrieve(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "type: 0x1::account::Account\n\ntokens:\nname: Aptos Monkey #1\ncollection: Aptos Monkeys\ncreator: 0xc0de\namount: 1", text)
	assert.Equal(t, 5, chain.gotLimit)

	chain.tokenErr = errors.New("indexer down")
	text, err = r.Retrieve(context.Background(), "0x1")
	require.NoError(t, err)
	assert.NotContains(t, text, "tokens:")

	// 不支持 NFT 查询的链直接跳过该部分。
	plain := &ResourceRetriever{Client: &stubChain{records: []resource.Record{{Type: "0x1::account::Account"}}}, IncludeTokens: true}
	text, err = plain.Retrieve(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "type: 0x1::account::Account", text)
}

func TestResourceRetrieverError(t *testing.T) {
	cause := errors.New("node down")
	_, addr, err := (&ResourceRetriever{Client: &stubChain{err: cause}}).RetrieveWithAddress(context.Background(), "0x1")
	assert.Equal(t, "0x1", addr)
	assert.Equal(t, xerrors.CodeRetrievalFailure, xerrors.CodeOf(err))
	assert.ErrorIs(t, err, cause)
}
