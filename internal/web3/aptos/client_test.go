package aptos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/resource"
)

const testAddress = "0xba78c665ccef66de6e6ca1fd085a9a2e3e08ef65998df3f419a555e8039f3987"

func newNode(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts/"+testAddress+"/resources", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"type":"0x1::account::Account","data":{"sequence_number":"3"}},
			{"type":"0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>","data":{"coin":{"value":"250000000"}}}
		]`))
	})
	mux.HandleFunc("/v1/accounts/"+testAddress+"/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "2" {
			t.Errorf("unexpected limit: %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"hash":"0xabc","type":"user_transaction","payload":{"function":"0x1::aptos_account::transfer","type_arguments":[],"arguments":["0x2","100"]}}]`))
	})
	mux.HandleFunc("/v1/accounts/"+testAddress+"/modules", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"bytecode":"0x00","abi":{"address":"0x1","name":"demo","exposed_functions":[{"name":"run","is_entry":true,"params":["&signer"]}]}}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAccountResources(t *testing.T) {
	srv := newNode(t)
	client, err := NewClient(Config{NodeURL: srv.URL})
	require.NoError(t, err)
	defer client.Close()

	records, err := client.AccountResources(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0x1::account::Account", records[0].Type)

	out := resource.NewFormatter(nil, 0).Format(records)
	assert.Contains(t, out, "amount: 2.5")
}

func TestNodeURLWithVersionSuffix(t *testing.T) {
	srv := newNode(t)
	client, err := NewClient(Config{NodeURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = client.AccountResources(context.Background(), testAddress)
	require.NoError(t, err)
}

func TestAccountTransactionsAndModules(t *testing.T) {
	srv := newNode(t)
	client, err := NewClient(Config{NodeURL: srv.URL})
	require.NoError(t, err)

	txs, err := client.AccountTransactions(context.Background(), testAddress, 2)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x1::aptos_account::transfer", txs[0].Payload.Function)

	modules, err := client.AccountModules(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, "demo::run::(&signer)", resource.FormatModules(modules))
}

func TestAccountNotFound(t *testing.T) {
	srv := newNode(t)
	client, err := NewClient(Config{NodeURL: srv.URL})
	require.NoError(t, err)

	_, err = client.AccountResources(context.Background(), "0x404")
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeNotFound, xerrors.CodeOf(err))
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{NodeURL: srv.URL})
	require.NoError(t, err)
	_, err = client.AccountResources(context.Background(), testAddress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = client.AccountResources(context.Background(), " ")
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}
