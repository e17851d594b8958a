package shielded

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/knowable-run/namwallet/client/rpc"
	"github.com/knowable-run/namwallet/client/rpc/mocksrv"
	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/internal/testutils"
	"github.com/knowable-run/namwallet/internal/testutils/logger"
	"github.com/knowable-run/namwallet/internal/testutils/walletstore"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/account"
	"github.com/knowable-run/namwallet/wallet/alias"
)

func openContext(t *testing.T) *ContextDB {
	db, err := OpenContext(filepath.Join(t.TempDir(), ContextFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func dialMasp(t *testing.T, gw *mocksrv.GatewayMock) types.MaspClient {
	rpcClient, err := rpc.NewClient(context.Background(), "http://"+mocksrv.StartGatewayServer(t, gw), rpc.WithRetryCount(0))
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)
	return rpc.NewMaspAPIClient(rpcClient)
}

func TestContextDB_Apply(t *testing.T) {
	db := openContext(t)
	token := testutils.NewAddress(t, 1)

	height, err := db.SyncedHeight("vk")
	require.NoError(t, err)
	require.Zero(t, height)
	require.Equal(t, "0", db.Balance("vk", token, 6))

	require.NoError(t, db.Apply("vk", &types.NoteScan{FromHeight: 1, ToHeight: 10, Deltas: map[types.Address]string{token: "3000000"}}))
	require.NoError(t, db.Apply("vk", &types.NoteScan{FromHeight: 11, ToHeight: 20, Deltas: map[types.Address]string{token: "-500000"}}))
	height, err = db.SyncedHeight("vk")
	require.NoError(t, err)
	require.EqualValues(t, 20, height)
	require.Equal(t, "2.5", db.Balance("vk", token, 6))

	require.ErrorContains(t, db.Apply("vk", &types.NoteScan{FromHeight: 30, ToHeight: 40}), "scan starts at height 30, expected 21")
	require.ErrorContains(t, db.Apply("vk", &types.NoteScan{FromHeight: 21, ToHeight: 22, Deltas: map[types.Address]string{token: "x"}}), "invalid balance change")
	height, _ = db.SyncedHeight("vk")
	require.EqualValues(t, 20, height, "failed apply does not move the height")
}

func TestContextDB_BalanceFallback(t *testing.T) {
	db := openContext(t)
	token := testutils.NewAddress(t, 1)
	require.NoError(t, db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(balanceBucket).Put([]byte("vk"), []byte("not json"))
	}))
	require.Equal(t, "0", db.Balance("vk", token, 6))
	_, err := db.Balances("vk")
	require.ErrorIs(t, err, wallet.ErrStorageFailure)
}

func TestSyncer_Sync(t *testing.T) {
	token := testutils.NewAddress(t, 1)
	vk := testutils.NewViewingKey(t, 2)
	gw := mocksrv.NewGatewayMock(mocksrv.WithNotes(vk, 25,
		mocksrv.Note{Height: 3, Token: token, Delta: "1000000"},
		mocksrv.Note{Height: 12, Token: token, Delta: "2000000"},
		mocksrv.Note{Height: 25, Token: token, Delta: "-1500000"},
	))
	db := openContext(t)
	syncer := NewSyncer(dialMasp(t, gw), db, 10, logger.New(t))
	keys := []*account.ViewingKeyRecord{{Alias: "vk", Key: vk}}

	res, err := syncer.Sync(context.Background(), keys)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.EqualValues(t, 1, res[0].FromHeight)
	require.EqualValues(t, 25, res[0].ToHeight)
	require.Equal(t, 3, res[0].Pages)
	require.Equal(t, "1.5", db.Balance(vk, token, 6))

	// nothing new to scan
	res, err = syncer.Sync(context.Background(), keys)
	require.NoError(t, err)
	require.Zero(t, res[0].Pages)
	require.Equal(t, 3, gw.CallCount("masp_scanNotes"))
}

func TestSyncer_Birthday(t *testing.T) {
	token := testutils.NewAddress(t, 1)
	vk := testutils.NewViewingKey(t, 2)
	gw := mocksrv.NewGatewayMock(mocksrv.WithNotes(vk, 30,
		mocksrv.Note{Height: 5, Token: token, Delta: "7"},
		mocksrv.Note{Height: 22, Token: token, Delta: "1"},
	))
	db := openContext(t)
	res, err := NewSyncer(dialMasp(t, gw), db, 0, logger.New(t)).Sync(context.Background(), []*account.ViewingKeyRecord{{Alias: "vk", Key: vk, Birthday: 20}})
	require.NoError(t, err)
	require.EqualValues(t, 20, res[0].FromHeight)
	require.Equal(t, 1, res[0].Pages)
	require.Equal(t, "0.000001", db.Balance(vk, token, 6))
}

func TestSyncer_NetworkFailure(t *testing.T) {
	gw := mocksrv.NewGatewayMock(mocksrv.WithError(errors.New("indexer down")))
	_, err := NewSyncer(dialMasp(t, gw), openContext(t), 0, logger.New(t)).Sync(context.Background(), nil)
	require.ErrorIs(t, err, wallet.ErrNetworkFailure)
	require.ErrorContains(t, err, "indexer down")
}

func TestGeneratePaymentAddress(t *testing.T) {
	store := walletstore.New(t, "")
	vk := testutils.NewViewingKey(t, 2)
	require.NoError(t, store.AddViewingKey("vk", vk, 0, false))
	first := testutils.NewPaymentAddress(t, 3)
	gw := mocksrv.NewGatewayMock(mocksrv.WithPaymentAddress(vk, first))
	masp := dialMasp(t, gw)
	resolver := alias.NewResolver(store)

	_, err := resolver.Resolve("default")
	require.ErrorIs(t, err, wallet.ErrNotFound)

	addr, generated, err := GeneratePaymentAddress(context.Background(), masp, store, "default", "vk", false)
	require.NoError(t, err)
	require.True(t, generated)
	require.Equal(t, first, addr)
	got, err := resolver.Resolve("default")
	require.NoError(t, err)
	require.Equal(t, first, got)

	// existing alias is kept unless forced
	second := testutils.NewPaymentAddress(t, 4)
	gw.SetPaymentAddress(vk, second)
	addr, generated, err = GeneratePaymentAddress(context.Background(), masp, store, "default", "vk", false)
	require.NoError(t, err)
	require.False(t, generated)
	require.Equal(t, first, addr)
	require.Equal(t, 1, gw.CallCount("masp_paymentAddress"))

	addr, generated, err = GeneratePaymentAddress(context.Background(), masp, store, "default", "vk", true)
	require.NoError(t, err)
	require.True(t, generated)
	require.Equal(t, second, addr)

	_, _, err = GeneratePaymentAddress(context.Background(), masp, store, "other", "missing", false)
	require.ErrorIs(t, err, wallet.ErrNotFound)
}
