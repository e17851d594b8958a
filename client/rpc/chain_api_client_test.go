package rpc

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/rpc/mocksrv"
	"github.com/knowable-run/namwallet/client/types"
)

func TestChainAPIClient(t *testing.T) {
	signer, err := types.NewEd25519Signer(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	owner := signer.PublicKey().Address()
	token, err := types.NewAddress(types.AddressInternal, bytes.Repeat([]byte{2}, 20))
	require.NoError(t, err)

	gw := mocksrv.NewGatewayMock(
		mocksrv.WithNativeToken(token),
		mocksrv.WithEpochs(7, 3),
		mocksrv.WithBalance(token, owner, "15000000"),
	)
	client := startChainClient(t, gw)
	ctx := context.Background()

	t.Run("GetAccountInfo unknown account", func(t *testing.T) {
		info, err := client.GetAccountInfo(ctx, owner)
		require.NoError(t, err)
		require.Nil(t, info)
		require.False(t, info.Revealed())
	})

	t.Run("epochs and native token", func(t *testing.T) {
		epoch, err := client.QueryEpoch(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 7, epoch)

		maspEpoch, err := client.QueryMaspEpoch(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 3, maspEpoch)

		nativeToken, err := client.NativeToken(ctx)
		require.NoError(t, err)
		require.Equal(t, token, nativeToken)
	})

	t.Run("GetBalance", func(t *testing.T) {
		balance, err := client.GetBalance(ctx, token, owner)
		require.NoError(t, err)
		require.Equal(t, "15000000", balance)

		balance, err = client.GetBalance(ctx, token, signer.PublicKey().Address()+"x")
		require.NoError(t, err)
		require.Equal(t, "0", balance)
	})

	t.Run("SubmitTx reveal and query result", func(t *testing.T) {
		tx, err := types.NewTransaction("test", types.TxKindRevealPK, &types.RevealPKAttributes{PublicKey: signer.PublicKey().String()})
		require.NoError(t, err)
		require.NoError(t, types.SignTx(tx, signer))

		resp, err := client.SubmitTx(ctx, tx)
		require.NoError(t, err)
		require.True(t, resp.Success())

		txHash, err := tx.Hash()
		require.NoError(t, err)
		require.EqualValues(t, txHash, resp.Hash)

		result, err := client.GetTxResult(ctx, txHash)
		require.NoError(t, err)
		require.Equal(t, resp, result)

		info, err := client.GetAccountInfo(ctx, owner)
		require.NoError(t, err)
		require.True(t, info.Revealed())
	})

	t.Run("SubmitTx is not retried", func(t *testing.T) {
		gw.SetError(errors.New("mempool is full"))
		defer gw.SetError(nil)
		calls := gw.CallCount("tx_submit")

		tx, err := types.NewTransaction("test", types.TxKindRevealPK, &types.RevealPKAttributes{PublicKey: signer.PublicKey().String()})
		require.NoError(t, err)
		require.NoError(t, types.SignTx(tx, signer))

		_, err = client.SubmitTx(ctx, tx)
		require.ErrorContains(t, err, "mempool is full")
		require.Equal(t, calls+1, gw.CallCount("tx_submit"))
	})
}

func TestMaspAPIClient(t *testing.T) {
	token, err := types.NewAddress(types.AddressInternal, bytes.Repeat([]byte{2}, 20))
	require.NoError(t, err)
	payAddr := types.Address("znam1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq")

	gw := mocksrv.NewGatewayMock(
		mocksrv.WithNotes("zvknam1key", 10,
			mocksrv.Note{Height: 2, Token: token, Delta: "100"},
			mocksrv.Note{Height: 5, Token: token, Delta: "-30"},
			mocksrv.Note{Height: 9, Token: token, Delta: "1"},
		),
	)
	addr := mocksrv.StartGatewayServer(t, gw)
	rpcClient, err := NewClient(context.Background(), "http://"+addr)
	require.NoError(t, err)
	t.Cleanup(rpcClient.Close)
	client := NewMaspAPIClient(rpcClient)
	ctx := context.Background()

	height, err := client.LatestHeight(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 10, height)

	scan, err := client.ScanNotes(ctx, "zvknam1key", 1, 6)
	require.NoError(t, err)
	require.Equal(t, "70", scan.Deltas[token])

	// payment address returned by the gateway must be valid
	gw.PaymentAddrs["zvknam1key"] = payAddr
	_, err = client.NewPaymentAddress(ctx, "zvknam1key")
	require.ErrorIs(t, err, types.ErrInvalidAddress)

	_, err = client.NewPaymentAddress(ctx, "zvknam1other")
	require.ErrorContains(t, err, "unknown viewing key")
}

func startChainClient(t *testing.T, gw *mocksrv.GatewayMock) *ChainAPIClient {
	addr := mocksrv.StartGatewayServer(t, gw)
	client, err := DialChainAPIClient(context.Background(), "http://"+addr)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}
