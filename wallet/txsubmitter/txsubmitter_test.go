package txsubmitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/rpc"
	"github.com/knowable-run/namwallet/client/rpc/mocksrv"
	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/internal/testutils"
	"github.com/knowable-run/namwallet/internal/testutils/logger"
	"github.com/knowable-run/namwallet/wallet"
)

// pendingChain reports results only after "pending" polls.
type pendingChain struct {
	types.ChainClient
	mu      sync.Mutex
	pending int
	polls   int
	result  *types.TxResponse
}

func (c *pendingChain) SubmitTx(ctx context.Context, tx *types.Transaction) (*types.TxResponse, error) {
	return &types.TxResponse{}, nil
}

func (c *pendingChain) GetTxResult(ctx context.Context, txHash []byte) (*types.TxResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if c.polls <= c.pending {
		return nil, nil
	}
	return c.result, nil
}

// emptyResponseChain accepts the submission without returning a response.
type emptyResponseChain struct {
	types.ChainClient
}

func (emptyResponseChain) SubmitTx(ctx context.Context, tx *types.Transaction) (*types.TxResponse, error) {
	return nil, nil
}

func signedTx(t *testing.T, kind types.TxKind, seed byte, opts ...types.Option) *types.Transaction {
	signer := testutils.NewSigner(t, types.SchemeEd25519, seed)
	tx, err := types.NewTransaction("test-chain", kind, &types.RevealPKAttributes{PublicKey: signer.PublicKey().String()}, opts...)
	require.NoError(t, err)
	require.NoError(t, types.SignTx(tx, signer))
	return tx
}

func dialGateway(t *testing.T, gw *mocksrv.GatewayMock) types.ChainClient {
	addr := mocksrv.StartGatewayServer(t, gw)
	client, err := rpc.DialChainAPIClient(context.Background(), "http://"+addr, rpc.WithRetryCount(0))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNew_Unsigned(t *testing.T) {
	tx, err := types.NewTransaction("test-chain", types.TxKindRevealPK, &types.RevealPKAttributes{})
	require.NoError(t, err)
	_, err = New(tx)
	require.ErrorContains(t, err, "transaction is not signed")
}

func TestSendTx(t *testing.T) {
	gw := mocksrv.NewGatewayMock()
	client := dialGateway(t, gw)

	tx := signedTx(t, types.TxKindRevealPK, 1)
	sub, err := New(tx)
	require.NoError(t, err)
	require.Equal(t, testutils.TxHash(t, tx), []byte(sub.TxHash))

	batch := sub.ToBatch(client, logger.New(t))
	require.NoError(t, batch.SendTx(context.Background(), true))
	require.True(t, sub.Confirmed())
	require.True(t, sub.Success())
	require.EqualValues(t, 1000, sub.GasUsed())
	require.Equal(t, 1, gw.CallCount("tx_submit"))
	require.Equal(t, 1, gw.CallCount("tx_getResult"))
}

func TestSendTx_Empty(t *testing.T) {
	batch := NewBatch(nil, logger.New(t))
	require.ErrorContains(t, batch.SendTx(context.Background(), false), "no transactions to send")
}

func TestSendTx_StopsOnFirstRejection(t *testing.T) {
	gw := mocksrv.NewGatewayMock(mocksrv.WithRejectedKind(types.TxKindRevealPK, 7))
	client := dialGateway(t, gw)

	batch := NewBatch(client, logger.New(t))
	for i := byte(1); i <= 3; i++ {
		sub, err := New(signedTx(t, types.TxKindRevealPK, i))
		require.NoError(t, err)
		batch.Add(sub)
	}

	err := batch.SendTx(context.Background(), false)
	require.ErrorIs(t, err, wallet.ErrChainRejection)
	var rejection *wallet.RejectionError
	require.ErrorAs(t, err, &rejection)
	require.EqualValues(t, 7, rejection.Code)
	require.Equal(t, "reveal_pk rejected", rejection.Log)
	require.Equal(t, []byte(batch.Submissions()[0].TxHash), rejection.TxHash)

	require.Equal(t, 1, gw.CallCount("tx_submit"), "no submissions after the first failure")
	require.False(t, batch.Submissions()[0].Success())
	require.Nil(t, batch.Submissions()[1].Response)
}

func TestSendTx_NetworkFailure(t *testing.T) {
	gw := mocksrv.NewGatewayMock(mocksrv.WithError(errors.New("gateway unavailable")))
	client := dialGateway(t, gw)

	sub, err := New(signedTx(t, types.TxKindRevealPK, 1))
	require.NoError(t, err)
	err = sub.ToBatch(client, logger.New(t)).SendTx(context.Background(), false)
	require.ErrorIs(t, err, wallet.ErrNetworkFailure)
	require.ErrorContains(t, err, "gateway unavailable")
	require.Equal(t, 1, gw.CallCount("tx_submit"), "submission is not retried")
}

func TestSendTx_EmptyResponse(t *testing.T) {
	sub, err := New(signedTx(t, types.TxKindRevealPK, 1))
	require.NoError(t, err)

	err = sub.ToBatch(emptyResponseChain{}, logger.New(t)).SendTx(context.Background(), true)
	require.ErrorIs(t, err, wallet.ErrNetworkFailure)
	require.ErrorContains(t, err, "empty response")
	require.Nil(t, sub.Response)
	require.False(t, sub.Confirmed())
}

func TestConfirmTx_Polls(t *testing.T) {
	chain := &pendingChain{pending: 2, result: &types.TxResponse{Height: 5}}
	sub, err := New(signedTx(t, types.TxKindRevealPK, 1))
	require.NoError(t, err)

	batch := sub.ToBatch(chain, logger.New(t)).WithPollInterval(time.Millisecond)
	require.NoError(t, batch.SendTx(context.Background(), true))
	require.Equal(t, 3, chain.polls)
	require.EqualValues(t, 5, sub.Result.Height)
}

func TestConfirmTx_FailedResult(t *testing.T) {
	chain := &pendingChain{result: &types.TxResponse{Code: 3, Log: "out of gas"}}
	sub, err := New(signedTx(t, types.TxKindRevealPK, 1))
	require.NoError(t, err)

	err = sub.ToBatch(chain, logger.New(t)).SendTx(context.Background(), true)
	require.ErrorIs(t, err, wallet.ErrChainRejection)
	require.ErrorContains(t, err, "out of gas")
}

func TestConfirmTx_Timeout(t *testing.T) {
	chain := &pendingChain{pending: 1_000_000}
	sub, err := New(signedTx(t, types.TxKindRevealPK, 1, types.WithExpiration(time.Second)))
	require.NoError(t, err)

	batch := sub.ToBatch(chain, logger.New(t))
	batch.pollInterval = 10 * time.Millisecond
	err = batch.SendTx(context.Background(), true)
	require.ErrorIs(t, err, wallet.ErrNetworkFailure)
	require.ErrorContains(t, err, "confirmation timeout")
}

func TestConfirmTx_Cancelled(t *testing.T) {
	chain := &pendingChain{pending: 1_000_000}
	sub, err := New(signedTx(t, types.TxKindRevealPK, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	batch := sub.ToBatch(chain, logger.New(t))
	batch.pollInterval = 10 * time.Millisecond
	err = batch.SendTx(ctx, true)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
