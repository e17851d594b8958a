package rpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/knowable-run/namwallet/client/types"
)

var _ types.ChainClient = (*ChainAPIClient)(nil)

type (
	// ChainAPIClient defines typed wrappers for the chain gateway RPC API.
	ChainAPIClient struct {
		rpcClient *Client
	}
)

// NewChainAPIClient creates a new chain API client using the given RPC client.
func NewChainAPIClient(rpcClient *Client) *ChainAPIClient {
	return &ChainAPIClient{rpcClient: rpcClient}
}

// DialChainAPIClient connects to the gateway at the given URL.
func DialChainAPIClient(ctx context.Context, rpcUrl string, opts ...Option) (*ChainAPIClient, error) {
	rpcClient, err := NewClient(ctx, rpcUrl, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc url: %w", err)
	}
	return NewChainAPIClient(rpcClient), nil
}

// GetAccountInfo returns the on-chain account record, nil if the chain does
// not know the account.
func (c *ChainAPIClient) GetAccountInfo(ctx context.Context, addr types.Address) (*types.AccountInfo, error) {
	var res *types.AccountInfo
	if err := c.rpcClient.CallContext(ctx, &res, "account_getInfo", addr); err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitTx broadcasts the transaction. The call is never retried.
func (c *ChainAPIClient) SubmitTx(ctx context.Context, tx *types.Transaction) (*types.TxResponse, error) {
	txCBOR, err := tx.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction to cbor: %w", err)
	}
	var res *types.TxResponse
	if err := c.rpcClient.CallOnce(ctx, &res, "tx_submit", hexutil.Bytes(txCBOR)); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("empty response to transaction submission")
	}
	return res, nil
}

// GetTxResult returns the result of applying the transaction, nil if the
// transaction has not been applied yet.
func (c *ChainAPIClient) GetTxResult(ctx context.Context, txHash []byte) (*types.TxResponse, error) {
	var res *types.TxResponse
	if err := c.rpcClient.CallContext(ctx, &res, "tx_getResult", hexutil.Bytes(txHash)); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *ChainAPIClient) QueryEpoch(ctx context.Context) (uint64, error) {
	var res uint64
	err := c.rpcClient.CallContext(ctx, &res, "chain_epoch")
	return res, err
}

func (c *ChainAPIClient) QueryMaspEpoch(ctx context.Context) (uint64, error) {
	var res uint64
	err := c.rpcClient.CallContext(ctx, &res, "chain_maspEpoch")
	return res, err
}

// NativeToken returns the address of the native token of the chain.
func (c *ChainAPIClient) NativeToken(ctx context.Context) (types.Address, error) {
	var res string
	if err := c.rpcClient.CallContext(ctx, &res, "chain_nativeToken"); err != nil {
		return "", err
	}
	return types.ParseAddress(res)
}

func (c *ChainAPIClient) GetBalance(ctx context.Context, token, owner types.Address) (string, error) {
	var res string
	if err := c.rpcClient.CallContext(ctx, &res, "token_balance", token, owner); err != nil {
		return "", err
	}
	if res == "" {
		return "0", nil
	}
	return res, nil
}

func (c *ChainAPIClient) Close() {
	c.rpcClient.Close()
}
