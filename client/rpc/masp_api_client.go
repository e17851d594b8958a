package rpc

import (
	"context"

	"github.com/knowable-run/namwallet/client/types"
)

var _ types.MaspClient = (*MaspAPIClient)(nil)

// MaspAPIClient wraps the shielded pool methods of the gateway.
type MaspAPIClient struct {
	rpcClient *Client
}

func NewMaspAPIClient(rpcClient *Client) *MaspAPIClient {
	return &MaspAPIClient{rpcClient: rpcClient}
}

// LatestHeight returns the last block height indexed by the gateway.
func (c *MaspAPIClient) LatestHeight(ctx context.Context) (uint64, error) {
	var res uint64
	err := c.rpcClient.CallContext(ctx, &res, "masp_latestHeight")
	return res, err
}

// ScanNotes returns balance changes of the viewing key in block range [fromHeight, toHeight].
func (c *MaspAPIClient) ScanNotes(ctx context.Context, viewingKey string, fromHeight, toHeight uint64) (*types.NoteScan, error) {
	var res *types.NoteScan
	if err := c.rpcClient.CallContext(ctx, &res, "masp_scanNotes", viewingKey, fromHeight, toHeight); err != nil {
		return nil, err
	}
	if res == nil {
		res = &types.NoteScan{FromHeight: fromHeight, ToHeight: toHeight}
	}
	return res, nil
}

// NewPaymentAddress asks the gateway to derive a fresh payment address for the viewing key.
func (c *MaspAPIClient) NewPaymentAddress(ctx context.Context, viewingKey string) (types.Address, error) {
	var res string
	if err := c.rpcClient.CallContext(ctx, &res, "masp_paymentAddress", viewingKey); err != nil {
		return "", err
	}
	return types.ParseAddress(res)
}
