package types

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	// ChainClient is the subset of the chain gateway API used by the wallet.
	ChainClient interface {
		// GetAccountInfo returns nil when the chain has no record of the account.
		GetAccountInfo(ctx context.Context, addr Address) (*AccountInfo, error)
		SubmitTx(ctx context.Context, tx *Transaction) (*TxResponse, error)
		// GetTxResult returns nil while the transaction is not yet applied.
		GetTxResult(ctx context.Context, txHash []byte) (*TxResponse, error)
		QueryEpoch(ctx context.Context) (uint64, error)
		QueryMaspEpoch(ctx context.Context) (uint64, error)
		NativeToken(ctx context.Context) (Address, error)
		// GetBalance returns the raw balance (base units) of the token.
		GetBalance(ctx context.Context, token, owner Address) (string, error)
		Close()
	}

	// MaspClient is the shielded pool part of the gateway API. Note decryption
	// and diversifier search happen on the gateway side.
	MaspClient interface {
		LatestHeight(ctx context.Context) (uint64, error)
		ScanNotes(ctx context.Context, viewingKey string, fromHeight, toHeight uint64) (*NoteScan, error)
		NewPaymentAddress(ctx context.Context, viewingKey string) (Address, error)
	}

	AccountInfo struct {
		Address    Address          `json:"address"`
		PublicKeys map[uint8]string `json:"publicKeys"`
		Threshold  uint8            `json:"threshold"`
	}

	TxResponse struct {
		Hash    hexutil.Bytes `json:"hash"`
		Code    uint32        `json:"code"`
		Log     string        `json:"log,omitempty"`
		Height  uint64        `json:"height"`
		GasUsed uint64        `json:"gasUsed"`
	}

	NoteScan struct {
		FromHeight uint64 `json:"fromHeight"`
		ToHeight   uint64 `json:"toHeight"`
		// Deltas holds signed raw amount change per token.
		Deltas map[Address]string `json:"deltas"`
	}
)

// Revealed returns true when the chain holds at least one public key of the account.
func (a *AccountInfo) Revealed() bool {
	return a != nil && len(a.PublicKeys) > 0
}

func (r *TxResponse) Success() bool {
	return r != nil && r.Code == 0
}
