package txsubmitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
)

const defaultPollInterval = 500 * time.Millisecond

type (
	TxSubmission struct {
		TxHash      hexutil.Bytes
		Transaction *types.Transaction
		// Response is the answer of the gateway to the submission.
		Response *types.TxResponse
		// Result is set once the transaction has been applied by the chain.
		Result *types.TxResponse
	}

	TxSubmissionBatch struct {
		submissions  []*TxSubmission
		expiresAt    time.Time
		chainClient  types.ChainClient
		pollInterval time.Duration
		log          *slog.Logger
	}
)

func New(tx *types.Transaction) (*TxSubmission, error) {
	if !tx.Signed() {
		return nil, errors.New("transaction is not signed")
	}
	txHash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash tx: %w", err)
	}
	return &TxSubmission{
		TxHash:      txHash,
		Transaction: tx,
	}, nil
}

func (s *TxSubmission) ToBatch(chainClient types.ChainClient, log *slog.Logger) *TxSubmissionBatch {
	b := NewBatch(chainClient, log)
	b.Add(s)
	return b
}

func (s *TxSubmission) Confirmed() bool {
	return s.Result != nil
}

// Success returns true when the chain accepted (and if confirmed, applied) the transaction.
func (s *TxSubmission) Success() bool {
	if s.Result != nil {
		return s.Result.Success()
	}
	return s.Response.Success()
}

func (s *TxSubmission) GasUsed() uint64 {
	if s.Result != nil {
		return s.Result.GasUsed
	}
	if s.Response != nil {
		return s.Response.GasUsed
	}
	return 0
}

func (s *TxSubmission) rejection(resp *types.TxResponse) error {
	return &wallet.RejectionError{TxHash: s.TxHash, Code: resp.Code, Log: resp.Log}
}

func NewBatch(chainClient types.ChainClient, log *slog.Logger) *TxSubmissionBatch {
	return &TxSubmissionBatch{
		chainClient:  chainClient,
		pollInterval: defaultPollInterval,
		log:          log,
	}
}

// WithPollInterval sets the interval of result queries while confirming, non-positive values are ignored.
func (t *TxSubmissionBatch) WithPollInterval(d time.Duration) *TxSubmissionBatch {
	if d > 0 {
		t.pollInterval = d
	}
	return t
}

func (t *TxSubmissionBatch) Add(sub *TxSubmission) {
	t.submissions = append(t.submissions, sub)
	if exp := sub.Transaction.ExpiresAt(); exp.After(t.expiresAt) {
		t.expiresAt = exp
	}
}

func (t *TxSubmissionBatch) Submissions() []*TxSubmission {
	return t.submissions
}

/*
SendTx submits the transactions one by one in the order they were added and
stops at the first one which fails. Submissions are never retried, failure to
reach the gateway is reported as wallet.ErrNetworkFailure and non-zero result
code as *wallet.RejectionError.

When "confirmTx" is true the results are polled until every transaction has been
applied or the latest expiration time of the batch has passed.
*/
func (t *TxSubmissionBatch) SendTx(ctx context.Context, confirmTx bool) error {
	if len(t.submissions) == 0 {
		return errors.New("no transactions to send")
	}
	for _, sub := range t.submissions {
		resp, err := t.chainClient.SubmitTx(ctx, sub.Transaction)
		if err != nil {
			return fmt.Errorf("sending %s transaction %s: %w: %w", sub.Transaction.Kind, sub.TxHash, wallet.ErrNetworkFailure, err)
		}
		if resp == nil {
			return fmt.Errorf("sending %s transaction %s: %w: empty response", sub.Transaction.Kind, sub.TxHash, wallet.ErrNetworkFailure)
		}
		sub.Response = resp
		if !resp.Success() {
			t.log.InfoContext(ctx, "Tx rejected", slog.String("hash", sub.TxHash.String()), slog.Uint64("code", uint64(resp.Code)), slog.String("reason", resp.Log))
			return sub.rejection(resp)
		}
		t.log.DebugContext(ctx, "Tx accepted", slog.String("kind", string(sub.Transaction.Kind)), slog.String("hash", sub.TxHash.String()))
	}
	if confirmTx {
		return t.confirmTx(ctx)
	}
	return nil
}

func (t *TxSubmissionBatch) confirmTx(ctx context.Context) error {
	t.log.InfoContext(ctx, "Confirming submitted transactions")

	deadline := t.expiresAt
	if deadline.IsZero() {
		deadline = time.Now().Add(types.DefaultTxExpiration)
	}
	for {
		unconfirmed := false
		for _, sub := range t.submissions {
			if sub.Confirmed() {
				continue
			}
			res, err := t.chainClient.GetTxResult(ctx, sub.TxHash)
			if err != nil {
				return fmt.Errorf("confirming transaction %s: %w: %w", sub.TxHash, wallet.ErrNetworkFailure, err)
			}
			if res == nil {
				unconfirmed = true
				continue
			}
			sub.Result = res
			if !res.Success() {
				t.log.InfoContext(ctx, "Tx failed", slog.String("hash", sub.TxHash.String()), slog.Uint64("code", uint64(res.Code)), slog.String("reason", res.Log))
				return sub.rejection(res)
			}
			t.log.DebugContext(ctx, "Tx confirmed", slog.String("hash", sub.TxHash.String()), slog.Uint64("height", res.Height))
		}
		if !unconfirmed {
			t.log.InfoContext(ctx, "All transactions confirmed")
			return nil
		}
		if time.Now().After(deadline) {
			for _, sub := range t.submissions {
				if !sub.Confirmed() {
					t.log.InfoContext(ctx, "Tx not confirmed", slog.String("hash", sub.TxHash.String()))
				}
			}
			return fmt.Errorf("%w: confirmation timeout", wallet.ErrNetworkFailure)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirming transactions interrupted: %w", ctx.Err())
		case <-time.After(t.pollInterval):
		}
	}
}
