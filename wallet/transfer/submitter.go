package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/reveal"
	"github.com/knowable-run/namwallet/wallet/txbuilder"
	"github.com/knowable-run/namwallet/wallet/txsubmitter"
)

var (
	// ErrNotCleared is returned when the transfer source has not passed the reveal gate.
	ErrNotCleared = errors.New("source account has not been checked for revealed public key")
	ErrSigning    = errors.New("signing transaction failed")
	ErrSent       = errors.New("transaction has already been sent")
)

type (
	Signers interface {
		SignerFor(pk types.PublicKey) (types.Signer, error)
	}

	Submitter struct {
		chain   types.ChainClient
		signers Signers
		builder *txbuilder.Builder
		confirm bool
		txOpts  []types.Option
		log     *slog.Logger
	}

	SubmitterOption func(*Submitter)

	// Draft is the unsigned transfer transaction.
	Draft struct {
		Request *Request
		Tx      *types.Transaction
		keys    []types.PublicKey
	}

	// SignedTx is the signed transfer transaction ready to be sent exactly once.
	SignedTx struct {
		Request *Request
		sub     *txsubmitter.TxSubmission
		sent    bool
	}

	Receipt struct {
		Kind      Kind          `json:"kind"`
		TxHash    hexutil.Bytes `json:"txHash"`
		Code      uint32        `json:"code"`
		Height    uint64        `json:"height,omitempty"`
		GasUsed   uint64        `json:"gasUsed"`
		Confirmed bool          `json:"confirmed"`
	}
)

func WithConfirmation(confirm bool) SubmitterOption {
	return func(s *Submitter) {
		s.confirm = confirm
	}
}

func WithTxOptions(opts ...types.Option) SubmitterOption {
	return func(s *Submitter) {
		s.txOpts = opts
	}
}

func NewSubmitter(chain types.ChainClient, signers Signers, builder *txbuilder.Builder, log *slog.Logger, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		chain:   chain,
		signers: signers,
		builder: builder,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit builds, signs and sends the transfer. The transaction is not resent on failure.
func (s *Submitter) Submit(ctx context.Context, clearance *reveal.Clearance, req *Request) (*Receipt, error) {
	draft, err := s.Build(clearance, req)
	if err != nil {
		return nil, err
	}
	signed, err := s.Sign(draft)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, signed)
}

// Build creates the unsigned transaction. The clearance must be issued for the
// source of the request, the fee is paid by the first wallet key of the source.
func (s *Submitter) Build(clearance *reveal.Clearance, req *Request) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !clearance.Covers(req.Source) {
		return nil, fmt.Errorf("%w: %s", ErrNotCleared, req.Source)
	}
	var keys []types.PublicKey
	for _, rec := range clearance.Keys() {
		keys = append(keys, rec.PublicKey)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no signing key for %s in the wallet", wallet.ErrNotFound, req.Source)
	}

	var tx *types.Transaction
	var err error
	switch req.Kind {
	case Transparent:
		tx, err = s.builder.NewTransparentTransfer(req.Source, req.Target, req.Token, req.Amount, keys[0], s.txOpts...)
	case Shielding:
		tx, err = s.builder.NewShieldingTransfer(req.Source, req.Target, req.Token, req.Amount, keys[0], s.txOpts...)
	case IBC:
		tx, err = s.builder.NewIBCTransfer(req.Source, req.Token, req.Amount, s.ibcParams(req), keys[0], s.txOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s transfer: %w", req.Kind, err)
	}
	return &Draft{Request: req, Tx: tx, keys: keys}, nil
}

func (s *Submitter) ibcParams(req *Request) txbuilder.IBCParams {
	p := txbuilder.IBCParams{
		Receiver: req.Receiver,
		Channel:  req.Channel,
		Port:     req.Port,
		Memo:     req.Memo,
	}
	if p.Channel == "" {
		p.Channel = DefaultIBCChannel
	}
	if p.Port == "" {
		p.Port = txbuilder.DefaultIBCPort
	}
	if p.Memo == "" {
		token := req.Token
		if token.IsZero() {
			token = s.builder.NativeToken()
		}
		p.Memo = IBCMemo(req.Amount, token.String(), req.Source.String(), req.Receiver, p.Port, p.Channel)
	}
	return p
}

// Sign signs the draft with every wallet key controlling the source.
func (s *Submitter) Sign(d *Draft) (*SignedTx, error) {
	signers := make([]types.Signer, 0, len(d.keys))
	for _, pk := range d.keys {
		signer, err := s.signers.SignerFor(pk)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSigning, err)
		}
		signers = append(signers, signer)
	}
	if err := types.SignTx(d.Tx, signers...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	sub, err := txsubmitter.New(d.Tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return &SignedTx{Request: d.Request, sub: sub}, nil
}

func (t *SignedTx) Hash() hexutil.Bytes {
	return t.sub.TxHash
}

func (t *SignedTx) Transaction() *types.Transaction {
	return t.sub.Transaction
}

// Send submits the signed transaction. Any failure is final, the caller
// decides whether to start over with a new request.
func (s *Submitter) Send(ctx context.Context, t *SignedTx) (*Receipt, error) {
	if t.sent {
		return nil, fmt.Errorf("%w: %s", ErrSent, t.sub.TxHash)
	}
	t.sent = true

	s.log.InfoContext(ctx, "sending transfer", slog.String("kind", t.Request.Kind.String()), slog.String("hash", t.sub.TxHash.String()))
	if err := t.sub.ToBatch(s.chain, s.log).SendTx(ctx, s.confirm); err != nil {
		return nil, err
	}
	r := &Receipt{
		Kind:      t.Request.Kind,
		TxHash:    t.sub.TxHash,
		GasUsed:   t.sub.GasUsed(),
		Confirmed: t.sub.Confirmed(),
	}
	res := t.sub.Response
	if t.sub.Result != nil {
		res = t.sub.Result
	}
	r.Code = res.Code
	r.Height = res.Height
	return r, nil
}
