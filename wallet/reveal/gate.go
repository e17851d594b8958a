package reveal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/account"
	"github.com/knowable-run/namwallet/wallet/txbuilder"
	"github.com/knowable-run/namwallet/wallet/txsubmitter"
)

const (
	AlreadyRevealed Outcome = iota + 1
	Revealed
)

var (
	// ErrQueryFailed means the reveal state of the account is unknown.
	ErrQueryFailed = errors.New("querying account failed")
	// ErrSubmitFailed means the account is known to be unrevealed and revealing it failed.
	ErrSubmitFailed = errors.New("revealing public key failed")
)

type (
	Outcome int

	// KeyStore is the part of the wallet store holding the key pairs.
	KeyStore interface {
		ListPublicKeys() []*account.PublicKeyRecord
		SignerFor(pk types.PublicKey) (types.Signer, error)
	}

	Gate struct {
		chain   types.ChainClient
		keys    KeyStore
		builder *txbuilder.Builder
		txOpts  []types.Option
		poll    time.Duration
		log     *slog.Logger
	}

	GateOption func(*Gate)

	/*
	Clearance is the proof that the account has been checked to be revealed. It
	can only be created by the Gate and is required to build a transfer from
	the account.
	*/
	Clearance struct {
		addr    types.Address
		outcome Outcome
		// keys of the wallet which control the account
		keys []*account.PublicKeyRecord
	}
)

// WithPollInterval sets how often the results of the reveal transactions are queried.
func WithPollInterval(d time.Duration) GateOption {
	return func(g *Gate) {
		g.poll = d
	}
}

// WithTxOptions sets the fee and expiration options of the reveal transactions.
func WithTxOptions(opts ...types.Option) GateOption {
	return func(g *Gate) {
		g.txOpts = opts
	}
}

func NewGate(chain types.ChainClient, keys KeyStore, builder *txbuilder.Builder, log *slog.Logger, opts ...GateOption) *Gate {
	g := &Gate{
		chain:   chain,
		keys:    keys,
		builder: builder,
		log:     log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

/*
EnsureRevealed makes sure the chain knows the public key of the account "addr".

When the chain already holds at least one public key of the account nothing is
submitted. Otherwise every key of the wallet controlling the account is revealed,
one transaction per key, and processing stops at the first failure. Reveal
transactions are always waited for until applied, and Revealed is returned only
when the chain reports every revealed key (for an implicit account that is the
account itself).

Failure to query the account wraps ErrQueryFailed, failure to reveal wraps
ErrSubmitFailed. Both also wrap one of the wallet error classes.
*/
func (g *Gate) EnsureRevealed(ctx context.Context, addr types.Address) (Outcome, *Clearance, error) {
	if addr.IsZero() || addr.IsShielded() {
		return 0, nil, fmt.Errorf("%w: %q is not a transparent address", wallet.ErrInvalidInput, addr)
	}
	info, err := g.chain.GetAccountInfo(ctx, addr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w %s: %w: %w", ErrQueryFailed, addr, wallet.ErrNetworkFailure, err)
	}
	candidates := account.KeysForAddress(g.keys.ListPublicKeys(), addr)

	if info.Revealed() {
		g.log.DebugContext(ctx, "account already revealed", slog.String("address", addr.String()), slog.Int("keys", len(info.PublicKeys)))
		return AlreadyRevealed, &Clearance{addr: addr, outcome: AlreadyRevealed, keys: candidates}, nil
	}

	if len(candidates) == 0 {
		return 0, nil, fmt.Errorf("%w: %w: no public key for address %s in the wallet", ErrSubmitFailed, wallet.ErrNotFound, addr)
	}
	for _, rec := range candidates {
		if err := g.reveal(ctx, rec); err != nil {
			return 0, nil, fmt.Errorf("%w %s: %w", ErrSubmitFailed, rec.PublicKey, err)
		}
	}

	for _, rec := range candidates {
		if err := g.checkOnChain(ctx, rec.PublicKey); err != nil {
			return 0, nil, err
		}
	}
	return Revealed, &Clearance{addr: addr, outcome: Revealed, keys: candidates}, nil
}

func (g *Gate) reveal(ctx context.Context, rec *account.PublicKeyRecord) error {
	signer, err := g.keys.SignerFor(rec.PublicKey)
	if err != nil {
		return fmt.Errorf("loading signing key %q: %w", rec.Alias, err)
	}
	tx, err := g.builder.NewRevealPK(rec.PublicKey, g.txOpts...)
	if err != nil {
		return fmt.Errorf("building reveal transaction: %w", err)
	}
	if err := types.SignTx(tx, signer); err != nil {
		return fmt.Errorf("signing reveal transaction: %w", err)
	}
	sub, err := txsubmitter.New(tx)
	if err != nil {
		return err
	}
	g.log.InfoContext(ctx, "revealing public key", slog.String("alias", rec.Alias), slog.String("hash", sub.TxHash.String()))
	return sub.ToBatch(g.chain, g.log).WithPollInterval(g.poll).SendTx(ctx, true)
}

func (g *Gate) checkOnChain(ctx context.Context, pk types.PublicKey) error {
	info, err := g.chain.GetAccountInfo(ctx, pk.Address())
	if err != nil {
		return fmt.Errorf("%w %s: %w: %w", ErrQueryFailed, pk.Address(), wallet.ErrNetworkFailure, err)
	}
	if !info.Revealed() {
		return fmt.Errorf("%w: %w: public key %s not on chain after reveal", ErrSubmitFailed, wallet.ErrChainRejection, pk)
	}
	return nil
}

func (o Outcome) String() string {
	switch o {
	case AlreadyRevealed:
		return "already revealed"
	case Revealed:
		return "revealed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (c *Clearance) Address() types.Address {
	return c.addr
}

func (c *Clearance) Outcome() Outcome {
	return c.outcome
}

// Keys returns the wallet keys controlling the cleared account.
func (c *Clearance) Keys() []*account.PublicKeyRecord {
	return c.keys
}

// Covers returns true when the clearance has been issued by the Gate for "addr".
func (c *Clearance) Covers(addr types.Address) bool {
	return c != nil && c.outcome != 0 && c.addr == addr
}
