package txbuilder

import (
	"fmt"
	"strings"
	"time"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/util"
	"github.com/knowable-run/namwallet/wallet"
)

const (
	DefaultIBCPort    = "transfer"
	DefaultIBCTimeout = 10 * time.Minute
)

// Builder creates unsigned transactions for a chain, fees are paid in the native token.
type Builder struct {
	chainID     string
	nativeToken types.Address
	denom       uint8
}

func New(chainID string, nativeToken types.Address) *Builder {
	return &Builder{chainID: chainID, nativeToken: nativeToken, denom: util.NativeDenom}
}

func (b *Builder) ChainID() string {
	return b.chainID
}

func (b *Builder) NativeToken() types.Address {
	return b.nativeToken
}

// NewRevealPK creates transaction publishing the public key, the key itself pays the fee.
func (b *Builder) NewRevealPK(pk types.PublicKey, opts ...types.Option) (*types.Transaction, error) {
	return b.newTx(types.TxKindRevealPK, &types.RevealPKAttributes{PublicKey: pk.String()}, pk, opts)
}

func (b *Builder) NewTransparentTransfer(source, target, token types.Address, amount string, feePayer types.PublicKey, opts ...types.Option) (*types.Transaction, error) {
	if target.IsShielded() {
		return nil, fmt.Errorf("%w: transparent transfer target %s is a payment address", wallet.ErrInvalidInput, target)
	}
	attr, err := b.transferAttributes(source, target, token, amount)
	if err != nil {
		return nil, err
	}
	return b.newTx(types.TxKindTransparentTransfer, attr, feePayer, opts)
}

func (b *Builder) NewShieldingTransfer(source, target, token types.Address, amount string, feePayer types.PublicKey, opts ...types.Option) (*types.Transaction, error) {
	if !target.IsShielded() {
		return nil, fmt.Errorf("%w: shielding transfer target %s is not a payment address", wallet.ErrInvalidInput, target)
	}
	attr, err := b.transferAttributes(source, target, token, amount)
	if err != nil {
		return nil, err
	}
	return b.newTx(types.TxKindShieldingTransfer, attr, feePayer, opts)
}

type IBCParams struct {
	Receiver string
	Channel  string
	Port     string
	Memo     string
	Timeout  time.Duration
}

func (b *Builder) NewIBCTransfer(source, token types.Address, amount string, params IBCParams, feePayer types.PublicKey, opts ...types.Option) (*types.Transaction, error) {
	if err := validateTransparent(source, "source"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Receiver) == "" {
		return nil, fmt.Errorf("%w: IBC receiver is required", wallet.ErrInvalidInput)
	}
	if err := ValidateChannelID(params.Channel); err != nil {
		return nil, err
	}
	raw, err := b.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	if params.Port == "" {
		params.Port = DefaultIBCPort
	}
	if params.Timeout == 0 {
		params.Timeout = DefaultIBCTimeout
	}
	attr := &types.IBCTransferAttributes{
		Source:           source,
		Receiver:         params.Receiver,
		Token:            b.tokenOrNative(token),
		Amount:           raw,
		Port:             params.Port,
		Channel:          params.Channel,
		TimeoutTimestamp: time.Now().Add(params.Timeout).Unix(),
		Memo:             params.Memo,
	}
	return b.newTx(types.TxKindIBCTransfer, attr, feePayer, opts)
}

// ValidateChannelID checks that the id is in the form "channel-N".
func ValidateChannelID(channel string) error {
	n, ok := strings.CutPrefix(channel, "channel-")
	if !ok || n == "" || strings.Trim(n, "0123456789") != "" {
		return fmt.Errorf("%w: invalid IBC channel id %q", wallet.ErrInvalidInput, channel)
	}
	return nil
}

func (b *Builder) transferAttributes(source, target, token types.Address, amount string) (*types.TransferAttributes, error) {
	if err := validateTransparent(source, "source"); err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, fmt.Errorf("%w: target address is required", wallet.ErrInvalidInput)
	}
	raw, err := b.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return &types.TransferAttributes{
		Source: source,
		Target: target,
		Token:  b.tokenOrNative(token),
		Amount: raw,
	}, nil
}

func (b *Builder) newTx(kind types.TxKind, attr any, feePayer types.PublicKey, opts []types.Option) (*types.Transaction, error) {
	if len(feePayer.Key) == 0 {
		return nil, fmt.Errorf("%w: fee payer key is required", wallet.ErrInvalidInput)
	}
	o := types.OptionsWithDefaults(opts)
	feePerGas, err := util.ParseAmount(o.FeeAmountPerGasUnit, b.denom)
	if err != nil {
		return nil, fmt.Errorf("%w: fee amount: %w", wallet.ErrInvalidInput, err)
	}
	tx, err := types.NewTransaction(b.chainID, kind, attr, opts...)
	if err != nil {
		return nil, err
	}
	if tx.Header.FeeToken.IsZero() {
		tx.Header.FeeToken = b.nativeToken
	}
	tx.Header.FeeAmountPerGasUnit = feePerGas.Dec()
	tx.Header.FeePayer = feePayer.String()
	return tx, nil
}

// ParseAmount returns the amount in base units of the native denomination.
func (b *Builder) ParseAmount(amount string) (string, error) {
	v, err := util.ParseAmount(amount, b.denom)
	if err != nil {
		return "", fmt.Errorf("%w: %w", wallet.ErrInvalidInput, err)
	}
	if v.IsZero() {
		return "", fmt.Errorf("%w: amount must be greater than zero", wallet.ErrInvalidInput)
	}
	return v.Dec(), nil
}

func (b *Builder) tokenOrNative(token types.Address) types.Address {
	if token.IsZero() {
		return b.nativeToken
	}
	return token
}

func validateTransparent(addr types.Address, name string) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: %s address is required", wallet.ErrInvalidInput, name)
	}
	if addr.IsShielded() {
		return fmt.Errorf("%w: %s address %s must be transparent", wallet.ErrInvalidInput, name, addr)
	}
	return nil
}
