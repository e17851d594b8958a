package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	TxKindRevealPK            TxKind = "reveal_pk"
	TxKindTransparentTransfer TxKind = "transparent_transfer"
	TxKindShieldingTransfer   TxKind = "shielding_transfer"
	TxKindIBCTransfer         TxKind = "ibc_transfer"

	DefaultGasLimit            = 100_000
	DefaultFeeAmountPerGasUnit = "0.000001"
	DefaultTxExpiration        = 10 * time.Minute
)

type (
	TxKind string

	Transaction struct {
		_          struct{} `cbor:",toarray"`
		ChainID    string
		Kind       TxKind
		Header     *TxHeader
		Data       cbor.RawMessage
		Signatures []*Signature
	}

	TxHeader struct {
		_                   struct{} `cbor:",toarray"`
		Expiration          int64 // unix seconds, 0 means no expiration
		FeeToken            Address
		FeeAmountPerGasUnit string // raw amount in base units of the fee token
		GasLimit            uint64
		FeePayer            string // public key paying the fee
		Memo                []byte
	}

	Signature struct {
		_         struct{} `cbor:",toarray"`
		PublicKey string
		Signature []byte
	}

	Options struct {
		GasLimit            uint64
		FeeAmountPerGasUnit string
		FeeToken            Address
		Expiration          time.Duration
		Memo                string
	}

	Option func(*Options)
)

func NewTransaction(chainID string, kind TxKind, attr any, opts ...Option) (*Transaction, error) {
	data, err := Cbor.Marshal(attr)
	if err != nil {
		return nil, fmt.Errorf("encoding %s attributes: %w", kind, err)
	}
	o := OptionsWithDefaults(opts)
	header := &TxHeader{
		FeeToken: o.FeeToken,
		GasLimit: o.GasLimit,
	}
	if o.Expiration > 0 {
		header.Expiration = time.Now().Add(o.Expiration).Unix()
	}
	if o.Memo != "" {
		header.Memo = []byte(o.Memo)
	}
	return &Transaction{
		ChainID: chainID,
		Kind:    kind,
		Header:  header,
		Data:    data,
	}, nil
}

// SigBytes returns the bytes covered by signatures, ie the transaction without signatures.
func (t *Transaction) SigBytes() ([]byte, error) {
	cpy := *t
	cpy.Signatures = nil
	return Cbor.Marshal(&cpy)
}

func (t *Transaction) Hash() ([]byte, error) {
	b, err := Cbor.Marshal(t)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(b)
	return h[:], nil
}

func (t *Transaction) Encode() ([]byte, error) {
	return Cbor.Marshal(t)
}

func DecodeTransaction(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	if err := Cbor.Unmarshal(b, tx); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	return tx, nil
}

func (t *Transaction) UnmarshalData(v any) error {
	if len(t.Data) == 0 {
		return errors.New("transaction has no data")
	}
	return Cbor.Unmarshal(t.Data, v)
}

func (t *Transaction) Signed() bool {
	return len(t.Signatures) > 0
}

func (t *Transaction) ExpiresAt() time.Time {
	if t.Header == nil || t.Header.Expiration == 0 {
		return time.Time{}
	}
	return time.Unix(t.Header.Expiration, 0)
}

func WithGasLimit(gasLimit uint64) Option {
	return func(options *Options) {
		options.GasLimit = gasLimit
	}
}

func WithFeeAmountPerGasUnit(amount string) Option {
	return func(options *Options) {
		options.FeeAmountPerGasUnit = amount
	}
}

func WithFeeToken(token Address) Option {
	return func(options *Options) {
		options.FeeToken = token
	}
}

func WithExpiration(expiration time.Duration) Option {
	return func(options *Options) {
		options.Expiration = expiration
	}
}

func WithMemo(memo string) Option {
	return func(options *Options) {
		options.Memo = memo
	}
}

func OptionsWithDefaults(txOptions []Option) *Options {
	opts := &Options{
		GasLimit:            DefaultGasLimit,
		FeeAmountPerGasUnit: DefaultFeeAmountPerGasUnit,
		Expiration:          DefaultTxExpiration,
	}
	for _, txOption := range txOptions {
		txOption(opts)
	}
	return opts
}
