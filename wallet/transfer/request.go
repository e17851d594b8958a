package transfer

import (
	"fmt"
	"strings"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/txbuilder"
)

const (
	Transparent Kind = iota + 1
	Shielding
	IBC
)

const DefaultIBCChannel = "channel-0"

type (
	Kind int

	// Request describes single transfer, it is never persisted.
	Request struct {
		Kind   Kind
		Source types.Address
		// Target is transparent address or, for shielding transfer, payment address.
		Target types.Address
		// Receiver is the address on the foreign chain of an IBC transfer.
		Receiver string
		// Token is the token address, empty means the native token.
		Token  types.Address
		Amount string

		Channel string
		Port    string
		Memo    string
	}
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transparent":
		return Transparent, nil
	case "shielding", "shield":
		return Shielding, nil
	case "ibc":
		return IBC, nil
	}
	return 0, fmt.Errorf("%w: unknown transfer kind %q", wallet.ErrInvalidInput, s)
}

func (k Kind) String() string {
	switch k {
	case Transparent:
		return "transparent"
	case Shielding:
		return "shielding"
	case IBC:
		return "ibc"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Validate checks the fields which do not depend on the chain state.
func (r *Request) Validate() error {
	if r.Source.IsZero() {
		return fmt.Errorf("%w: source is required", wallet.ErrInvalidInput)
	}
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("%w: amount is required", wallet.ErrInvalidInput)
	}
	switch r.Kind {
	case Transparent:
		if r.Target.IsZero() || r.Target.IsShielded() {
			return fmt.Errorf("%w: transparent transfer requires transparent target", wallet.ErrInvalidInput)
		}
	case Shielding:
		if !r.Target.IsShielded() {
			return fmt.Errorf("%w: shielding transfer requires payment address as target", wallet.ErrInvalidInput)
		}
	case IBC:
		if strings.TrimSpace(r.Receiver) == "" {
			return fmt.Errorf("%w: IBC transfer requires receiver", wallet.ErrInvalidInput)
		}
		if r.Channel != "" {
			if err := txbuilder.ValidateChannelID(r.Channel); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown transfer kind %d", wallet.ErrInvalidInput, r.Kind)
	}
	return nil
}

// IBCMemo returns human readable description of the IBC transfer.
func IBCMemo(amount, token, source, receiver, port, channel string) string {
	return fmt.Sprintf("Transfer of %s %s from %s to %s via port %s and channel %s", amount, token, source, receiver, port, channel)
}
