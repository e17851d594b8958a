package alias

import (
	"fmt"
	"strings"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
)

type (
	// Store is the lookup capability of the wallet store.
	Store interface {
		FindAddress(alias string) (types.Address, bool)
		FindPaymentAddress(alias string) (types.Address, bool)
	}

	Resolver struct {
		store Store
	}
)

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

/*
Resolve returns the address stored under the alias. Transparent addresses take
precedence over payment addresses with the same alias. Error wraps
wallet.ErrInvalidInput for empty alias and wallet.ErrNotFound when the alias
is not in the store.
*/
func (r *Resolver) Resolve(alias string) (types.Address, error) {
	if strings.TrimSpace(alias) == "" {
		return "", fmt.Errorf("%w: alias must not be empty", wallet.ErrInvalidInput)
	}
	if addr, ok := r.store.FindAddress(alias); ok {
		return addr, nil
	}
	if addr, ok := r.store.FindPaymentAddress(alias); ok {
		return addr, nil
	}
	return "", fmt.Errorf("%w: alias %q", wallet.ErrNotFound, alias)
}

// ResolveTransparent is Resolve restricted to transparent addresses.
func (r *Resolver) ResolveTransparent(alias string) (types.Address, error) {
	addr, err := r.ResolveOrParse(alias)
	if err != nil {
		return "", err
	}
	if addr.IsShielded() {
		return "", fmt.Errorf("%w: %q is a payment address", wallet.ErrInvalidInput, alias)
	}
	return addr, nil
}

/*
ResolvePaymentAddress returns the payment address stored under the alias or
parses a payment address literal. Transparent addresses sharing the alias are
ignored.
*/
func (r *Resolver) ResolvePaymentAddress(alias string) (types.Address, error) {
	if strings.TrimSpace(alias) == "" {
		return "", fmt.Errorf("%w: alias must not be empty", wallet.ErrInvalidInput)
	}
	if looksLikeAddress(alias) {
		addr, err := types.ParseAddress(alias)
		if err != nil {
			return "", fmt.Errorf("%w: %w", wallet.ErrInvalidInput, err)
		}
		if !addr.IsShielded() {
			return "", fmt.Errorf("%w: %q is not a payment address", wallet.ErrInvalidInput, alias)
		}
		return addr, nil
	}
	if addr, ok := r.store.FindPaymentAddress(alias); ok {
		return addr, nil
	}
	return "", fmt.Errorf("%w: payment address alias %q", wallet.ErrNotFound, alias)
}

// ResolveOrParse accepts either an alias or an address literal.
func (r *Resolver) ResolveOrParse(s string) (types.Address, error) {
	if looksLikeAddress(s) {
		addr, err := types.ParseAddress(s)
		if err != nil {
			return "", fmt.Errorf("%w: %w", wallet.ErrInvalidInput, err)
		}
		return addr, nil
	}
	return r.Resolve(s)
}

func looksLikeAddress(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, types.TransparentHRP+"1") || strings.HasPrefix(s, types.PaymentAddressHRP+"1")
}
