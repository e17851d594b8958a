package shielded

import (
	"context"
	"fmt"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
)

type PaymentAddressStore interface {
	FindViewingKey(alias string) (string, bool)
	FindPaymentAddress(alias string) (types.Address, bool)
	InsertPaymentAddress(alias string, addr types.Address, overwrite bool) error
}

/*
GeneratePaymentAddress creates new payment address of the viewing key stored
under "viewingKeyAlias" and stores it under "alias". When the alias already
holds a payment address and "force" is false the existing address is returned
and "generated" is false. The caller is responsible for saving the store.
*/
func GeneratePaymentAddress(ctx context.Context, masp types.MaspClient, store PaymentAddressStore, alias, viewingKeyAlias string, force bool) (addr types.Address, generated bool, err error) {
	if existing, ok := store.FindPaymentAddress(alias); ok && !force {
		return existing, false, nil
	}
	vk, ok := store.FindViewingKey(viewingKeyAlias)
	if !ok {
		return "", false, fmt.Errorf("%w: viewing key %q", wallet.ErrNotFound, viewingKeyAlias)
	}
	addr, err = masp.NewPaymentAddress(ctx, vk)
	if err != nil {
		return "", false, fmt.Errorf("%w: generating payment address: %w", wallet.ErrNetworkFailure, err)
	}
	if !addr.IsShielded() {
		return "", false, fmt.Errorf("gateway returned %s which is not a payment address", addr)
	}
	if err := store.InsertPaymentAddress(alias, addr, force); err != nil {
		return "", false, err
	}
	return addr, true, nil
}
