package testutils

import (
	"bytes"
	"testing"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/stretchr/testify/require"
)

// testutils.TxHash(t, tx)
func TxHash(t *testing.T, tx *types.Transaction) []byte {
	hash, err := tx.Hash()
	require.NoError(t, err)
	return hash
}

// NewSigner returns deterministic signer, "seed" byte is repeated to fill the private key.
func NewSigner(t *testing.T, scheme types.KeyScheme, seed byte) types.Signer {
	signer, err := types.NewSigner(scheme, bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)
	return signer
}

// NewAddress returns established address with hash filled with "seed".
func NewAddress(t *testing.T, seed byte) types.Address {
	addr, err := types.NewAddress(types.AddressEstablished, bytes.Repeat([]byte{seed}, 20))
	require.NoError(t, err)
	return addr
}

func NewPaymentAddress(t *testing.T, seed byte) types.Address {
	s, err := types.EncodeBech32(types.PaymentAddressHRP, bytes.Repeat([]byte{seed}, 43))
	require.NoError(t, err)
	addr, err := types.ParseAddress(s)
	require.NoError(t, err)
	return addr
}

func NewViewingKey(t *testing.T, seed byte) string {
	s, err := types.EncodeBech32(types.ViewingKeyHRP, bytes.Repeat([]byte{seed}, 96))
	require.NoError(t, err)
	return s
}
