package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignTx(t *testing.T) {
	for _, scheme := range []KeyScheme{SchemeEd25519, SchemeSecp256k1} {
		t.Run(scheme.String(), func(t *testing.T) {
			signer, err := NewSigner(scheme, bytes.Repeat([]byte{5}, 32))
			require.NoError(t, err)

			tx, err := NewTransaction("test-chain", TxKindRevealPK, &RevealPKAttributes{PublicKey: signer.PublicKey().String()})
			require.NoError(t, err)
			require.ErrorContains(t, VerifyTx(tx), "transaction is not signed")

			require.NoError(t, SignTx(tx, signer))
			require.Len(t, tx.Signatures, 1)
			require.Equal(t, signer.PublicKey().String(), tx.Signatures[0].PublicKey)
			require.NoError(t, VerifyTx(tx))

			// tampering invalidates the signature
			tx.ChainID = "other-chain"
			require.Error(t, VerifyTx(tx))
		})
	}
}

func TestSignTx_NoSigners(t *testing.T) {
	tx, err := NewTransaction("test-chain", TxKindRevealPK, &RevealPKAttributes{})
	require.NoError(t, err)
	require.ErrorContains(t, SignTx(tx), "no signers")
}

func TestNewSigner_InvalidKey(t *testing.T) {
	_, err := NewSigner(SchemeEd25519, []byte{1})
	require.ErrorContains(t, err, "invalid ed25519 private key length 1")

	_, err = NewSigner(SchemeSecp256k1, []byte{1})
	require.ErrorContains(t, err, "invalid secp256k1 private key length 1")

	_, err = NewSigner(KeyScheme(9), bytes.Repeat([]byte{5}, 32))
	require.ErrorContains(t, err, "unsupported key scheme 9")
}
