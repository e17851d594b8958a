package walletstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet/account"
)

// New creates an empty wallet in a temporary directory.
func New(t *testing.T, password string) *account.FileManager {
	am, err := account.NewManager(t.TempDir(), password, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Close() })
	return am
}

// AddKey stores deterministic key pair under the alias, "seed" is repeated to
// fill the private key. Returns the public key, its implicit address is stored
// under the same alias.
func AddKey(t *testing.T, am account.Manager, alias string, scheme types.KeyScheme, seed byte) types.PublicKey {
	priv := bytes.Repeat([]byte{seed}, 32)
	signer, err := types.NewSigner(scheme, priv)
	require.NoError(t, err)
	key := &account.DerivedKey{Scheme: scheme, PrivateKey: priv, PublicKey: signer.PublicKey()}
	require.NoError(t, am.AddKey(alias, key, false))
	return key.PublicKey
}
