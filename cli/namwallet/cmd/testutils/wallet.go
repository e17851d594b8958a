package testutils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet/account"
)

const (
	walletBaseDir = "wallet"

	TestMnemonic = "dinosaur simple verify deliver bless ridge monkey design venue six problem lucky"
)

/*
CreateNewWallet creates wallet in a new home directory with the default ed25519
key of TestMnemonic stored under "alias". Returns the home directory and the key.
The wallet file is closed, commands load it on their own.
*/
func CreateNewWallet(t *testing.T, alias string) (string, *account.DerivedKey) {
	homeDir := t.TempDir()
	am, err := account.NewManager(filepath.Join(homeDir, walletBaseDir), "", true)
	require.NoError(t, err)
	defer am.Close()

	key, err := account.DeriveKey(TestMnemonic, "", types.SchemeEd25519, "")
	require.NoError(t, err)
	require.NoError(t, am.AddKey(alias, key, false))
	require.NoError(t, am.Save())
	return homeDir, key
}

// LoadWallet opens the wallet in the home directory, it is closed when the test ends.
func LoadWallet(t *testing.T, homeDir string) *account.FileManager {
	am, err := account.NewManager(filepath.Join(homeDir, walletBaseDir), "", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Close() })
	return am
}
