package account

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/types"
)

const testMnemonic = "dinosaur simple verify deliver bless ridge monkey design venue six problem lucky"

func TestSlip10_Vector1(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	key, err := deriveEd25519(seed, nil)
	require.NoError(t, err)
	require.Equal(t, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7", hex.EncodeToString(key))
	pub := ed25519.NewKeyFromSeed(key).Public().(ed25519.PublicKey)
	require.Equal(t, "a4b2856bfec510abab89753fac1ac0e1112364e7d250545963f135f2a33188ed", hex.EncodeToString(pub))

	child, err := deriveEd25519(seed, []uint32{hardenedOffset})
	require.NoError(t, err)
	require.Equal(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3", hex.EncodeToString(child))

	// m/0'/1'/2'
	child, err = deriveEd25519(seed, []uint32{hardenedOffset, 1 + hardenedOffset, 2 + hardenedOffset})
	require.NoError(t, err)
	require.Equal(t, "92a5b23c0b8a99e37d07df3fb9966917f5d06e02ddbd909c7e184371463e9fc9", hex.EncodeToString(child))

	_, err = deriveEd25519(seed, []uint32{1})
	require.ErrorContains(t, err, "ed25519 supports only hardened derivation")
}

func TestBip32_Vector1(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	key, err := deriveSecp256k1(seed, []uint32{hardenedOffset})
	require.NoError(t, err)
	require.Equal(t, "edb2e14f9ee77d26dd93b4ecede8d16ed408ce149b6cd80b0715a2d911a0afea", hex.EncodeToString(key))
}

func TestParsePath(t *testing.T) {
	idx, err := parsePath(DefaultEd25519Path)
	require.NoError(t, err)
	require.Equal(t, []uint32{44 + hardenedOffset, 877 + hardenedOffset, hardenedOffset, hardenedOffset, hardenedOffset}, idx)

	idx, err = parsePath("m/44h/877h/0h/0/1")
	require.NoError(t, err)
	require.Equal(t, []uint32{44 + hardenedOffset, 877 + hardenedOffset, hardenedOffset, 0, 1}, idx)

	_, err = parsePath("44'/0'")
	require.ErrorContains(t, err, `must start with "m"`)

	_, err = parsePath("m/x")
	require.ErrorContains(t, err, "invalid derivation path")

	_, err = parsePath("m/2147483648")
	require.ErrorContains(t, err, "invalid derivation path")
}

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey(testMnemonic, "", types.SchemeEd25519, "")
	require.NoError(t, err)
	require.Equal(t, DefaultEd25519Path, k1.Path)
	require.Len(t, k1.PrivateKey, 32)

	k2, err := DeriveKey(testMnemonic, "", types.SchemeEd25519, DefaultEd25519Path)
	require.NoError(t, err)
	require.True(t, k1.PublicKey.Equal(k2.PublicKey), "derivation must be deterministic")

	other, err := DeriveKey(testMnemonic, "", types.SchemeEd25519, "m/44'/877'/0'/0'/1'")
	require.NoError(t, err)
	require.False(t, k1.PublicKey.Equal(other.PublicKey))

	withPassphrase, err := DeriveKey(testMnemonic, "secret", types.SchemeEd25519, "")
	require.NoError(t, err)
	require.False(t, k1.PublicKey.Equal(withPassphrase.PublicKey))

	secp, err := DeriveKey(testMnemonic, "", types.SchemeSecp256k1, "")
	require.NoError(t, err)
	require.Equal(t, DefaultSecp256k1Path, secp.Path)
	require.Equal(t, types.SchemeSecp256k1, secp.PublicKey.Scheme)
	require.Len(t, secp.PublicKey.Key, 33)

	_, err = DeriveKey("not a valid mnemonic", "", types.SchemeEd25519, "")
	require.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = DeriveKey(testMnemonic, "", types.SchemeEd25519, "m/44'/0")
	require.ErrorContains(t, err, "ed25519 supports only hardened derivation")
}

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)
	require.Len(t, strings.Fields(mnemonic), 24)

	_, err = DeriveKey(mnemonic, "", types.SchemeEd25519, "")
	require.NoError(t, err)
}
