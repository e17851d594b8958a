package account

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anyproto/go-slip10"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/knowable-run/namwallet/client/types"
)

const (
	DefaultEd25519Path   = "m/44'/877'/0'/0'/0'"
	DefaultSecp256k1Path = "m/44'/877'/0'/0/0"

	mnemonicEntropyBits = 256
	hardenedOffset      = hdkeychain.HardenedKeyStart
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// DerivedKey is a transparent key pair derived from a mnemonic.
type DerivedKey struct {
	Scheme     types.KeyScheme
	PrivateKey []byte
	PublicKey  types.PublicKey
	Path       string
}

// NewMnemonic generates a 24 word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generating entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

func DefaultPath(scheme types.KeyScheme) string {
	if scheme == types.SchemeSecp256k1 {
		return DefaultSecp256k1Path
	}
	return DefaultEd25519Path
}

// DeriveKey derives key pair of the given scheme from the mnemonic. Empty
// path means default derivation path of the scheme.
func DeriveKey(mnemonic, passphrase string, scheme types.KeyScheme, path string) (*DerivedKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if path == "" {
		path = DefaultPath(scheme)
	}
	indexes, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	seed := bip39.NewSeed(mnemonic, passphrase)

	var privKey []byte
	switch scheme {
	case types.SchemeEd25519:
		privKey, err = deriveEd25519(seed, indexes)
	case types.SchemeSecp256k1:
		privKey, err = deriveSecp256k1(seed, indexes)
	default:
		err = fmt.Errorf("unsupported key scheme %d", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("deriving %s key at %s: %w", scheme, path, err)
	}

	signer, err := types.NewSigner(scheme, privKey)
	if err != nil {
		return nil, err
	}
	return &DerivedKey{
		Scheme:     scheme,
		PrivateKey: privKey,
		PublicKey:  signer.PublicKey(),
		Path:       path,
	}, nil
}

func parsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid derivation path %q: must start with \"m\"", path)
	}
	res := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		p = strings.TrimRight(p, "'h")
		idx, err := strconv.ParseUint(p, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid derivation path %q: %w", path, err)
		}
		if hardened {
			idx += hardenedOffset
		}
		res = append(res, uint32(idx))
	}
	return res, nil
}

// deriveEd25519 derives SLIP-10 ed25519 private key seed, only hardened
// indexes are supported by the curve.
func deriveEd25519(seed []byte, indexes []uint32) ([]byte, error) {
	node, err := slip10.NewMasterNode(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}
	for _, idx := range indexes {
		if idx < hardenedOffset {
			return nil, fmt.Errorf("ed25519 supports only hardened derivation, got index %d", idx)
		}
		if node, err = node.Derive(idx); err != nil {
			return nil, fmt.Errorf("deriving child %d: %w", idx, err)
		}
	}
	_, privKey := node.Keypair()
	return privKey.Seed(), nil
}

func deriveSecp256k1(seed []byte, indexes []uint32) ([]byte, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}
	for _, idx := range indexes {
		if key, err = key.Derive(idx); err != nil {
			return nil, fmt.Errorf("deriving child %d: %w", idx, err)
		}
	}
	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return privKey.Serialize(), nil
}
