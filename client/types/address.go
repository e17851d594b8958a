package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	TransparentHRP    = "tnam"
	PaymentAddressHRP = "znam"
	PublicKeyHRP      = "tpknam"
	ViewingKeyHRP     = "zvknam"
	SpendingKeyHRP    = "zsknam"

	addressHashLen = 20

	// legacy wallet files stored ed25519 keys as hex with this marker
	legacyEd25519Prefix = "ED25519_PK_PREFIX"
)

const (
	AddressEstablished AddressKind = iota
	AddressImplicit
	AddressInternal
)

const (
	SchemeEd25519 KeyScheme = iota
	SchemeSecp256k1
)

var ErrInvalidAddress = errors.New("invalid address")

type (
	// Address is a bech32m encoded chain identity, either transparent (tnam1...)
	// or a shielded payment address (znam1...).
	Address string

	AddressKind byte

	KeyScheme byte

	PublicKey struct {
		Scheme KeyScheme
		Key    []byte
	}
)

func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	hrp, data, err := decodeBech32(s)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidAddress, s, err)
	}
	switch hrp {
	case TransparentHRP:
		if len(data) != addressHashLen+1 {
			return "", fmt.Errorf("%w %q: unexpected payload length %d", ErrInvalidAddress, s, len(data))
		}
		if AddressKind(data[0]) > AddressInternal {
			return "", fmt.Errorf("%w %q: unknown address kind %d", ErrInvalidAddress, s, data[0])
		}
	case PaymentAddressHRP:
		if len(data) == 0 {
			return "", fmt.Errorf("%w %q: empty payload", ErrInvalidAddress, s)
		}
	default:
		return "", fmt.Errorf("%w %q: unexpected prefix %q", ErrInvalidAddress, s, hrp)
	}
	return Address(strings.ToLower(s)), nil
}

func NewAddress(kind AddressKind, hash []byte) (Address, error) {
	if len(hash) != addressHashLen {
		return "", fmt.Errorf("address hash must be %d bytes, got %d", addressHashLen, len(hash))
	}
	s, err := EncodeBech32(TransparentHRP, append([]byte{byte(kind)}, hash...))
	if err != nil {
		return "", err
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsShielded() bool {
	return strings.HasPrefix(string(a), PaymentAddressHRP+"1")
}

func (a Address) IsZero() bool {
	return a == ""
}

// Kind returns the kind of transparent address, shielded addresses have no kind.
func (a Address) Kind() (AddressKind, error) {
	hrp, data, err := decodeBech32(string(a))
	if err != nil {
		return 0, err
	}
	if hrp != TransparentHRP || len(data) == 0 {
		return 0, fmt.Errorf("%w: %q is not a transparent address", ErrInvalidAddress, a)
	}
	return AddressKind(data[0]), nil
}

func (k AddressKind) String() string {
	switch k {
	case AddressEstablished:
		return "established"
	case AddressImplicit:
		return "implicit"
	case AddressInternal:
		return "internal"
	}
	return fmt.Sprintf("AddressKind(%d)", byte(k))
}

func (s KeyScheme) String() string {
	switch s {
	case SchemeEd25519:
		return "ed25519"
	case SchemeSecp256k1:
		return "secp256k1"
	}
	return fmt.Sprintf("KeyScheme(%d)", byte(s))
}

func ParseKeyScheme(s string) (KeyScheme, error) {
	switch strings.ToLower(s) {
	case "ed25519", "":
		return SchemeEd25519, nil
	case "secp256k1":
		return SchemeSecp256k1, nil
	}
	return 0, fmt.Errorf("unsupported key scheme %q", s)
}

// ParsePublicKey accepts bech32m encoded public key (tpknam1...) and the legacy hex
// form of ed25519 key found in older wallet files.
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, legacyEd25519Prefix); ok {
		key, err := hex.DecodeString(rest)
		if err != nil {
			return PublicKey{}, fmt.Errorf("decoding legacy public key: %w", err)
		}
		pk := PublicKey{Scheme: SchemeEd25519, Key: key}
		return pk, pk.validate()
	}

	hrp, data, err := decodeBech32(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decoding public key %q: %w", s, err)
	}
	if hrp != PublicKeyHRP {
		return PublicKey{}, fmt.Errorf("decoding public key %q: unexpected prefix %q", s, hrp)
	}
	if len(data) < 2 {
		return PublicKey{}, fmt.Errorf("decoding public key %q: payload too short", s)
	}
	pk := PublicKey{Scheme: KeyScheme(data[0]), Key: data[1:]}
	return pk, pk.validate()
}

func (pk PublicKey) validate() error {
	switch pk.Scheme {
	case SchemeEd25519:
		if len(pk.Key) != 32 {
			return fmt.Errorf("invalid ed25519 public key length %d", len(pk.Key))
		}
	case SchemeSecp256k1:
		if len(pk.Key) != 33 {
			return fmt.Errorf("invalid compressed secp256k1 public key length %d", len(pk.Key))
		}
	default:
		return fmt.Errorf("unsupported key scheme %d", pk.Scheme)
	}
	return nil
}

func (pk PublicKey) String() string {
	s, err := EncodeBech32(PublicKeyHRP, append([]byte{byte(pk.Scheme)}, pk.Key...))
	if err != nil {
		return ""
	}
	return s
}

func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.Scheme == other.Scheme && bytes.Equal(pk.Key, other.Key)
}

// Address returns the implicit address controlled by the key.
func (pk PublicKey) Address() Address {
	h := sha256.Sum256(append([]byte{byte(pk.Scheme)}, pk.Key...))
	addr, err := NewAddress(AddressImplicit, h[:addressHashLen])
	if err != nil {
		return ""
	}
	return addr
}

// ValidateBech32 checks that "s" is well-formed bech32m string with given prefix.
func ValidateBech32(s, hrp string) error {
	got, _, err := decodeBech32(s)
	if err != nil {
		return err
	}
	if got != hrp {
		return fmt.Errorf("expected prefix %q, got %q", hrp, got)
	}
	return nil
}

// EncodeBech32 encodes the payload as bech32m string with given prefix.
func EncodeBech32(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting bits: %w", err)
	}
	return bech32.EncodeM(hrp, conv)
}

func decodeBech32(s string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return "", nil, err
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("converting bits: %w", err)
	}
	return hrp, conv, nil
}
