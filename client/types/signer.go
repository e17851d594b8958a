package types

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

type (
	Signer interface {
		PublicKey() PublicKey
		Sign(msg []byte) ([]byte, error)
	}

	Ed25519Signer struct {
		privKey ed25519.PrivateKey
	}

	Secp256k1Signer struct {
		privKey *btcec.PrivateKey
	}
)

// NewSigner creates signer for the private key of the given scheme, for ed25519 the
// key is the 32 byte seed.
func NewSigner(scheme KeyScheme, privKey []byte) (Signer, error) {
	switch scheme {
	case SchemeEd25519:
		return NewEd25519Signer(privKey)
	case SchemeSecp256k1:
		return NewSecp256k1Signer(privKey)
	}
	return nil, fmt.Errorf("unsupported key scheme %d", scheme)
}

func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(seed))
	}
	return &Ed25519Signer{privKey: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) PublicKey() PublicKey {
	return PublicKey{Scheme: SchemeEd25519, Key: []byte(s.privKey.Public().(ed25519.PublicKey))}
}

func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.privKey, msg), nil
}

func NewSecp256k1Signer(privKey []byte) (*Secp256k1Signer, error) {
	if len(privKey) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid secp256k1 private key length %d", len(privKey))
	}
	key, _ := btcec.PrivKeyFromBytes(privKey)
	return &Secp256k1Signer{privKey: key}, nil
}

func (s *Secp256k1Signer) PublicKey() PublicKey {
	return PublicKey{Scheme: SchemeSecp256k1, Key: s.privKey.PubKey().SerializeCompressed()}
}

func (s *Secp256k1Signer) Sign(msg []byte) ([]byte, error) {
	h := sha256.Sum256(msg)
	return ecdsa.Sign(s.privKey, h[:]).Serialize(), nil
}

func (pk PublicKey) Verify(msg, sig []byte) error {
	switch pk.Scheme {
	case SchemeEd25519:
		if len(pk.Key) != ed25519.PublicKeySize || !ed25519.Verify(pk.Key, msg, sig) {
			return errors.New("invalid ed25519 signature")
		}
		return nil
	case SchemeSecp256k1:
		pub, err := btcec.ParsePubKey(pk.Key)
		if err != nil {
			return fmt.Errorf("parsing secp256k1 public key: %w", err)
		}
		signature, err := ecdsa.ParseDERSignature(sig)
		if err != nil {
			return fmt.Errorf("parsing secp256k1 signature: %w", err)
		}
		h := sha256.Sum256(msg)
		if !signature.Verify(h[:], pub) {
			return errors.New("invalid secp256k1 signature")
		}
		return nil
	}
	return fmt.Errorf("unsupported key scheme %d", pk.Scheme)
}

// SignTx adds signature of every signer to the transaction.
func SignTx(tx *Transaction, signers ...Signer) error {
	if len(signers) == 0 {
		return errors.New("no signers")
	}
	sigBytes, err := tx.SigBytes()
	if err != nil {
		return fmt.Errorf("failed to encode transaction for signing: %w", err)
	}
	for _, signer := range signers {
		sig, err := signer.Sign(sigBytes)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}
		tx.Signatures = append(tx.Signatures, &Signature{PublicKey: signer.PublicKey().String(), Signature: sig})
	}
	return nil
}

// VerifyTx checks that the transaction is signed and all the signatures are valid.
func VerifyTx(tx *Transaction) error {
	if !tx.Signed() {
		return errors.New("transaction is not signed")
	}
	sigBytes, err := tx.SigBytes()
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	for i, sig := range tx.Signatures {
		pk, err := ParsePublicKey(sig.PublicKey)
		if err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
		if err := pk.Verify(sigBytes, sig.Signature); err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
	}
	return nil
}
