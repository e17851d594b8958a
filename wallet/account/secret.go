package account

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	unencryptedPrefix = "unencrypted:"
	encryptedPrefix   = "encrypted:"

	envelopeVersion = 1
	saltSize        = 16
	kdfTime         = 2
	kdfMemoryKB     = 64 * 1024
	kdfThreads      = 1
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrPasswordNeeded  = errors.New("secret key is encrypted, password is required")
)

type envelope struct {
	Version    uint32 `json:"version"`
	KDF        string `json:"kdf"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// encodeSecret returns the wallet file representation of the secret, encrypted
// when password is not empty.
func encodeSecret(secret []byte, password string) (string, error) {
	if password == "" {
		return unencryptedPrefix + hex.EncodeToString(secret), nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := deriveEncryptionKey(password, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	env := envelope{
		Version:    envelopeVersion,
		KDF:        "argon2id",
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, secret, nil),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

func decodeSecret(s, password string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, unencryptedPrefix); ok {
		return hex.DecodeString(rest)
	}
	rest, ok := strings.CutPrefix(s, encryptedPrefix)
	if !ok {
		return nil, errors.New("unknown secret encoding")
	}
	if password == "" {
		return nil, ErrPasswordNeeded
	}
	raw, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, fmt.Errorf("decoding secret envelope: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding secret envelope: %w", err)
	}
	if env.Version != envelopeVersion || env.KDF != "argon2id" {
		return nil, fmt.Errorf("unsupported secret envelope version %d (%s)", env.Version, env.KDF)
	}
	key := deriveEncryptionKey(password, env.Salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	secret, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return secret, nil
}

func isEncrypted(s string) bool {
	return strings.HasPrefix(s, encryptedPrefix)
}

func deriveEncryptionKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
