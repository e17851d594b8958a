package account

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const WalletFileName = "wallet.toml"

type (
	// walletFile is the on-disk layout of the wallet, every section maps alias to value.
	walletFile struct {
		ViewKeys        map[string]viewingKeyEntry `toml:"view_keys"`
		SpendKeys       map[string]string          `toml:"spend_keys"`
		PublicKeys      map[string]string          `toml:"public_keys"`
		SecretKeys      map[string]string          `toml:"secret_keys"`
		Addresses       map[string]string          `toml:"addresses"`
		PaymentAddrs    map[string]string          `toml:"payment_addrs"`
		DerivationPaths map[string]string          `toml:"derivation_paths"`
	}

	viewingKeyEntry struct {
		Key      string `toml:"key"`
		Birthday uint64 `toml:"birthday,omitempty"`
	}
)

func newWalletFile() *walletFile {
	w := &walletFile{}
	w.init()
	return w
}

func (w *walletFile) init() {
	if w.ViewKeys == nil {
		w.ViewKeys = map[string]viewingKeyEntry{}
	}
	if w.SpendKeys == nil {
		w.SpendKeys = map[string]string{}
	}
	if w.PublicKeys == nil {
		w.PublicKeys = map[string]string{}
	}
	if w.SecretKeys == nil {
		w.SecretKeys = map[string]string{}
	}
	if w.Addresses == nil {
		w.Addresses = map[string]string{}
	}
	if w.PaymentAddrs == nil {
		w.PaymentAddrs = map[string]string{}
	}
	if w.DerivationPaths == nil {
		w.DerivationPaths = map[string]string{}
	}
}

func (w *walletFile) clone() *walletFile {
	return &walletFile{
		ViewKeys:        maps.Clone(w.ViewKeys),
		SpendKeys:       maps.Clone(w.SpendKeys),
		PublicKeys:      maps.Clone(w.PublicKeys),
		SecretKeys:      maps.Clone(w.SecretKeys),
		Addresses:       maps.Clone(w.Addresses),
		PaymentAddrs:    maps.Clone(w.PaymentAddrs),
		DerivationPaths: maps.Clone(w.DerivationPaths),
	}
}

// readWalletFile returns fs.ErrNotExist wrapped error when the file does not exist.
func readWalletFile(filename string) (*walletFile, error) {
	data, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}
	w := &walletFile{}
	if err := toml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("decoding wallet file %s: %w", filename, err)
	}
	w.init()
	return w, nil
}

// writeWalletFile replaces the wallet file atomically.
func writeWalletFile(filename string, w *walletFile) (err error) {
	data, err := toml.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding wallet file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), WalletFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary wallet file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing wallet file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing wallet file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing wallet file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("setting wallet file permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("replacing wallet file: %w", err)
	}
	return nil
}

func walletFileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !errors.Is(err, fs.ErrNotExist)
}
