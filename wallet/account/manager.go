package account

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/util"
	"github.com/knowable-run/namwallet/wallet"
)

var (
	ErrAliasExists     = errors.New("alias already exists")
	ErrWalletNotExists = errors.New("wallet does not exist")
	ErrWalletExists    = errors.New("wallet already exists")
)

type (
	// Manager is the local wallet store: aliases mapped to addresses and keys.
	Manager interface {
		FindAddress(alias string) (types.Address, bool)
		FindPaymentAddress(alias string) (types.Address, bool)
		FindAlias(addr types.Address) (string, bool)
		InsertAddress(alias string, addr types.Address, overwrite bool) error
		InsertPaymentAddress(alias string, addr types.Address, overwrite bool) error
		AddKey(alias string, key *DerivedKey, overwrite bool) error
		AddViewingKey(alias, viewingKey string, birthday uint64, overwrite bool) error
		AddSpendingKey(alias, spendingKey string, overwrite bool) error
		ListPublicKeys() []*PublicKeyRecord
		ListViewingKeys() []*ViewingKeyRecord
		ListAddresses() []*AddressRecord
		FindViewingKey(alias string) (string, bool)
		SignerFor(pk types.PublicKey) (types.Signer, error)
		Load() error
		Save() error
		Close() error
	}

	PublicKeyRecord struct {
		Alias     string
		PublicKey types.PublicKey
		// Address stored under the same alias, empty when none.
		Address types.Address
		Path    string
	}

	ViewingKeyRecord struct {
		Alias    string
		Key      string
		Birthday uint64
	}

	AddressRecord struct {
		Alias   string
		Address types.Address
	}

	// FileManager keeps the wallet in "wallet.toml" in the wallet directory.
	// Writes take a file lock so that concurrent processes don't lose updates.
	FileManager struct {
		dir      string
		password string

		mu     sync.Mutex
		lock   *flock.Flock
		wallet *walletFile
	}
)

// NewManager opens the wallet in "dir". When "create" is true a new empty
// wallet is created and it is an error if the wallet already exists.
func NewManager(dir, password string, create bool) (*FileManager, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating wallet directory: %w", wallet.ErrStorageFailure, err)
	}
	m := &FileManager{
		dir:      dir,
		password: password,
		lock:     flock.New(filepath.Join(dir, WalletFileName+".lock")),
		wallet:   newWalletFile(),
	}
	exists := walletFileExists(m.filename())
	switch {
	case create && exists:
		return nil, fmt.Errorf("%w: %s", ErrWalletExists, m.filename())
	case create:
		if err := m.Save(); err != nil {
			return nil, err
		}
	case !exists:
		return nil, fmt.Errorf("%w: %s", ErrWalletNotExists, m.filename())
	default:
		if err := m.Load(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *FileManager) filename() string {
	return filepath.Join(m.dir, WalletFileName)
}

// Load replaces the in-memory state with the content of the wallet file.
func (m *FileManager) Load() error {
	if err := m.lock.RLock(); err != nil {
		return fmt.Errorf("%w: locking wallet file: %w", wallet.ErrStorageFailure, err)
	}
	defer m.lock.Unlock()

	w, err := readWalletFile(m.filename())
	if err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrStorageFailure, err)
	}
	m.mu.Lock()
	m.wallet = w
	m.mu.Unlock()
	return nil
}

// Save writes the in-memory state to the wallet file.
func (m *FileManager) Save() error {
	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("%w: locking wallet file: %w", wallet.ErrStorageFailure, err)
	}
	defer m.lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := writeWalletFile(m.filename(), m.wallet); err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrStorageFailure, err)
	}
	return nil
}

// Update runs "fn" against the latest state of the wallet file and saves the
// result, the file stays locked for the whole read-modify-write cycle. When "fn"
// fails the in-memory state is reset to what was read and nothing is written.
// "fn" must not call Load or Save.
func (m *FileManager) Update(fn func(Manager) error) error {
	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("%w: locking wallet file: %w", wallet.ErrStorageFailure, err)
	}
	defer m.lock.Unlock()

	w, err := readWalletFile(m.filename())
	if err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrStorageFailure, err)
	}
	m.mu.Lock()
	m.wallet = w
	snapshot := w.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.wallet = snapshot
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := writeWalletFile(m.filename(), m.wallet); err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrStorageFailure, err)
	}
	return nil
}

func (m *FileManager) Close() error {
	return m.lock.Close()
}

func (m *FileManager) FindAddress(alias string) (types.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.wallet.Addresses[normalizeAlias(alias)]
	return types.Address(s), ok
}

func (m *FileManager) FindPaymentAddress(alias string) (types.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.wallet.PaymentAddrs[normalizeAlias(alias)]
	return types.Address(s), ok
}

// FindAlias does reverse lookup of transparent or payment address.
func (m *FileManager) FindAlias(addr types.Address) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, section := range []map[string]string{m.wallet.Addresses, m.wallet.PaymentAddrs} {
		for alias, a := range section {
			if a == addr.String() {
				return alias, true
			}
		}
	}
	return "", false
}

func (m *FileManager) FindViewingKey(alias string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.wallet.ViewKeys[normalizeAlias(alias)]
	return e.Key, ok
}

func (m *FileManager) InsertAddress(alias string, addr types.Address, overwrite bool) error {
	if addr.IsShielded() {
		return fmt.Errorf("%w: %s is a payment address", wallet.ErrInvalidInput, addr)
	}
	return m.insert(func(w *walletFile) map[string]string { return w.Addresses }, alias, addr.String(), overwrite)
}

func (m *FileManager) InsertPaymentAddress(alias string, addr types.Address, overwrite bool) error {
	if !addr.IsShielded() {
		return fmt.Errorf("%w: %s is not a payment address", wallet.ErrInvalidInput, addr)
	}
	return m.insert(func(w *walletFile) map[string]string { return w.PaymentAddrs }, alias, addr.String(), overwrite)
}

func (m *FileManager) AddSpendingKey(alias, spendingKey string, overwrite bool) error {
	if err := types.ValidateBech32(spendingKey, types.SpendingKeyHRP); err != nil {
		return fmt.Errorf("%w: spending key: %w", wallet.ErrInvalidInput, err)
	}
	encoded, err := encodeSecret([]byte(spendingKey), m.password)
	if err != nil {
		return fmt.Errorf("encrypting spending key: %w", err)
	}
	return m.insert(func(w *walletFile) map[string]string { return w.SpendKeys }, alias, encoded, overwrite)
}

func (m *FileManager) AddViewingKey(alias, viewingKey string, birthday uint64, overwrite bool) error {
	if err := types.ValidateBech32(viewingKey, types.ViewingKeyHRP); err != nil {
		return fmt.Errorf("%w: viewing key: %w", wallet.ErrInvalidInput, err)
	}
	alias, err := validateAlias(alias)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallet.ViewKeys[alias]; ok && !overwrite {
		return fmt.Errorf("%w: %q", ErrAliasExists, alias)
	}
	m.wallet.ViewKeys[alias] = viewingKeyEntry{Key: viewingKey, Birthday: birthday}
	return nil
}

// AddKey stores the key pair and the implicit address of the key under the alias.
func (m *FileManager) AddKey(alias string, key *DerivedKey, overwrite bool) error {
	alias, err := validateAlias(alias)
	if err != nil {
		return err
	}
	secret, err := encodeSecret(append([]byte{byte(key.Scheme)}, key.PrivateKey...), m.password)
	if err != nil {
		return fmt.Errorf("encrypting secret key: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !overwrite {
		if _, ok := m.wallet.SecretKeys[alias]; ok {
			return fmt.Errorf("%w: %q", ErrAliasExists, alias)
		}
		if _, ok := m.wallet.Addresses[alias]; ok {
			return fmt.Errorf("%w: %q", ErrAliasExists, alias)
		}
	}
	m.wallet.SecretKeys[alias] = secret
	m.wallet.PublicKeys[alias] = key.PublicKey.String()
	m.wallet.Addresses[alias] = key.PublicKey.Address().String()
	if key.Path != "" {
		m.wallet.DerivationPaths[alias] = key.Path
	}
	return nil
}

// ListPublicKeys returns stored public keys sorted by alias. Entries which
// can't be parsed are skipped.
func (m *FileManager) ListPublicKeys() []*PublicKeyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*PublicKeyRecord
	for alias, s := range m.wallet.PublicKeys {
		pk, err := types.ParsePublicKey(s)
		if err != nil {
			continue
		}
		res = append(res, &PublicKeyRecord{
			Alias:     alias,
			PublicKey: pk,
			Address:   types.Address(m.wallet.Addresses[alias]),
			Path:      m.wallet.DerivationPaths[alias],
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Alias < res[j].Alias })
	return res
}

func (m *FileManager) ListViewingKeys() []*ViewingKeyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*ViewingKeyRecord
	for alias, e := range m.wallet.ViewKeys {
		res = append(res, &ViewingKeyRecord{Alias: alias, Key: e.Key, Birthday: e.Birthday})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Alias < res[j].Alias })
	return res
}

func (m *FileManager) ListAddresses() []*AddressRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*AddressRecord
	for _, section := range []map[string]string{m.wallet.Addresses, m.wallet.PaymentAddrs} {
		for alias, a := range section {
			res = append(res, &AddressRecord{Alias: alias, Address: types.Address(a)})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Alias < res[j].Alias })
	return res
}

// SignerFor returns signer of the stored secret key matching the public key.
func (m *FileManager) SignerFor(pk types.PublicKey) (types.Signer, error) {
	m.mu.Lock()
	var encoded string
	for alias, s := range m.wallet.PublicKeys {
		stored, err := types.ParsePublicKey(s)
		if err == nil && stored.Equal(pk) {
			encoded = m.wallet.SecretKeys[alias]
			break
		}
	}
	m.mu.Unlock()
	if encoded == "" {
		return nil, fmt.Errorf("%w: secret key for %s", wallet.ErrNotFound, pk)
	}

	secret, err := decodeSecret(encoded, m.password)
	if err != nil {
		return nil, fmt.Errorf("decoding secret key for %s: %w", pk, err)
	}
	defer zeroBytes(secret)
	if len(secret) < 2 {
		return nil, fmt.Errorf("decoding secret key for %s: too short", pk)
	}
	signer, err := types.NewSigner(types.KeyScheme(secret[0]), secret[1:])
	if err != nil {
		return nil, err
	}
	if !signer.PublicKey().Equal(pk) {
		return nil, fmt.Errorf("stored secret key does not match public key %s", pk)
	}
	return signer, nil
}

// Encrypted returns true if any of the stored secrets is encrypted.
func (m *FileManager) Encrypted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.wallet.SecretKeys {
		if isEncrypted(s) {
			return true
		}
	}
	return false
}

func (m *FileManager) insert(section func(*walletFile) map[string]string, alias, value string, overwrite bool) error {
	alias, err := validateAlias(alias)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := section(m.wallet)
	if _, ok := s[alias]; ok && !overwrite {
		return fmt.Errorf("%w: %q", ErrAliasExists, alias)
	}
	s[alias] = value
	return nil
}

// KeysForAddress filters the records to the keys controlling "addr": either
// the implicit address of the key is "addr" or the alias of the key maps to it.
func KeysForAddress(records []*PublicKeyRecord, addr types.Address) []*PublicKeyRecord {
	return util.Filter(records, func(r *PublicKeyRecord) bool {
		return r.PublicKey.Address() == addr || r.Address == addr
	})
}

func normalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

func validateAlias(alias string) (string, error) {
	alias = normalizeAlias(alias)
	if alias == "" {
		return "", fmt.Errorf("%w: alias must not be empty", wallet.ErrInvalidInput)
	}
	if strings.ContainsAny(alias, " \t\n.\"") {
		return "", fmt.Errorf("%w: alias %q contains invalid characters", wallet.ErrInvalidInput, alias)
	}
	return alias, nil
}
