package mocksrv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/knowable-run/namwallet/client/types"
)

type (
	// GatewayMock is in-memory chain gateway. Fields may be inspected by tests
	// after the calls completed, use the lock when the server is still in use.
	GatewayMock struct {
		mu sync.Mutex

		Accounts    map[types.Address]*types.AccountInfo
		Balances    map[string]string
		Epoch       uint64
		MaspEpoch   uint64
		NativeToken types.Address
		// RejectKinds sets the result code returned for submissions of given kind.
		RejectKinds map[types.TxKind]uint32
		// RevealOnSubmit applies successful reveal transactions to Accounts on
		// submit, otherwise when their result becomes visible.
		RevealOnSubmit bool
		// IgnoreReveals keeps accounts unrevealed whatever is submitted.
		IgnoreReveals bool
		// PendingPolls is the number of tx_getResult calls returning no result
		// before the transaction is included.
		PendingPolls int
		// RevealRequired rejects transfers from accounts without public key.
		RevealRequired bool
		SentTxs        []*types.Transaction
		TxResults      map[string]*types.TxResponse
		Calls          map[string]int

		pending map[string]*pendingTx

		MaspHeight   uint64
		Notes        map[string][]Note
		PaymentAddrs map[string]types.Address

		Err error
	}

	Note struct {
		Height uint64
		Token  types.Address
		Delta  string
	}

	Option func(*GatewayMock)

	pendingTx struct {
		tx    *types.Transaction
		polls int
	}

	accountAPI struct{ m *GatewayMock }
	txAPI      struct{ m *GatewayMock }
	chainAPI   struct{ m *GatewayMock }
	tokenAPI   struct{ m *GatewayMock }
	maspAPI    struct{ m *GatewayMock }
)

func NewGatewayMock(opts ...Option) *GatewayMock {
	m := &GatewayMock{
		Accounts:       map[types.Address]*types.AccountInfo{},
		Balances:       map[string]string{},
		RejectKinds:    map[types.TxKind]uint32{},
		RevealOnSubmit: true,
		TxResults:      map[string]*types.TxResponse{},
		Calls:          map[string]int{},
		Notes:          map[string][]Note{},
		PaymentAddrs:   map[string]types.Address{},
		pending:        map[string]*pendingTx{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func WithAccount(info *types.AccountInfo) Option {
	return func(m *GatewayMock) {
		m.Accounts[info.Address] = info
	}
}

func WithBalance(token, owner types.Address, raw string) Option {
	return func(m *GatewayMock) {
		m.Balances[balanceKey(token, owner)] = raw
	}
}

func WithNativeToken(token types.Address) Option {
	return func(m *GatewayMock) {
		m.NativeToken = token
	}
}

func WithEpochs(epoch, maspEpoch uint64) Option {
	return func(m *GatewayMock) {
		m.Epoch = epoch
		m.MaspEpoch = maspEpoch
	}
}

func WithRejectedKind(kind types.TxKind, code uint32) Option {
	return func(m *GatewayMock) {
		m.RejectKinds[kind] = code
	}
}

func WithNotes(viewingKey string, maspHeight uint64, notes ...Note) Option {
	return func(m *GatewayMock) {
		m.Notes[viewingKey] = append(m.Notes[viewingKey], notes...)
		m.MaspHeight = max(m.MaspHeight, maspHeight)
	}
}

func WithPaymentAddress(viewingKey string, addr types.Address) Option {
	return func(m *GatewayMock) {
		m.PaymentAddrs[viewingKey] = addr
	}
}

// WithDeferredReveal applies reveal transactions only after "polls" result queries.
func WithDeferredReveal(polls int) Option {
	return func(m *GatewayMock) {
		m.RevealOnSubmit = false
		m.PendingPolls = polls
	}
}

func WithRevealRequired() Option {
	return func(m *GatewayMock) {
		m.RevealRequired = true
	}
}

// WithIgnoredReveals accepts reveal transactions without revealing anything.
func WithIgnoredReveals() Option {
	return func(m *GatewayMock) {
		m.IgnoreReveals = true
	}
}

func WithError(err error) Option {
	return func(m *GatewayMock) {
		m.Err = err
	}
}

// Services returns the gateway namespaces to be registered in the RPC server.
func (m *GatewayMock) Services() map[string]interface{} {
	return map[string]interface{}{
		"account": &accountAPI{m},
		"tx":      &txAPI{m},
		"chain":   &chainAPI{m},
		"token":   &tokenAPI{m},
		"masp":    &maspAPI{m},
	}
}

func (m *GatewayMock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *GatewayMock) SentTransactions() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Transaction(nil), m.SentTxs...)
}

func (m *GatewayMock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *GatewayMock) SetPaymentAddress(viewingKey string, addr types.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentAddrs[viewingKey] = addr
}

func (m *GatewayMock) enter(method string) error {
	m.mu.Lock()
	m.Calls[method]++
	return m.Err
}

func (a *accountAPI) GetInfo(addr types.Address) (*types.AccountInfo, error) {
	m := a.m
	err := m.enter("account_getInfo")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.Accounts[addr], nil
}

func (a *txAPI) Submit(ctx context.Context, txBytes hexutil.Bytes) (*types.TxResponse, error) {
	m := a.m
	err := m.enter("tx_submit")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	tx, err := types.DecodeTransaction(txBytes)
	if err != nil {
		return nil, err
	}
	if err := types.VerifyTx(tx); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}
	txHash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	m.SentTxs = append(m.SentTxs, tx)

	resp := &types.TxResponse{Hash: txHash, Height: uint64(len(m.SentTxs)), GasUsed: 1000}
	if code, ok := m.RejectKinds[tx.Kind]; ok {
		resp.Code = code
		resp.Log = fmt.Sprintf("%s rejected", tx.Kind)
	} else if m.RevealRequired && tx.Kind != types.TxKindRevealPK {
		source, err := transferSource(tx)
		if err != nil {
			return nil, err
		}
		if !m.Accounts[source].Revealed() {
			resp.Code = 2
			resp.Log = fmt.Sprintf("public key of %s is not revealed", source)
		}
	}
	if resp.Success() && tx.Kind == types.TxKindRevealPK && m.RevealOnSubmit {
		if err := m.applyReveal(tx); err != nil {
			return nil, err
		}
	}
	m.TxResults[string(txHash)] = resp
	m.pending[string(txHash)] = &pendingTx{tx: tx, polls: m.PendingPolls}
	return resp, nil
}

func transferSource(tx *types.Transaction) (types.Address, error) {
	if tx.Kind == types.TxKindIBCTransfer {
		var attr types.IBCTransferAttributes
		err := tx.UnmarshalData(&attr)
		return attr.Source, err
	}
	var attr types.TransferAttributes
	err := tx.UnmarshalData(&attr)
	return attr.Source, err
}

func (m *GatewayMock) applyReveal(tx *types.Transaction) error {
	if m.IgnoreReveals {
		return nil
	}
	var attr types.RevealPKAttributes
	if err := tx.UnmarshalData(&attr); err != nil {
		return err
	}
	pk, err := types.ParsePublicKey(attr.PublicKey)
	if err != nil {
		return err
	}
	addr := pk.Address()
	info, ok := m.Accounts[addr]
	if !ok {
		info = &types.AccountInfo{Address: addr, Threshold: 1}
		m.Accounts[addr] = info
	}
	if info.PublicKeys == nil {
		info.PublicKeys = map[uint8]string{}
	}
	info.PublicKeys[uint8(len(info.PublicKeys))] = attr.PublicKey
	return nil
}

func (a *txAPI) GetResult(txHash hexutil.Bytes) (*types.TxResponse, error) {
	m := a.m
	err := m.enter("tx_getResult")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	res, ok := m.TxResults[string(txHash)]
	if !ok {
		return nil, nil
	}
	if p, ok := m.pending[string(txHash)]; ok {
		if p.polls > 0 {
			p.polls--
			return nil, nil
		}
		delete(m.pending, string(txHash))
		if res.Success() && p.tx.Kind == types.TxKindRevealPK && !m.RevealOnSubmit {
			if err := m.applyReveal(p.tx); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func (a *chainAPI) Epoch() (uint64, error) {
	m := a.m
	err := m.enter("chain_epoch")
	defer m.mu.Unlock()
	return m.Epoch, err
}

func (a *chainAPI) MaspEpoch() (uint64, error) {
	m := a.m
	err := m.enter("chain_maspEpoch")
	defer m.mu.Unlock()
	return m.MaspEpoch, err
}

func (a *chainAPI) NativeToken() (string, error) {
	m := a.m
	err := m.enter("chain_nativeToken")
	defer m.mu.Unlock()
	if err != nil {
		return "", err
	}
	if m.NativeToken == "" {
		return "", errors.New("native token not configured")
	}
	return m.NativeToken.String(), nil
}

func (a *tokenAPI) Balance(token, owner types.Address) (string, error) {
	m := a.m
	err := m.enter("token_balance")
	defer m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return m.Balances[balanceKey(token, owner)], nil
}

func (a *maspAPI) LatestHeight() (uint64, error) {
	m := a.m
	err := m.enter("masp_latestHeight")
	defer m.mu.Unlock()
	return m.MaspHeight, err
}

func (a *maspAPI) ScanNotes(viewingKey string, fromHeight, toHeight uint64) (*types.NoteScan, error) {
	m := a.m
	err := m.enter("masp_scanNotes")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sums := map[types.Address]decimal.Decimal{}
	for _, n := range m.Notes[viewingKey] {
		if n.Height < fromHeight || n.Height > toHeight {
			continue
		}
		d, err := decimal.NewFromString(n.Delta)
		if err != nil {
			return nil, err
		}
		sums[n.Token] = sums[n.Token].Add(d)
	}
	res := &types.NoteScan{FromHeight: fromHeight, ToHeight: toHeight, Deltas: map[types.Address]string{}}
	for token, sum := range sums {
		res.Deltas[token] = sum.String()
	}
	return res, nil
}

func (a *maspAPI) PaymentAddress(viewingKey string) (string, error) {
	m := a.m
	err := m.enter("masp_paymentAddress")
	defer m.mu.Unlock()
	if err != nil {
		return "", err
	}
	addr, ok := m.PaymentAddrs[viewingKey]
	if !ok {
		return "", fmt.Errorf("unknown viewing key")
	}
	return addr.String(), nil
}

func balanceKey(token, owner types.Address) string {
	return token.String() + "/" + owner.String()
}
