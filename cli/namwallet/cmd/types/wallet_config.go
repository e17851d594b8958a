package types

import (
	"io"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const defaultWalletDir = "wallet"

type WalletConfig struct {
	Base            *BaseConfiguration
	WalletHomeDir   string
	PasswordFromArg string
	PromptPassword  bool
	// Input is where the passphrase prompt reads from, stdin when nil.
	Input io.Reader

	RpcUrl              string
	ChainID             string
	RequestTimeout      time.Duration
	WaitForConfirmation bool
}

func (wc *WalletConfig) Tracer() trace.Tracer {
	return wc.Base.Observe.Tracer("namwallet")
}

// WalletDir returns the wallet directory, "$NW_HOME/wallet" unless set explicitly.
func (wc *WalletConfig) WalletDir() string {
	if wc.WalletHomeDir != "" {
		return wc.WalletHomeDir
	}
	return filepath.Join(wc.Base.HomeDir, defaultWalletDir)
}
