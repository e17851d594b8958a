package args

import (
	"fmt"
	"net"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

const (
	RpcUrl                = "rpc-url"
	DefaultRpcUrl         = "localhost:26660"
	ChainIDCmdName        = "chain-id"
	RequestTimeoutName    = "request-timeout"
	PasswordPromptUsage   = "password (interactive from prompt)"
	PasswordArgUsage      = "password (non-interactive from args)"
	SeedCmdName           = "seed"
	SchemeCmdName         = "scheme"
	PathCmdName           = "path"
	AliasCmdName          = "alias"
	SourceCmdName         = "source"
	TargetCmdName         = "target"
	ReceiverCmdName       = "receiver"
	TokenCmdName          = "token"
	OwnerCmdName          = "owner"
	AmountCmdName         = "amount"
	ChannelCmdName        = "channel-id"
	PortCmdName           = "port"
	MemoCmdName           = "memo"
	KeyCmdName            = "key"
	ViewingKeyCmdName     = "viewing-key"
	BirthdayCmdName       = "birthday"
	ForceCmdName          = "force"
	RequestFileCmdName    = "request-file"
	OutputCmdName         = "output"
	PasswordPromptCmdName = "password"
	PasswordArgCmdName    = "pn"
	WalletLocationCmdName = "wallet-location"
	WaitForConfCmdName    = "wait-for-confirmation"
	QuietCmdName          = "quiet"
	GasLimitCmdName       = "gas-limit"
	FeeAmountCmdName      = "gas-price"
)

/*
BuildRpcUrl returns gateway URL for the "url" flag value. Value may be an URL
(scheme defaults to http) or a multiaddr like "/ip4/127.0.0.1/tcp/26660" or
"/dns4/rpc.example.org/tcp/443/https".
*/
func BuildRpcUrl(url string) (string, error) {
	if strings.HasPrefix(url, "/") {
		var err error
		if url, err = multiaddrToURL(url); err != nil {
			return "", err
		}
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimSuffix(url, "/")
	if !strings.HasSuffix(url, "/rpc") {
		url = url + "/rpc"
	}
	return url, nil
}

func multiaddrToURL(s string) (string, error) {
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return "", fmt.Errorf("invalid multiaddr %q: %w", s, err)
	}
	var host, port string
	scheme := "http"
	ma.ForEach(addr, func(c ma.Component) bool {
		switch c.Protocol().Code {
		case ma.P_IP4, ma.P_IP6, ma.P_DNS, ma.P_DNS4, ma.P_DNS6:
			host = c.Value()
		case ma.P_TCP:
			port = c.Value()
		case ma.P_HTTPS, ma.P_TLS:
			scheme = "https"
		}
		return true
	})
	if host == "" || port == "" {
		return "", fmt.Errorf("multiaddr %q must have host and tcp port", s)
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}
