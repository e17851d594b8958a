package account

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	"github.com/knowable-run/namwallet/wallet/account"
)

// LoadExistingAccountManager opens the wallet in the configured wallet dir, asking for the passphrase when needed.
func LoadExistingAccountManager(config *types.WalletConfig) (*account.FileManager, error) {
	pw, err := GetPassphrase(config, "Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	return account.NewManager(config.WalletDir(), pw, false)
}

/*
ReadPassword prints the prompt and reads passphrase from the input. Terminal
input is read without echo, any other input (pipe, file) is read up to the
line break.
*/
func ReadPassword(config *types.WalletConfig, promptMessage string) (string, error) {
	out := config.Base.ConsoleWriter
	out.Print(promptMessage)

	in := config.Input
	if in == nil {
		in = os.Stdin
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		out.Println("") // line break after reading password
		return string(pw), nil
	}
	pw, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return pw, nil
}

// readLine reads byte by byte so that the input following the line is left unread.
func readLine(in io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if sb.Len() == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}

func GetPassphrase(config *types.WalletConfig, promptMessage string) (string, error) {
	if config.PasswordFromArg != "" {
		return config.PasswordFromArg, nil
	}
	if !config.PromptPassword {
		return "", nil
	}
	return ReadPassword(config, promptMessage)
}

func CreatePassphrase(config *types.WalletConfig) (string, error) {
	if config.PasswordFromArg != "" {
		return config.PasswordFromArg, nil
	}
	if !config.PromptPassword {
		return "", nil
	}
	p1, err := ReadPassword(config, "Create new passphrase: ")
	if err != nil {
		return "", err
	}
	p2, err := ReadPassword(config, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", errors.New("passphrases do not match")
	}
	return p1, nil
}
