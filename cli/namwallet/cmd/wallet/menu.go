package wallet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
)

type Action int

const (
	ActionExit Action = iota
	ActionCreate
	ActionAddKey
	ActionAddViewingKey
	ActionAddSpendingKey
	ActionAddress
	ActionGetPubKeys
	ActionBalance
	ActionEpoch
	ActionGenPaymentAddr
	ActionShieldedSync
	ActionShieldedBalance
	ActionReveal
	ActionTransfer
	ActionShield
	ActionIBCTransfer
)

// actionCommands maps menu actions to the constructors of the wallet commands.
var actionCommands = map[Action]func(*types.WalletConfig) *cobra.Command{
	ActionCreate:          CreateCmd,
	ActionAddKey:          AddKeyCmd,
	ActionAddViewingKey:   AddViewingKeyCmd,
	ActionAddSpendingKey:  AddSpendingKeyCmd,
	ActionAddress:         AddressCmd,
	ActionGetPubKeys:      GetPubKeysCmd,
	ActionBalance:         GetBalanceCmd,
	ActionEpoch:           EpochCmd,
	ActionGenPaymentAddr:  GenPaymentAddrCmd,
	ActionShieldedSync:    ShieldedSyncCmd,
	ActionShieldedBalance: ShieldedBalanceCmd,
	ActionReveal:          RevealCmd,
	ActionTransfer:        TransferCmd,
	ActionShield:          ShieldCmd,
	ActionIBCTransfer:     IBCTransferCmd,
}

// actions returns the actions with command, in menu order.
func actions() []Action {
	res := make([]Action, 0, len(actionCommands))
	for a := range actionCommands {
		res = append(res, a)
	}
	slices.Sort(res)
	return res
}

func ParseAction(s string) (Action, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid choice %q", s)
	}
	a := Action(n)
	if _, ok := actionCommands[a]; !ok && a != ActionExit {
		return 0, fmt.Errorf("invalid choice %q", s)
	}
	return a, nil
}

func MenuCmd(config *types.WalletConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "interactive menu of the wallet commands",
		Long: "interactive menu of the wallet commands: choose the command by number and enter " +
			"its flags on the next line, ie '--source alice --target bob --amount 10'",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecMenuCmd(cmd, config)
		},
	}
}

/*
ExecMenuCmd runs actions chosen by the user until exit is chosen or input ends.
Failure of an action is printed and the menu continues.
*/
func ExecMenuCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	out := config.Base.ConsoleWriter
	in := bufio.NewReader(cmd.InOrStdin())
	for {
		printMenu(out, config)
		line, err := readLine(in)
		if err != nil {
			return ignoreEOF(err)
		}
		action, err := ParseAction(line)
		if err != nil {
			out.Println(err.Error())
			continue
		}
		if action == ActionExit {
			return nil
		}

		out.Print("Flags: ")
		line, err = readLine(in)
		if err != nil {
			return ignoreEOF(err)
		}
		flags, err := splitFlags(line)
		if err != nil {
			out.Println("Error: " + err.Error())
			continue
		}
		if err := runAction(cmd, config, action, flags); err != nil {
			out.Println("Error: " + err.Error())
		}
	}
}

func printMenu(out types.ConsoleWrapper, config *types.WalletConfig) {
	for _, a := range actions() {
		c := actionCommands[a](config)
		out.Printf("%2d) %s - %s", a, c.Name(), c.Short)
	}
	out.Printf("%2d) exit", ActionExit)
	out.Print("Choose action: ")
}

func runAction(parent *cobra.Command, config *types.WalletConfig, action Action, flags []string) error {
	c := actionCommands[action](config)
	c.SilenceErrors = true
	c.SilenceUsage = true
	c.SetArgs(flags)
	c.SetIn(parent.InOrStdin())
	c.SetOut(parent.OutOrStdout())
	return c.ExecuteContext(parent.Context())
}

// readLine returns io.EOF only when there is no more input, last line doesn't need line break.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// splitFlags splits the flags line the way a shell would, single and double
// quotes group words and backslash escapes the next character.
// Unquoted "#" starts a comment.
func splitFlags(line string) ([]string, error) {
	flags, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return flags, nil
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
