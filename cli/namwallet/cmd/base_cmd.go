package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/tools"
	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	"github.com/knowable-run/namwallet/cli/namwallet/cmd/wallet"
)

type WalletApp struct {
	baseCmd  *cobra.Command
	baseConf *types.BaseConfiguration
}

// New creates a new wallet application
func New() *WalletApp {
	baseCmd, baseConfig := newBaseCmd()
	app := &WalletApp{baseCmd: baseCmd, baseConf: baseConfig}
	app.AddSubcommands()
	return app
}

// Execute runs the application
func (a *WalletApp) Execute(ctx context.Context) (err error) {
	defer func() {
		if a.baseConf.Observe != nil {
			err = errors.Join(err, a.baseConf.Observe.Shutdown())
		}
	}()

	return a.baseCmd.ExecuteContext(ctx)
}

func (a *WalletApp) AddSubcommands() {
	a.baseCmd.AddCommand(wallet.NewWalletCmd(a.baseConf))
	a.baseCmd.AddCommand(tools.NewToolsCmd())
}

func newBaseCmd() (*cobra.Command, *types.BaseConfiguration) {
	config := &types.BaseConfiguration{}
	// BaseCmd represents the base command when called without any subcommands
	var baseCmd = &cobra.Command{
		Use:           "namwallet",
		Short:         "The namada wallet CLI",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// You can bind cobra and viper in a few locations, but PersistencePreRunE on the base command works well
			// If subcommand does not define PersistentPreRunE, the one from base cmd is used.
			if err := types.InitializeConfig(cmd, config); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	config.AddConfigurationFlags(baseCmd)
	return baseCmd, config
}
