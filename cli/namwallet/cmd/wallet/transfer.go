package wallet

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	cliaccount "github.com/knowable-run/namwallet/cli/namwallet/cmd/util/account"
	"github.com/knowable-run/namwallet/cli/namwallet/cmd/wallet/args"
	clienttypes "github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/reveal"
	"github.com/knowable-run/namwallet/wallet/transfer"
	"github.com/knowable-run/namwallet/wallet/workflow"
)

func RevealCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reveal",
		Short: "reveals public key of the source on chain",
		Long:  "submits reveal transaction for every wallet key of the source unless the chain already knows a public key of the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecRevealCmd(cmd, config)
		},
	}
	cmd.Flags().String(args.SourceCmdName, "", "source alias or address")
	if err := cmd.MarkFlagRequired(args.SourceCmdName); err != nil {
		panic(err)
	}
	addTxFlags(cmd)
	return cmd
}

func ExecRevealCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	source, err := cmd.Flags().GetString(args.SourceCmdName)
	if err != nil {
		return err
	}
	return withWorkflow(cmd, config, func(wf *workflow.Workflow) error {
		res, err := wf.Reveal(cmd.Context(), source)
		if err != nil {
			return err
		}
		if res.Reveal == reveal.AlreadyRevealed {
			config.Base.ConsoleWriter.Printf("Public key of %s is already revealed", res.Source)
		} else {
			config.Base.ConsoleWriter.Printf("Revealed public key of %s", res.Source)
		}
		return nil
	})
}

func TransferCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "transfers tokens between transparent addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecTransferCmd(cmd, config, transfer.Transparent)
		},
	}
	addTransferFlags(cmd, "target alias or address")
	return cmd
}

func ShieldCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shield",
		Short: "transfers tokens from transparent address to payment address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecTransferCmd(cmd, config, transfer.Shielding)
		},
	}
	addTransferFlags(cmd, "payment address or its alias")
	return cmd
}

func IBCTransferCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ibc-transfer",
		Short: "transfers tokens to another chain over IBC",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecTransferCmd(cmd, config, transfer.IBC)
		},
	}
	addTransferFlags(cmd, "receiver address on the destination chain")
	cmd.Flags().String(args.ChannelCmdName, "", "IBC channel (default "+transfer.DefaultIBCChannel+")")
	cmd.Flags().String(args.PortCmdName, "", "IBC port (default transfer)")
	cmd.Flags().String(args.MemoCmdName, "", "memo of the transfer (default describes the transfer)")
	return cmd
}

func addTransferFlags(cmd *cobra.Command, targetUsage string) {
	cmd.Flags().String(args.SourceCmdName, "", "source alias or address")
	cmd.Flags().String(args.TargetCmdName, "", targetUsage)
	cmd.Flags().String(args.TokenCmdName, "", "token alias or address (default is the native token)")
	cmd.Flags().StringP(args.AmountCmdName, "v", "", "amount to transfer")
	cmd.Flags().String(args.RequestFileCmdName, "", "read the transfer from file (json, yaml or plist) instead of flags")
	cmd.MarkFlagsMutuallyExclusive(args.RequestFileCmdName, args.SourceCmdName)
	cmd.MarkFlagsMutuallyExclusive(args.RequestFileCmdName, args.TargetCmdName)
	cmd.MarkFlagsMutuallyExclusive(args.RequestFileCmdName, args.AmountCmdName)
	addTxFlags(cmd)
}

func addTxFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64(args.GasLimitCmdName, 0, "gas limit of the transaction (default is set by the chain)")
	cmd.Flags().String(args.FeeAmountCmdName, "", "fee amount per gas unit in native token (default is set by the chain)")
}

func ExecTransferCmd(cmd *cobra.Command, config *types.WalletConfig, kind transfer.Kind) error {
	order, err := readOrder(cmd, kind)
	if err != nil {
		return err
	}
	return withWorkflow(cmd, config, func(wf *workflow.Workflow) error {
		res, err := wf.Transfer(cmd.Context(), order)
		if err != nil {
			if workflow.IsRevealFailure(err) {
				return fmt.Errorf("transfer not attempted, revealing public key of the source failed: %w", err)
			}
			return err
		}
		if res.Reveal == reveal.Revealed {
			config.Base.ConsoleWriter.Printf("Revealed public key of %s", res.Source)
		}
		printReceipt(config, res.Receipt)
		return nil
	})
}

func printReceipt(config *types.WalletConfig, r *transfer.Receipt) {
	if r.Confirmed {
		config.Base.ConsoleWriter.Printf("Successfully confirmed %s transaction %s at height %d, gas used %d", r.Kind, r.TxHash, r.Height, r.GasUsed)
	} else {
		config.Base.ConsoleWriter.Printf("Successfully sent %s transaction %s", r.Kind, r.TxHash)
	}
}

func readOrder(cmd *cobra.Command, kind transfer.Kind) (*workflow.Order, error) {
	if cmd.Flags().Changed(args.RequestFileCmdName) {
		filename, err := cmd.Flags().GetString(args.RequestFileCmdName)
		if err != nil {
			return nil, err
		}
		order, err := workflow.ReadOrderFile(filename)
		if err != nil {
			return nil, err
		}
		if order.Kind == "" {
			order.Kind = kind.String()
		}
		if k, err := transfer.ParseKind(order.Kind); err != nil || k != kind {
			return nil, fmt.Errorf("%w: request file is for %q transfer, expected %s", wallet.ErrInvalidInput, order.Kind, kind)
		}
		return order, nil
	}

	order := &workflow.Order{Kind: kind.String()}
	fields := []struct {
		name     string
		value    *string
		required bool
	}{
		{args.SourceCmdName, &order.Source, true},
		{args.TargetCmdName, &order.Target, true},
		{args.AmountCmdName, &order.Amount, true},
		{args.TokenCmdName, &order.Token, false},
		{args.ChannelCmdName, &order.Channel, false},
		{args.PortCmdName, &order.Port, false},
		{args.MemoCmdName, &order.Memo, false},
	}
	for _, f := range fields {
		if cmd.Flags().Lookup(f.name) == nil {
			continue
		}
		v, err := cmd.Flags().GetString(f.name)
		if err != nil {
			return nil, err
		}
		if f.required && v == "" {
			return nil, fmt.Errorf("either %q or %q flag must be set", f.name, args.RequestFileCmdName)
		}
		*f.value = v
	}
	return order, nil
}

func txOptions(cmd *cobra.Command) ([]clienttypes.Option, error) {
	var opts []clienttypes.Option
	if cmd.Flags().Changed(args.GasLimitCmdName) {
		gasLimit, err := cmd.Flags().GetUint64(args.GasLimitCmdName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clienttypes.WithGasLimit(gasLimit))
	}
	if cmd.Flags().Changed(args.FeeAmountCmdName) {
		fee, err := cmd.Flags().GetString(args.FeeAmountCmdName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clienttypes.WithFeeAmountPerGasUnit(fee))
	}
	return opts, nil
}

// withWorkflow loads the wallet, connects to the gateway and calls "f" with the workflow.
func withWorkflow(cmd *cobra.Command, config *types.WalletConfig, f func(wf *workflow.Workflow) error) error {
	if config.ChainID == "" {
		return fmt.Errorf("%w: %q flag must be set", wallet.ErrInvalidInput, args.ChainIDCmdName)
	}
	opts, err := txOptions(cmd)
	if err != nil {
		return err
	}

	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()

	chain, err := dialChainClient(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer chain.Close()

	ctx, span := config.Tracer().Start(cmd.Context(), cmd.Name())
	defer span.End()
	wf, err := workflow.New(ctx, workflow.Config{
		ChainID:             config.ChainID,
		WaitForConfirmation: config.WaitForConfirmation,
		TxOptions:           opts,
	}, chain, am, config.Base.Observe, config.Base.Logger)
	if err != nil {
		return err
	}
	cmd.SetContext(ctx)
	return f(wf)
}
