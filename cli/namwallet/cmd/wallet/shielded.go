package wallet

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	cliaccount "github.com/knowable-run/namwallet/cli/namwallet/cmd/util/account"
	"github.com/knowable-run/namwallet/cli/namwallet/cmd/wallet/args"
	"github.com/knowable-run/namwallet/client/rpc"
	"github.com/knowable-run/namwallet/util"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/account"
	"github.com/knowable-run/namwallet/wallet/alias"
	"github.com/knowable-run/namwallet/wallet/shielded"
)

const (
	// paging the shielded pool is the heaviest load the wallet puts on the gateway
	syncCallsPerSecond = 20
	syncBurst          = 5

	pageSizeCmdName = "page-size"
)

func GenPaymentAddrCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen-payment-addr",
		Short: "generates payment address of a viewing key",
		Long: "generates new payment address of the viewing key and stores it under the alias, " +
			"existing payment address of the alias is kept unless the force flag is used",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecGenPaymentAddrCmd(cmd, config)
		},
	}
	cmd.Flags().String(args.AliasCmdName, "", "alias of the payment address")
	cmd.Flags().String(args.ViewingKeyCmdName, "", "alias of the viewing key")
	cmd.Flags().Bool(args.ForceCmdName, false, "generate new address even if the alias exists")
	for _, name := range []string{args.AliasCmdName, args.ViewingKeyCmdName} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func ExecGenPaymentAddrCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	addrAlias, err := cmd.Flags().GetString(args.AliasCmdName)
	if err != nil {
		return err
	}
	vkAlias, err := cmd.Flags().GetString(args.ViewingKeyCmdName)
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool(args.ForceCmdName)
	if err != nil {
		return err
	}

	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()

	rpcClient, err := newRpcClient(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer rpcClient.Close()
	masp := rpc.NewMaspAPIClient(rpcClient)

	var addr string
	var generated bool
	err = am.Update(func(m account.Manager) error {
		a, g, err := shielded.GeneratePaymentAddress(cmd.Context(), masp, m, addrAlias, vkAlias, force)
		addr, generated = a.String(), g
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate payment address: %w", err)
	}
	if generated {
		config.Base.ConsoleWriter.Printf("Successfully generated payment address %s with alias %q", addr, addrAlias)
	} else {
		config.Base.ConsoleWriter.Printf("Payment address with alias %q already exists: %s", addrAlias, addr)
	}
	return nil
}

func ShieldedSyncCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shielded-sync",
		Short: "scans the shielded pool for notes of the stored viewing keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecShieldedSyncCmd(cmd, config)
		},
	}
	cmd.Flags().String(args.ViewingKeyCmdName, "", "alias of the viewing key to sync (default all keys)")
	cmd.Flags().Uint64(pageSizeCmdName, shielded.DefaultPageSize, "number of blocks scanned with single request")
	return cmd
}

func ExecShieldedSyncCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	vkAlias, err := cmd.Flags().GetString(args.ViewingKeyCmdName)
	if err != nil {
		return err
	}
	pageSize, err := cmd.Flags().GetUint64(pageSizeCmdName)
	if err != nil {
		return err
	}

	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()

	keys := am.ListViewingKeys()
	if vkAlias != "" {
		keys = util.Filter(keys, func(k *account.ViewingKeyRecord) bool {
			return k.Alias == vkAlias
		})
		if len(keys) == 0 {
			return fmt.Errorf("%w: viewing key %q", wallet.ErrNotFound, vkAlias)
		}
	}
	if len(keys) == 0 {
		config.Base.ConsoleWriter.Println("No viewing keys in the wallet")
		return nil
	}

	db, err := shielded.OpenContext(shieldedContextFile(config))
	if err != nil {
		return err
	}
	defer db.Close()

	rpcClient, err := newRpcClient(cmd.Context(), config, rpc.WithRateLimit(syncCallsPerSecond, syncBurst))
	if err != nil {
		return err
	}
	defer rpcClient.Close()

	results, err := shielded.NewSyncer(rpc.NewMaspAPIClient(rpcClient), db, pageSize, config.Base.Logger).Sync(cmd.Context(), keys)
	for _, r := range results {
		config.Base.ConsoleWriter.Printf("Synced %q up to block %d", r.Alias, r.ToHeight)
	}
	if err != nil {
		return fmt.Errorf("shielded sync failed: %w", err)
	}
	return nil
}

func ShieldedBalanceCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shielded-balance",
		Short: "prints balance of a viewing key from the shielded context",
		Long:  "prints balance of a viewing key as of the last shielded-sync, run shielded-sync first to get up to date balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecShieldedBalanceCmd(cmd, config)
		},
	}
	cmd.Flags().String(args.OwnerCmdName, "", "alias of the viewing key")
	cmd.Flags().String(args.TokenCmdName, "", "token alias or address (default is the native token)")
	if err := cmd.MarkFlagRequired(args.OwnerCmdName); err != nil {
		panic(err)
	}
	return cmd
}

func ExecShieldedBalanceCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	owner, err := cmd.Flags().GetString(args.OwnerCmdName)
	if err != nil {
		return err
	}
	token, err := cmd.Flags().GetString(args.TokenCmdName)
	if err != nil {
		return err
	}

	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()
	vk, ok := am.FindViewingKey(owner)
	if !ok {
		return fmt.Errorf("%w: viewing key %q", wallet.ErrNotFound, owner)
	}

	chain, err := dialChainClient(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer chain.Close()

	maspEpoch, err := chain.QueryMaspEpoch(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying masp epoch: %w", err)
	}
	tokenAddr, err := resolveToken(cmd.Context(), chain, alias.NewResolver(am), token)
	if err != nil {
		return err
	}

	db, err := shielded.OpenContext(shieldedContextFile(config))
	if err != nil {
		return err
	}
	defer db.Close()

	config.Base.ConsoleWriter.Printf("Last committed masp epoch: %d", maspEpoch)
	config.Base.ConsoleWriter.Printf("%s: %s", tokenName(am, tokenAddr, token), db.Balance(vk, tokenAddr, util.NativeDenom))
	return nil
}

func shieldedContextFile(config *types.WalletConfig) string {
	return filepath.Join(config.WalletDir(), shielded.ContextFileName)
}
