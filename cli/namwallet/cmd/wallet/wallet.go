package wallet

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	cliaccount "github.com/knowable-run/namwallet/cli/namwallet/cmd/util/account"
	"github.com/knowable-run/namwallet/cli/namwallet/cmd/wallet/args"
	"github.com/knowable-run/namwallet/client/rpc"
	clienttypes "github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/util"
	"github.com/knowable-run/namwallet/wallet/account"
	"github.com/knowable-run/namwallet/wallet/alias"
)

const defaultKeyAlias = "main"

// NewWalletCmd creates a new cobra command for the wallet component.
func NewWalletCmd(baseConfig *types.BaseConfiguration) *cobra.Command {
	config := &types.WalletConfig{Base: baseConfig}
	var walletCmd = &cobra.Command{
		Use:   "wallet",
		Short: "cli for managing namada wallet",
		PersistentPreRunE: func(ccmd *cobra.Command, args []string) error {
			// initialize config so that baseConf.HomeDir gets configured
			if err := types.InitializeConfig(ccmd, baseConfig); err != nil {
				return fmt.Errorf("initializing base configuration: %w", err)
			}

			if err := InitWalletConfig(ccmd, config); err != nil {
				return fmt.Errorf("initializing wallet configuration: %w", err)
			}
			return nil
		},
	}
	for _, a := range actions() {
		walletCmd.AddCommand(actionCommands[a](config))
	}
	walletCmd.AddCommand(MenuCmd(config))

	walletCmd.PersistentFlags().BoolVarP(&config.PromptPassword, args.PasswordPromptCmdName, "p", false, args.PasswordPromptUsage)
	walletCmd.PersistentFlags().StringVar(&config.PasswordFromArg, args.PasswordArgCmdName, "", args.PasswordArgUsage)
	walletCmd.PersistentFlags().StringVarP(&config.WalletHomeDir, args.WalletLocationCmdName, "l", "", "wallet home directory (default $NW_HOME/wallet)")
	walletCmd.PersistentFlags().StringVarP(&config.RpcUrl, args.RpcUrl, "r", args.DefaultRpcUrl, "chain gateway url or multiaddr")
	walletCmd.PersistentFlags().StringVar(&config.ChainID, args.ChainIDCmdName, "", "chain id the transactions are signed for")
	walletCmd.PersistentFlags().DurationVar(&config.RequestTimeout, args.RequestTimeoutName, time.Minute, "timeout of a single gateway request")
	walletCmd.PersistentFlags().BoolVarP(&config.WaitForConfirmation, args.WaitForConfCmdName, "w", false, "waits for transaction confirmation "+
		"on the blockchain, otherwise just broadcasts the transaction")
	return walletCmd
}

func InitWalletConfig(cmd *cobra.Command, config *types.WalletConfig) error {
	config.Input = cmd.InOrStdin()
	if config.WalletHomeDir == "" {
		config.WalletHomeDir = filepath.Join(config.Base.HomeDir, "wallet")
	}
	return nil
}

func CreateCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "creates new wallet",
		Long:  "creates new wallet with a transparent key derived from new (or given) mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecCreateCmd(cmd, config)
		},
	}
	cmd.Flags().StringP(args.SeedCmdName, "s", "", "mnemonic seed, the number of words should be 12, 15, 18, 21 or 24")
	addKeyFlags(cmd)
	return cmd
}

func ExecCreateCmd(cmd *cobra.Command, config *types.WalletConfig) (err error) {
	mnemonic := ""
	if cmd.Flags().Changed(args.SeedCmdName) {
		// when user omits value for "s" flag, ie by executing
		// wallet create -s --wallet-location some/path
		// then Cobra eats next param name (--wallet-location) as value for "s". So we validate the mnemonic here to
		// catch this case as otherwise we most likely get error about creating wallet which is confusing
		if mnemonic, err = cmd.Flags().GetString(args.SeedCmdName); err != nil {
			return fmt.Errorf("failed to read the value of the %q flag: %w", args.SeedCmdName, err)
		}
		if !bip39.IsMnemonicValid(mnemonic) {
			return fmt.Errorf("invalid value %q for flag %q (mnemonic)", mnemonic, args.SeedCmdName)
		}
	}
	generated := mnemonic == ""
	if generated {
		if mnemonic, err = account.NewMnemonic(); err != nil {
			return fmt.Errorf("failed to generate mnemonic: %w", err)
		}
	}
	keyAlias, key, err := readKeyFlags(cmd, mnemonic)
	if err != nil {
		return err
	}

	password, err := cliaccount.CreatePassphrase(config)
	if err != nil {
		return err
	}

	am, err := account.NewManager(config.WalletDir(), password, true)
	if err != nil {
		return fmt.Errorf("failed to create account manager: %w", err)
	}
	defer am.Close()

	if err := am.Update(func(m account.Manager) error { return m.AddKey(keyAlias, key, false) }); err != nil {
		return fmt.Errorf("failed to create new wallet: %w", err)
	}

	if generated {
		config.Base.ConsoleWriter.Println("The following mnemonic key can be used to recover your wallet. Please write it down now, and keep it in a safe, offline place.")
		config.Base.ConsoleWriter.Println("mnemonic key: " + mnemonic)
	}
	config.Base.ConsoleWriter.Printf("Created key %q with address %s", keyAlias, key.PublicKey.Address())
	return nil
}

func AddKeyCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-key",
		Short: "adds transparent key derived from mnemonic to the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecAddKeyCmd(cmd, config)
		},
	}
	cmd.Flags().StringP(args.SeedCmdName, "s", "", "mnemonic seed the key is derived from")
	if err := cmd.MarkFlagRequired(args.SeedCmdName); err != nil {
		panic(err)
	}
	addKeyFlags(cmd)
	cmd.Flags().Bool(args.ForceCmdName, false, "overwrite existing key with the same alias")
	return cmd
}

func ExecAddKeyCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	mnemonic, err := cmd.Flags().GetString(args.SeedCmdName)
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool(args.ForceCmdName)
	if err != nil {
		return err
	}
	keyAlias, key, err := readKeyFlags(cmd, mnemonic)
	if err != nil {
		return err
	}

	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()

	if err := am.Update(func(m account.Manager) error { return m.AddKey(keyAlias, key, force) }); err != nil {
		return fmt.Errorf("failed to add key: %w", err)
	}
	config.Base.ConsoleWriter.Printf("Added key %q with address %s", keyAlias, key.PublicKey.Address())
	return nil
}

func addKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String(args.AliasCmdName, defaultKeyAlias, "alias of the key")
	cmd.Flags().String(args.SchemeCmdName, clienttypes.SchemeEd25519.String(), "key scheme, one of: ed25519, secp256k1")
	cmd.Flags().String(args.PathCmdName, "", "derivation path (default depends on the key scheme)")
}

func readKeyFlags(cmd *cobra.Command, mnemonic string) (string, *account.DerivedKey, error) {
	keyAlias, err := cmd.Flags().GetString(args.AliasCmdName)
	if err != nil {
		return "", nil, err
	}
	schemeName, err := cmd.Flags().GetString(args.SchemeCmdName)
	if err != nil {
		return "", nil, err
	}
	scheme, err := clienttypes.ParseKeyScheme(schemeName)
	if err != nil {
		return "", nil, fmt.Errorf("invalid value for flag %q: %w", args.SchemeCmdName, err)
	}
	path, err := cmd.Flags().GetString(args.PathCmdName)
	if err != nil {
		return "", nil, err
	}
	key, err := account.DeriveKey(mnemonic, "", scheme, path)
	if err != nil {
		return "", nil, fmt.Errorf("deriving key: %w", err)
	}
	return keyAlias, key, nil
}

func AddViewingKeyCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-viewing-key",
		Short: "adds shielded viewing key to the wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execAddShieldedKey(cmd, config, func(m account.Manager, alias, key string, force bool) error {
				birthday, err := cmd.Flags().GetUint64(args.BirthdayCmdName)
				if err != nil {
					return err
				}
				return m.AddViewingKey(alias, key, birthday, force)
			})
		},
	}
	addShieldedKeyFlags(cmd)
	cmd.Flags().Uint64(args.BirthdayCmdName, 0, "block height the key was created at, shielded sync starts from it")
	return cmd
}

func AddSpendingKeyCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-spending-key",
		Short: "adds shielded spending key to the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execAddShieldedKey(cmd, config, func(m account.Manager, alias, key string, force bool) error {
				return m.AddSpendingKey(alias, key, force)
			})
		},
	}
	addShieldedKeyFlags(cmd)
	return cmd
}

func addShieldedKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String(args.AliasCmdName, "", "alias of the key")
	cmd.Flags().StringP(args.KeyCmdName, "k", "", "bech32m encoded key")
	cmd.Flags().Bool(args.ForceCmdName, false, "overwrite existing key with the same alias")
	for _, name := range []string{args.AliasCmdName, args.KeyCmdName} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func execAddShieldedKey(cmd *cobra.Command, config *types.WalletConfig, add func(m account.Manager, alias, key string, force bool) error) error {
	keyAlias, err := cmd.Flags().GetString(args.AliasCmdName)
	if err != nil {
		return err
	}
	key, err := cmd.Flags().GetString(args.KeyCmdName)
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

	if err := am.Update(func(m account.Manager) error { return add(m, keyAlias, key, force) }); err != nil {
		return fmt.Errorf("failed to add key: %w", err)
	}
	config.Base.ConsoleWriter.Printf("Added key %q", keyAlias)
	return nil
}

func AddressCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "prints address stored under the alias",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecAddressCmd(cmd, config)
		},
	}
	cmd.Flags().String(args.AliasCmdName, "", "alias of the address")
	if err := cmd.MarkFlagRequired(args.AliasCmdName); err != nil {
		panic(err)
	}
	return cmd
}

func ExecAddressCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	name, err := cmd.Flags().GetString(args.AliasCmdName)
	if err != nil {
		return err
	}
	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()

	addr, err := alias.NewResolver(am).Resolve(name)
	if err != nil {
		return err
	}
	config.Base.ConsoleWriter.Println(addr.String())
	return nil
}

func GetPubKeysCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-pubkeys",
		Short: "lists public keys stored in the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecGetPubKeysCmd(cmd, config)
		},
	}
	cmd.Flags().BoolP(args.QuietCmdName, "q", false, "hides info irrelevant for scripting, e.g. key aliases")
	return cmd
}

func ExecGetPubKeysCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()

	hideAlias, _ := cmd.Flags().GetBool(args.QuietCmdName)
	for _, rec := range am.ListPublicKeys() {
		if hideAlias {
			config.Base.ConsoleWriter.Println(rec.PublicKey.String())
		} else {
			config.Base.ConsoleWriter.Printf("%s %s %s", rec.Alias, rec.PublicKey, rec.PublicKey.Address())
		}
	}
	return nil
}

func GetBalanceCmd(config *types.WalletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "prints transparent token balance of the owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecGetBalanceCmd(cmd, config)
		},
	}
	cmd.Flags().String(args.OwnerCmdName, "", "owner alias or address")
	cmd.Flags().String(args.TokenCmdName, "", "token alias or address (default is the native token)")
	cmd.Flags().BoolP(args.QuietCmdName, "q", false, "print only the amount")
	if err := cmd.MarkFlagRequired(args.OwnerCmdName); err != nil {
		panic(err)
	}
	return cmd
}

func ExecGetBalanceCmd(cmd *cobra.Command, config *types.WalletConfig) error {
	owner, err := cmd.Flags().GetString(args.OwnerCmdName)
	if err != nil {
		return err
	}
	token, err := cmd.Flags().GetString(args.TokenCmdName)
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool(args.QuietCmdName)
	if err != nil {
		return err
	}

	am, err := cliaccount.LoadExistingAccountManager(config)
	if err != nil {
		return err
	}
	defer am.Close()
	resolver := alias.NewResolver(am)
	ownerAddr, err := resolver.ResolveOrParse(owner)
	if err != nil {
		return fmt.Errorf("resolving owner: %w", err)
	}

	chain, err := dialChainClient(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer chain.Close()

	tokenAddr, err := resolveToken(cmd.Context(), chain, resolver, token)
	if err != nil {
		return err
	}
	raw, err := chain.GetBalance(cmd.Context(), tokenAddr, ownerAddr)
	if err != nil {
		return fmt.Errorf("querying balance: %w", err)
	}
	if raw == "" {
		raw = "0"
	}
	amount, err := util.FormatRawAmount(raw, util.NativeDenom)
	if err != nil {
		return fmt.Errorf("invalid balance %q returned by the gateway: %w", raw, err)
	}
	if quiet {
		config.Base.ConsoleWriter.Println(amount)
	} else {
		config.Base.ConsoleWriter.Printf("%s: %s", tokenName(am, tokenAddr, token), amount)
	}
	return nil
}

func EpochCmd(config *types.WalletConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "epoch",
		Short: "prints the current epoch and masp epoch of the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := dialChainClient(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer chain.Close()

			epoch, err := chain.QueryEpoch(cmd.Context())
			if err != nil {
				return fmt.Errorf("querying epoch: %w", err)
			}
			maspEpoch, err := chain.QueryMaspEpoch(cmd.Context())
			if err != nil {
				return fmt.Errorf("querying masp epoch: %w", err)
			}
			config.Base.ConsoleWriter.Printf("Last committed epoch: %d", epoch)
			config.Base.ConsoleWriter.Printf("Last committed masp epoch: %d", maspEpoch)
			return nil
		},
	}
}

func newRpcClient(ctx context.Context, config *types.WalletConfig, opts ...rpc.Option) (*rpc.Client, error) {
	rpcUrl, err := args.BuildRpcUrl(config.RpcUrl)
	if err != nil {
		return nil, err
	}
	opts = append([]rpc.Option{rpc.WithRequestTimeout(config.RequestTimeout)}, opts...)
	rpcClient, err := rpc.NewClient(ctx, rpcUrl, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc url: %w", err)
	}
	return rpcClient, nil
}

func dialChainClient(ctx context.Context, config *types.WalletConfig) (*rpc.ChainAPIClient, error) {
	rpcClient, err := newRpcClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return rpc.NewChainAPIClient(rpcClient), nil
}

// resolveToken returns the native token when "token" is empty.
func resolveToken(ctx context.Context, chain clienttypes.ChainClient, resolver *alias.Resolver, token string) (clienttypes.Address, error) {
	if token == "" {
		addr, err := chain.NativeToken(ctx)
		if err != nil {
			return "", fmt.Errorf("querying native token: %w", err)
		}
		return addr, nil
	}
	addr, err := resolver.ResolveOrParse(token)
	if err != nil {
		return "", fmt.Errorf("resolving token: %w", err)
	}
	return addr, nil
}

func tokenName(am account.Manager, addr clienttypes.Address, given string) string {
	if given == "" {
		return "native"
	}
	if name, ok := am.FindAlias(addr); ok {
		return name
	}
	return addr.String()
}
