package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/whalehunter/whale-tracker/internal/config"
	"github.com/whalehunter/whale-tracker/internal/logger"
	"github.com/whalehunter/whale-tracker/internal/storage"
)

var (
	walletLabel     string
	walletChain     string
	nativeThreshold string
	stableThreshold string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage tracked wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Track a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalletAdd,
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Stop tracking a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalletRemove,
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked wallets",
	RunE:  runWalletList,
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletAddCmd)
	walletCmd.AddCommand(walletRemoveCmd)
	walletCmd.AddCommand(walletListCmd)

	walletAddCmd.Flags().StringVar(&walletLabel, "label", "", "display name for the wallet")
	walletAddCmd.Flags().StringVar(&walletChain, "chain", "ethereum", "chain the wallet lives on")
	walletAddCmd.Flags().StringVar(&nativeThreshold, "native-threshold", "", "native-coin alert threshold (default from config)")
	walletAddCmd.Flags().StringVar(&stableThreshold, "stable-threshold", "", "stable-token alert threshold (default from config)")
}

func openStore(ctx context.Context) (*config.Config, *storage.Store, error) {
	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runWalletAdd(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	address := args[0]
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address: %s", address)
	}

	ctx := context.Background()
	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, ok := cfg.Chains[walletChain]; !ok {
		return fmt.Errorf("chain %q is not in the registry", walletChain)
	}

	nativeTh := cfg.NativeThreshold()
	if nativeThreshold != "" {
		if nativeTh, err = decimal.NewFromString(nativeThreshold); err != nil {
			return fmt.Errorf("invalid native threshold: %w", err)
		}
	}
	stableTh := cfg.StableThreshold()
	if stableThreshold != "" {
		if stableTh, err = decimal.NewFromString(stableThreshold); err != nil {
			return fmt.Errorf("invalid stable threshold: %w", err)
		}
	}

	wallet := storage.Wallet{
		Address:         common.HexToAddress(address).Hex(),
		Label:           walletLabel,
		Chain:           walletChain,
		NativeThreshold: nativeTh,
		StableThreshold: stableTh,
	}
	if err := store.AddWallet(ctx, wallet); err != nil {
		return err
	}

	slog.Info("Wallet tracked", "address", wallet.Address, "chain", wallet.Chain, "label", wallet.Label)
	return nil
}

func runWalletRemove(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	address := args[0]
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address: %s", address)
	}

	ctx := context.Background()
	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveWallet(ctx, common.HexToAddress(address).Hex()); err != nil {
		return err
	}

	slog.Info("Wallet untracked", "address", common.HexToAddress(address).Hex())
	return nil
}

func runWalletList(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	ctx := context.Background()
	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	wallets, err := store.ListWallets(ctx)
	if err != nil {
		return err
	}

	if len(wallets) == 0 {
		fmt.Println("No wallets tracked.")
		return nil
	}
	for _, w := range wallets {
		fmt.Printf("%s  %-12s %-10s native>=%s stable>=%s (last: %s / %s)\n",
			w.Address, w.Label, w.Chain,
			w.NativeThreshold, w.StableThreshold,
			w.LastNativeBalance, w.LastStableBalance,
		)
	}
	return nil
}
