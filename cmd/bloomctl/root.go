package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/tolelom/skillbloom/client"
	"github.com/tolelom/skillbloom/wallet"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	RPCURL   string
	Token    string
	ChainID  string
	KeyPath  string
	Fee      uint64
	Timeout  time.Duration
	Interval time.Duration
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:           "bloomctl",
	Short:         "Skill Bloom ledger client",
	Long:          "bloomctl registers players, unlocks skills, runs tournaments and inspects the ledger of a Skill Bloom node.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.RPCURL, "rpc", "http://127.0.0.1:8545", "node JSON-RPC endpoint")
	pf.StringVar(&globalFlags.Token, "token", os.Getenv("SKILLBLOOM_RPC_TOKEN"), "RPC bearer token")
	pf.StringVar(&globalFlags.ChainID, "chain-id", "skillbloom-dev", "chain id transactions are signed for")
	pf.StringVar(&globalFlags.KeyPath, "key", "player.key", "keystore file of the signing account")
	pf.Uint64Var(&globalFlags.Fee, "fee", 0, "fee attached to transactions")
	pf.DurationVar(&globalFlags.Timeout, "timeout", 30*time.Second, "how long to wait for a transaction to be final")
	pf.DurationVar(&globalFlags.Interval, "poll", 500*time.Millisecond, "receipt polling interval")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(tournamentCmd)
	rootCmd.AddCommand(reputationCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(treeCmd)
}

func newClient() *client.Client {
	t := client.NewHTTPTransport(globalFlags.RPCURL, globalFlags.Token)
	return client.New(t, client.Config{
		ChainID:      globalFlags.ChainID,
		Fee:          globalFlags.Fee,
		PollInterval: globalFlags.Interval,
	}, nil, nil)
}

func loadSigner() (*wallet.Wallet, error) {
	priv, err := wallet.LoadKey(globalFlags.KeyPath, os.Getenv("SKILLBLOOM_PASSWORD"))
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", globalFlags.KeyPath, err)
	}
	return wallet.New(priv), nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), globalFlags.Timeout)
}

// addressArg returns args[0] as an address, or the signer's address when no
// argument was given.
func addressArg(args []string) (common.Address, error) {
	if len(args) > 0 {
		if !common.IsHexAddress(args[0]) {
			return common.Address{}, fmt.Errorf("invalid address %q", args[0])
		}
		return common.HexToAddress(args[0]), nil
	}
	w, err := loadSigner()
	if err != nil {
		return common.Address{}, err
	}
	return w.Address(), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
