package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/crypto/ed25519"
	cmn "github.com/tendermint/tendermint/libs/common"

	"github.com/bnb-chain/abcikit/app"
	"github.com/bnb-chain/abcikit/app/config"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

const (
	flagAccounts  = "accounts"
	flagBalance   = "balance"
	flagOverwrite = "overwrite"

	appStateFileName = "app_state.json"
)

// initCmd writes app.toml (done by the pre-run hook) and the genesis app state.
func initCmd(ctx *config.AbciKitContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the application configuration and genesis app state",
		Long: `Write <home>/config/app.toml and <home>/config/app_state.json.

The app state funds every account given with --accounts. Copy it into the app_state
field of the tendermint genesis file before starting the chain.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(ctx.RootDir, "config", appStateFileName)
			if cmn.FileExists(path) && !viper.GetBool(flagOverwrite) {
				return fmt.Errorf("%s already exists, use --%s to replace it", path, flagOverwrite)
			}

			var addrs []types.AccountID
			for _, s := range viper.GetStringSlice(flagAccounts) {
				addr, err := types.AccountIDFromHex(strings.TrimSpace(s))
				if err != nil {
					return errors.Wrapf(err, "invalid account %q", s)
				}
				addrs = append(addrs, addr)
			}
			appState, err := app.NewGenesisState(viper.GetUint64(flagBalance), addrs...).AppStateJSON()
			if err != nil {
				return err
			}
			if err := cmn.EnsureDir(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := cmn.WriteFile(path, appState, 0644); err != nil {
				return err
			}
			ctx.Logger.Info("wrote genesis app state", "path", path, "accounts", len(addrs))
			fmt.Fprintf(os.Stdout, "%s\n", string(appState))
			return nil
		},
	}

	cmd.Flags().StringSlice(flagAccounts, nil, "Comma separated hex account ids funded at genesis")
	cmd.Flags().Uint64(flagBalance, 1000, "Genesis balance of each account")
	cmd.Flags().Bool(flagOverwrite, false, "Overwrite an existing app_state.json")
	viper.BindPFlags(cmd.Flags())
	return cmd
}

type accountInfo struct {
	Address types.AccountID `json:"address"`
	PubKey  string          `json:"pub_key"`
	PrivKey string          `json:"priv_key"`
}

// genAccountCmd prints a fresh ed25519 key and the account id it owns.
func genAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-account",
		Short: "Generate an ed25519 key and print its account id",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv := ed25519.GenPrivKey()
			pub := priv.PubKey().(ed25519.PubKeyEd25519)
			addr, err := types.DeriveAccountID(pub[:])
			if err != nil {
				return err
			}
			out, err := wire.MarshalJSONIndent(wire.Cdc, accountInfo{
				Address: addr,
				PubKey:  fmt.Sprintf("%X", pub[:]),
				PrivKey: fmt.Sprintf("%X", priv[:]),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s\n", string(out))
			return nil
		},
	}
}
