package main

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/cli"

	"github.com/bnb-chain/abcikit/app"
	"github.com/bnb-chain/abcikit/app/config"
	"github.com/bnb-chain/abcikit/version"
)

func defaultHome() string {
	home, err := homedir.Dir()
	if err != nil {
		home = os.ExpandEnv("$HOME")
	}
	return filepath.Join(home, ".abcikitd")
}

func main() {
	ctx := config.NewDefaultContext()

	rootCmd := &cobra.Command{
		Use:               "abcikitd",
		Short:             "ABCI state machine daemon",
		PersistentPreRunE: app.PersistentPreRunEFn(ctx),
	}

	rootCmd.AddCommand(
		startCmd(ctx),
		initCmd(ctx),
		genAccountCmd(),
		version.VersionCmd,
	)

	// prepare and add flags
	executor := cli.PrepareBaseCmd(rootCmd, "AK", defaultHome())
	if err := executor.Execute(); err != nil {
		os.Exit(1)
	}
}
