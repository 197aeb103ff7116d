package app

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/cli"
	tmflags "github.com/tendermint/tendermint/libs/cli/flags"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/config"
	bnclog "github.com/bnb-chain/abcikit/common/log"
	"github.com/bnb-chain/abcikit/version"
)

// loadConfigInPlace points the context at --home and writes app.toml there on first
// start; later starts parse it.
func loadConfigInPlace(context *config.AbciKitContext) error {
	context.RootDir = viper.GetString(cli.HomeFlag)
	return context.LoadOrWriteAppConfig()
}

func newLogger(ctx *config.AbciKitContext) (log.Logger, error) {
	if ctx.LogConfig.LogToConsole {
		return bnclog.NewConsoleLogger(), nil
	}
	var logFilePath string
	if ctx.LogConfig.LogFileRoot == "" {
		logFilePath = path.Join(ctx.RootDir, ctx.LogConfig.LogFilePath)
	} else {
		logFilePath = path.Join(ctx.LogConfig.LogFileRoot, ctx.LogConfig.LogFilePath)
	}
	if err := cmn.EnsureDir(path.Dir(logFilePath), 0755); err != nil {
		return nil, fmt.Errorf("create log dir failed, err=%s", err.Error())
	}
	return bnclog.NewAsyncFileLogger(logFilePath, ctx.LogConfig.LogBuffSize)
}

// PersistentPreRunEFn returns a PersistentPreRunE function for cobra
// that initailizes the passed in context with a properly configured
// logger and config object
func PersistentPreRunEFn(context *config.AbciKitContext) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == version.VersionCmd.Name() {
			return nil
		}
		if err := loadConfigInPlace(context); err != nil {
			return err
		}

		logger, err := newLogger(context)
		if err != nil {
			return err
		}
		logger, err = tmflags.ParseLogLevel(context.LogLevel, logger, tmcfg.DefaultLogLevel())
		if err != nil {
			return err
		}
		if viper.GetBool(cli.TraceFlag) {
			logger = log.NewTracingLogger(logger)
		}
		logger = logger.With("module", "main")
		bnclog.InitLogger(logger)

		context.Logger = logger
		return nil
	}
}
