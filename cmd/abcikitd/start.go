package main

import (
	"net"
	"net/http"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	abciserver "github.com/tendermint/tendermint/abci/server"
	cmn "github.com/tendermint/tendermint/libs/common"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app"
	"github.com/bnb-chain/abcikit/app/config"
	"github.com/bnb-chain/abcikit/app/pub"
	bnclog "github.com/bnb-chain/abcikit/common/log"
	"github.com/bnb-chain/abcikit/plugins/api"
)

const dbName = "abcikit"

func startCmd(ctx *config.AbciKitContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the ABCI server",
		Long: `Open the state database under <home>/data and serve the ABCI protocol on the
configured address. Connect a tendermint node with --proxy_app pointing there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return start(ctx)
		},
	}
}

func start(ctx *config.AbciKitContext) error {
	logger := ctx.Logger
	db := dbm.NewDB(dbName, dbm.DBBackendType(ctx.DBBackend), ctx.DBDir())

	opts := []app.Option{
		app.WithIAVLCacheSize(ctx.StoreConfig.IAVLCacheSize),
		app.WithSigCacheSize(ctx.StoreConfig.SigCacheSize),
	}
	pubMetrics := pub.NopMetrics()
	if ctx.InstrumentationConfig.Prometheus {
		opts = append(opts, app.WithMetrics(app.PrometheusMetrics(ctx.InstrumentationConfig.Namespace)))
		pubMetrics = pub.PrometheusMetrics(ctx.InstrumentationConfig.Namespace)
		startPrometheusServer(ctx.InstrumentationConfig.PrometheusListenAddr, logger)
	}
	if ctx.PublicationConfig.ShouldPublishAny() {
		publisher, err := newPublisher(ctx, logger.With("module", "pub"))
		if err != nil {
			return err
		}
		opts = append(opts, app.WithPublication(publisher, pubMetrics, ctx.PublicationConfig.PublicationChannelSize))
	}

	node, err := app.NewAbciKitApp(logger.With("module", "app"), db, app.DefaultServices(), opts...)
	if err != nil {
		return errors.Wrap(err, "failed to open application")
	}

	srv, err := abciserver.NewServer(ctx.AbciConfig.Address, ctx.AbciConfig.Transport, node)
	if err != nil {
		return errors.Wrap(err, "failed to create abci server")
	}
	srv.SetLogger(logger.With("module", "abci-server"))
	if err := srv.Start(); err != nil {
		return errors.Wrap(err, "failed to start abci server")
	}
	logger.Info("abci server started", "addr", ctx.AbciConfig.Address, "transport", ctx.AbciConfig.Transport, "app", node.String())

	var apiListener net.Listener
	if ctx.APIConfig.Enabled {
		if apiListener, err = api.StartServer(ctx.APIConfig, node, logger); err != nil {
			srv.Stop()
			return errors.Wrap(err, "failed to start api server")
		}
	}

	// wait forever and cleanup
	cmn.TrapSignal(logger, func() {
		if apiListener != nil {
			if err := apiListener.Close(); err != nil {
				logger.Error("error closing api listener", "err", err)
			}
		}
		if err := srv.Stop(); err != nil {
			logger.Error("error stopping abci server", "err", err)
		}
		node.Stop()
		db.Close()
		bnclog.Close()
	})
	select {}
}

func newPublisher(ctx *config.AbciKitContext, logger log.Logger) (pub.BlockPublisher, error) {
	var publishers []pub.BlockPublisher
	if ctx.PublicationConfig.PublishLocal {
		publishers = append(publishers, pub.NewLocalBlockPublisher(filepath.Join(ctx.RootDir, "data"), logger, ctx.PublicationConfig))
	}
	if ctx.PublicationConfig.PublishKafka {
		publisher, err := pub.NewKafkaBlockPublisher(logger, ctx.PublicationConfig)
		if err != nil {
			for _, p := range publishers {
				p.Stop()
			}
			return nil, err
		}
		publishers = append(publishers, publisher)
	}
	if len(publishers) == 1 {
		return publishers[0], nil
	}
	return pub.NewAggregatedBlockPublisher(publishers...), nil
}

func startPrometheusServer(addr string, logger log.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("prometheus server started", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("prometheus server stopped", "err", err)
		}
	}()
}
