package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	nodeconfig "liquidroute/config"
	"liquidroute/native/common"
	"liquidroute/native/oracle"
	"liquidroute/native/pool"
	"liquidroute/native/stabilizer"
	"liquidroute/native/token"
	"liquidroute/observability/logging"
	telemetry "liquidroute/observability/otel"
	serviceconfig "liquidroute/services/routerd/config"
	"liquidroute/services/routerd/recorder"
	"liquidroute/services/routerd/server"
	routerstorage "liquidroute/services/routerd/storage"
	"liquidroute/storage"
)

func main() {
	var (
		cfgPath string
		svcPath string
	)
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to node configuration file")
	flag.StringVar(&svcPath, "service-config", "", "path to routerd service configuration file (optional)")
	flag.Parse()

	svcCfg := serviceconfig.Default()
	if svcPath != "" {
		loaded, err := serviceconfig.Load(svcPath)
		if err != nil {
			log.Fatalf("routerd: load service config: %v", err)
		}
		svcCfg = loaded
	}

	env := strings.TrimSpace(os.Getenv("LIQUIDROUTE_ENV"))
	var logWriter io.Writer = os.Stdout
	if svcCfg.Log.File != "" {
		logWriter = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   svcCfg.Log.File,
			MaxSize:    svcCfg.Log.MaxSizeMB,
			MaxBackups: svcCfg.Log.MaxBackups,
			MaxAge:     svcCfg.Log.MaxAgeDays,
		})
	}
	logger := logging.SetupWithWriter(logWriter, "routerd", env)

	otlpEndpoint := svcCfg.Telemetry.Endpoint
	if otlpEndpoint == "" {
		otlpEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	insecure := svcCfg.Telemetry.Insecure
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "routerd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     svcCfg.Telemetry.Metrics,
		Traces:      svcCfg.Telemetry.Traces,
	})
	if err != nil {
		log.Fatalf("routerd: init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := nodeconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("routerd: load config: %v", err)
	}
	params, err := cfg.Parameters()
	if err != nil {
		log.Fatalf("routerd: resolve parameters: %v", err)
	}

	db, err := storage.NewLevelDB(params.DataDir)
	if err != nil {
		log.Fatalf("routerd: open state database: %v", err)
	}
	defer db.Close()
	state := storage.NewState(db)

	trades, err := routerstorage.Open(svcCfg.DatabasePath)
	if err != nil {
		log.Fatalf("routerd: open trade history: %v", err)
	}
	defer trades.Close()

	tokens := token.NewLedger(state)
	tokens.AddController(params.Module)

	feed := oracle.NewFeed(state, params.OracleAdmin)
	if err := feed.SetUpdater(params.OracleAdmin, params.OracleUpdater); err != nil {
		log.Fatalf("routerd: set oracle updater: %v", err)
	}

	engine := pool.NewEngine(state, tokens, feed, params.Module, params.Operator)
	engine.SetPauses(common.NewPauseSet())

	rec := recorder.New(logger, trades, engine.Ledger())
	engine.SetEmitter(rec)
	feed.SetEmitter(rec)

	for _, sp := range params.Stabilizers {
		stab := stabilizer.New(state, tokens, feed, sp.Account, params.Module, sp.Operator)
		stab.SetEmitter(rec)
		if err := engine.RegisterSource(params.Operator, sp.Account); err != nil && !errors.Is(err, pool.ErrAlreadyRegistered) {
			log.Fatalf("routerd: register stabilizer: %v", err)
		}
		engine.BindSource(sp.Account, stab.Source(params.Module))
	}

	// The service config wins when supplied; otherwise the node config's
	// API address is used.
	listen := params.APIAddress
	if svcPath != "" {
		listen = svcCfg.ListenAddress
	}
	srv, err := server.New(server.Config{
		ListenAddress: listen,
		ReadTimeout:   svcCfg.ReadTimeout.Duration,
		ShutdownGrace: svcCfg.ShutdownGrace.Duration,
	}, engine, trades, logger)
	if err != nil {
		log.Fatalf("routerd: server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("routerd starting",
		"network", params.NetworkName,
		"listen", listen,
		"stabilizers", len(params.Stabilizers),
	)
	if err := srv.Run(ctx); err != nil {
		logger.Error("routerd exited", "error", err)
		os.Exit(1)
	}
	logger.Info("routerd stopped")
}
