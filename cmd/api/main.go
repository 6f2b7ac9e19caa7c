package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"orphanadmin/internal/application"
	"orphanadmin/internal/config"
	"orphanadmin/internal/export"
	"orphanadmin/internal/httpapi"
	"orphanadmin/internal/listview"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/obs"
	"orphanadmin/internal/remote"
	"orphanadmin/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("load config")
	}
	obs.InitLogger(cfg.LogLevel, cfg.LogFormat)
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probe := httpapi.ReadyProbe{}
	var apps application.Service
	switch cfg.Backend {
	case config.BackendPostgres:
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres")
		}
		defer pgStore.Close()
		probe.DB = pgStore.DB()
		apps = pgStore
	case config.BackendRemote:
		client, err := remote.New(cfg.APIBaseURL, remote.Options{
			Timeout:    cfg.APITimeout,
			RatePerSec: cfg.APIRate,
			Burst:      cfg.APIBurst,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("remote client")
		}
		probe.Checks = append(probe.Checks, client.Ping)
		apps = client
	default:
		mem := application.NewInMemory()
		if cfg.DemoSeed {
			mem.Seed(application.DemoApplications(40, time.Now().Add(-40*time.Hour))...)
		}
		apps = mem
	}

	var viewStore listview.StateStore = listview.NewMemoryStateStore()
	if cfg.RedisURL != "" {
		rdb, err := listview.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
		probe.Checks = append(probe.Checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		viewStore = listview.NewRedisStateStore(rdb, "", cfg.ViewTTL)
	}

	hub := notify.NewHub(32)
	notifier := notify.Multi(hub, notify.NewLogNotifier(obs.Named("notify")))

	views := listview.NewRegistry(apps, notifier, viewStore, obs.Named("listview"))
	janitor := listview.NewJanitor(views, cfg.ViewSweep, cfg.ViewTTL)
	if err := janitor.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start view janitor")
	}
	defer janitor.Stop()

	api := httpapi.New(httpapi.Options{
		Ready:        probe,
		Version:      version,
		Applications: apps,
		Views:        views,
		Exporter:     export.NewExporter(apps, notifier),
		Hub:          hub,
		Notifier:     notifier,
		RatePerSec:   cfg.RatePerSec,
		RateBurst:    cfg.RateBurst,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigins:  cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Requests, SSE streams included, end when the process is signalled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen")
		}
		grpcSrv = grpc.NewServer()
		health := httpapi.NewGRPCServer(probe, version)
		health.Register(grpcSrv)
		go health.Run(ctx, 10*time.Second)
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc health listening")
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error().Err(err).Msg("grpc serve")
				stop()
			}
		}()
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Str("backend", cfg.Backend).Msg("starting orphan-admin")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Info().Msg("stopped")
}
