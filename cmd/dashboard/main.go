package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odclab/dcmon/internal/cache"
	"github.com/odclab/dcmon/internal/config"
	"github.com/odclab/dcmon/internal/lib/logger/sl"
	"github.com/odclab/dcmon/internal/metrics"
	"github.com/odclab/dcmon/internal/model"
	"github.com/odclab/dcmon/internal/refresh"
	"github.com/odclab/dcmon/internal/server"
	"github.com/odclab/dcmon/internal/source"
)

const capacityHistoryKey = "capacity_history"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting dashboard service",
		slog.String("env", cfg.Env),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("site", cfg.Backend.Site),
	)

	src := source.NewClient(log, cfg.Backend.BaseURL, cfg.Backend.Timeout)

	var store cache.Store
	switch cfg.Cache.Driver {
	case "sqlite":
		sqliteStore, err := cache.NewSQLiteStore(log, cfg.Cache.Path)
		if err != nil {
			log.Error("failed to open snapshot cache", sl.Err(err))
			os.Exit(1)
		}
		store = sqliteStore
		log.Info("snapshot cache enabled",
			slog.String("driver", "sqlite"),
			slog.String("path", cfg.Cache.Path),
		)
	case "redis":
		redisStore, err := cache.NewRedisStore(
			log,
			cfg.Cache.Redis.Address,
			cfg.Cache.Redis.Password,
			cfg.Cache.Redis.DB,
			cfg.Cache.MaxAge,
		)
		if err != nil {
			log.Error("failed to connect snapshot cache", sl.Err(err))
			os.Exit(1)
		}
		store = redisStore
		log.Info("snapshot cache enabled",
			slog.String("driver", "redis"),
			slog.String("address", cfg.Cache.Redis.Address),
		)
	case "off", "":
		log.Info("snapshot cache disabled")
	default:
		log.Error("unknown cache driver", slog.String("driver", cfg.Cache.Driver))
		os.Exit(1)
	}

	site := cfg.Backend.Site

	views := server.Views{
		History: refresh.NewView(
			"capacity_history",
			cfg.Refresh.CapacityInterval,
			historyFetch(log, src, store),
		),
		CurrentPrev: refresh.NewView(
			"capacity_current_previous",
			cfg.Refresh.CapacityInterval,
			src.CurrentPrevious,
		),
		Power: refresh.NewView(
			"power_series",
			cfg.Refresh.SeriesInterval,
			func(ctx context.Context) ([]model.Reading, error) {
				readings, err := src.PowerReadings(ctx, site)
				if err != nil {
					return nil, err
				}
				metrics.ObserveReadings(metrics.PowerGauge, site, readings)
				return readings, nil
			},
		),
		Temperature: refresh.NewView(
			"temperature_series",
			cfg.Refresh.SeriesInterval,
			func(ctx context.Context) ([]model.Reading, error) {
				readings, err := src.TemperatureReadings(ctx, site)
				if err != nil {
					return nil, err
				}
				metrics.ObserveReadings(metrics.TempGauge, site, readings)
				return readings, nil
			},
		),
		Scan: refresh.NewView(
			"scan_inventory",
			cfg.Refresh.ScanInterval,
			src.ScanResults,
		),
	}

	manager := refresh.NewManager(log, metrics.RecordRefresh,
		views.History,
		views.CurrentPrev,
		views.Power,
		views.Temperature,
		views.Scan,
	)

	srv := server.New(log, cfg.HTTP.Address, src, views, cfg.Refresh.DefaultMonths)
	srv.AddChecker(server.NewBackendHealthChecker(src.Health))

	if sqliteStore, ok := store.(*cache.SQLiteStore); ok {
		if err := sqliteStore.Cleanup(context.Background(), cfg.Cache.MaxAge); err != nil {
			log.Warn("failed to clean up snapshot cache", sl.Err(err))
		}
		srv.AddChecker(server.NewCacheHealthChecker(sqliteStore.Count))
	}

	if err := srv.Start(); err != nil {
		log.Error("failed to start dashboard server", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	manager.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	manager.Stop()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop dashboard server", sl.Err(err))
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("failed to close snapshot cache", sl.Err(err))
		}
	}

	if err := src.Close(); err != nil {
		log.Error("failed to close backend client", sl.Err(err))
	}

	log.Info("dashboard stopped")
}

// historyFetch loads the capacity history, writing each good fetch to the
// snapshot cache and falling back to the cached copy when the backend is
// unreachable.
func historyFetch(log *slog.Logger, src *source.Client, store cache.Store) func(ctx context.Context) ([]model.CapacityRow, error) {
	return func(ctx context.Context) ([]model.CapacityRow, error) {
		rows, err := src.CapacityHistory(ctx)
		if err == nil {
			if store != nil {
				if data, merr := json.Marshal(rows); merr == nil {
					if perr := store.Put(ctx, capacityHistoryKey, data); perr != nil {
						log.Warn("failed to cache capacity history", sl.Err(perr))
					}
				}
			}
			return rows, nil
		}

		if store == nil {
			return nil, err
		}

		data, at, cerr := store.Get(ctx, capacityHistoryKey)
		if cerr != nil {
			return nil, err
		}

		var cached []model.CapacityRow
		if uerr := json.Unmarshal(data, &cached); uerr != nil {
			return nil, err
		}

		log.Warn("serving cached capacity history",
			slog.Time("cached_at", at),
			sl.Err(err),
		)
		return cached, nil
	}
}
