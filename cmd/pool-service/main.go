package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/radieske/betting-pool/internal/pool"
	phttp "github.com/radieske/betting-pool/internal/pool/http"
	"github.com/radieske/betting-pool/internal/pool/memstore"
	"github.com/radieske/betting-pool/internal/pool/producer"
	"github.com/radieske/betting-pool/internal/pool/pubsub"
	"github.com/radieske/betting-pool/internal/pool/repo"
	"github.com/radieske/betting-pool/internal/pool/ws"
	"github.com/radieske/betting-pool/internal/shared/cache"
	"github.com/radieske/betting-pool/internal/shared/config"
	"github.com/radieske/betting-pool/internal/shared/db"
	"github.com/radieske/betting-pool/internal/shared/kafka"
	"github.com/radieske/betting-pool/internal/shared/logger"
	"github.com/radieske/betting-pool/internal/shared/metrics"
)

// storage agrupa o Store do pool e as operações de carteira do mesmo backend
type storage interface {
	pool.Store
	pool.Wallets
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("store", cfg.Store), zap.Int64("feeRate", cfg.FeeRate))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var checks []metrics.HealthFunc

	// Backend de custódia: Postgres ou memória (local)
	var store storage
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		pgStore := repo.NewPostgres(pg)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		store = pgStore
		checks = append(checks, pg.PingContext)
	default:
		log.Warn("using in-memory store; balances are lost on restart")
		store = memstore.New()
	}

	// Redis: broadcast da rodada + feed WS
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	broadcaster := pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel)

	// Kafka writer (topic pool_events)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPoolEvents)
	defer writer.Close()
	publisher := producer.NewKafkaPublisher(writer, cfg.TopicPoolEvents)

	manager, err := pool.NewManager(ctx,
		pool.ManagerConfig{Admin: cfg.AdminID, FeeRate: cfg.FeeRate},
		store,
		pool.WithLogger(log.Named("pool")),
		pool.WithMetrics(pool.NewMetrics(reg)),
		pool.WithNotifier(pool.Fanout{publisher, broadcaster}),
	)
	if err != nil {
		log.Fatal("pool manager", zap.Error(err))
	}

	// Feed WS: snapshot inicial vem do manager, atualizações do Redis
	hub := ws.NewHub(log.Named("ws"), func(*http.Request) bool { return true }, func() ([]byte, error) {
		return json.Marshal(pubsub.RoundUpdate{Type: "SNAPSHOT", Round: manager.Snapshot()})
	})
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := phttp.NewServer(log, manager, store, http.HandlerFunc(hub.HandleWS))
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, reg, func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
