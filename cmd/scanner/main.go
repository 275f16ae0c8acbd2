package main

import (
	"context"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/chainforge/subgraph-core/internal/apiserver"
	"github.com/chainforge/subgraph-core/internal/blockstore"
	"github.com/chainforge/subgraph-core/internal/callcache"
	"github.com/chainforge/subgraph-core/internal/chainclient"
	"github.com/chainforge/subgraph-core/internal/config"
	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/publish"
	"github.com/chainforge/subgraph-core/internal/scanner"
	"github.com/chainforge/subgraph-core/internal/store/migrate"
	"github.com/chainforge/subgraph-core/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	appLogger, err := logging.NewDefault()
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer appLogger.Sync()

	registry := prometheus.NewRegistry()
	metricsEmitter := telemetry.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := dialChain(ctx, cfg, appLogger, metricsEmitter)
	if err != nil {
		appLogger.Error("failed to connect to chain endpoint: %v", err)
		log.Fatal(err)
	}
	appLogger.Info("connected to chain endpoint via %s", cfg.ChainProtocol)

	store, err := openBlockStore(cfg)
	if err != nil {
		appLogger.Error("failed to open block store: %v", err)
		log.Fatal(err)
	}
	appLogger.Info("block store ready")

	// A CHAIN_NET_VERSION that is not a decimal integer leaves chainID nil.
	chainID, _ := new(big.Int).SetString(cfg.NetVersion, 10)
	scan := scanner.New(chain, store, metricsEmitter, appLogger, chainID)
	callCache := callcache.New(chain)

	pub, err := openPublisher(cfg, metricsEmitter)
	if err != nil {
		appLogger.Error("failed to configure publish sink: %v", err)
		log.Fatal(err)
	}
	// publisher is a nil publish.Publisher interface value, not a non-nil
	// interface wrapping a nil *publish.MultiPublisher: apiserver's
	// nil-checks on the interface only work if this distinction holds.
	var publisher publish.Publisher
	if pub != nil {
		publisher = pub
		defer pub.Close()
		appLogger.Info("publishing triggers via %s", cfg.PublishSink)
	}

	auth := apiserver.NewAuthMiddleware(cfg.JWTSecret)
	restServer := apiserver.NewServer(scan, callCache, publisher, auth, appLogger)
	grpcServer := apiserver.NewGRPCServer(scan, publisher, auth, appLogger)

	go runMetricsServer(cfg.MetricsAddr, registry, appLogger)
	go runRESTServer(cfg.APIAddr, restServer, appLogger)
	go runGRPCServer(cfg.GRPCAddr, grpcServer, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	appLogger.Info("scanner core started successfully")
	<-quit
	appLogger.Info("shutting down scanner core...")

	grpcServer.GracefulStop()
	cancel()
	time.Sleep(2 * time.Second)
}

func dialChain(ctx context.Context, cfg *config.Config, log logging.Logger, metrics *telemetry.Emitter) (chainclient.ChainClient, error) {
	switch cfg.ChainProtocol {
	case config.ProtocolWebsocket:
		return chainclient.NewWebsocketClient(ctx, cfg.ChainWSURL, log, metrics)
	case config.ProtocolGRPC:
		return chainclient.NewGRPCClient(cfg.ChainGRPCAddr, log, metrics)
	default:
		return chainclient.NewHTTPSClient(ctx, cfg.ChainHTTPURL, log, metrics)
	}
}

func openBlockStore(cfg *config.Config) (*blockstore.Store, error) {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		redisClient = redis.NewClient(opts)
	}

	var db *gorm.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := migrate.New(db).Run(); err != nil {
			return nil, err
		}
	}

	return blockstore.New(redisClient, db), nil
}

func openPublisher(cfg *config.Config, metrics *telemetry.Emitter) (*publish.MultiPublisher, error) {
	backends := make(map[string]publish.Publisher)

	switch cfg.PublishSink {
	case config.PublishKafka:
		backends["kafka"] = publish.NewKafkaPublisher(cfg.KafkaBrokers)
	case config.PublishZeroMQ:
		zmqPub, err := publish.NewZeroMQPublisher(context.Background(), cfg.ZeroMQAddr)
		if err != nil {
			return nil, err
		}
		backends["zeromq"] = zmqPub
	case config.PublishRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		backends["redis"] = publish.NewRedisPublisher(redis.NewClient(opts))
	case config.PublishNone:
		return nil, nil
	}

	if len(backends) == 0 {
		return nil, nil
	}
	return publish.NewMultiPublisher(metrics, backends), nil
}

func runMetricsServer(addr string, reg *prometheus.Registry, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped: %v", err)
	}
}

func runRESTServer(addr string, srv *apiserver.Server, log logging.Logger) {
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		log.Error("REST server stopped: %v", err)
	}
}

func runGRPCServer(addr string, srv *grpc.Server, log logging.Logger) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("gRPC listener failed: %v", err)
		return
	}
	if err := apiserver.Serve(srv, lis); err != nil {
		log.Error("gRPC server stopped: %v", err)
	}
}
