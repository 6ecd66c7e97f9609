package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	appoutbox "github.com/KhadijaXD/lostly/internal/app/outbox"
	"github.com/KhadijaXD/lostly/internal/app/realtime"
	authsvc "github.com/KhadijaXD/lostly/internal/app/services/auth"
	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
	itemsvc "github.com/KhadijaXD/lostly/internal/app/services/items"
	domainchat "github.com/KhadijaXD/lostly/internal/domain/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
	"github.com/KhadijaXD/lostly/internal/infra/broker/kafka"
	"github.com/KhadijaXD/lostly/internal/infra/config"
	mongostore "github.com/KhadijaXD/lostly/internal/infra/db/mongo"
	"github.com/KhadijaXD/lostly/internal/infra/grpchealth"
	ginserver "github.com/KhadijaXD/lostly/internal/infra/http/gin"
	"github.com/KhadijaXD/lostly/internal/infra/obs"
	outboxinfra "github.com/KhadijaXD/lostly/internal/infra/outbox"
	redisfanout "github.com/KhadijaXD/lostly/internal/infra/redis"
	"github.com/KhadijaXD/lostly/internal/infra/security"
	"github.com/KhadijaXD/lostly/internal/infra/storage/memory"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("lostly stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("lostly stopped")
}

type userStore interface {
	domainuser.Repository
	domainuser.Directory
}

type outboxStore interface {
	appoutbox.Outbox
	appoutbox.Queue
}

// stores is the persistence selected by configuration: Mongo when MONGO_URI is set,
// otherwise in-memory.
type stores struct {
	users  userStore
	items  domainitems.Repository
	rooms  domainchat.Repository
	outbox outboxStore
	ready  func(ctx context.Context) error
	close  func(ctx context.Context)
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	if !cfg.UsesMongo() {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		return &stores{
			users:  memory.NewUserRepository(),
			items:  memory.NewItemRepository(),
			rooms:  memory.NewChatRepository(),
			outbox: memory.NewOutbox(),
			ready:  func(context.Context) error { return nil },
			close:  func(context.Context) {},
		}, nil
	}
	client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, err
	}
	box := outboxinfra.NewStore(client.DB)
	if err := box.EnsureIndexes(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, err
	}
	logger.Info("mongo connected", "database", cfg.MongoDB)
	return &stores{
		users:  mongostore.NewUserRepository(client.DB),
		items:  mongostore.NewItemRepository(client.DB),
		rooms:  mongostore.NewChatRepository(client.DB),
		outbox: box,
		ready:  client.Ping,
		close: func(ctx context.Context) {
			if err := client.Close(ctx); err != nil {
				logger.Error("mongo disconnect failed", "error", err)
			}
		},
	}, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st.close(closeCtx)
	}()

	metrics := obs.NewMetrics()
	encoder := appoutbox.JSONEventEncoder{}

	auth := &authsvc.Service{
		Users:     st.users,
		Passwords: security.BcryptHasher{},
		Tokens:    security.JWTIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL, Issuer: "lostly"},
		Logger:    logger,
	}
	chats := &chatsvc.Service{
		Items:   st.items,
		Rooms:   st.rooms,
		Users:   st.users,
		Outbox:  st.outbox,
		Encoder: encoder,
		Logger:  logger,
	}
	items := &itemsvc.Service{
		Items:   st.items,
		Rooms:   chats,
		Outbox:  st.outbox,
		Encoder: encoder,
		Logger:  logger,
	}

	var fanout *redisfanout.Fanout
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		fanout = redisfanout.NewFanout(redisClient, cfg.RedisPrefix, cfg.InstanceID)
		fanout.Logger = logger
	}
	// a nil *Fanout must not reach the coordinator as a non-nil interface
	var relay realtime.Fanout
	if fanout != nil {
		relay = fanout
	}
	coordinator := realtime.NewCoordinator(chats, relay, metrics, logger)

	ready := func(ctx context.Context) error {
		if err := st.ready(ctx); err != nil {
			return err
		}
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	}

	var producer outboxinfra.Producer = outboxinfra.LogProducer{Logger: logger}
	if cfg.UsesKafka() {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("lostly-"+cfg.InstanceID))
		if err != nil {
			return err
		}
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka producer close failed", "error", err)
			}
		}()
		producer = kp
	}
	worker := &outboxinfra.Worker{
		Queue:       st.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          cfg.InstanceID,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: metrics}, obs.HealthHandlers{Ready: ready}, ginserver.Handlers{
		Auth:   ginserver.AuthHandler{Service: auth, Logger: logger},
		Items:  ginserver.ItemHandler{Service: items, Logger: logger},
		Claims: ginserver.ClaimHandler{Service: items, Logger: logger},
		Admin:  ginserver.AdminHandler{Items: items, Users: auth, Chats: chats, Logger: logger},
		Chat:   ginserver.ChatHandler{Service: chats, Broadcaster: coordinator, Logger: logger},
		Realtime: ginserver.RealtimeHandler{
			Auth:            auth,
			Coordinator:     coordinator,
			AllowedOrigins:  cfg.CORSOrigins,
			PingInterval:    cfg.WSPingInterval,
			WriteTimeout:    cfg.WSWriteTimeout,
			MaxMessageBytes: cfg.WSMaxMessageBytes,
			Logger:          logger,
		}.Serve,
		Metrics:        metrics.Handler(),
		AuthMiddleware: ginserver.AuthMiddleware{Service: auth, Logger: logger}.Handle,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "instance", cfg.InstanceID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	if fanout != nil {
		g.Go(func() error {
			return fanout.Run(gctx, coordinator)
		})
	}
	if cfg.GRPCHealthAddr != "" {
		hs := &grpchealth.Server{Addr: cfg.GRPCHealthAddr, Check: ready, Logger: logger}
		g.Go(func() error {
			logger.Info("gRPC health server starting", "addr", cfg.GRPCHealthAddr)
			return hs.Run(gctx)
		})
	}
	return g.Wait()
}
