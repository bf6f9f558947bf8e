package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	nethttp "net/http"
	"time"

	"github.com/hykura1501/e-commerce/configs"
	"github.com/hykura1501/e-commerce/internal/adapter/cache"
	"github.com/hykura1501/e-commerce/internal/adapter/grpc"
	"github.com/hykura1501/e-commerce/internal/adapter/http"
	"github.com/hykura1501/e-commerce/internal/adapter/http/middleware"
	"github.com/hykura1501/e-commerce/internal/adapter/kafka"
	"github.com/hykura1501/e-commerce/internal/adapter/observ"
	"github.com/hykura1501/e-commerce/internal/adapter/queue"
	"github.com/hykura1501/e-commerce/internal/adapter/repo"
	"github.com/hykura1501/e-commerce/internal/adapter/rest"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/security"
	"github.com/hykura1501/e-commerce/internal/usecase"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg      configs.Config
	log      *slog.Logger
	server   *nethttp.Server
	health   *grpc.HealthServer
	sessions *usecase.SessionRegistry
	rmq      *queue.Router                           // nil without rabbitmq.url
	logins   *kafka.Consumer[usecase.UserLoggedInMsg] // nil without kafka.brokers
}

func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	log := logging.Init(logging.Options{Component: cfg.App.Name, FilePath: cfg.App.LogFile, Level: cfg.App.LogLevel})
	log.Info("cart-api: starting up")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// mysql
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = db.Close() })
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fail(fmt.Errorf("mysql: %w", err))
	}

	// redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	closers = append(closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fail(fmt.Errorf("redis: %w", err))
	}

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observ.NewMetrics(reg)

	// upstream services
	hc := &nethttp.Client{Timeout: cfg.Services.Timeout}
	serviceTokens := security.NewTokens(cfg.Security.JWTSecret, cfg.Security.ServiceIssuer, cfg.Security.ServiceAudience, cfg.Security.TTL)
	carts := rest.NewCartClient(cfg.Services.CartURL, hc, serviceTokens, cfg.Services.Timeout)
	orders := rest.NewOrderClient(cfg.Services.OrderURL, hc, serviceTokens, cfg.Services.Timeout)
	catalog := cache.NewProductCache(rdb, cfg.Cart.ProductCacheTTL,
		rest.NewCatalogClient(cfg.Services.CatalogURL, hc, cfg.Services.Timeout))

	// checkout events: rabbitmq first, mysql outbox when the broker is unavailable
	outbox := repo.NewMySQLOutboxRepo(db)
	var events usecase.EventPublisher = outbox
	var ch *amqp.Channel
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		if ch, err = conn.Channel(); err != nil {
			return fail(fmt.Errorf("rabbitmq channel: %w", err))
		}
		if err := queue.DeclareTopic(ch, cfg.Rabbit.Exchange); err != nil {
			return fail(err)
		}
		events = usecase.FallbackPublisher{Primary: queue.NewCheckoutPublisher(ch, cfg.Rabbit.Exchange), Secondary: outbox}
	}

	policy, err := usecase.ParseLoginPolicy(cfg.Cart.LoginPolicy)
	if err != nil {
		return fail(err)
	}
	sessions := usecase.NewSessionRegistry(usecase.RegistryConfig{
		Factory:   backends{slots: cache.NewRedisCartSlots(rdb, cfg.Cart.SlotTTL), carts: carts},
		Orders:    orders,
		Publisher: observ.CountingPublisher{Next: events, Metrics: metrics},
		Policy:    policy,
		TTL:       cfg.Cart.SessionTTL,
		Logger:    logging.New("cart"),
	})

	// http
	h := http.NewCartHandler(http.CartHandlerDeps{
		Sessions:    sessions,
		Catalog:     catalog,
		Profiles:    repo.NewMySQLProfileRepo(db),
		Idempotency: cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL),
		Metrics:     metrics,
		Timeout:     cfg.HTTP.HandlerTimeout,
	})
	userTokens := security.NewTokens(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.Audience, cfg.Security.TTL)
	router := http.NewRouter(h, middleware.NewAuthn(userTokens), metrics, reg, logging.New("http"))

	a := &App{
		cfg: cfg,
		log: log,
		server: &nethttp.Server{
			Addr:         cfg.App.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
		health: grpc.NewHealthServer(map[string]grpc.Check{
			"mysql": db.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		sessions: sessions,
	}

	// session.ended over rabbitmq
	if ch != nil {
		ended := queue.SessionEndedHandler{Sessions: sessions}
		a.rmq = queue.NewRouter(ch, queue.WithPrefetch(50))
		a.rmq.Bind(queue.SessionEndedQueue, queue.SessionExchange, queue.RouteSessionEnded,
			queue.JSONHandler[usecase.SessionEndedMsg]{HandleFunc: ended.HandleEnded})
	}

	// user.logged_in over kafka
	if len(cfg.Kafka.Brokers) > 0 {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.App.Name)
		if err != nil {
			return fail(fmt.Errorf("kafka: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })
		login := &kafka.UserLoggedInHandler{Sessions: sessions, Metrics: metrics}
		a.logins = kafka.NewConsumer(grp, []string{cfg.Kafka.TopicLogin}, login.Handle)
	}

	return a, cleanup, nil
}

// Run serves HTTP and gRPC health and runs the consumers until ctx is done.
// Listeners and consumers are set up before anything is served, so a setup
// failure returns with nothing left running.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	httpLis, err := net.Listen("tcp", a.cfg.App.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	var grpcLis net.Listener
	if a.cfg.App.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", a.cfg.App.GRPCAddr); err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("grpc listen: %w", err)
		}
	}
	if a.rmq != nil {
		if err := a.rmq.Start(ctx); err != nil {
			_ = httpLis.Close()
			if grpcLis != nil {
				_ = grpcLis.Close()
			}
			return fmt.Errorf("rabbitmq consumers: %w", err)
		}
	}

	g.Go(func() error {
		a.log.Info("http listening", "addr", httpLis.Addr().String())
		if err := a.server.Serve(httpLis); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			a.log.Info("grpc health listening", "addr", grpcLis.Addr().String())
			return a.health.Serve(grpcLis)
		})
		g.Go(func() error {
			a.health.Run(ctx, 10*time.Second)
			return nil
		})
	}

	if a.logins != nil {
		g.Go(func() error {
			if err := a.logins.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down", "sessions", a.sessions.Len())
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		a.health.Stop()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
