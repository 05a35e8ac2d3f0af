package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/approval"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/config"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/controller"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/dao"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/db"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/engine"
	pdp_dao "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/dao"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/router"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/snapshot"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

const auditMemoryCapacity = 10000

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(cfg.Log.Dir)
	defer logger.Sync()

	if cfg.Auth.Enabled && cfg.Auth.HMACSecret == "" {
		logger.Fatal("auth.hmacSecret is required when auth is enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		if err := db.InitRedis(); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer db.CloseRedis()
		redisClient = db.RedisClient
	}

	// Initialize Neo4j
	if cfg.Neo4j.Enabled {
		if err := db.InitNeo4j(); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		defer db.CloseNeo4j()
	}

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	validationUtil := util.NewValidationUtil()
	notificationService := util.NewNotificationService()
	auditService := audit.NewService(buildAuditRepository(cfg), 5*time.Second)

	g, gctx := errgroup.WithContext(ctx)

	// Policy store and snapshot source
	var (
		store  snapshot.PolicyStore
		source engine.SnapshotSource
	)
	if cfg.Snapshot.RemoteURL != "" {
		poller := pdp_dao.NewSnapshotPoller(cfg.Snapshot.RemoteURL, cfg.Snapshot.PollInterval, cfg.PDP.EvaluatorTimeout).
			WithBearerToken(cfg.Snapshot.RemoteToken)
		source = poller
		g.Go(func() error { poller.Run(gctx); return nil })
		logger.Info("Following remote snapshot distributor", zap.String("url", cfg.Snapshot.RemoteURL))
	} else {
		var err error
		store, err = buildPolicyStore(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize policy store", zap.Error(err))
		}
		distributor := snapshot.NewDistributor(store, snapshot.Options{
			Debounce:          cfg.Snapshot.Debounce,
			ReconcileInterval: cfg.Snapshot.ReconcileInterval,
		})
		if _, _, err := distributor.Rebuild(ctx); err != nil {
			logger.Error("Initial snapshot build failed", zap.Error(err))
		}
		source = distributor
		eventBus.Subscribe(util.EventPolicyChanged, distributor.HandlePolicyChanged)
		g.Go(func() error { distributor.Run(gctx); return nil })

		if len(cfg.Kafka.Brokers) > 0 {
			feed, err := snapshot.NewKafkaFeed(snapshot.KafkaConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
				GroupID: cfg.Kafka.GroupID,
			})
			if err != nil {
				logger.Fatal("Failed to initialize Kafka feed", zap.Error(err))
			}
			defer feed.Close()
			eventBus.Subscribe(util.EventPolicyChanged, feed.HandlePolicyChanged)
			g.Go(func() error { feed.Listen(gctx, distributor.Notify); return nil })
		}
	}

	// Evaluators
	approvalEngine := buildApprovalEngine(cfg, redisClient, eventBus)
	auditEvaluator := engine.NewAuditEvaluator(auditService)
	named := map[string]engine.Evaluator{
		"approval": approvalEngine,
		"audit":    auditEvaluator,
	}
	if redisClient != nil {
		named["ratelimit"] = engine.NewRateLimitEvaluator(redisClient, cfg.PDP.RateLimit, cfg.PDP.RateWindow)
	}
	bindings := make([]engine.Binding, 0, len(cfg.PDP.Evaluators))
	for _, b := range cfg.PDP.Evaluators {
		bindings = append(bindings, engine.Binding{Target: b.Target, Evaluator: b.Evaluator})
	}
	registry, err := engine.BuildRegistry("approval", named, bindings, cfg.PDP.EvaluatorTimeout)
	if err != nil {
		logger.Fatal("Failed to build evaluator registry", zap.Error(err))
	}
	decider := engine.NewPolicyEvaluator(source, registry, engine.Options{
		MaxStaleness:     cfg.Snapshot.MaxStaleness,
		EvaluatorTimeout: cfg.PDP.EvaluatorTimeout,
		AuditOpenCalls:   cfg.PDP.AuditOpenCalls,
		Recorder:         auditEvaluator,
	})

	if cfg.Approval.ReplayEnabled {
		worker := approval.NewReplayWorker(approvalEngine,
			approval.NewHTTPExecutor(cfg.Approval.Backends, cfg.Approval.ReplayTimeout),
			cfg.Approval.PollInterval, cfg.Approval.ReplayTimeout)
		g.Go(func() error { worker.Run(gctx); return nil })
	}

	broker, err := buildCredentialBroker(ctx, cfg, validationUtil)
	if err != nil {
		logger.Fatal("Failed to initialize credential broker", zap.Error(err))
	}

	// Initialize services
	services, err := service.InitializeServices(service.Components{
		Decider:        decider,
		Engine:         approvalEngine,
		Broker:         broker,
		SnapshotSource: source,
		Store:          store,
	}, auditService, validationUtil, notificationService, eventBus)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Initialize controllers
	controllers := controller.InitializeControllers(services)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	var limiterClient redis.Cmdable
	if redisClient != nil {
		limiterClient = redisClient
	}
	handler := router.SetupRouter(controllers, router.Options{
		Auth:              cfg.Auth,
		RedisClient:       limiterClient,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitDuration: cfg.Server.RateLimitDuration,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: handler,
	}

	g.Go(func() error {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Wait for a shutdown signal, then give in-flight requests 5 seconds.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return
	}
	logger.Info("Server exiting")
}

func buildAuditRepository(cfg *config.Configuration) audit.Repository {
	if !cfg.Elasticsearch.Enabled {
		return audit.NewMemoryRepository(auditMemoryCapacity)
	}
	repo, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL)
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch audit repository", zap.Error(err))
	}
	return repo
}

func buildPolicyStore(ctx context.Context, cfg *config.Configuration) (snapshot.PolicyStore, error) {
	if !cfg.Neo4j.Enabled {
		store := snapshot.NewMemoryStore()
		if err := snapshot.Seed(ctx, store, cfg.Policy.State()); err != nil {
			return nil, err
		}
		return store, nil
	}
	policyDAO, err := dao.NewPolicyDAO(ctx, db.Neo4jDriver)
	if err != nil {
		return nil, err
	}
	if cfg.Policy.Seed {
		if err := snapshot.Seed(ctx, policyDAO, cfg.Policy.State()); err != nil {
			return nil, err
		}
	}
	return policyDAO, nil
}

func buildApprovalEngine(cfg *config.Configuration, client redis.UniversalClient, bus *util.EventBus) *approval.Engine {
	opts := approval.Options{
		ReplayEnabled: cfg.Approval.ReplayEnabled,
		PendingTTL:    cfg.Approval.PendingTTL,
	}
	if cfg.Approval.Store == "redis" {
		if client == nil {
			logger.Fatal("approval.store is redis but redis is disabled")
		}
		return approval.NewEngine(approval.NewRedisStore(client), approval.NewRedisLocker(client, cfg.Approval.LockTTL), bus, opts)
	}
	return approval.NewEngine(approval.NewMemoryStore(), approval.NewMemoryLocker(), bus, opts)
}

func buildCredentialBroker(ctx context.Context, cfg *config.Configuration, validationUtil *util.ValidationUtil) (*credential.Broker, error) {
	creds := cfg.Credentials
	for _, def := range creds.Definitions {
		if err := validationUtil.ValidateCredentialDefinition(def); err != nil {
			return nil, err
		}
	}

	var selector credential.Selector
	switch creds.Selector {
	case "rego":
		rs, err := credential.NewRegoSelector(ctx, creds.RegoPolicy, creds.Default)
		if err != nil {
			return nil, err
		}
		selector = rs
	default:
		selector = credential.NewStaticSelector(creds.Static, creds.Default)
	}

	var secrets credential.SecretStore
	switch creds.SecretStore {
	case "vault":
		vs, err := credential.NewVaultSecretStore(cfg.Vault.Address, cfg.Vault.Token, cfg.Vault.Mount)
		if err != nil {
			return nil, err
		}
		secrets = vs
	default:
		secrets = credential.NewMemorySecretStore()
	}

	return credential.NewBroker(selector, secrets, creds.Definitions, credential.Options{
		CacheTTL:     creds.CacheTTL,
		FetchTimeout: creds.FetchTimeout,
	}), nil
}
