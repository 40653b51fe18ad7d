package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/wikichain/wikichain/handlers"
	"github.com/wikichain/wikichain/internal/audit"
	"github.com/wikichain/wikichain/internal/config"
	"github.com/wikichain/wikichain/internal/contentstore"
	"github.com/wikichain/wikichain/internal/database"
	"github.com/wikichain/wikichain/internal/idempotency"
	"github.com/wikichain/wikichain/internal/ledger"
	"github.com/wikichain/wikichain/internal/ledger/handler"
	"github.com/wikichain/wikichain/internal/ledger/repository"
	"github.com/wikichain/wikichain/internal/oidc"
	"github.com/wikichain/wikichain/internal/tokens"
	"github.com/wikichain/wikichain/pkg/logger"
	"github.com/wikichain/wikichain/pkg/metrics"
	"github.com/wikichain/wikichain/pkg/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v", cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Journal: MongoDB when configured, otherwise memory (state is lost on restart)
	var journal ledger.Journal
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			logger.Fatalf("ledger journal unavailable: %v", err)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		col := mongoClient.Database(cfg.MongoDB.Database).Collection(cfg.Ledger.JournalCollection)
		mj, err := repository.NewMongoJournal(ctx, col)
		if err != nil {
			logger.Fatalf("failed to prepare journal: %v", err)
		}
		journal = mj
		logger.Infof("using MongoDB journal %s.%s", cfg.MongoDB.Database, cfg.Ledger.JournalCollection)
	} else {
		journal = repository.NewMemoryJournal()
		logger.Warnf("MONGODB_URI not set; using in-memory journal")
	}

	l, err := ledger.Open(ctx, ledger.Options{
		Threshold:    cfg.Ledger.Threshold,
		GenesisOwner: ledger.Address(cfg.Ledger.GenesisOwner),
	}, journal)
	if err != nil {
		logger.Fatalf("failed to open ledger: %v", err)
	}

	// Content store: MinIO when configured, otherwise memory
	var store contentstore.Store
	if cfg.MinIO.Endpoint != "" {
		ms, err := contentstore.NewMinIOStore(ctx, contentstore.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Fatalf("failed to initialize MinIO content store: %v", err)
		}
		store = ms
	} else {
		store = contentstore.NewMemoryStore()
		logger.Warnf("MINIO_ENDPOINT not set; using in-memory content store")
	}

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Idempotent-Replay")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery())

	// Redis backs the shared rate limiter and idempotency keys when reachable
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err == nil {
			redisClient = rc
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		}
	}

	var idem idempotency.Store
	if redisClient != nil {
		idem = idempotency.NewRedisStore(redisClient, "idem:", cfg.Idempotency.TTL)
	} else {
		idem = idempotency.NewMemoryStore(cfg.Idempotency.TTL)
	}

	// Caller identity: Keycloak OIDC and/or HMAC service tokens
	var chain middleware.ChainVerifier
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.KeycloakIssuer(cfg.Keycloak.URL, cfg.Keycloak.Realm), cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, ver)
		}
	}
	if cfg.JWT.Secret != "" {
		iss, err := tokens.NewIssuer(cfg.JWT.Secret)
		if err != nil {
			logger.Warnf("HMAC service tokens disabled: %v", err)
		} else {
			chain = append(chain, iss)
		}
	}
	// Optional insecure verifier for integration tests: parse token claims without signature verification
	if len(chain) == 0 && strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN"))) == "true" {
		logger.Warn("enabling insecure token verifier (integration mode)")
		chain = append(chain, oidc.NewInsecureVerifier())
	}
	if len(chain) == 0 {
		logger.Warnf("no token verifier configured; ledger transactions will be rejected with 401")
	}

	guards := []gin.HandlerFunc{middleware.AuthMiddleware(chain, cfg.Keycloak.AddressClaim)}
	if cfg.RateLimit.Enabled {
		// per-address limits once the caller is known
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			guards = append(guards, middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			guards = append(guards, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	var reports interface {
		audit.ReportStore
		handler.ReportReader
	}
	if mongoClient != nil {
		reports = audit.NewMongoReportStore(mongoClient.Database(cfg.MongoDB.Database).Collection(cfg.Audit.Collection))
	} else {
		reports = audit.NewMemoryReportStore()
	}

	handler.NewHandler(l, idem, reports, guards...).Register(r)
	handlers.RegisterContentRoutes(r, store)
	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint: 200 only when the dependencies we were configured with are usable
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"ledger": l.Halted() == nil,
			"oidc":   len(chain) > 0,
			"redis":  !(cfg.Redis.Host != "" && cfg.RateLimit.UseRedis) || redisClient != nil,
		}
		if mongoClient != nil {
			pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			deps["journal"] = mongoClient.Ping(pctx, nil) == nil
			cancel()
		} else {
			deps["journal"] = true
		}
		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "seq": l.Seq(), "uptime": time.Since(startTime).String()})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Audit.Enabled {
		a := audit.NewAuditor(audit.LocalLedger{Ledger: l, Caller: ledger.Address(cfg.Audit.Caller)}, audit.StoreChecker{Store: store}, reports)
		go a.Loop(ctx, cfg.Audit.Interval)
		logger.Infof("existence auditor running every %s", cfg.Audit.Interval)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting ledger service on %s (seq=%d, owner=%s, threshold=%d)", addr, l.Seq(), l.Owner(), l.Threshold())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}
}
