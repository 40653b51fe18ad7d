// Command auditor runs the proof-of-existence check against a running ledger
// server: it lists referenced content, checks availability and purges what
// is gone. Use -once for a single run (cron style) or leave it looping.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wikichain/wikichain/internal/audit"
	"github.com/wikichain/wikichain/internal/config"
	"github.com/wikichain/wikichain/internal/contentstore"
	"github.com/wikichain/wikichain/internal/database"
	"github.com/wikichain/wikichain/internal/ledger/client"
	"github.com/wikichain/wikichain/internal/tokens"
	"github.com/wikichain/wikichain/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single audit and exit")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadAuditorConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	iss, err := tokens.NewIssuer(cfg.JWT.Secret)
	if err != nil {
		logger.Fatalf("auditor needs JWT_SECRET to sign its service token: %v", err)
	}
	ttl := cfg.JWT.AccessTokenTTL
	lc := client.New(cfg.Audit.LedgerURL, func() (string, error) {
		return iss.GenerateAccessToken(cfg.Audit.Caller, "existence-auditor", ttl)
	})

	// Check MinIO directly when configured, otherwise through the server's content endpoint
	var checker audit.ContentChecker = lc
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
		checker = audit.StoreChecker{Store: ms}
	}

	var reports audit.ReportStore
	if cfg.MongoDB.URI != "" {
		mc, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v); audit reports will not be persisted", err)
		} else {
			defer func() { _ = mc.Disconnect(context.Background()) }()
			reports = audit.NewMongoReportStore(mc.Database(cfg.MongoDB.Database).Collection(cfg.Audit.Collection))
		}
	}

	a := audit.NewAuditor(lc, checker, reports)
	if *once {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if _, err := a.Run(rctx); err != nil {
			logger.Fatalf("audit failed: %v", err)
		}
		return
	}

	logger.Infof("auditing %s every %s", cfg.Audit.LedgerURL, cfg.Audit.Interval)
	_, _ = a.Run(ctx)
	a.Loop(ctx, cfg.Audit.Interval)
}
