package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expothearchive/archive-backend/handlers"
	"github.com/expothearchive/archive-backend/internal/archive/repository"
	"github.com/expothearchive/archive-backend/internal/config"
	"github.com/expothearchive/archive-backend/internal/database"
	"github.com/expothearchive/archive-backend/internal/feed"
	"github.com/expothearchive/archive-backend/pkg/logger"
	"github.com/expothearchive/archive-backend/pkg/metrics"
)

// archive-feed is a read-only slice of the archive service: the mirrored
// entries collection, the filtered listing and the live websocket feed, with
// no identity provider and no mutations. Useful for demos and for serving
// the public feed separately from the authenticated API.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo repository.Repository
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Fatalf("failed to connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB.Database)
		mrepo := repository.NewMongoRepo(db.Collection("entries"), db.Collection("comments"))
		repo = mrepo
		logger.Infof("serving entries from MongoDB database %q", cfg.MongoDB.Database)
	} else {
		repo = repository.NewMemoryRepo()
		logger.Warn("MONGODB_URI not set; serving an empty in-memory collection")
	}

	store := feed.NewStore(repo)
	go store.Run(ctx)
	if mrepo, ok := repo.(*repository.MongoRepo); ok {
		go func() {
			if err := mrepo.WatchEntries(ctx, store.Invalidate); err != nil {
				logger.Warnf("entries change stream unavailable: %v", err)
			}
		}()
	}
	if mrepo, ok := repo.(*repository.MemoryRepo); ok {
		mrepo.SetOnChange(store.Invalidate)
	}

	// read-only gateway: no session context, so every mutation is rejected
	gateway := feed.NewGateway(repo, store, feed.NewSession(""))

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.String(200, "healthy") })

	api := r.Group("/api/v1")
	handlers.NewEntriesHandler(gateway, store).Register(api, nil)
	api.GET("/feed/live", handlers.LiveFeedHandler(store))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting archive feed on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
