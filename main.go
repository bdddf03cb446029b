package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/expothearchive/archive-backend/handlers"
	"github.com/expothearchive/archive-backend/internal/actors"
	"github.com/expothearchive/archive-backend/internal/archive/repository"
	"github.com/expothearchive/archive-backend/internal/config"
	"github.com/expothearchive/archive-backend/internal/database"
	"github.com/expothearchive/archive-backend/internal/feed"
	"github.com/expothearchive/archive-backend/internal/media"
	"github.com/expothearchive/archive-backend/internal/oidc"
	"github.com/expothearchive/archive-backend/internal/sessions"
	"github.com/expothearchive/archive-backend/pkg/logger"
	"github.com/expothearchive/archive-backend/pkg/metrics"
	"github.com/expothearchive/archive-backend/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v mongo=%v redis=%v admin=%v",
		cfg.OIDC.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Admin.Email != "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond
	// to OPTIONS. Production should sit behind a stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Connect to Redis early so the rate limiter and token blacklist can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-actor when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// OIDC verifier for the identity provider; an insecure claims-only parser
	// can be enabled for integration tests via ALLOW_INSECURE_TOKEN=true.
	var verifier middleware.Verifier
	if cfg.OIDC.URL != "" && cfg.OIDC.ClientID != "" && cfg.OIDC.Realm != "" {
		issuer := strings.TrimRight(cfg.OIDC.URL, "/") + "/realms/" + cfg.OIDC.Realm
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN"))) == "true" {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// Sessions: prefer Redis when available, fall back to MongoDB below
	var sessionsSvc *sessions.Service
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// MongoDB connection with retry/backoff to tolerate startup races
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	} else {
		logger.Fatalf("MONGODB_URI is required")
	}
	db := mongoClient.Database(cfg.MongoDB.Database)

	actorsSvc := actors.NewService(actors.NewMongoActorRepository(db.Collection("actors")))
	if sessionsSvc == nil {
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
	}

	// Entries collection mirror and live feed
	repo := repository.NewMongoRepo(db.Collection("entries"), db.Collection("comments"))
	store := feed.NewStore(repo)
	go store.Run(ctx)
	// change streams need a replica set; without one the gateway's explicit
	// invalidation still keeps the mirror fresh for writes through this service
	go func() {
		if err := repo.WatchEntries(ctx, store.Invalidate); err != nil {
			logger.Warnf("entries change stream unavailable: %v", err)
		}
	}()

	session := feed.NewSession(cfg.Admin.Email)
	gateway := feed.NewGateway(repo, store, session)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["mongo"] = mongoClient.Ping(c.Request.Context(), nil) == nil
		if !deps["mongo"] {
			ready = false
		}
		if cfg.OIDC.URL != "" {
			deps["oidc"] = verifier != nil
			if !deps["oidc"] {
				ready = false
			}
		} else {
			deps["oidc"] = true
		}
		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	authHandler := handlers.NewAuthHandler(cfg, actorsSvc, sessionsSvc)
	authHandler.Register(r.Group("/"))
	handlers.RegisterSwagger(r)

	var authRequired gin.HandlerFunc
	if verifier != nil {
		authRequired = middleware.AuthMiddleware(verifier)
	}

	api := r.Group("/api/v1")
	handlers.NewEntriesHandler(gateway, store).Register(api, authRequired)
	api.GET("/feed/live", handlers.LiveFeedHandler(store))

	// media uploads are optional: only wired when MinIO is configured
	if mediaCfg := media.LoadConfig(); mediaCfg.Endpoint != "" {
		mediaStore, err := media.NewStore(mediaCfg)
		if err != nil {
			logger.Warnf("media storage unavailable: %v", err)
		} else {
			handlers.NewMediaHandler(mediaStore, session).Register(api, authRequired)
			logger.Infof("media storage enabled at %s", mediaCfg.Endpoint)
		}
	}

	if authRequired != nil {
		api.GET("/me", authRequired, func(c *gin.Context) {
			claims, _ := c.Get("claims")
			if cm, ok := claims.(map[string]interface{}); ok {
				if a, err := actorsSvc.UpsertFromClaims(c.Request.Context(), cm); err == nil && a != nil {
					c.JSON(http.StatusOK, gin.H{"actor": a, "isAdmin": session.IsAdmin(a)})
					return
				}
			}
			c.JSON(http.StatusOK, gin.H{"claims": claims})
		})
	} else {
		api.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "OIDC not configured"})
		})
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting archive service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
