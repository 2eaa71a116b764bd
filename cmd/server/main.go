package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/Skufu/hypoxrisk/internal/artifact"
	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/config"
	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/web"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	initLogger(cfg)
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()
	var pool *pgxpool.Pool
	var db HealthChecker
	if cfg.Database.Enabled {
		pool, err = connectDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer pool.Close()
		db = pool
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog error: %v", err)
	}
	variant, err := cat.Variant(cfg.Variant)
	if err != nil {
		log.Fatalf("catalog error: %v (known: %v)", err, cat.VariantNames())
	}

	art, err := loadArtifact(ctx, artifactSource(cfg, variant, pool))
	if err != nil {
		log.Fatalf("artifact error: %v", err)
	}

	svc := predict.NewService(art, variant, cat)
	h, err := web.New(svc)
	if err != nil {
		log.Fatalf("template error: %v", err)
	}

	router := setupRouter(db, svc, h)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.WithFields(log.Fields{"port": cfg.Server.Port, "variant": variant.Name}).Info("server listening")
	waitForShutdown(server)
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func artifactSource(cfg *config.Config, variant *catalog.Variant, pool *pgxpool.Pool) artifact.Source {
	if cfg.Artifact.Source == config.SourcePostgres {
		return artifact.NewPostgresSource(pool, cfg.Artifact.Name)
	}
	path := cfg.Artifact.Path
	if path == "" {
		path = variant.Artifact
	}
	return artifact.FileSource{Path: artifact.ResolvePath(path)}
}

// loadArtifact returns a nil artifact without error when the source has
// nothing to offer; the page then shows the missing-model state.
func loadArtifact(ctx context.Context, src artifact.Source) (*artifact.Artifact, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	art, err := src.Fetch(fetchCtx)
	if errors.Is(err, artifact.ErrArtifactMissing) {
		log.WithField("source", src.Describe()).Warn("model artifact missing, run the training step first")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"source":    src.Describe(),
		"model":     art.Model.Kind(),
		"threshold": art.Threshold,
		"features":  len(art.FeatureNames),
	}).Info("model artifact loaded")
	return art, nil
}

func setupRouter(db HealthChecker, svc *predict.Service, h *web.Handler) *gin.Engine {
	router := gin.New()
	router.Use(
		web.RequestID(),
		web.Logging(),
		gin.Recovery(),
		web.LimitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "X-Request-ID"},
			MaxAge:       12 * time.Hour,
		}),
	)

	h.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "model": "loaded", "db": "disabled"}

		if !svc.Ready() {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["model"] = "missing"
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			body["db"] = "ok"
			if err := db.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["db"] = fmt.Sprintf("unhealthy: %v", err)
			}
		}

		c.JSON(status, body)
	})

	return router
}

func waitForShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
}
