package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/feedback-relay/internal/api"
	"github.com/wuwenbin0122/feedback-relay/internal/db"
	"github.com/wuwenbin0122/feedback-relay/internal/relay"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := db.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("store: failed to open", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("store: close error", zap.Error(err))
		}
	}()

	upstream, err := relay.NewUpstreamClient(cfg.Upstream)
	if err != nil {
		logger.Fatal("upstream: failed to initialise client", zap.Error(err))
	}

	feedback := relay.New(store, upstream, cfg.Store.Driver, logger.Named("relay"))
	router := setupRouter(feedback, logger)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// no WriteTimeout: completions stream for as long as the model writes
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server crashed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(feedback *relay.Relay, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(utils.RequestLogger(logger.Named("http")), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.NewHandler(feedback, logger.Named("api")).RegisterRoutes(router)

	return router
}
