package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Skufu/fisioplan/internal/api"
	"github.com/Skufu/fisioplan/internal/cache"
	"github.com/Skufu/fisioplan/internal/config"
	"github.com/Skufu/fisioplan/internal/logging"
	"github.com/Skufu/fisioplan/internal/recommend"
	"github.com/Skufu/fisioplan/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logging.Init("fisioplan", cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	engine, err := newEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("knowledge base")
	}
	log.Info().
		Str("knowledge_version", engine.Version()).
		Int("conditions", len(engine.Conditions())).
		Str("input_policy", string(engine.Policy())).
		Msg("engine ready")

	ctx := context.Background()
	deps := api.Deps{Engine: engine, CORSOrigins: cfg.CORSOrigins}

	if cfg.EnableDB {
		db, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		deps.Store = db
	}

	if cfg.CacheEnabled() {
		c, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, cacheNamespace(engine))
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer c.Close()
		deps.Cache = c
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("server listening")
	waitForShutdown(server)
}

func newEngine(cfg *config.Config) (*recommend.Engine, error) {
	kb := recommend.DefaultKnowledge()
	if cfg.KnowledgeFile != "" {
		loaded, err := recommend.LoadKnowledge(cfg.KnowledgeFile)
		if err != nil {
			return nil, err
		}
		kb = loaded
	}
	return recommend.NewEngine(kb, recommend.WithInputPolicy(cfg.InputPolicy))
}

// cacheNamespace keys cached plans by everything besides the profile that
// changes the output.
func cacheNamespace(e *recommend.Engine) string {
	return strings.Join([]string{e.Version(), string(e.Policy())}, "|")
}

func waitForShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
