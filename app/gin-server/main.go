package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/buildmate/config"
	"github.com/yoockh/buildmate/internal/api/handlers"
	"github.com/yoockh/buildmate/internal/api/middleware"
	"github.com/yoockh/buildmate/internal/api/routes"
	"github.com/yoockh/buildmate/internal/cache"
	"github.com/yoockh/buildmate/internal/logger"
	"github.com/yoockh/buildmate/internal/providers/llm"
	mongorepo "github.com/yoockh/buildmate/internal/repositories/mongo"
	pgrepo "github.com/yoockh/buildmate/internal/repositories/postgres"
	"github.com/yoockh/buildmate/internal/services"
	"github.com/yoockh/buildmate/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("buildmate")
	appCfg := config.LoadApp()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init PostgreSQL
	if err := config.InitPostgres(ctx, appCfg.Stores); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	// Init MongoDB
	if err := config.InitMongo(ctx, appCfg.Stores); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(ctx); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	// Init Redis (optional: without it ideas are cached in-process and async generation is off)
	var ideaCache cache.Cache
	var jobs *workers.JobQueue
	switch err := config.InitRedis(ctx, appCfg.Stores); {
	case err == nil:
		ideaCache = cache.NewRedisCache(config.RedisClient)
		jobs = workers.NewJobQueue(config.RedisClient)
		log.Info("Redis connected")
	case errors.Is(err, config.ErrRedisNotConfigured):
		ideaCache = cache.NewMemoryCache(4096, appCfg.IdeaCacheTTL)
		log.Warn("Redis not configured, using in-memory idea cache and disabling async generation")
	default:
		log.WithError(err).Fatal("Redis init error")
	}

	provider, timeout, err := newProvider(ctx)
	if err != nil {
		log.WithError(err).Fatal("LLM provider init error")
	}
	defer provider.Close()
	log.WithField("provider", provider.Name()).Info("LLM provider ready")

	skillRepo := pgrepo.NewSkillRepo(config.PostgresDB)
	logSvc := services.NewGenerationLogService(mongorepo.NewGenerationLogRepo(config.MongoDatabase()), appCfg.GenerationLogTTL)
	ideaSvc := services.NewIdeaService(pgrepo.NewIdeaRepo(config.PostgresDB), skillRepo, provider, logSvc, ideaCache, appCfg.IdeaCacheTTL, timeout, log)
	skillSvc := services.NewSkillService(skillRepo, ideaSvc, ideaCache, log)

	deps := routes.Deps{
		Auth:        middleware.JWTConfigFromEnv(),
		Idea:        handlers.NewIdeaHandler(ideaSvc),
		Generations: handlers.NewGenerationLogHandler(logSvc),
	}
	if jobs != nil {
		pool := &workers.GenerationWorkerPool{
			Redis:      config.RedisClient,
			Skills:     skillSvc,
			Ideas:      ideaSvc,
			Publisher:  jobs,
			NumWorkers: appCfg.GenerationWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("generation workers init error")
		}
		deps.Skill = handlers.NewSkillHandler(skillSvc, ideaSvc, jobs)
		deps.WS = handlers.NewWSHandler(jobs)
	} else {
		deps.Skill = handlers.NewSkillHandler(skillSvc, ideaSvc, nil)
		deps.WS = handlers.NewWSHandler(nil)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, "/ping"))
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: ":" + appCfg.Port, Handler: r}
	go func() {
		log.WithField("port", appCfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server error")
		}
	}()

	<-ctx.Done()
	shutdown(log, srv)
}

// newProvider builds the configured text-generation provider and the timeout the idea
// service should apply to each call.
func newProvider(ctx context.Context) (llm.Provider, time.Duration, error) {
	cfg, err := config.LoadLLM()
	if err != nil {
		return nil, 0, err
	}
	if cfg.Provider == config.ProviderVertex {
		p, err := llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.Model)
		return p, cfg.Timeout, err
	}
	// the HTTP client already enforces the timeout
	return llm.NewGeminiREST(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), 0, nil
}

func shutdown(log *logrus.Logger, srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(ctx)
	}
	if config.RedisClient != nil {
		_ = config.RedisClient.Close()
	}
	log.Info("server stopped")
}
