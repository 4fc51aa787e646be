package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nbtcare/voicescreen/config"
	"github.com/nbtcare/voicescreen/internal/api/handlers"
	"github.com/nbtcare/voicescreen/internal/api/middleware"
	"github.com/nbtcare/voicescreen/internal/api/routes"
	"github.com/nbtcare/voicescreen/internal/cache"
	"github.com/nbtcare/voicescreen/internal/logger"
	"github.com/nbtcare/voicescreen/internal/providers/segmenter"
	mongorepo "github.com/nbtcare/voicescreen/internal/repositories/mongo"
	pgrepo "github.com/nbtcare/voicescreen/internal/repositories/postgres"
	"github.com/nbtcare/voicescreen/internal/services"
	"github.com/nbtcare/voicescreen/internal/voice"
	"github.com/nbtcare/voicescreen/internal/workers"
)

func main() {
	_ = godotenv.Load()

	logg := logger.New()

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	logg.Info("MongoDB connected")

	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	logg.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	logg.Info("Redis connected")

	platformURL := os.Getenv("VOICE_PLATFORM_URL")
	platformKey := os.Getenv("VOICE_PLATFORM_API_KEY")
	if platformURL == "" || platformKey == "" {
		log.Fatal("VOICE_PLATFORM_URL and VOICE_PLATFORM_API_KEY must be set")
	}
	segmenterURL := os.Getenv("SEGMENTER_URL")
	if segmenterURL == "" {
		log.Fatal("SEGMENTER_URL must be set")
	}

	mongoDB := config.MongoDatabase()
	sessionRepo := mongorepo.NewSessionRepo(mongoDB)
	transcriptRepo := mongorepo.NewTranscriptRepo(mongoDB)
	profileRepo := pgrepo.NewProfileRepo(config.PostgresDB)
	assessmentRepo := pgrepo.NewAssessmentRepo(config.PostgresDB)

	redisCache := cache.NewRedisCache(config.RedisClient)
	publisher := services.NewRedisPublisher(config.RedisClient, logg)
	enqueuer := &workers.StreamEnqueuer{Redis: config.RedisClient}

	callAPI := voice.NewAPI(platformURL, platformKey)
	seg := segmenter.NewHTTPProvider(segmenterURL, nil)

	profileSvc := services.NewProfileService(profileRepo)
	summarySvc := services.NewSummaryService(callAPI, seg, redisCache, services.SummaryConfig{}, logg)
	assessmentSvc := services.NewAssessmentService(assessmentRepo)

	sessionMgr := services.NewSessionManager(services.ManagerDeps{
		NewClient: func() voice.Client {
			return voice.NewPlatformClient(voice.PlatformConfig{
				BaseURL: platformURL,
				APIKey:  platformKey,
				Logger:  logg,
			})
		},
		Publisher: publisher,
		Sessions:  sessionRepo,
		Archive:   transcriptRepo,
		Summaries: enqueuer,
		Logger:    logg,
	})
	defer sessionMgr.CloseAll()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	pool := &workers.SummaryWorkerPool{
		Redis:       config.RedisClient,
		Summaries:   summarySvc,
		Assessments: assessmentSvc,
		Logger:      logg,
	}
	if err := pool.Start(workerCtx); err != nil {
		log.Fatalf("summary worker init error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logg))

	routes.RegisterRoutes(r, routes.Deps{
		Session: handlers.NewSessionHandler(sessionMgr, profileSvc),
		Profile: handlers.NewProfileHandler(profileSvc),
		Summary: handlers.NewSummaryHandler(summarySvc, assessmentSvc),
		WS:      handlers.NewWSHandler(sessionMgr, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
