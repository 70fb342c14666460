package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/STKYFNGRS/trivia-box-api/internal/config"
	"github.com/STKYFNGRS/trivia-box-api/internal/handler"
	"github.com/STKYFNGRS/trivia-box-api/internal/middleware"
	"github.com/STKYFNGRS/trivia-box-api/internal/provider"
	"github.com/STKYFNGRS/trivia-box-api/internal/repository/postgres"
	redisrepo "github.com/STKYFNGRS/trivia-box-api/internal/repository/redis"
	"github.com/STKYFNGRS/trivia-box-api/internal/service"
	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
	"github.com/STKYFNGRS/trivia-box-api/internal/websocket"
	"github.com/STKYFNGRS/trivia-box-api/pkg/auth"
	"github.com/STKYFNGRS/trivia-box-api/pkg/database"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// База данных
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Ошибка подключения к PostgreSQL: %v", err)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Fatalf("Ошибка применения миграций: %v", err)
	}

	// Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer redisClient.Close()

	// Репозитории
	sessionRepo := postgres.NewSessionRepo(db)
	questionRepo := postgres.NewQuestionRepo(db)
	responseRepo := postgres.NewResponseRepo(db)
	playerRepo := postgres.NewPlayerRepo(db)
	cacheRepo, err := redisrepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Fatalf("Ошибка инициализации кеш-репозитория: %v", err)
	}

	// Игровая конфигурация
	gameCfg := gamesession.DefaultConfig()
	if cfg.Game.QuestionCount > 0 {
		gameCfg.QuestionCount = cfg.Game.QuestionCount
	}
	if cfg.Game.RoundSeconds > 0 {
		gameCfg.RoundDuration = time.Duration(cfg.Game.RoundSeconds) * time.Second
	}
	if cfg.Game.ToleranceMs > 0 {
		gameCfg.Tolerance = time.Duration(cfg.Game.ToleranceMs) * time.Millisecond
	}

	// Сервисы
	questionProvider := provider.NewHTTPQuestionProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
	submitLimiter := middleware.NewRateLimiter(redisClient, middleware.DefaultSubmissionRateLimitConfig())
	createLimiter := middleware.NewRateLimiter(redisClient, middleware.SessionCreateRateLimitConfig())

	achievementService := service.NewAchievementService(playerRepo, cacheRepo)
	leaderboardService := service.NewLeaderboardService(playerRepo, cacheRepo)

	sessionRegistry := gamesession.NewSessionRegistry()
	sessionManager := service.NewSessionLifecycleManager(
		gameCfg, questionProvider, sessionRepo, questionRepo, cacheRepo, sessionRegistry, achievementService)

	scoreService := service.NewScoreService(
		gameCfg,
		gamesession.NewTimingValidator(gameCfg.RoundDuration, gameCfg.Tolerance),
		gamesession.NewScoreCalculator(gameCfg, submitLimiter),
		sessionRepo, questionRepo, responseRepo, playerRepo,
		sessionManager,
	)

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Fatalf("Ошибка инициализации JWT: %v", err)
	}

	// Обработчики и middleware
	sessionHandler := handler.NewSessionHandler(sessionManager, scoreService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	wsHub := websocket.NewHub(sessionRegistry)

	isProduction := os.Getenv("GIN_MODE") == "release"

	router := gin.Default()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	corsOrigins := cfg.Server.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		sessions := api.Group("/sessions")
		sessions.Use(authMiddleware.RequireAuth())
		{
			sessions.POST("", createLimiter.Limit(), sessionHandler.StartSession)
			sessions.GET("/current", sessionHandler.GetCurrentSession)
			sessions.DELETE("/current", sessionHandler.ResetSession)
			sessions.POST("/answers", submitLimiter.Limit(), sessionHandler.SubmitAnswer)
		}

		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/leaderboard/export", authMiddleware.RequireAuth(), leaderboardHandler.ExportLeaderboard)

		api.GET("/ws", authMiddleware.RequireAuth(), func(c *gin.Context) {
			address, ok := middleware.PlayerAddress(c)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			wsHub.ServeWS(c.Writer, c.Request, address)
		})
	}

	// Фоновая чистка брошенных сессий
	go runStaleSessionSweeper(appCtx, sessionRepo, cfg.Game.StaleSessionMinutes)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}

// runStaleSessionSweeper периодически удаляет брошенные незавершенные сессии
func runStaleSessionSweeper(ctx context.Context, sessionRepo *postgres.SessionRepo, olderThanMinutes int) {
	if olderThanMinutes <= 0 {
		olderThanMinutes = 60
	}

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			deleted, err := sessionRepo.DeleteStale(sweepCtx, olderThanMinutes)
			cancel()
			if err != nil {
				log.Printf("[Sweeper] WARNING: чистка брошенных сессий не удалась: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("[Sweeper] Удалено брошенных сессий: %d", deleted)
			}
		}
	}
}
