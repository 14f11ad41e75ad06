package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rexdotsh/valeo/internal/config"
	"github.com/rexdotsh/valeo/internal/dtos"
	"github.com/rexdotsh/valeo/internal/handlers"
	"github.com/rexdotsh/valeo/internal/middlewares"
	"github.com/rexdotsh/valeo/internal/repositories"
	"github.com/rexdotsh/valeo/internal/routes"
	"github.com/rexdotsh/valeo/internal/services"
	"github.com/rexdotsh/valeo/internal/signaling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("database unreachable")
	}
	if err := repositories.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("running migrations")
	}
	log.Info().Msg("database ready")

	sessionRepo := repositories.NewSessionRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	noteRepo := repositories.NewNoteRepository(db)
	doctorRepo := repositories.NewDoctorRepository(db)

	service := services.NewSessionService(sessionRepo, messageRepo, noteRepo, doctorRepo)
	hub := signaling.NewHub()

	sessionHandler := handlers.NewSessionHandler(service, cfg.JWTSecret, cfg.DoctorTokenTTL)
	signalingHandler := handlers.NewSignalingHandler(hub)

	dtos.RegisterValidators()
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	signalingAuth := middlewares.SignalingAuthMiddleware(cfg.JWTSecret, service)
	routes.RegisterPublicEndpoints(router, sessionHandler, signalingHandler, signalingAuth)
	routes.RegisterProtectedEndpoints(router, sessionHandler, cfg.JWTSecret, service)

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
