package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/fanconnect/server/internal/database"
	"github.com/fanconnect/server/internal/handlers"
	ws "github.com/fanconnect/server/internal/websocket"
	"github.com/fanconnect/server/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Registry   *ws.Registry
}

// New wires a server from already constructed dependencies. Tests build one
// on top of an in-memory database and miniredis.
func New(db *database.Database, rdb *redis.Client, jwtMgr *auth.JWTManager) *Server {
	registry := ws.NewRegistry()

	h := &Handlers{
		Auth:    handlers.NewAuthHandler(db, jwtMgr, rdb),
		User:    handlers.NewUserHandler(db),
		Message: handlers.NewHTTPMessageHandler(db),
		Gems:    handlers.NewGemHandler(db),
		Worker:  handlers.NewWorkerHandler(db),
		Admin:   handlers.NewAdminHandler(db),
		WS:      handlers.NewWebSocketHandler(registry, handlers.NewChatHandler(db, registry)),
	}

	router := gin.Default()
	APIEndpoints(router, jwtMgr, rdb, h)

	return &Server{
		Router:     router,
		DB:         db,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Registry:   registry,
	}
}

// NewFromEnv builds the production server from environment variables.
func NewFromEnv() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	return New(dbConn, rdb, jwtMgr)
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Router,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server run error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")

	// Disconnect live chat clients first so their write pumps flush close
	// frames before the listener stops accepting.
	s.Registry.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
}
