package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizify/internal/api"
	"quizify/internal/api/handlers"
	"quizify/internal/builder"
	"quizify/internal/chunker"
	"quizify/internal/config"
	"quizify/internal/db"
	"quizify/internal/document"
	"quizify/internal/gemini"
	"quizify/internal/notify"
	"quizify/internal/r2"
	"quizify/internal/session"
	"quizify/internal/vectorstore"

	sessions "github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gsessions "github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
)

const storeName = "quizify_session"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Gemini client
	geminiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer geminiClient.Close()

	index, err := vectorstore.Open(cfg.VectorDBPath, geminiClient)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}
	defer index.Close()

	splitter, err := chunker.New(cfg.ChunkSeparator, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to configure chunker: %v", err)
	}
	quizBuilder := builder.New(splitter, geminiClient, index, geminiClient, builder.Options{
		RetrievalK:   cfg.RetrievalK,
		MaxQuestions: cfg.MaxQuestions,
	})

	// --- Quiz state store ---
	var (
		quizStore session.Store
		database  *db.DB
	)
	switch cfg.SessionBackend {
	case config.BackendRedis:
		rs, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rs.Close()
		quizStore = rs
	case config.BackendPostgres:
		database, err = db.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		ps := session.NewPostgresStore(database.Queries, cfg.SessionTTL)
		go ps.Cleanup(ctx, time.Hour)
		quizStore = ps
	default:
		quizStore = session.NewMemoryStore(cfg.SessionTTL)
	}
	log.Printf("INFO: Quiz sessions stored in %s", cfg.SessionBackend)

	// --- Browser session store ---
	// Only the quiz id lives in the browser session; a database keeps it
	// across restarts when one is configured.
	var store sessions.Store
	if cfg.DatabaseURL != "" {
		sessionDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open database connection for session store: %v", err)
		}
		defer sessionDB.Close()
		if err := sessionDB.Ping(); err != nil {
			log.Fatalf("Failed to ping database for session store: %v", err)
		}
		store, err = gsessions.NewStore(sessionDB, cfg.SessionSecret)
		if err != nil {
			log.Fatalf("Failed to create postgres session store: %v", err)
		}
	} else {
		store = cookie.NewStore(cfg.SessionSecret)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		Secure:   false, // TODO: read from config once the server is deployed behind HTTPS
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	notifier := notify.New(cfg.DiscordWebhookURL)
	defer notifier.Wait()

	var archive handlers.Archiver
	if cfg.R2.Enabled() {
		r2Client, err := r2.NewClient(ctx, r2.Options{
			AccountID:       cfg.R2.AccountID,
			Bucket:          cfg.R2.Bucket,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			PublicURL:       cfg.R2.PublicURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize R2 client: %v", err)
		}
		archive = r2Client
	} else {
		log.Println("INFO: R2 not configured, uploaded documents are not archived")
	}

	transcripts := document.NewTranscripts(&http.Client{Timeout: 30 * time.Second}, cfg.TranscriptLang)

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger())
	router.Use(sessions.Sessions(storeName, store))

	handler := handlers.NewHandler(quizBuilder, quizStore, transcripts, archive, notifier, cfg.MaxUploadMB<<20)
	api.SetupRoutes(router, handler, cfg.FrontendURL)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("INFO: Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("INFO: Server exited properly")
}
