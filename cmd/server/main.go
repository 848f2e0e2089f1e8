package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/campusreach/campaign-studio/internal/api"
	"github.com/campusreach/campaign-studio/internal/attachments"
	"github.com/campusreach/campaign-studio/internal/catalog"
	"github.com/campusreach/campaign-studio/internal/config"
	"github.com/campusreach/campaign-studio/internal/mailer"
	"github.com/campusreach/campaign-studio/internal/pkg/logger"
	"github.com/campusreach/campaign-studio/internal/storage"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process doesn't silently answer our traffic.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("CampusReach Campaign Studio server starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database unreachable at %s: %v", logger.RedactDSN(cfg.Database.URL), err)
	}
	pingCancel()
	logger.Info("database connected", "url", cfg.Database.URL)

	store := storage.New(db)

	// Redis is optional; without it the institution catalog is served
	// straight from Postgres on every request.
	var redisClient *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Warn("invalid redis url, catalog cache disabled", "url", cfg.Redis.URL)
		} else {
			redisClient = redis.NewClient(opts)
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				logger.Warn("redis unreachable, catalog cache disabled", "url", cfg.Redis.URL)
				redisClient = nil
			} else {
				logger.Info("catalog cache connected", "url", cfg.Redis.URL)
			}
			pingCancel()
		}
	}
	cat := catalog.New(store, redisClient, time.Duration(cfg.Catalog.CacheTTLSeconds)*time.Second)

	files, err := attachments.New(context.Background(), attachments.Config{
		Type:      cfg.Storage.Type,
		Bucket:    cfg.Storage.S3Bucket,
		Region:    cfg.Storage.S3Region,
		Prefix:    cfg.Storage.S3Prefix,
		LocalPath: cfg.Storage.LocalPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}
	log.Printf("Attachment storage: %s", cfg.Storage.Type)

	server := api.NewServer(cfg.Server, store, cat, files, mailer.NewRenderer(cfg.Mailer))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	db.Close()

	log.Println("Server stopped")
}
