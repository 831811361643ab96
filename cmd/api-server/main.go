package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mangashelf/internal/auth"
	"mangashelf/internal/category"
	"mangashelf/internal/covers"
	"mangashelf/internal/event"
	"mangashelf/internal/library"
	"mangashelf/internal/migrate"
	"mangashelf/internal/notify"
	"mangashelf/internal/source"
	"mangashelf/internal/syncer"
	"mangashelf/internal/track"
	"mangashelf/pkg/database"
	"mangashelf/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// Optional: avoid "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Event fan-out (TCP + WebSocket)
	hub := event.NewHub()
	router.GET("/ws", event.WSHandler(hub))
	tcpSrv := event.NewServer(":7070", hub)

	// UDP push notifications
	notifyRegistry := notify.NewRegistry()
	notifySrv := notify.NewServer(":9090", notifyRegistry, nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Source drivers
	registry := source.NewRegistry(
		source.NewMangaDex(),
		source.NewLocal(utils.LocalLibraryDir()),
	)

	router.GET("/sources", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sources": registry.Names()})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		})
	})

	// Library, categories, migration
	libRepo := library.NewRepo(db)
	catRepo := category.NewRepo(db)
	trackRepo := track.NewRepo(db)

	coverStore, err := covers.NewStore(utils.CoversDir())
	if err != nil {
		log.Fatalf("covers dir: %v", err)
	}

	sy := syncer.New(libRepo, libRepo)

	libHandler := library.NewHandler(libRepo, catRepo, registry, sy, hub, notifySrv)
	libHandler.RegisterRoutes(protected)

	catHandler := category.NewHandler(catRepo, category.NewReorderer(catRepo))
	catHandler.RegisterRoutes(protected)

	migrator := &migrate.Migrator{
		Sources:    registry,
		Syncer:     sy,
		Entries:    libRepo,
		Chapters:   libRepo,
		Categories: catRepo,
		Tracks:     trackRepo,
		Covers:     coverStore,
	}
	migHandler := migrate.NewHandler(migrator, libRepo, hub)
	migHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}
	if err := notifySrv.Close(); err != nil {
		log.Printf("udp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
