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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"comicshelf/internal/auth"
	"comicshelf/internal/comics"
	"comicshelf/internal/library"
	"comicshelf/internal/notify"
	"comicshelf/internal/reviews"
	synchub "comicshelf/internal/sync"
	"comicshelf/pkg/api"
	"comicshelf/pkg/database"
	"comicshelf/pkg/logging"
	"comicshelf/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment")
	}

	srvCfg := utils.LoadServerConfig()

	logger, err := logging.New(srvCfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start TCP sync first (so you notice binding errors early)
	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub, logger))
	tcpSrv := synchub.NewServer(srvCfg.SyncAddr, hub, logger)

	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(srvCfg.NotifyAddr, registry, logger)

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

	apiGroup := router.Group("/api")

	apiGroup.GET("/health", func(c *gin.Context) {
		api.OK(c, gin.H{"status": "ok"})
	})

	// Catalog (public)
	comicsRepo := comics.NewRepo(db)
	comicsHandler := comics.NewHandler(comicsRepo, hub, notifySrv)
	comicsHandler.RegisterRoutes(apiGroup.Group("/comics"))
	comicsHandler.RegisterChapterRoutes(apiGroup.Group("/chapters"))
	apiGroup.GET("/stats", comicsHandler.Stats)

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(apiGroup.Group("/auth"))

	authMW := auth.AuthMiddleware(tokenSvc, authRepo)

	// Reviews: public listing, protected create/delete
	reviewsRepo := reviews.NewRepo(db)
	reviewsHandler := reviews.NewHandler(reviewsRepo)
	reviewsHandler.RegisterComicRoutes(apiGroup.Group("/comics"), authMW)
	reviewsHandler.RegisterReviewRoutes(apiGroup.Group("/reviews"), authMW)

	// Library (protected)
	protected := apiGroup.Group("/users")
	protected.Use(authMW)

	libRepo := library.NewRepo(db)
	libHandler := library.NewHandler(libRepo, hub)
	libHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":" + srvCfg.Port,
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
		logger.Info("http listening", zap.String("addr", httpSrv.Addr), zap.String("db", dbCfg.Path))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	if err := tcpSrv.Close(); err != nil {
		logger.Error("tcp shutdown error", zap.Error(err))
	}
	if err := notifySrv.Close(); err != nil {
		logger.Error("notify shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("servers stopped")
}
