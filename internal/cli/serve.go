package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/medadvisor/advisor-api/internal/config"
	"github.com/medadvisor/advisor-api/internal/constants"
	"github.com/medadvisor/advisor-api/internal/handlers"
	"github.com/medadvisor/advisor-api/internal/middleware"
	"github.com/spf13/cobra"
)

var withScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the action API on HTTP_PORT",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the notification scheduler in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if withScheduler {
		s, err := a.newScheduler()
		if err != nil {
			return err
		}
		s.Start()
		defer s.Stop(context.Background())
		log.Println("Notification scheduler started")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: newRouter(a),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(a *app) *gin.Engine {
	r := gin.Default()

	r.Use(sessions.Sessions(constants.SessionName, newSessionStore(a.cfg)))
	r.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))

	actions := handlers.NewActionHandler(a.tasks, a.notifications, a.backups, a.directory)

	r.GET("/", handlers.Health)
	r.GET("/health", handlers.Health)
	r.POST("/api", actions.Handle)

	return r
}

// newSessionStore keeps sessions in Redis when it is reachable and in signed cookies otherwise
func newSessionStore(cfg *config.Config) sessions.Store {
	var store sessions.Store
	if cfg.RedisHost != "" {
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			cfg.RedisAddr(),
			"", // username (empty for default user)
			"", // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err == nil {
			store = rs
		} else {
			log.Printf("Redis session store unavailable, using cookie sessions: %v", err)
		}
	}
	if store == nil {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.RestoreTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}
