package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/cache"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	// --- Link cache (optional) ---
	var links quiz.LinkCache = cache.Noop{}
	ready := []func(context.Context) error{dbh.PingContext}
	if cfg.RedisURL != "" {
		rl, err := cache.NewRedisLinks(ctx, cfg.RedisURL, cfg.LinkCacheTTL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rl.Close()
		links = rl
		ready = append(ready, rl.Ping)
	}

	// --- Services ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.JWTExpiration)
	v := users.NewValidator()
	events := syncx.NewEventRepo(dbh)
	quizSvc := quiz.NewService(
		quiz.NewSQLStore(dbh, driver),
		quiz.WithEvents(events),
		quiz.WithLinkCache(links),
	)
	userSvc := users.NewService(users.NewSQLStore(dbh), authSvc, v)

	h := api.NewRouter(api.Deps{
		Quiz:           quizSvc,
		Users:          userSvc,
		Auth:           authSvc,
		DB:             dbh,
		Validate:       v,
		Events:         events,
		CORSOrigins:    cfg.CORSOrigins,
		EnableGuest:    cfg.EnableGuestAuth,
		RequestTimeout: cfg.RequestTimeout,
		Ready: func(ctx context.Context) error {
			for _, check := range ready {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on %s (db=%s, guest=%v, redis=%v)", cfg.HTTPAddr, driver, cfg.EnableGuestAuth, cfg.RedisURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
