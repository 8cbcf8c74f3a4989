package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/config"
	"github.com/dzoniD/FullstackExercise/internal/stub"
)

// stubd runs the local auth and tasks API stand-ins on two ports, the same
// split the real deployment has.
func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg := config.LoadStub()

	store := stub.NewStore()
	server := stub.NewServer(store, logger)

	authSrv := newServer(cfg.AuthPort, server.AuthRouter())
	tasksSrv := newServer(cfg.TasksPort, server.TasksRouter())

	for _, s := range []*http.Server{authSrv, tasksSrv} {
		srv := s
		go func() {
			logger.Info("Server started at ", zap.String("port", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Server failed: ", zap.Error(err))
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down servers...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{authSrv, tasksSrv} {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Shutdown error: ", zap.Error(err))
		}
	}
	logger.Info("Servers stopped")
}

func newServer(port string, routes chi.Router) *http.Server {
	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Mount("/", routes)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
