package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/handlers"
	"github.com/studysync/studysync/internal/middleware"
)

// devserver runs the in-memory study-session backend locally so the CLI can
// be tried without the real service.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	backend, err := handlers.NewBackend(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize backend")
	}

	if !cfg.DevServer.NoSeed {
		if err := seed(backend); err != nil {
			logger.WithError(err).Fatal("Failed to seed backend")
		}
	}

	router := backend.Router()
	router.Use(middleware.LoggingMiddleware(logger))

	srv := &http.Server{
		Addr:         cfg.DevServer.Addr,
		Handler:      router,
		ReadTimeout:  cfg.DevServer.ReadTimeout,
		WriteTimeout: cfg.DevServer.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", cfg.DevServer.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// seed loads the demo catalog and one account, jasonlee@umass.edu / password.
func seed(b *handlers.Backend) error {
	courses := []struct{ code, name, instructor string }{
		{"CS 101", "Introduction to Computer Science", "Prof. Knuth"},
		{"MATH 201", "Calculus II", "Prof. Noether"},
		{"PHYS 150", "General Physics", "Prof. Meitner"},
		{"ENG 205", "American Literature", "Prof. Morrison"},
		{"CHEM 301", "Organic Chemistry", "Prof. Franklin"},
		{"HIST 120", "World History", "Prof. Tuchman"},
	}
	for _, c := range courses {
		b.AddCourse(c.code, c.name, c.instructor)
	}

	_, err := b.AddStudent("Jason Lee", "jasonlee@umass.edu", "password")
	return err
}
