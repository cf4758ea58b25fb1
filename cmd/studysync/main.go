package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/courseapi"
	"github.com/studysync/studysync/internal/middleware"
	"github.com/studysync/studysync/internal/repository"
	"github.com/studysync/studysync/internal/service"
)

const usageText = `usage: studysync [-config file] <command> [flags]

commands:
  login    -email E [-password P]       sign in and store the token pair
  signup   -name N -email E [-password P]
  logout                                forget the stored token pair
  whoami                                show the signed-in student
  courses  [-all]                       list enrolled courses (or the catalog)
  enroll   CODE                         enroll in or drop a course by code
  feed     [-course ID]                 list study sessions, newest first
  show     ID                           show one study session
  post     create|edit -course ID -from T -to T [-location L] [-info I]
  join     ID                           join a study session
  leave                                 leave your current study session
  end                                   end the study session you created
`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogger(logger, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a, closeStore, err := newApp(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		stop()
		logger.WithError(err).Fatal("Failed to initialize client")
	}

	err = a.run(ctx, flag.Args())

	if cerr := closeStore(); cerr != nil {
		logger.WithError(cerr).Warn("Failed to close credential store")
	}
	stop()

	os.Exit(exitCode(err))
}

func setupLogger(logger *logrus.Logger, cfg config.LogConfig) {
	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Unknown log level, using warn")
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usageText)
		return 2
	case errors.Is(err, service.ErrAuthFailed):
		// The navigator has already told the user to sign in again.
		return 3
	default:
		fmt.Fprintln(os.Stderr, "studysync:", err)
		return 1
	}
}

// newApp wires the credential store, the authenticated client and the
// course API from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, in io.Reader, out io.Writer) (*app, func() error, error) {
	baseURL, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	repo, closeStore, err := repository.NewCredentialRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	httpClient := middleware.NewHTTPClient(cfg.API.Timeout, logger)

	loginURL, err := service.ResolveTarget(baseURL, cfg.API.LoginURL)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	refresher := service.NewTokenRefresher(httpClient, baseURL, repo, logger)
	redirector := service.NewLoginRedirector(repo, service.NewTerminalNavigator(os.Stderr), loginURL, logger)
	authClient := service.NewAuthClient(httpClient, baseURL, repo, refresher, redirector, logger)

	return &app{
		session: service.NewSessionService(httpClient, baseURL, repo, logger),
		api:     courseapi.NewClient(authClient, httpClient, baseURL, logger),
		in:      in,
		out:     out,
	}, closeStore, nil
}
