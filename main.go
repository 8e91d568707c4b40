package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulsiveblog/pulsive/internal/auth"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/db"
	"github.com/pulsiveblog/pulsive/internal/github"
	"github.com/pulsiveblog/pulsive/internal/handler"
	"github.com/pulsiveblog/pulsive/internal/logger"
	"github.com/pulsiveblog/pulsive/internal/media"
	"github.com/pulsiveblog/pulsive/internal/render"
	"github.com/pulsiveblog/pulsive/internal/repository"
	"github.com/pulsiveblog/pulsive/internal/user"
	"github.com/pulsiveblog/pulsive/internal/vault"
	"github.com/pulsiveblog/pulsive/internal/webhook"
)

const configPath = "config.yaml"

func main() {
	bootstrap := logger.New("info")
	if err := godotenv.Load(); err != nil {
		// A missing .env is normal outside development.
		bootstrap.Debug().Err(err).Msg("No .env file loaded")
	}

	config.SetLogger(bootstrap)
	if err := config.LoadConfig(configPath); err != nil {
		bootstrap.Fatal().Err(err).Msg("Error loading configuration")
	}

	l := logger.New(config.AppConfig.Logging.Level)
	config.SetLogger(l)
	db.SetLogger(l)
	user.SetLogger(l)
	github.SetLogger(l)
	repository.SetLogger(l)
	webhook.SetLogger(l)
	render.SetLogger(l)
	media.SetLogger(l)
	auth.SetLogger(l)
	handler.SetLogger(l)

	v, err := vault.New(os.Getenv(config.EnvEncryptionKey))
	if err != nil {
		l.Fatal().Err(err).Msgf("Invalid %s, generate one with cmd/genkey", config.EnvEncryptionKey)
	}

	database := db.NewSQLite()
	if err := database.InitDb(config.AppConfig.Storage.SQLitePath); err != nil {
		l.Fatal().Err(err).Msg("Error initializing database")
	}
	defer database.Close()

	users := user.NewStore(database)

	notifier := webhook.NewNotifier(users, webhook.Config{
		Workers:   config.AppConfig.Webhook.Workers,
		QueueSize: config.AppConfig.Webhook.QueueSize,
		Timeout:   time.Duration(config.AppConfig.Webhook.TimeoutSeconds) * time.Second,
		LogLimit:  config.AppConfig.Content.WebhookLogLimit,
	})
	notifier.Start(context.Background())
	defer notifier.Stop()

	var postRepository repository.PostRepository
	var aggregator handler.Aggregator
	var mediaStore media.Store

	switch backend := config.AppConfig.Storage.Backend; backend {
	case "github":
		repo := repository.NewGithubPostRepository(users, v, config.AppConfig.Storage.GithubAPIURL)
		postRepository, aggregator = repo, repo
		mediaStore = media.NewRepoStore(repo)
	case "sqlite":
		repo := repository.NewDBPostRepository(database)
		postRepository, aggregator = repo, repo
	default:
		l.Fatal().Str("backend", backend).Msg("Unknown storage backend")
	}
	postRepository.SetNotifier(notifier)

	if config.AppConfig.Media.Backend == "s3" {
		mediaStore = media.NewS3Store(
			os.Getenv(config.EnvS3AccessKey),
			os.Getenv(config.EnvS3SecretKey),
			config.AppConfig.Media.S3Endpoint,
			config.AppConfig.Media.S3Bucket,
		)
	}
	if mediaStore == nil {
		l.Fatal().Msg("Media backend 'repo' requires the github storage backend; configure media.backend: s3")
	}

	authProvider := auth.AuthProvider(auth.NewAPIKeyAuthProvider(users))
	if clerkKey := os.Getenv(config.EnvClerkAPIKey); clerkKey != "" {
		authProvider = auth.NewClerkAuthProvider(clerkKey, users)
	}

	h := handler.New(handler.Deps{
		Repo:           postRepository,
		Aggregator:     aggregator,
		Users:          users,
		Media:          mediaStore,
		Auth:           authProvider,
		Vault:          v,
		GithubAPIURL:   config.AppConfig.Storage.GithubAPIURL,
		ProvisionRepos: config.AppConfig.Storage.Backend == "github",
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	addr := config.AppConfig.Server.Host + ":" + config.AppConfig.Server.Port
	server := &http.Server{
		Addr:    addr,
		Handler: secureHeaders(mux),
	}

	go func() {
		l.Info().Str("addr", addr).Str("backend", config.AppConfig.Storage.Backend).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	l.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Shutdown error")
	}
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
