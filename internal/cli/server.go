package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/certificate"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
	pgloader "quizmaster-service/internal/infra/postgres"
	redisstore "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/infra/sqlstore"
	"quizmaster-service/internal/infra/storage"
	"quizmaster-service/internal/logger"
	"quizmaster-service/internal/metrics"
	transport "quizmaster-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// persistence is the ledger side of the wiring; both the memory and bun ledgers
// also record certificates.
type persistence interface {
	app.Ledger
	app.CertificateRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	defer log.Sync()
	metrics.Init(prometheus.DefaultRegisterer)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	var (
		ledger persistence       = memory.NewLedger()
		loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	)
	if cfg.Database.Driver != "" {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		closers = append(closers, db)
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		ledger = sqlstore.NewLedger(db)
		loader = sqlstore.NewCatalog(db)
	} else {
		log.Warn("no database configured, scores are kept in memory")
	}

	if url := cfg.PostgresURL(); url != "" {
		pool, err := pgloader.Connect(ctx, url)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewQuizLoader(pool)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	attemptTTL := config.TTLDuration(cfg.Attempt.TTL, 2*time.Hour)
	var (
		quizRepo app.QuizRepository
		attempts app.AttemptStore
	)
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		attempts = redisstore.NewAttemptStore(redisClient, attemptTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		attempts = memory.NewAttemptStore(attemptTTL)
	}

	blobs, err := newBlobStore(ctx, cfg.Certificate)
	if err != nil {
		return err
	}
	trigger := app.NewCertificateTrigger(certificate.NewPDFRenderer(blobs), ledger, cfg.Certificate.Threshold)
	service := app.NewAttemptService(quizRepo, attempts, ledger, trigger, log)

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("auth.secret not configured, using an ephemeral secret; issued tokens will not survive a restart")
	}
	authSvc := auth.NewService(secret, config.TTLDuration(cfg.Auth.TokenTTL, 0))

	handler := transport.NewRouter(
		transport.NewAPI(service, log),
		transport.NewWSHandler(service, log),
		authSvc,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newBlobStore(ctx context.Context, cfg config.Certificate) (storage.BlobStore, error) {
	if cfg.Minio.Endpoint != "" {
		store, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Secure:    cfg.Minio.Secure,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "static"
	}
	return storage.NewFSStore(dir)
}

// sampleQuizzes seeds the in-memory mode; configure database.driver for real content.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:          1,
			Name:        "Warm-up",
			ChapterName: "Arithmetic",
			SubjectName: "Mathematics",
			Questions: []domain.Question{
				{ID: 1, QuizID: 1, Statement: "What is 2 + 2?", Options: [domain.OptionCount]string{"3", "4", "5", "22"}, CorrectOption: 2, Points: 1},
				{ID: 2, QuizID: 1, Statement: "What is 3 x 3?", Options: [domain.OptionCount]string{"6", "9", "33", "12"}, CorrectOption: 2, Points: 1},
				{ID: 3, QuizID: 1, Statement: "What is 10 / 4?", Options: [domain.OptionCount]string{"2", "2.5", "3", "4"}, CorrectOption: 2, Points: 2},
			},
		},
	}
}
