package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/certificate"
	"quizmaster-service/internal/domain"
	pgloader "quizmaster-service/internal/infra/postgres"
	infraredis "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/infra/sqlstore"
	"quizmaster-service/internal/infra/storage"
)

func TestAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, pgURL)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := sqlstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	quizID := seedQuiz(t, ctx, sqlstore.NewCatalog(db))

	pool, err := pgloader.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	loader := pgloader.NewQuizLoader(pool)

	quiz, err := loader.LoadQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if quiz.SubjectName != "Math" || quiz.ChapterName != "Arithmetic" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz from pgx loader: %+v", quiz)
	}
	if _, err := loader.LoadQuiz(ctx, quizID+100); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	ledger := sqlstore.NewLedger(db)
	service := app.NewAttemptService(
		infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute),
		infraredis.NewAttemptStore(redisClient, 5*time.Minute),
		ledger,
		app.NewCertificateTrigger(certificate.NewPDFRenderer(blobs), ledger, 0),
		nil,
	)

	user := domain.User{ID: "u1", DisplayName: "Alice"}
	rendered, err := service.Render(ctx, user, quizID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	correct := map[string]string{"1+1?": "two", "Sky?": "blue"}
	selections := domain.Selections{}
	for _, q := range rendered.Questions {
		for _, opt := range q.Options {
			if opt.Text == correct[q.Statement] {
				selections[q.ID] = strconv.Itoa(opt.Position)
			}
		}
	}

	outcome, err := service.Submit(ctx, user, quizID, selections)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Degraded || outcome.Score.TotalScored != 10 || outcome.Percent != 100 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Certificate == nil || !strings.Contains(outcome.Certificate.FilePath, "certificate_u1_") {
		t.Fatalf("expected certificate, got %+v (%s)", outcome.Certificate, outcome.CertificateWarning)
	}

	again, err := service.Submit(ctx, user, quizID, selections)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !again.Degraded || again.Score.TotalScored != 0 {
		t.Fatalf("expected degraded second submit, got %+v", again)
	}

	results, err := service.Results(ctx, user.ID, quizID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Score.ID != again.Score.ID || results.TotalPossible != 10 || results.Certificate == nil {
		t.Fatalf("unexpected results %+v", results)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, catalog *sqlstore.Catalog) int64 {
	t.Helper()
	quizID, err := catalog.EnsureQuiz(ctx, "Math", "Arithmetic", "Sums")
	if err != nil {
		t.Fatalf("ensure quiz: %v", err)
	}
	_, err = catalog.AddQuestions(ctx, quizID, []domain.Question{
		{Statement: "1+1?", Options: [domain.OptionCount]string{"one", "two", "three", "four"}, CorrectOption: 2, Points: 3},
		{Statement: "Sky?", Options: [domain.OptionCount]string{"red", "green", "blue", "black"}, CorrectOption: 3, Points: 7},
	})
	if err != nil {
		t.Fatalf("add questions: %v", err)
	}
	return quizID
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
