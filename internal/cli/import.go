package cli

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizmaster-service/internal/config"
	"quizmaster-service/internal/importer"
	redisstore "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/infra/sqlstore"
	"quizmaster-service/internal/logger"
)

// NewImportCmd loads questions from a text file into a quiz.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		quizID  int64
		subject string
		chapter string
		quiz    string
	)
	cmd := &cobra.Command{
		Use:   "import-questions <file>",
		Short: "Import questions from the plain-text block format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if quizID == 0 && quiz == "" {
				return fmt.Errorf("either --quiz-id or --quiz is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)
			defer log.Sync()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			parsed, err := importer.Parse(f)
			if err != nil {
				return err
			}
			log.Info("parsed question file", zap.String("file", args[0]), zap.Int("blocks", parsed.Blocks))
			for _, skipped := range parsed.Skipped {
				log.Warn("skipping block", zap.Int("block", skipped.Block), zap.Int("line", skipped.Line), zap.String("reason", skipped.Reason))
			}

			ctx := cmd.Context()
			db, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := runMigrations(ctx, db, log); err != nil {
				return err
			}

			catalog := sqlstore.NewCatalog(db)
			if quizID == 0 {
				quizID, err = catalog.EnsureQuiz(ctx, orDefault(subject, "General"), orDefault(chapter, "General"), quiz)
				if err != nil {
					return err
				}
			}
			ids, err := catalog.AddQuestions(ctx, quizID, parsed.Questions)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				if err := redisstore.NewQuizRepository(client, nil, 0).Invalidate(ctx, quizID); err != nil {
					log.Warn("quiz cache invalidation failed", zap.Int64("quiz_id", quizID), zap.Error(err))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions into quiz id %d\n", len(ids), quizID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&quizID, "quiz-id", 0, "existing quiz to add questions to")
	cmd.Flags().StringVar(&subject, "subject", "", "subject name when creating the quiz")
	cmd.Flags().StringVar(&chapter, "chapter", "", "chapter name when creating the quiz")
	cmd.Flags().StringVar(&quiz, "quiz", "", "quiz name; created when it does not exist")
	return cmd
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
