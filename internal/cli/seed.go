package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"sanskriti-quiz-service/internal/config"
	"sanskriti-quiz-service/internal/domain"
)

// NewSeedCmd bulk-loads questions from a JSON file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions from a JSON file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "questions.json", "path to questions JSON file")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	for _, q := range questions {
		if !q.Valid() {
			return fmt.Errorf("%w: question %q has no valid correct option", domain.ErrValidation, q.Text)
		}
	}

	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, q := range questions {
		_, err := pool.Exec(ctx, `
			INSERT INTO questions (question_text, option_a, option_b, option_c, option_d,
			                       correct_option, category, difficulty)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			q.CorrectOption, q.Category, q.Difficulty)
		if err != nil {
			return fmt.Errorf("insert question %q: %w", q.Text, err)
		}
	}
	log.Printf("seeded %d questions", len(questions))
	return nil
}
