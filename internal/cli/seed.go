package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/config"
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/pkg/logger"
)

// seedFile is the layout of a question seed file:
//
//	questions:
//	  - date: "2026-10-19"
//	    question: "Best pizza topping?"
type seedFile struct {
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	ID       string `yaml:"id"`
	Date     string `yaml:"date"`
	Question string `yaml:"question"`
}

func newSeedCmd(configPath *string) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert daily questions from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.LoadFile(ctx, *configPath)
			if err != nil {
				return err
			}
			log, err := setupLogging(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			n, err := seedQuestions(ctx, store, f)
			if err != nil {
				return err
			}
			log.Info(ctx, "questions seeded", logger.Int("count", n), logger.String("file", path))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d questions\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "questions.yaml", "YAML file with the questions to load")
	return cmd
}

// seedQuestions validates every entry of r before writing any of them, then
// upserts them by date. Existing dates keep their question id.
func seedQuestions(ctx context.Context, store repository.Questions, r io.Reader) (int, error) {
	var sf seedFile
	if err := yaml.NewDecoder(r).Decode(&sf); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	dates := make(map[string]struct{}, len(sf.Questions))
	ids := make(map[string]struct{}, len(sf.Questions))
	for i, q := range sf.Questions {
		if _, err := time.Parse(model.DateLayout, q.Date); err != nil {
			return 0, fmt.Errorf("question %d: date %q is not YYYY-MM-DD", i+1, q.Date)
		}
		if strings.TrimSpace(q.Question) == "" {
			return 0, fmt.Errorf("question %d: text is empty", i+1)
		}
		if _, dup := dates[q.Date]; dup {
			return 0, fmt.Errorf("question %d: date %s appears twice", i+1, q.Date)
		}
		dates[q.Date] = struct{}{}

		if q.ID == "" {
			continue
		}
		if _, dup := ids[q.ID]; dup {
			return 0, fmt.Errorf("question %d: id %s appears twice", i+1, q.ID)
		}
		ids[q.ID] = struct{}{}
		// An id may only be reused for the date it already belongs to.
		existing, err := store.QuestionByID(ctx, q.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return 0, fmt.Errorf("question %d: look up id %s: %w", i+1, q.ID, err)
		case existing.Date != q.Date:
			return 0, fmt.Errorf("question %d: id %s already belongs to %s", i+1, q.ID, existing.Date)
		}
	}

	for _, q := range sf.Questions {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := store.UpsertQuestion(ctx, model.Question{ID: id, Text: strings.TrimSpace(q.Question), Date: q.Date}); err != nil {
			return 0, fmt.Errorf("upsert question for %s: %w", q.Date, err)
		}
	}
	return len(sf.Questions), nil
}
