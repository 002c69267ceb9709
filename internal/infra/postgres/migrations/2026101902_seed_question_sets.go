package migrations

import (
	"context"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"quiz-night/internal/content"
	"quiz-night/internal/domain"
)

// QuestionSetRow is one named question set stored as JSONB.
type QuestionSetRow struct {
	bun.BaseModel `bun:"table:question_sets"`

	Name      string            `bun:"name,pk"`
	Questions []domain.Question `bun:"data,type:jsonb"`
	UpdatedAt time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			sets, err := content.Sets()
			if err != nil {
				return err
			}
			return UpsertQuestionSets(ctx, db, sets)
		},
		func(ctx context.Context, db *bun.DB) error {
			sets, err := content.Sets()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sets))
			for name := range sets {
				names = append(names, name)
			}
			_, err = db.NewDelete().
				Model((*QuestionSetRow)(nil)).
				Where("name IN (?)", bun.In(names)).
				Exec(ctx)
			return err
		},
	)
}

// UpsertQuestionSets writes sets, replacing any stored set with the same name.
func UpsertQuestionSets(ctx context.Context, db bun.IDB, sets map[string][]domain.Question) error {
	if len(sets) == 0 {
		return nil
	}
	rows := make([]QuestionSetRow, 0, len(sets))
	for name, questions := range sets {
		rows = append(rows, QuestionSetRow{Name: name, Questions: questions, UpdatedAt: time.Now().UTC()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (name) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
