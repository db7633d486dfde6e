package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type progressRow struct {
	bun.BaseModel `bun:"table:student_progress,alias:sp"`

	StudentID     string    `bun:"student_id,pk"`
	HighWaterMark float64   `bun:"high_water_mark,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// ProgressStore keeps the per-student progress high-water mark.
type ProgressStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db, now: time.Now}
}

func (s *ProgressStore) HighWaterMark(ctx context.Context, studentID string) (float64, error) {
	var row progressRow
	err := s.db.NewSelect().Model(&row).Where("sp.student_id = ?", studentID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select progress: %w", err)
	}
	return row.HighWaterMark, nil
}

// RaiseHighWaterMark never lowers the stored value, even under concurrent writers.
func (s *ProgressStore) RaiseHighWaterMark(ctx context.Context, studentID string, value float64) error {
	row := progressRow{StudentID: studentID, HighWaterMark: value, UpdatedAt: s.now().UTC()}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (student_id) DO UPDATE").
		Set("high_water_mark = GREATEST(sp.high_water_mark, EXCLUDED.high_water_mark)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
