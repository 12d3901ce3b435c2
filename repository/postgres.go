package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"sheetTranslator/models"
)

var ErrNotRecorded = errors.New("task history row not written")

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS translation_history (
		task_id           TEXT PRIMARY KEY,
		filename          TEXT NOT NULL,
		status            TEXT NOT NULL,
		total_rows        INTEGER NOT NULL,
		translated_rows   INTEGER NOT NULL,
		message           TEXT NOT NULL,
		download_filename TEXT,
		started_at        TIMESTAMPTZ,
		finished_at       TIMESTAMPTZ,
		recorded_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// HistoryRepo appends one audit row per finished task. Rows are never read
// back into the task registry.
type HistoryRepo struct {
	db Execer
}

func NewHistoryRepo(db Execer) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, createTableQuery)
	return err
}

func (r *HistoryRepo) Report(ctx context.Context, task models.Task) error {
	if !task.Status.Terminal() {
		return nil
	}

	query := `
		INSERT INTO translation_history
			(task_id, filename, status, total_rows, translated_rows, message, download_filename, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		ON CONFLICT (task_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		task.ID,
		task.Filename,
		string(task.Status),
		task.Total,
		task.Current,
		task.Message,
		task.DownloadFilename,
		task.StartedAt,
		task.FinishedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotRecorded
	}

	return nil
}
