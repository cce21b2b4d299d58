package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save inserts one history entry
func (r *HistoryRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO analyses
  (id, user_id, nom, score, content, mode, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  score=EXCLUDED.score,
  content=EXCLUDED.content;
`
	user := stringOrDash(e.UserID)
	name := stringOrDash(e.Name)
	score := stringOrDash(e.Score)
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, e.ID, user, name, score, e.Content, string(e.Mode), created)
	return err
}

func (r *HistoryRepository) Get(ctx context.Context, userID, id string) (*domain.Entry, error) {
	const q = `
SELECT id, user_id, nom, score, content, mode, created_at
FROM analyses
WHERE user_id=$1 AND id=$2 LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, userID, id)
	var e domain.Entry
	var mode string
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Score, &e.Content, &mode, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Mode = domain.Mode(mode)
	return &e, nil
}

// List returns entries ordered by created_at descending
func (r *HistoryRepository) List(ctx context.Context, userID string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, user_id, nom, score, content, mode, created_at
FROM analyses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		var mode string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Score, &e.Content, &mode, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Mode = domain.Mode(mode)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *HistoryRepository) Delete(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM analyses WHERE user_id=$1 AND id=$2;`
	_, err := r.db.ExecContext(ctx, q, userID, id)
	return err
}

// Summary counts entries per risk label since N days
func (r *HistoryRepository) Summary(ctx context.Context, userID string, sinceDays int) (map[string]int, error) {
	if sinceDays <= 0 {
		sinceDays = 30
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT score, COUNT(*)
FROM analyses
WHERE user_id=$1 AND created_at >= $2
GROUP BY score;
`
	rows, err := r.db.QueryContext(ctx, q, userID, cut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	total := 0
	for rows.Next() {
		var score string
		var n int
		if err := rows.Scan(&score, &n); err != nil {
			return nil, err
		}
		out[score] = n
		total += n
	}
	out["total"] = total
	return out, rows.Err()
}
