package localvault

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
)

// historyKey is the single slot the encrypted history list lives under.
const historyKey = "lexpacte_history"

// Vault is a single-user history store backed by a local sqlite file.
// The whole entry list is sealed as one payload, so a corrupted or
// foreign-key payload simply reads back as an empty history.
type Vault struct {
	mu  sync.Mutex
	db  *sql.DB
	box domain.Sealer
}

func Open(path string, box domain.Sealer) (*Vault, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS vault (
  name    TEXT PRIMARY KEY,
  payload TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Vault{db: db, box: box}, nil
}

func (v *Vault) Close() error { return v.db.Close() }

func (v *Vault) load(ctx context.Context) ([]*domain.Entry, error) {
	var payload string
	err := v.db.QueryRowContext(ctx,
		`SELECT payload FROM vault WHERE name = ?`, historyKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []*domain.Entry
	if !v.box.Open(payload, &entries) {
		return nil, nil
	}
	return entries, nil
}

func (v *Vault) store(ctx context.Context, entries []*domain.Entry) error {
	payload, err := v.box.Seal(entries)
	if err != nil {
		return err
	}
	_, err = v.db.ExecContext(ctx, `
INSERT INTO vault (name, payload) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
		historyKey, payload)
	return err
}

// Save prepends the entry so the list stays newest first. An existing
// entry with the same id is replaced in place.
func (v *Vault) Save(ctx context.Context, e *domain.Entry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load(ctx)
	if err != nil {
		return err
	}
	for i, cur := range entries {
		if cur.ID == e.ID {
			entries[i] = e
			return v.store(ctx, entries)
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	entries = append([]*domain.Entry{e}, entries...)
	return v.store(ctx, entries)
}

func (v *Vault) Get(ctx context.Context, userID, id string) (*domain.Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (v *Vault) List(ctx context.Context, userID string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Entry
	for _, e := range entries {
		if e.UserID != userID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (v *Vault) Delete(ctx context.Context, userID, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID == id && e.UserID == userID {
			continue
		}
		kept = append(kept, e)
	}
	return v.store(ctx, kept)
}

func (v *Vault) Summary(ctx context.Context, userID string, sinceDays int) (map[string]int, error) {
	if sinceDays <= 0 {
		sinceDays = 30
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)
	out := map[string]int{}
	total := 0
	for _, e := range entries {
		if e.UserID != userID || e.CreatedAt.Before(cut) {
			continue
		}
		out[e.Score]++
		total++
	}
	out["total"] = total
	return out, nil
}
