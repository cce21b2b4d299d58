package analysis

import "context"

// HistoryRepository port (interface for persistence of completed analyses)
type HistoryRepository interface {
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, userID, id string) (*Entry, error)
	List(ctx context.Context, userID string, limit int) ([]*Entry, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string, sinceDays int) (map[string]int, error)
}

// TextExtractor port (interface for PDF text extraction)
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ArtifactStore port (interface for archiving exported reports)
type ArtifactStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Sealer obscures values before they reach persistent storage. Open returns
// false instead of an error: a failed decrypt means "no data available".
type Sealer interface {
	Seal(v any) (string, error)
	Open(ciphertext string, v any) bool
}
