package pg

import (
	"context"
	"database/sql"
	"errors"

	"edunexus.org/internal/identity"
)

type sequenceStore struct {
	db *sql.DB
}

var _ identity.SequenceStore = (*sequenceStore)(nil)

// Next atomically increments and returns the counter for key, creating it
// at 1 on first use. The upsert runs as a single statement so concurrent
// callers on the same key serialize on the row lock and never see the same
// value.
func (s *sequenceStore) Next(ctx context.Context, key string) (int64, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var value int64
	err := s.db.QueryRowContext(ctx, `
		insert into sequences (key, value)
		values ($1, 1)
		on conflict (key) do update
		set value = sequences.value + 1
		returning value
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.New("sequence upsert returned no row")
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}
