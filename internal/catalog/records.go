package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"popcorn/internal/faults"
)

// CreateRecord inserts a new record aggregate.
func (s *Store) CreateRecord(ctx context.Context, title string) (*Record, error) {
	ctx = ensureContext(ctx)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, faults.Wrap(faults.ErrInvalidArgument, "catalog", "record", "title must not be empty", nil)
	}

	now := timestamp(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO records (title, created_at, updated_at) VALUES (?, ?, ?)`,
		title, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRecord(ctx, id)
}

// GetRecord fetches a record by identifier.
func (s *Store) GetRecord(ctx context.Context, id int64) (*Record, error) {
	return getRecord(ensureContext(ctx), s.db, id)
}

// GetRecord fetches a record by identifier inside the transaction.
func (t *Tx) GetRecord(ctx context.Context, id int64) (*Record, error) {
	return getRecord(ensureContext(ctx), t.tx, id)
}

func getRecord(ctx context.Context, q querier, id int64) (*Record, error) {
	row := q.QueryRowContext(ctx, `SELECT id, title, created_at, updated_at FROM records WHERE id = ?`, id)
	var (
		record     Record
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(&record.ID, &record.Title, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return &record, nil
}

// RecordExists reports whether a record exists.
func (s *Store) RecordExists(ctx context.Context, id int64) (bool, error) {
	return recordExists(ensureContext(ctx), s.db, id)
}

// RecordExists reports whether a record exists inside the transaction.
func (t *Tx) RecordExists(ctx context.Context, id int64) (bool, error) {
	return recordExists(ensureContext(ctx), t.tx, id)
}

func recordExists(ctx context.Context, q querier, id int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM records WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("record exists: %w", err)
	}
	return count > 0, nil
}

// ListRecords returns all records ordered by creation time.
func (s *Store) ListRecords(ctx context.Context) ([]*Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, created_at, updated_at FROM records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			record     Record
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&record.ID, &record.Title, &createdRaw, &updatedRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			record.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			record.UpdatedAt = updated
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
