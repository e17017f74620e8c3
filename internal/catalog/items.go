package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"popcorn/internal/faults"
	"popcorn/internal/fields"
)

// GetItem fetches a field item by identifier. Returns nil when absent.
func (s *Store) GetItem(ctx context.Context, id int64) (*FieldItem, error) {
	return getItem(ensureContext(ctx), s.db, id)
}

// GetItem fetches a field item inside the transaction.
func (t *Tx) GetItem(ctx context.Context, id int64) (*FieldItem, error) {
	return getItem(ensureContext(ctx), t.tx, id)
}

func getItem(ctx context.Context, q querier, id int64) (*FieldItem, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM field_items WHERE id = ?`, id)
	item, err := scanFieldItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListAccepted returns the public read view: accepted items of one field on
// one record, ordered by identifier. Pending and rejected items never
// appear here.
func (s *Store) ListAccepted(ctx context.Context, recordID int64, field fields.Type) ([]*FieldItem, error) {
	return listAccepted(ensureContext(ctx), s.db, recordID, field)
}

// ListAccepted returns the accepted items inside the transaction.
func (t *Tx) ListAccepted(ctx context.Context, recordID int64, field fields.Type) ([]*FieldItem, error) {
	return listAccepted(ensureContext(ctx), t.tx, recordID, field)
}

func listAccepted(ctx context.Context, q querier, recordID int64, field fields.Type) ([]*FieldItem, error) {
	rows, err := q.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM field_items WHERE record_id = ? AND field = ? AND status = ? ORDER BY id`,
		recordID, string(field), ItemAccepted,
	)
	if err != nil {
		return nil, fmt.Errorf("list accepted items: %w", err)
	}
	defer rows.Close()

	var items []*FieldItem
	for rows.Next() {
		item, err := scanFieldItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreatePending inserts a new pending item. Pending items are proposal
// targets: invisible to readers until a verifier accepts the owning
// contribution.
func (t *Tx) CreatePending(ctx context.Context, recordID int64, field fields.Type, value fields.Value) (*FieldItem, error) {
	ctx = ensureContext(ctx)
	encoded, err := value.Encode()
	if err != nil {
		return nil, err
	}
	now := timestamp(time.Now())
	res, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO field_items (record_id, field, value_json, status, locked_for_update, locked_for_delete, entity_version, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		recordID, string(field), encoded, ItemPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pending item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return t.GetItem(ctx, id)
}

// LockForUpdate marks an accepted, unlocked item as the target of an update
// contribution. A lost race reports as a conflict, never a silent overwrite.
func (t *Tx) LockForUpdate(ctx context.Context, id int64) error {
	return t.lock(ctx, id, "locked_for_update")
}

// LockForDelete marks an accepted, unlocked item as the target of a delete
// contribution.
func (t *Tx) LockForDelete(ctx context.Context, id int64) error {
	return t.lock(ctx, id, "locked_for_delete")
}

func (t *Tx) lock(ctx context.Context, id int64, column string) error {
	ctx = ensureContext(ctx)
	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE field_items
         SET `+column+` = 1, entity_version = entity_version + 1, updated_at = ?
         WHERE id = ? AND status = ? AND locked_for_update = 0 AND locked_for_delete = 0`,
		timestamp(time.Now()), id, ItemAccepted,
	)
	if err != nil {
		return fmt.Errorf("lock item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	return t.classifyLockFailure(ctx, id)
}

func (t *Tx) classifyLockFailure(ctx context.Context, id int64) error {
	item, err := t.GetItem(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case item == nil:
		return faults.Wrap(faults.ErrNotFound, "catalog", "lock", fmt.Sprintf("no element found with id %d", id), nil)
	case item.Locked():
		return faults.Wrap(faults.ErrConflict, "catalog", "lock", fmt.Sprintf("element %d is already reported", id), nil)
	case item.Status != ItemAccepted:
		return faults.Wrap(faults.ErrConflict, "catalog", "lock", fmt.Sprintf("element %d is not accepted", id), nil)
	default:
		return faults.Wrap(faults.ErrStale, "catalog", "lock", fmt.Sprintf("element %d moved underneath us", id), nil)
	}
}

// Unlock clears both lock flags. Used when a contribution is rejected.
func (t *Tx) Unlock(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE field_items
         SET locked_for_update = 0, locked_for_delete = 0, entity_version = entity_version + 1, updated_at = ?
         WHERE id = ?`,
		timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("unlock item: %w", err)
	}
	return t.expectOneRow(res, "unlock", id)
}

// CommitAdd promotes a pending item into the public read view.
func (t *Tx) CommitAdd(ctx context.Context, id int64) error {
	return t.transition(ctx, id, ItemPending, ItemAccepted, "commit add")
}

// CommitUpdate replaces the old accepted item with its pending shadow: the
// shadow becomes accepted and the superseded row ceases to exist.
func (t *Tx) CommitUpdate(ctx context.Context, oldID, newID int64) error {
	if err := t.transition(ctx, newID, ItemPending, ItemAccepted, "commit update"); err != nil {
		return err
	}
	return t.remove(ctx, oldID, "commit update")
}

// CommitDelete removes a delete-locked item.
func (t *Tx) CommitDelete(ctx context.Context, id int64) error {
	return t.remove(ctx, id, "commit delete")
}

// DiscardPending deletes a pending item outright. Used when an author
// amends a waiting contribution: shadows that never reached a verifier
// leave no audit row behind.
func (t *Tx) DiscardPending(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM field_items WHERE id = ? AND status = ?`,
		id, ItemPending,
	)
	if err != nil {
		return fmt.Errorf("discard pending: %w", err)
	}
	return t.expectOneRow(res, "discard pending", id)
}

// RevertAdd marks a pending add as rejected. The row remains for audit but
// is excluded from every read view.
func (t *Tx) RevertAdd(ctx context.Context, id int64) error {
	return t.transition(ctx, id, ItemPending, ItemRejected, "revert add")
}

// RevertUpdate rejects the pending shadow and releases the old item
// unchanged.
func (t *Tx) RevertUpdate(ctx context.Context, newID, oldID int64) error {
	if err := t.transition(ctx, newID, ItemPending, ItemRejected, "revert update"); err != nil {
		return err
	}
	return t.Unlock(ctx, oldID)
}

// RevertDelete releases a delete-locked item unchanged.
func (t *Tx) RevertDelete(ctx context.Context, id int64) error {
	return t.Unlock(ctx, id)
}

func (t *Tx) transition(ctx context.Context, id int64, from, to ItemStatus, op string) error {
	ctx = ensureContext(ctx)
	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE field_items
         SET status = ?, locked_for_update = 0, locked_for_delete = 0, entity_version = entity_version + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		to, timestamp(time.Now()), id, from,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return t.expectOneRow(res, op, id)
}

func (t *Tx) remove(ctx context.Context, id int64, op string) error {
	ctx = ensureContext(ctx)
	res, err := t.tx.ExecContext(ctx, `DELETE FROM field_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return t.expectOneRow(res, op, id)
}

func (t *Tx) expectOneRow(res sql.Result, op string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return faults.Wrap(faults.ErrStale, "catalog", op, fmt.Sprintf("element %d moved underneath us", id), nil)
	}
	return nil
}
