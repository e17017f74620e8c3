package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"popcorn/internal/faults"
)

// CreateContribution inserts a new contribution in waiting status and
// returns its identifier. A contribution must cite evidence: empty sources
// are rejected before anything touches the table.
func (t *Tx) CreateContribution(ctx context.Context, c *Contribution) (int64, error) {
	ctx = ensureContext(ctx)
	if c == nil {
		return 0, faults.Wrap(faults.ErrInvalidArgument, "ledger", "create", "contribution is nil", nil)
	}
	if len(c.Sources) == 0 {
		return 0, faults.Wrap(faults.ErrInvalidArgument, "ledger", "create", "sources must not be empty", nil)
	}

	addJSON, err := encodeIDSet(c.IDsToAdd)
	if err != nil {
		return 0, err
	}
	updateJSON, err := encodeIDMap(c.IDsToUpdate)
	if err != nil {
		return 0, err
	}
	deleteJSON, err := encodeIDSet(c.IDsToDelete)
	if err != nil {
		return 0, err
	}
	sourcesJSON, err := encodeStringSet(c.Sources)
	if err != nil {
		return 0, err
	}

	res, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO contributions (record_id, author_id, field, ids_to_add, ids_to_update, ids_to_delete, sources, user_comment, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RecordID,
		c.AuthorID,
		string(c.Field),
		addJSON,
		updateJSON,
		deleteJSON,
		sourcesJSON,
		nullableString(c.UserComment),
		ContributionWaiting,
		timestamp(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert contribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetContribution fetches a contribution by identifier. Returns nil when absent.
func (s *Store) GetContribution(ctx context.Context, id int64) (*Contribution, error) {
	return getContribution(ensureContext(ctx), s.db, id)
}

// GetContribution fetches a contribution inside the transaction.
func (t *Tx) GetContribution(ctx context.Context, id int64) (*Contribution, error) {
	return getContribution(ensureContext(ctx), t.tx, id)
}

func getContribution(ctx context.Context, q querier, id int64) (*Contribution, error) {
	row := q.QueryRowContext(ctx, `SELECT `+contributionColumns+` FROM contributions WHERE id = ?`, id)
	contribution, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contribution: %w", err)
	}
	return contribution, nil
}

// AmendContribution replaces the staged diff, sources and comment of a
// still-waiting contribution. The compare-and-set on the waiting status
// keeps an amend from racing a verifier's decision.
func (t *Tx) AmendContribution(ctx context.Context, c *Contribution) error {
	ctx = ensureContext(ctx)
	if c == nil {
		return faults.Wrap(faults.ErrInvalidArgument, "ledger", "amend", "contribution is nil", nil)
	}
	if len(c.Sources) == 0 {
		return faults.Wrap(faults.ErrInvalidArgument, "ledger", "amend", "sources must not be empty", nil)
	}

	addJSON, err := encodeIDSet(c.IDsToAdd)
	if err != nil {
		return err
	}
	updateJSON, err := encodeIDMap(c.IDsToUpdate)
	if err != nil {
		return err
	}
	deleteJSON, err := encodeIDSet(c.IDsToDelete)
	if err != nil {
		return err
	}
	sourcesJSON, err := encodeStringSet(c.Sources)
	if err != nil {
		return err
	}

	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE contributions
         SET ids_to_add = ?, ids_to_update = ?, ids_to_delete = ?, sources = ?, user_comment = ?
         WHERE id = ? AND status = ?`,
		addJSON,
		updateJSON,
		deleteJSON,
		sourcesJSON,
		nullableString(c.UserComment),
		c.ID,
		ContributionWaiting,
	)
	if err != nil {
		return fmt.Errorf("amend contribution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	existing, err := t.GetContribution(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return faults.Wrap(faults.ErrNotFound, "ledger", "amend", fmt.Sprintf("no contribution found with id %d", c.ID), nil)
	}
	return faults.Wrap(faults.ErrConflict, "ledger", "amend", fmt.Sprintf("contribution %d already finalized", c.ID), nil)
}

// FinalizeContribution transitions a waiting contribution to its terminal
// status and stamps the verification metadata. Finalizing twice is a
// conflict; the guard is a compare-and-set on the waiting status.
func (t *Tx) FinalizeContribution(ctx context.Context, id int64, decision ContributionStatus, verifierID, comment string) error {
	ctx = ensureContext(ctx)
	if decision != ContributionAccepted && decision != ContributionRejected {
		return faults.Wrap(faults.ErrInvalidArgument, "ledger", "finalize", fmt.Sprintf("decision %q is not terminal", decision), nil)
	}

	res, err := t.tx.ExecContext(
		ctx,
		`UPDATE contributions
         SET status = ?, verifier_id = ?, verification_comment = ?, verified_at = ?
         WHERE id = ? AND status = ?`,
		decision,
		verifierID,
		nullableString(comment),
		timestamp(time.Now()),
		id,
		ContributionWaiting,
	)
	if err != nil {
		return fmt.Errorf("finalize contribution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	existing, err := t.GetContribution(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return faults.Wrap(faults.ErrNotFound, "ledger", "finalize", fmt.Sprintf("no contribution found with id %d", id), nil)
	}
	return faults.Wrap(faults.ErrConflict, "ledger", "finalize", fmt.Sprintf("contribution %d already finalized", id), nil)
}
