package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"popcorn/internal/catalog"
	"popcorn/internal/config"
	"popcorn/internal/faults"
	"popcorn/internal/fields"
	"popcorn/internal/identity"
	"popcorn/internal/logging"
)

// Engine drives the contribution workflow: staging proposed diffs and
// applying verifier decisions. All catalog writes go through here so that
// every lock flag and status transition happens inside one transaction.
type Engine struct {
	store         *catalog.Store
	auth          identity.Authorizer
	logger        *slog.Logger
	staleAttempts int
}

// New constructs an engine bound to the given store and authorizer.
func New(store *catalog.Store, auth identity.Authorizer, logger *slog.Logger, cfg *config.Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := 1
	if cfg != nil && cfg.Engine.StaleRetryAttempts > 0 {
		attempts = cfg.Engine.StaleRetryAttempts
	}
	return &Engine{
		store:         store,
		auth:          auth,
		logger:        logger.With(logging.FieldComponent, "engine"),
		staleAttempts: attempts,
	}
}

// Proposal is one user's diff against a single field of a single record.
type Proposal struct {
	AuthorID string
	RecordID int64
	Field    fields.Type
	// Adds are brand new values.
	Adds []fields.Value
	// Updates maps an accepted item ID to its proposed replacement value.
	Updates map[int64]fields.Value
	// Deletes are accepted item IDs proposed for removal.
	Deletes []int64
	Sources []string
	Comment string
}

func (p Proposal) empty() bool {
	return len(p.Adds) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// Verdict is a verifier's decision on one waiting contribution.
type Verdict struct {
	ContributionID int64
	VerifierID     string
	Accept         bool
	Comment        string
}

// Propose stages a contribution: every add becomes a pending item, every
// update becomes a pending shadow plus a lock on the old item, every delete
// locks its target. Either the whole diff stages and a waiting contribution
// exists, or nothing is written.
func (e *Engine) Propose(ctx context.Context, p Proposal) (*catalog.Contribution, error) {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	ctx = logging.WithRecordID(ctx, p.RecordID)
	ctx = logging.WithFieldType(ctx, string(p.Field))
	log := logging.WithContext(ctx, e.logger)

	policy, err := e.gateProposal(p)
	if err != nil {
		log.Warn("proposal rejected", "user_id", p.AuthorID, "error", err)
		return nil, err
	}

	var contribution *catalog.Contribution
	err = e.store.WithTx(ctx, e.staleAttempts, func(tx *catalog.Tx) error {
		exists, err := tx.RecordExists(ctx, p.RecordID)
		if err != nil {
			return err
		}
		if !exists {
			return faults.Wrap(faults.ErrNotFound, "engine", "propose", fmt.Sprintf("no record found with id %d", p.RecordID), nil)
		}

		if err := checkUniqueness(ctx, tx, p, policy); err != nil {
			return err
		}

		diff := catalog.Contribution{
			RecordID:    p.RecordID,
			AuthorID:    p.AuthorID,
			Field:       p.Field,
			Sources:     p.Sources,
			UserComment: p.Comment,
		}
		if err := stageDiff(ctx, tx, p, &diff); err != nil {
			return err
		}

		id, err := tx.CreateContribution(ctx, &diff)
		if err != nil {
			return err
		}
		contribution, err = tx.GetContribution(ctx, id)
		return err
	})
	if err != nil {
		log.Warn("proposal failed", "user_id", p.AuthorID, "error", err)
		return nil, err
	}

	log.Info("contribution staged",
		"contribution_id", contribution.ID,
		"user_id", p.AuthorID,
		"adds", len(contribution.IDsToAdd),
		"updates", len(contribution.IDsToUpdate),
		"deletes", len(contribution.IDsToDelete),
	)
	return contribution, nil
}

// Amend lets a contribution's author rework the diff while it still waits
// for verification. The previously staged rows are unstaged, every lock is
// released, and the new diff stages under the same checks Propose applies.
// Only the original author may amend, and only while the contribution is
// waiting.
func (e *Engine) Amend(ctx context.Context, contributionID int64, p Proposal) (*catalog.Contribution, error) {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	ctx = logging.WithContributionID(ctx, contributionID)
	log := logging.WithContext(ctx, e.logger)

	var contribution *catalog.Contribution
	err := e.store.WithTx(ctx, e.staleAttempts, func(tx *catalog.Tx) error {
		c, err := tx.GetContribution(ctx, contributionID)
		if err != nil {
			return err
		}
		if c == nil {
			return faults.Wrap(faults.ErrNotFound, "engine", "amend", fmt.Sprintf("no contribution found with id %d", contributionID), nil)
		}
		if c.AuthorID != p.AuthorID {
			return faults.Wrap(faults.ErrForbidden, "engine", "amend", fmt.Sprintf("contribution %d belongs to another user", c.ID), nil)
		}
		if c.Status != catalog.ContributionWaiting {
			return faults.Wrap(faults.ErrConflict, "engine", "amend", fmt.Sprintf("contribution %d already finalized", c.ID), nil)
		}

		p.RecordID = c.RecordID
		p.Field = c.Field
		policy, err := e.gateProposal(p)
		if err != nil {
			return err
		}

		if err := unstageDiff(ctx, tx, c); err != nil {
			return err
		}
		if err := checkUniqueness(ctx, tx, p, policy); err != nil {
			return err
		}

		amended := catalog.Contribution{
			ID:          c.ID,
			RecordID:    c.RecordID,
			AuthorID:    c.AuthorID,
			Field:       c.Field,
			Sources:     p.Sources,
			UserComment: p.Comment,
		}
		if err := stageDiff(ctx, tx, p, &amended); err != nil {
			return err
		}

		if err := tx.AmendContribution(ctx, &amended); err != nil {
			return err
		}
		contribution, err = tx.GetContribution(ctx, c.ID)
		return err
	})
	if err != nil {
		log.Warn("amend failed", "user_id", p.AuthorID, "error", err)
		return nil, err
	}

	log.Info("contribution amended",
		"user_id", p.AuthorID,
		"adds", len(contribution.IDsToAdd),
		"updates", len(contribution.IDsToUpdate),
		"deletes", len(contribution.IDsToDelete),
	)
	return contribution, nil
}

// Verify applies a verifier's decision to a waiting contribution. On accept
// the staged diff becomes visible: adds and update shadows turn ACCEPTED and
// superseded or deleted items cease to exist. On reject the staged rows turn
// REJECTED and every locked item is released unchanged.
func (e *Engine) Verify(ctx context.Context, v Verdict) (*catalog.Contribution, error) {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	ctx = logging.WithContributionID(ctx, v.ContributionID)
	log := logging.WithContext(ctx, e.logger)

	if !e.auth.IsVerifier(v.VerifierID) {
		err := faults.Wrap(faults.ErrForbidden, "engine", "verify", fmt.Sprintf("user %q is not a verifier", v.VerifierID), nil)
		log.Warn("verification rejected", "user_id", v.VerifierID, "error", err)
		return nil, err
	}

	decision := catalog.ContributionRejected
	if v.Accept {
		decision = catalog.ContributionAccepted
	}

	var contribution *catalog.Contribution
	err := e.store.WithTx(ctx, e.staleAttempts, func(tx *catalog.Tx) error {
		c, err := tx.GetContribution(ctx, v.ContributionID)
		if err != nil {
			return err
		}
		if c == nil {
			return faults.Wrap(faults.ErrNotFound, "engine", "verify", fmt.Sprintf("no contribution found with id %d", v.ContributionID), nil)
		}
		if c.Status != catalog.ContributionWaiting {
			return faults.Wrap(faults.ErrConflict, "engine", "verify", fmt.Sprintf("contribution %d already finalized", c.ID), nil)
		}

		if v.Accept {
			err = applyDiff(ctx, tx, c)
		} else {
			err = revertDiff(ctx, tx, c)
		}
		if err != nil {
			return err
		}

		if err := tx.FinalizeContribution(ctx, c.ID, decision, v.VerifierID, v.Comment); err != nil {
			return err
		}
		contribution, err = tx.GetContribution(ctx, c.ID)
		return err
	})
	if err != nil {
		log.Warn("verification failed", "user_id", v.VerifierID, "error", err)
		return nil, err
	}

	log.Info("contribution finalized",
		"user_id", v.VerifierID,
		"decision", string(decision),
		"staged_items", contribution.StagedItemCount(),
	)
	return contribution, nil
}

// stageDiff writes the proposal into the catalog: pending rows for adds,
// pending shadows plus update locks for updates, delete locks for deletes.
// The staged identifiers land in diff.
func stageDiff(ctx context.Context, tx *catalog.Tx, p Proposal, diff *catalog.Contribution) error {
	diff.IDsToUpdate = make(map[int64]int64, len(p.Updates))
	for _, value := range p.Adds {
		item, err := tx.CreatePending(ctx, p.RecordID, p.Field, value)
		if err != nil {
			return err
		}
		diff.IDsToAdd = append(diff.IDsToAdd, item.ID)
	}
	for oldID, value := range p.Updates {
		if err := checkTarget(ctx, tx, p.RecordID, p.Field, oldID); err != nil {
			return err
		}
		shadow, err := tx.CreatePending(ctx, p.RecordID, p.Field, value)
		if err != nil {
			return err
		}
		if err := tx.LockForUpdate(ctx, oldID); err != nil {
			return err
		}
		diff.IDsToUpdate[shadow.ID] = oldID
	}
	for _, id := range p.Deletes {
		if err := checkTarget(ctx, tx, p.RecordID, p.Field, id); err != nil {
			return err
		}
		if err := tx.LockForDelete(ctx, id); err != nil {
			return err
		}
		diff.IDsToDelete = append(diff.IDsToDelete, id)
	}
	return nil
}

// unstageDiff undoes staging for an amended contribution: pending rows are
// discarded outright and every locked target is released.
func unstageDiff(ctx context.Context, tx *catalog.Tx, c *catalog.Contribution) error {
	for _, id := range c.IDsToAdd {
		if err := tx.DiscardPending(ctx, id); err != nil {
			return err
		}
	}
	for shadowID, oldID := range c.IDsToUpdate {
		if err := tx.DiscardPending(ctx, shadowID); err != nil {
			return err
		}
		if err := tx.Unlock(ctx, oldID); err != nil {
			return err
		}
	}
	for _, id := range c.IDsToDelete {
		if err := tx.Unlock(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func applyDiff(ctx context.Context, tx *catalog.Tx, c *catalog.Contribution) error {
	for _, id := range c.IDsToAdd {
		if err := tx.CommitAdd(ctx, id); err != nil {
			return err
		}
	}
	for shadowID, oldID := range c.IDsToUpdate {
		if err := tx.CommitUpdate(ctx, oldID, shadowID); err != nil {
			return err
		}
	}
	for _, id := range c.IDsToDelete {
		if err := tx.CommitDelete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func revertDiff(ctx context.Context, tx *catalog.Tx, c *catalog.Contribution) error {
	for _, id := range c.IDsToAdd {
		if err := tx.RevertAdd(ctx, id); err != nil {
			return err
		}
	}
	for shadowID, oldID := range c.IDsToUpdate {
		if err := tx.RevertUpdate(ctx, shadowID, oldID); err != nil {
			return err
		}
	}
	for _, id := range c.IDsToDelete {
		if err := tx.RevertDelete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
