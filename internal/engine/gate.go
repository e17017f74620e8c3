package engine

import (
	"context"
	"fmt"
	"strings"

	"popcorn/internal/catalog"
	"popcorn/internal/faults"
	"popcorn/internal/fields"
)

// gateProposal runs every check that needs no database state: the caller's
// identity and permission, the shape of the diff, and each proposed value.
func (e *Engine) gateProposal(p Proposal) (fields.Policy, error) {
	policy, ok := fields.PolicyFor(p.Field)
	if !ok {
		return fields.Policy{}, faults.Wrap(faults.ErrInvalidArgument, "engine", "propose", fmt.Sprintf("unknown field %q", p.Field), nil)
	}
	if _, known := e.auth.Lookup(p.AuthorID); !known {
		return fields.Policy{}, faults.Wrap(faults.ErrForbidden, "engine", "propose", fmt.Sprintf("unknown user %q", p.AuthorID), nil)
	}
	if !e.auth.HasPermission(p.AuthorID, p.Field) {
		return fields.Policy{}, faults.Wrap(faults.ErrForbidden, "engine", "propose", fmt.Sprintf("user %q may not contribute to %s", p.AuthorID, p.Field), nil)
	}
	if p.empty() {
		return fields.Policy{}, faults.Wrap(faults.ErrInvalidArgument, "engine", "propose", "contribution contains no changes", nil)
	}
	if len(p.Sources) == 0 {
		return fields.Policy{}, faults.Wrap(faults.ErrInvalidArgument, "engine", "propose", "sources must not be empty", nil)
	}
	for _, source := range p.Sources {
		if strings.TrimSpace(source) == "" {
			return fields.Policy{}, faults.Wrap(faults.ErrInvalidArgument, "engine", "propose", "sources must not be blank", nil)
		}
	}

	updateTargets := make(map[int64]struct{}, len(p.Updates))
	for id := range p.Updates {
		updateTargets[id] = struct{}{}
	}
	for _, id := range p.Deletes {
		if _, clash := updateTargets[id]; clash {
			return fields.Policy{}, faults.Wrap(faults.ErrConflict, "engine", "propose", fmt.Sprintf("item %d cannot be both updated and deleted", id), nil)
		}
	}

	for _, value := range p.Adds {
		if err := policy.Validate(value); err != nil {
			return fields.Policy{}, err
		}
	}
	for _, value := range p.Updates {
		if err := policy.Validate(value); err != nil {
			return fields.Policy{}, err
		}
	}
	return policy, nil
}

// checkUniqueness enforces the field's uniqueness rule against the current
// read view and within the proposal itself. Items the proposal replaces or
// removes do not count as occupants of their key.
func checkUniqueness(ctx context.Context, tx *catalog.Tx, p Proposal, policy fields.Policy) error {
	if _, ruled := policy.UniquenessKey(fields.Value{}); !ruled {
		return nil
	}

	displaced := make(map[int64]struct{}, len(p.Updates)+len(p.Deletes))
	for id := range p.Updates {
		displaced[id] = struct{}{}
	}
	for _, id := range p.Deletes {
		displaced[id] = struct{}{}
	}

	accepted, err := tx.ListAccepted(ctx, p.RecordID, p.Field)
	if err != nil {
		return err
	}
	occupied := make(map[string]struct{}, len(accepted))
	for _, item := range accepted {
		if _, gone := displaced[item.ID]; gone {
			continue
		}
		if key, ok := policy.UniquenessKey(item.Value); ok {
			occupied[key] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(p.Adds)+len(p.Updates))
	check := func(value fields.Value) error {
		key, ok := policy.UniquenessKey(value)
		if !ok {
			return nil
		}
		if _, taken := occupied[key]; taken {
			return faults.Wrap(faults.ErrConflict, "engine", "propose", fmt.Sprintf("%s %q already exists", p.Field, value.Display(p.Field)), nil)
		}
		if _, dup := seen[key]; dup {
			return faults.Wrap(faults.ErrInvalidArgument, "engine", "propose", fmt.Sprintf("%s %q proposed twice", p.Field, value.Display(p.Field)), nil)
		}
		seen[key] = struct{}{}
		return nil
	}
	for _, value := range p.Adds {
		if err := check(value); err != nil {
			return err
		}
	}
	for _, value := range p.Updates {
		if err := check(value); err != nil {
			return err
		}
	}
	return nil
}

// checkTarget confirms an update or delete target actually belongs to the
// record and field being edited. Status and lock state are enforced by the
// lock itself; this guards against a diff pointing at someone else's item.
func checkTarget(ctx context.Context, tx *catalog.Tx, recordID int64, field fields.Type, id int64) error {
	item, err := tx.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return faults.Wrap(faults.ErrNotFound, "engine", "propose", fmt.Sprintf("no element found with id %d", id), nil)
	}
	if item.RecordID != recordID || item.Field != field {
		return faults.Wrap(faults.ErrConflict, "engine", "propose", fmt.Sprintf("element %d not found on field %s of record %d", id, field, recordID), nil)
	}
	return nil
}
