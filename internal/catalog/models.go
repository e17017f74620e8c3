package catalog

import (
	"strings"
	"time"

	"popcorn/internal/fields"
)

// ItemStatus represents the lifecycle of a field item.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemAccepted ItemStatus = "accepted"
	ItemRejected ItemStatus = "rejected"
)

// ContributionStatus represents the lifecycle of a contribution.
type ContributionStatus string

const (
	ContributionWaiting  ContributionStatus = "waiting"
	ContributionAccepted ContributionStatus = "accepted"
	ContributionRejected ContributionStatus = "rejected"
)

// ParseContributionStatus converts a string into a known ContributionStatus.
func ParseContributionStatus(value string) (ContributionStatus, bool) {
	normalized := ContributionStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ContributionWaiting, ContributionAccepted, ContributionRejected:
		return normalized, true
	}
	return "", false
}

// Record is the shared aggregate being collaboratively edited.
type Record struct {
	ID        int64
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FieldItem is one value of one field for one record. PENDING and REJECTED
// items never appear in the public read view; the lock flags mark an
// ACCEPTED item as the target of an open contribution.
type FieldItem struct {
	ID              int64
	RecordID        int64
	Field           fields.Type
	Value           fields.Value
	Status          ItemStatus
	LockedForUpdate bool
	LockedForDelete bool
	EntityVersion   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Locked reports whether either lock flag is set.
func (i *FieldItem) Locked() bool {
	return i.LockedForUpdate || i.LockedForDelete
}

// Contribution is a proposed add/update/delete diff against one record's
// field, together with its verification metadata.
type Contribution struct {
	ID       int64
	RecordID int64
	AuthorID string
	Field    fields.Type
	// IDsToAdd are newly created pending items.
	IDsToAdd []int64
	// IDsToUpdate maps each pending shadow item to the accepted item it
	// would replace.
	IDsToUpdate map[int64]int64
	// IDsToDelete are accepted items proposed for removal.
	IDsToDelete []int64
	Sources     []string
	UserComment string
	Status      ContributionStatus
	CreatedAt   time.Time

	VerifierID          string
	VerificationComment string
	VerifiedAt          *time.Time
}

// StagedItemCount returns how many field items the contribution references.
func (c *Contribution) StagedItemCount() int {
	return len(c.IDsToAdd) + 2*len(c.IDsToUpdate) + len(c.IDsToDelete)
}
