package engine_test

import (
	"context"
	"errors"
	"testing"

	"popcorn/internal/catalog"
	"popcorn/internal/config"
	"popcorn/internal/engine"
	"popcorn/internal/faults"
	"popcorn/internal/fields"
	"popcorn/internal/logging"
	"popcorn/internal/testsupport"
)

type fixture struct {
	cfg    *config.Config
	store  *catalog.Store
	engine *engine.Engine
	record *catalog.Record
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	auth := testsupport.NewAuthorizer(t, cfg)
	eng := engine.New(store, auth, logging.NewNop(), cfg)
	record := testsupport.NewRecord(t, store, "Blade Runner")
	return &fixture{cfg: cfg, store: store, engine: eng, record: record}
}

func (f *fixture) propose(t *testing.T, p engine.Proposal) *catalog.Contribution {
	t.Helper()
	if p.RecordID == 0 {
		p.RecordID = f.record.ID
	}
	if p.AuthorID == "" {
		p.AuthorID = "alice"
	}
	if p.Sources == nil {
		p.Sources = []string{"https://example.com/evidence"}
	}
	contribution, err := f.engine.Propose(context.Background(), p)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	return contribution
}

func (f *fixture) accept(t *testing.T, id int64) *catalog.Contribution {
	t.Helper()
	contribution, err := f.engine.Verify(context.Background(), engine.Verdict{
		ContributionID: id,
		VerifierID:     "vera",
		Accept:         true,
	})
	if err != nil {
		t.Fatalf("Verify(accept) failed: %v", err)
	}
	return contribution
}

func (f *fixture) reject(t *testing.T, id int64, comment string) *catalog.Contribution {
	t.Helper()
	contribution, err := f.engine.Verify(context.Background(), engine.Verdict{
		ContributionID: id,
		VerifierID:     "vera",
		Comment:        comment,
	})
	if err != nil {
		t.Fatalf("Verify(reject) failed: %v", err)
	}
	return contribution
}

// acceptedGenre seeds one accepted genre item through the full workflow.
func (f *fixture) acceptedGenre(t *testing.T, genre string) *catalog.FieldItem {
	t.Helper()
	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: genre}},
	})
	f.accept(t, contribution.ID)

	item, err := f.store.GetItem(context.Background(), contribution.IDsToAdd[0])
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item == nil || item.Status != catalog.ItemAccepted {
		t.Fatalf("expected accepted item, got %#v", item)
	}
	return item
}

func TestProposeAddStaysInvisibleUntilAccepted(t *testing.T) {
	f := newFixture(t)

	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: "drama"}},
	})
	if contribution.Status != catalog.ContributionWaiting {
		t.Fatalf("expected waiting contribution, got %s", contribution.Status)
	}
	if len(contribution.IDsToAdd) != 1 {
		t.Fatalf("expected one staged add, got %#v", contribution)
	}

	items, err := f.store.ListAccepted(context.Background(), f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("pending add leaked into read view: %#v", items)
	}

	f.accept(t, contribution.ID)
	items, err = f.store.ListAccepted(context.Background(), f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(items) != 1 || items[0].Value.Genre != "drama" {
		t.Fatalf("unexpected read view after accept: %#v", items)
	}
}

func TestProposeRequiresKnownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "mallory",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "drama"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestProposeRequiresFieldPermission(t *testing.T) {
	f := newFixture(t)

	// bob holds genre and country only.
	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "bob",
		RecordID: f.record.ID,
		Field:    fields.TypeOutline,
		Adds:     []fields.Value{{Text: "A replicant hunter burns out."}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "bob",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "drama"}},
		Sources:  []string{"https://example.com"},
	}); err != nil {
		t.Fatalf("permitted field should succeed: %v", err)
	}
}

func TestProposeRejectsEmptyDiffAndMissingSources(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty diff, got %v", err)
	}

	_, err = f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "drama"}},
	})
	if !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for missing sources, got %v", err)
	}
}

func TestProposeValidatesValues(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "polka"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown genre, got %v", err)
	}

	_, err = f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeReleaseDate,
		Adds:     []fields.Value{{Date: "next tuesday", Country: "US"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for malformed date, got %v", err)
	}
}

func TestProposeUnknownRecordReportsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: 9999,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "drama"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProposeDuplicateValueConflicts(t *testing.T) {
	f := newFixture(t)
	f.acceptedGenre(t, "drama")

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "Drama"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict for duplicate genre, got %v", err)
	}
}

func TestProposeDuplicateWithinRequestRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "drama"}, {Genre: "DRAMA"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for in-request duplicate, got %v", err)
	}
}

func TestProposeFailureStagesNothing(t *testing.T) {
	f := newFixture(t)
	existing := f.acceptedGenre(t, "drama")

	// The first add is fine, the second collides with the accepted item.
	// The whole proposal must roll back, including the first pending row.
	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Adds:     []fields.Value{{Genre: "thriller"}, {Genre: "drama"}},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	health, err := f.store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if health.TotalItems != 1 {
		t.Fatalf("expected only the seeded item to remain, got %d", health.TotalItems)
	}
	item, err := f.store.GetItem(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Locked() {
		t.Fatalf("seeded item must stay unlocked: %#v", item)
	}
}

func TestProposeUpdateAndDeleteSameItemRejected(t *testing.T) {
	f := newFixture(t)
	item := f.acceptedGenre(t, "drama")

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Updates:  map[int64]fields.Value{item.ID: {Genre: "thriller"}},
		Deletes:  []int64{item.ID},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestProposeTargetOnOtherRecordConflicts(t *testing.T) {
	f := newFixture(t)
	item := f.acceptedGenre(t, "drama")
	other := testsupport.NewRecord(t, f.store, "Solaris")

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: other.ID,
		Field:    fields.TypeGenre,
		Deletes:  []int64{item.ID},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict for off-record target, got %v", err)
	}
}

func TestLockedItemRejectsCompetingProposal(t *testing.T) {
	f := newFixture(t)
	item := f.acceptedGenre(t, "drama")

	first := f.propose(t, engine.Proposal{
		Field:   fields.TypeGenre,
		Updates: map[int64]fields.Value{item.ID: {Genre: "thriller"}},
	})

	_, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "bob",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Deletes:  []int64{item.ID},
		Sources:  []string{"https://example.com"},
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict on locked item, got %v", err)
	}

	// Rejecting the first contribution releases the lock and the second
	// attempt goes through.
	f.reject(t, first.ID, "not convinced")
	if _, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "bob",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Deletes:  []int64{item.ID},
		Sources:  []string{"https://example.com"},
	}); err != nil {
		t.Fatalf("proposal after release failed: %v", err)
	}
}

func TestAcceptUpdateReplacesItem(t *testing.T) {
	f := newFixture(t)
	old := f.acceptedGenre(t, "drama")

	contribution := f.propose(t, engine.Proposal{
		Field:   fields.TypeGenre,
		Updates: map[int64]fields.Value{old.ID: {Genre: "thriller"}},
	})
	finalized := f.accept(t, contribution.ID)
	if finalized.Status != catalog.ContributionAccepted || finalized.VerifierID != "vera" {
		t.Fatalf("unexpected finalized contribution: %#v", finalized)
	}
	if finalized.VerifiedAt == nil {
		t.Fatal("expected verification timestamp")
	}

	ctx := context.Background()
	gone, err := f.store.GetItem(ctx, old.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("superseded item should be removed, got %#v", gone)
	}

	items, err := f.store.ListAccepted(ctx, f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(items) != 1 || items[0].Value.Genre != "thriller" || items[0].Locked() {
		t.Fatalf("unexpected read view after accepted update: %#v", items)
	}
}

func TestRejectUpdateLeavesReadViewUntouched(t *testing.T) {
	f := newFixture(t)
	old := f.acceptedGenre(t, "drama")

	contribution := f.propose(t, engine.Proposal{
		Field:   fields.TypeGenre,
		Updates: map[int64]fields.Value{old.ID: {Genre: "thriller"}},
	})
	finalized := f.reject(t, contribution.ID, "source does not say that")
	if finalized.Status != catalog.ContributionRejected {
		t.Fatalf("expected rejected contribution, got %s", finalized.Status)
	}
	if finalized.VerificationComment != "source does not say that" {
		t.Fatalf("unexpected verification comment: %q", finalized.VerificationComment)
	}

	ctx := context.Background()
	items, err := f.store.ListAccepted(ctx, f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != old.ID || items[0].Value.Genre != "drama" || items[0].Locked() {
		t.Fatalf("read view changed after reject: %#v", items)
	}

	for shadowID := range contribution.IDsToUpdate {
		shadow, err := f.store.GetItem(ctx, shadowID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if shadow == nil || shadow.Status != catalog.ItemRejected {
			t.Fatalf("expected rejected shadow, got %#v", shadow)
		}
	}
}

func TestAcceptDeleteRemovesItem(t *testing.T) {
	f := newFixture(t)
	item := f.acceptedGenre(t, "drama")

	contribution := f.propose(t, engine.Proposal{
		Field:   fields.TypeGenre,
		Deletes: []int64{item.ID},
	})
	f.accept(t, contribution.ID)

	items, err := f.store.ListAccepted(context.Background(), f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty read view, got %#v", items)
	}
}

func TestUpdateMayReuseDisplacedKey(t *testing.T) {
	f := newFixture(t)
	item := f.acceptedGenre(t, "drama")

	// Replacing an item with a value sharing its uniqueness key is legal:
	// the displaced item no longer occupies the key.
	if _, err := f.engine.Propose(context.Background(), engine.Proposal{
		AuthorID: "alice",
		RecordID: f.record.ID,
		Field:    fields.TypeGenre,
		Updates:  map[int64]fields.Value{item.ID: {Genre: "Drama"}},
		Sources:  []string{"https://example.com"},
	}); err != nil {
		t.Fatalf("update reusing displaced key failed: %v", err)
	}
}

func TestAmendReplacesStagedDiff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: "drama"}},
	})
	staleShadow := contribution.IDsToAdd[0]

	amended, err := f.engine.Amend(ctx, contribution.ID, engine.Proposal{
		AuthorID: "alice",
		Adds:     []fields.Value{{Genre: "comedy"}},
		Sources:  []string{"https://example.com/corrected"},
		Comment:  "picked the wrong genre",
	})
	if err != nil {
		t.Fatalf("Amend failed: %v", err)
	}
	if amended.ID != contribution.ID {
		t.Fatalf("expected amend to keep contribution %d, got %d", contribution.ID, amended.ID)
	}
	if len(amended.IDsToAdd) != 1 || amended.IDsToAdd[0] == staleShadow {
		t.Fatalf("expected a fresh staged item, got %#v", amended.IDsToAdd)
	}
	if amended.UserComment != "picked the wrong genre" {
		t.Fatalf("expected amended comment, got %q", amended.UserComment)
	}

	discarded, err := f.store.GetItem(ctx, staleShadow)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if discarded != nil {
		t.Fatalf("expected superseded shadow to be discarded, got %#v", discarded)
	}

	f.accept(t, amended.ID)
	items, err := f.store.ListAccepted(ctx, f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(items) != 1 || items[0].Value.Genre != "comedy" {
		t.Fatalf("expected only the amended genre, got %#v", items)
	}
}

func TestAmendReleasesSupersededLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.acceptedGenre(t, "horror")

	contribution := f.propose(t, engine.Proposal{
		Field:   fields.TypeGenre,
		Updates: map[int64]fields.Value{target.ID: {Genre: "thriller"}},
	})

	// The amend drops the locked target from the diff, so the lock must go.
	if _, err := f.engine.Amend(ctx, contribution.ID, engine.Proposal{
		AuthorID: "alice",
		Adds:     []fields.Value{{Genre: "comedy"}},
		Sources:  []string{"https://example.com/evidence"},
	}); err != nil {
		t.Fatalf("Amend failed: %v", err)
	}

	item, err := f.store.GetItem(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item == nil || item.Locked() {
		t.Fatalf("expected target to be unlocked after amend, got %#v", item)
	}

	// A competing delete on the released target must now succeed.
	f.propose(t, engine.Proposal{
		AuthorID: "bob",
		Field:    fields.TypeGenre,
		Deletes:  []int64{target.ID},
	})
}

func TestAmendRequiresAuthor(t *testing.T) {
	f := newFixture(t)
	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: "drama"}},
	})

	_, err := f.engine.Amend(context.Background(), contribution.ID, engine.Proposal{
		AuthorID: "bob",
		Adds:     []fields.Value{{Genre: "comedy"}},
		Sources:  []string{"https://example.com/evidence"},
	})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Fatalf("expected forbidden for non-author, got %v", err)
	}
}

func TestAmendFinalizedContributionConflicts(t *testing.T) {
	f := newFixture(t)
	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: "drama"}},
	})
	f.accept(t, contribution.ID)

	_, err := f.engine.Amend(context.Background(), contribution.ID, engine.Proposal{
		AuthorID: "alice",
		Adds:     []fields.Value{{Genre: "comedy"}},
		Sources:  []string{"https://example.com/evidence"},
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict amending a finalized contribution, got %v", err)
	}
}

func TestAmendUnknownContributionReportsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Amend(context.Background(), 404, engine.Proposal{
		AuthorID: "alice",
		Adds:     []fields.Value{{Genre: "comedy"}},
		Sources:  []string{"https://example.com/evidence"},
	})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifyRequiresVerifier(t *testing.T) {
	f := newFixture(t)
	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: "drama"}},
	})

	_, err := f.engine.Verify(context.Background(), engine.Verdict{
		ContributionID: contribution.ID,
		VerifierID:     "alice",
		Accept:         true,
	})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestVerifyUnknownContributionReportsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Verify(context.Background(), engine.Verdict{
		ContributionID: 4242,
		VerifierID:     "vera",
		Accept:         true,
	})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifyTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	contribution := f.propose(t, engine.Proposal{
		Field: fields.TypeGenre,
		Adds:  []fields.Value{{Genre: "drama"}},
	})
	f.accept(t, contribution.ID)

	_, err := f.engine.Verify(context.Background(), engine.Verdict{
		ContributionID: contribution.ID,
		VerifierID:     "vera",
	})
	if !errors.Is(err, faults.ErrConflict) {
		t.Fatalf("expected conflict on second decision, got %v", err)
	}
}

func TestMixedDiffRoundTrip(t *testing.T) {
	f := newFixture(t)
	kept := f.acceptedGenre(t, "drama")
	doomed := f.acceptedGenre(t, "romance")

	contribution := f.propose(t, engine.Proposal{
		Field:   fields.TypeGenre,
		Adds:    []fields.Value{{Genre: "thriller"}},
		Updates: map[int64]fields.Value{kept.ID: {Genre: "crime"}},
		Deletes: []int64{doomed.ID},
	})
	if contribution.StagedItemCount() != 4 {
		t.Fatalf("expected four staged items, got %d", contribution.StagedItemCount())
	}
	f.accept(t, contribution.ID)

	items, err := f.store.ListAccepted(context.Background(), f.record.ID, fields.TypeGenre)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	genres := make(map[string]bool, len(items))
	for _, item := range items {
		genres[item.Value.Genre] = true
		if item.Locked() {
			t.Fatalf("accepted item still locked: %#v", item)
		}
	}
	if len(items) != 2 || !genres["thriller"] || !genres["crime"] {
		t.Fatalf("unexpected read view: %#v", genres)
	}
}
